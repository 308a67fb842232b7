package domain

import "time"

// NextMeetingWindow bounds how far ahead NextMeeting looks.
const NextMeetingWindow = 24 * time.Hour

// MeetingEvent is a calendar entry surfaced next to the recorder.
type MeetingEvent struct {
	ID        string
	Summary   string
	Start     time.Time
	End       time.Time
	URL       string
	Attendees []string
}

// FormattedStart renders the start time in local time.
func (e MeetingEvent) FormattedStart() string {
	return e.Start.Local().Format("Mon Jan 2, 3:04 PM")
}

// OngoingAt reports whether the meeting covers t.
func (e MeetingEvent) OngoingAt(t time.Time) bool {
	if e.End.IsZero() {
		return false
	}
	return !t.Before(e.Start) && t.Before(e.End)
}

// NextMeeting returns the first event starting after now and within
// NextMeetingWindow, in slice order.
func NextMeeting(events []MeetingEvent, now time.Time) (MeetingEvent, bool) {
	limit := now.Add(NextMeetingWindow)
	for _, e := range events {
		if e.Start.After(now) && e.Start.Before(limit) {
			return e, true
		}
	}
	return MeetingEvent{}, false
}

// MeetingAt returns the first event in progress at t.
func MeetingAt(events []MeetingEvent, t time.Time) (MeetingEvent, bool) {
	for _, e := range events {
		if e.OngoingAt(t) {
			return e, true
		}
	}
	return MeetingEvent{}, false
}
