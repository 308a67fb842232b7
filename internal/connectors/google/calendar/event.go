package calendar

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

const statusCancelled = "cancelled"

// EventToMeeting converts a Google Calendar event to a MeetingEvent.
// Cancelled events, all-day events and events without a parseable start
// are skipped.
func EventToMeeting(event *calendar.Event) (domain.MeetingEvent, bool) {
	if event == nil || event.Id == "" || event.Status == statusCancelled {
		return domain.MeetingEvent{}, false
	}

	start, ok := parseEventTime(event.Start)
	if !ok {
		return domain.MeetingEvent{}, false
	}
	end, _ := parseEventTime(event.End)

	return domain.MeetingEvent{
		ID:        event.Id,
		Summary:   event.Summary,
		Start:     start,
		End:       end,
		URL:       meetingURL(event),
		Attendees: attendeeNames(event.Attendees),
	}, true
}

// parseEventTime reads a timed boundary. All-day events only carry Date.
func parseEventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil || dt.DateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, dt.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// meetingURL prefers the video join link over the calendar page.
func meetingURL(event *calendar.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep != nil && ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return event.HtmlLink
}

func attendeeNames(attendees []*calendar.EventAttendee) []string {
	var names []string
	for _, a := range attendees {
		if a == nil {
			continue
		}
		if a.DisplayName != "" {
			names = append(names, a.DisplayName)
		} else if a.Email != "" {
			names = append(names, a.Email)
		}
	}
	return names
}
