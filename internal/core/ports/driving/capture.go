package driving

import "github.com/custodia-labs/recorder/internal/core/domain"

// CommandSink accepts commands for the capture orchestrator.
// Send never blocks the caller for longer than the queue allows.
type CommandSink interface {
	Send(cmd domain.CaptureCommand) error
}

// EventsService exposes meeting events kept in sync in the background.
type EventsService interface {
	// Events returns a copy of the latest events.
	Events() []domain.MeetingEvent
	// RefreshNow requests an immediate fetch. Returns false when throttled.
	RefreshNow() bool
}
