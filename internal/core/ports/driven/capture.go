package driven

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// Stream is a live capture stream handle owned by the capture engine.
type Stream interface {
	ID() string
}

// CaptureEngine is the platform screen capture capability.
// Calls are synchronous and made from the orchestrator's goroutine.
type CaptureEngine interface {
	StartCapture(filter domain.ContentFilter, size domain.Size, cfg domain.StreamConfig) (Stream, error)
	StopCapture(stream Stream) error
	UpdateFilter(stream Stream, filter domain.ContentFilter) error

	// FrameCount returns frames delivered since the stream started.
	FrameCount() uint64
	// LatestSurface returns the most recent frame, or nil before the first one.
	LatestSurface() *domain.Surface
}

// RecordingEngine writes a capture stream to a file.
type RecordingEngine interface {
	// StartRecording begins writing and returns the output path.
	StartRecording(stream Stream, cfg domain.RecordingConfig) (string, error)
	// StopRecording finishes the file. ok is false when nothing was written.
	StopRecording(stream Stream) (path string, ok bool)
}

// PickerSink receives a picker result. It is safe for concurrent use.
type PickerSink interface {
	Deposit(result domain.PickerResult)
}

// SourcePicker shows the platform source picker. It returns immediately;
// the result is deposited into the sink later, from any goroutine.
type SourcePicker interface {
	// Pick opens the picker for a new capture.
	Pick(sink PickerSink)
	// PickForStream opens the picker to retarget a live stream.
	PickForStream(sink PickerSink, stream Stream)
}

// EventsProvider fetches meeting events for the signed-in user.
type EventsProvider interface {
	FetchEvents(ctx context.Context, accessToken string) ([]domain.MeetingEvent, error)
}
