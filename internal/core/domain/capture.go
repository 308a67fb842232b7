package domain

import (
	"fmt"
	"time"
)

// NoSourceSelected is the source name shown when nothing is being captured.
const NoSourceSelected = "No source selected"

// Default capture dimensions used until a picker result supplies real ones.
const (
	DefaultCaptureWidth  = 1280
	DefaultCaptureHeight = 720
)

// CaptureCommand is a request sent to the capture orchestrator.
type CaptureCommand int

const (
	CmdSelectSource CaptureCommand = iota
	CmdStartCapture
	CmdStopCapture
	CmdStartRecording
	CmdStopRecording
	CmdCancelRecording
	CmdToggleMicrophone
	CmdQuit
	CmdLogout
)

// String returns the command name.
func (c CaptureCommand) String() string {
	switch c {
	case CmdSelectSource:
		return "select_source"
	case CmdStartCapture:
		return "start_capture"
	case CmdStopCapture:
		return "stop_capture"
	case CmdStartRecording:
		return "start_recording"
	case CmdStopRecording:
		return "stop_recording"
	case CmdCancelRecording:
		return "cancel_recording"
	case CmdToggleMicrophone:
		return "toggle_microphone"
	case CmdQuit:
		return "quit"
	case CmdLogout:
		return "logout"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// ExitReason tells the caller why the orchestrator loop returned.
type ExitReason int

const (
	ExitQuit ExitReason = iota
	ExitLogout
	ExitContextDone
)

// String returns the reason name.
func (r ExitReason) String() string {
	switch r {
	case ExitQuit:
		return "quit"
	case ExitLogout:
		return "logout"
	case ExitContextDone:
		return "context_done"
	default:
		return fmt.Sprintf("exit(%d)", int(r))
	}
}

// ParseCaptureCommand maps a command name, as returned by String, back to
// its command.
func ParseCaptureCommand(name string) (CaptureCommand, bool) {
	for c := CmdSelectSource; c <= CmdLogout; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// ContentFilter identifies the chosen capture source.
// Handle is opaque to the core and only passed back to the capture engine.
type ContentFilter struct {
	ID     string
	Handle any
}

// Size is a capture size in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// String renders the size as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// DefaultCaptureSize is used when no picker result has set one.
func DefaultCaptureSize() Size {
	return Size{Width: DefaultCaptureWidth, Height: DefaultCaptureHeight}
}

// SourceKind is the kind of thing the user picked.
type SourceKind int

const (
	SourceDisplay SourceKind = iota
	SourceWindow
	SourceApplication
)

// SourceDescriptor describes a picked source for display purposes.
type SourceDescriptor struct {
	Kind SourceKind
	// DisplayID is set for SourceDisplay.
	DisplayID uint32
	// Title is the window title for SourceWindow.
	Title string
	// AppName is the owning application for windows and applications.
	AppName string
	Width   uint32
	Height  uint32
}

// DisplayName renders the descriptor as the source name shown to the user.
func (d SourceDescriptor) DisplayName() string {
	switch d.Kind {
	case SourceDisplay:
		return fmt.Sprintf("Display %d (%dx%d)", d.DisplayID, d.Width, d.Height)
	case SourceWindow:
		title := d.Title
		if title == "" {
			title = "Untitled"
		}
		if d.AppName == "" {
			return "Window: " + title
		}
		return fmt.Sprintf("Window: %s (%s)", title, d.AppName)
	default:
		return "App: " + d.AppName
	}
}

// PickerResult is deposited by the source picker once the user chooses.
type PickerResult struct {
	Filter ContentFilter
	Size   Size
	Source SourceDescriptor
}

// StreamConfig is passed to the capture engine on start.
type StreamConfig struct {
	FPS               int
	ShowsCursor       bool
	CaptureMicrophone bool
}

// RecordingConfig is passed to the recording engine on start.
type RecordingConfig struct {
	OutputDir string
	Container string
}

// Surface is a snapshot of the most recent frame.
type Surface struct {
	Width  uint32
	Height uint32
}

// Info renders frame stats for the status line.
func (s *Surface) Info(frames uint64) string {
	if s == nil {
		return fmt.Sprintf("%d frames | no surface", frames)
	}
	return fmt.Sprintf("%d frames | %dx%d", frames, s.Width, s.Height)
}

// FormatElapsed renders a recording duration as MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
