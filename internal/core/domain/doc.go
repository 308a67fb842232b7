// Package domain defines the core entities of the recorder.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: The locally held token set and its expiry
//   - DeviceSession: One device authorization attempt
//   - UploadStatus / UploadJob: The upload pipeline state
//   - CaptureCommand / PickerResult: The capture orchestrator vocabulary
//   - MeetingEvent: A calendar entry shown next to the recorder
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
