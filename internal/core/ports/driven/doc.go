// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TokenStore: Credential persistence
//   - DeviceFlowClient: OAuth2 device authorization exchanges
//   - StorageClient: The three upload HTTP calls
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ProfileClient: User profile lookup. Without it the profile is empty.
//   - UploadJobStore: Upload history. Without it jobs are not recorded.
//   - EventsProvider: Meeting events. Without it calendar sync is disabled.
//   - CaptureEngine, RecordingEngine, SourcePicker: Platform capture glue.
//     Only the orchestrator needs them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
