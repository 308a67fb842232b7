// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - SessionManager: credential lifecycle and the device authorization flow
//   - UploadPipeline: the three-step upload
//   - Orchestrator: the capture command loop
//   - CalendarSync, Authenticator: background tasks
//   - SharedState: state shared with the presentation layer
package services
