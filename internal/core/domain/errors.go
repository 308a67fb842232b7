package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Authentication Errors.

	// ErrAuthRequired indicates no usable credential is held and the user must log in.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the credential has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrAccessDenied indicates the user declined the device authorization request.
	ErrAccessDenied = errors.New("access denied by user")

	// ErrExpiredToken indicates the device code expired before the user approved it.
	ErrExpiredToken = errors.New("device code expired")

	// ErrInvalidToken indicates an unusable credential was handed to the upload layer.
	ErrInvalidToken = errors.New("invalid or expired access token")

	// Capture Errors.

	// ErrNoSource indicates a capture command needs a selected source.
	ErrNoSource = errors.New("no source selected")

	// ErrNotCapturing indicates a recording command needs an active capture stream.
	ErrNotCapturing = errors.New("not capturing")

	// ErrOrchestratorStopped indicates the command loop is no longer accepting commands.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")

	// ErrUploadInFlight indicates an upload is already running for this session.
	ErrUploadInFlight = errors.New("upload already in flight")
)

// AuthErrorKind classifies failures of the device authorization exchanges.
type AuthErrorKind int

const (
	// AuthErrNetwork covers transport failures and non-2xx responses.
	AuthErrNetwork AuthErrorKind = iota
	// AuthErrAuthorizationPending is a poll control signal, never surfaced to callers.
	AuthErrAuthorizationPending
	// AuthErrSlowDown is a poll control signal, never surfaced to callers.
	AuthErrSlowDown
	// AuthErrAccessDenied is fatal: the user rejected the request.
	AuthErrAccessDenied
	// AuthErrExpiredToken is fatal: the device code is no longer valid.
	AuthErrExpiredToken
	// AuthErrInvalidResponse covers payloads that could not be decoded.
	AuthErrInvalidResponse
	// AuthErrUnknown covers any other server error code.
	AuthErrUnknown
)

// String returns the kind name.
func (k AuthErrorKind) String() string {
	switch k {
	case AuthErrNetwork:
		return "network"
	case AuthErrAuthorizationPending:
		return "authorization_pending"
	case AuthErrSlowDown:
		return "slow_down"
	case AuthErrAccessDenied:
		return "access_denied"
	case AuthErrExpiredToken:
		return "expired_token"
	case AuthErrInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// AuthError is returned by the device-flow client and session manager.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
}

// NewAuthError creates an AuthError of the given kind.
func NewAuthError(kind AuthErrorKind, format string, args ...any) *AuthError {
	return &AuthError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthErrNetwork:
		return "network error: " + e.Message
	case AuthErrAuthorizationPending:
		return "authorization pending"
	case AuthErrSlowDown:
		return "polling too frequently"
	case AuthErrAccessDenied:
		return ErrAccessDenied.Error()
	case AuthErrExpiredToken:
		return ErrExpiredToken.Error()
	case AuthErrInvalidResponse:
		return "invalid response: " + e.Message
	default:
		return "unknown error: " + e.Message
	}
}

// Is lets errors.Is match the fatal kinds against their sentinels.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.Kind == AuthErrAccessDenied
	case ErrExpiredToken:
		return e.Kind == AuthErrExpiredToken
	}
	return false
}

// UploadErrorKind classifies upload pipeline failures.
type UploadErrorKind int

const (
	// UploadErrNetwork covers transport failures and non-2xx responses.
	UploadErrNetwork UploadErrorKind = iota
	// UploadErrIO covers local filesystem failures.
	UploadErrIO
	// UploadErrInvalidToken signals an unusable credential.
	UploadErrInvalidToken
	// UploadErrInvalidResponse covers payloads that could not be decoded.
	UploadErrInvalidResponse
)

// UploadError is returned by the storage client and upload pipeline.
// Step names the pipeline step that failed and is set by the pipeline.
type UploadError struct {
	Kind    UploadErrorKind
	Step    string
	Message string
}

// NewUploadError creates an UploadError of the given kind.
func NewUploadError(kind UploadErrorKind, format string, args ...any) *UploadError {
	return &UploadError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadErrNetwork:
		return "network error: " + e.Message
	case UploadErrIO:
		return "I/O error: " + e.Message
	case UploadErrInvalidToken:
		return ErrInvalidToken.Error()
	default:
		return "invalid response: " + e.Message
	}
}

// Is maps the invalid token kind onto ErrInvalidToken.
func (e *UploadError) Is(target error) bool {
	return target == ErrInvalidToken && e.Kind == UploadErrInvalidToken
}
