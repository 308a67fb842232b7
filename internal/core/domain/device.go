package domain

import "time"

// SlowDownIncrement is added to the poll interval each time the server
// answers slow_down. The interval never shrinks within one session.
const SlowDownIncrement = 5 * time.Second

// DeviceSession holds one device authorization attempt.
// It is discarded on success, expiry, or fatal error.
type DeviceSession struct {
	// DeviceCode is the opaque, single-use code the client polls with.
	DeviceCode string
	// UserCode is the short code the user types on the verification page.
	UserCode string
	// VerificationURI is where the user enters the code.
	VerificationURI string
	// VerificationURIComplete has the user code pre-filled. May be empty.
	VerificationURIComplete string
	// ExpiresAt is when the device code stops being accepted.
	ExpiresAt time.Time
	// Interval is the current minimum wait between polls.
	Interval time.Duration
}

// ExpiredAt reports whether the session can no longer be polled.
func (s *DeviceSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SlowDown applies server backpressure to the poll interval.
func (s *DeviceSession) SlowDown() {
	s.Interval += SlowDownIncrement
}

// BrowserURI returns the pre-filled verification URI when available.
func (s *DeviceSession) BrowserURI() string {
	if s.VerificationURIComplete != "" {
		return s.VerificationURIComplete
	}
	return s.VerificationURI
}

// PollOutcome is the non-fatal result of one token poll.
type PollOutcome int

const (
	// PollSuccess means a credential was issued.
	PollSuccess PollOutcome = iota
	// PollPending means the user has not finished; retry after one interval.
	PollPending
	// PollSlowDown means the interval must grow before the next poll.
	PollSlowDown
)

// String returns the outcome name.
func (o PollOutcome) String() string {
	switch o {
	case PollSuccess:
		return "success"
	case PollPending:
		return "authorization_pending"
	case PollSlowDown:
		return "slow_down"
	default:
		return "unknown"
	}
}

// PollResult is returned by a token poll. Credential is set only on PollSuccess.
type PollResult struct {
	Outcome    PollOutcome
	Credential *Credential
}

// DeviceFlowState names the steps of the device-flow state machine.
type DeviceFlowState int

const (
	// FlowRequesting is the device-code request.
	FlowRequesting DeviceFlowState = iota
	// FlowWaiting is the sleep before the next poll.
	FlowWaiting
	// FlowPolling is a token poll in progress.
	FlowPolling
	// FlowSuccess is terminal: a credential was issued.
	FlowSuccess
	// FlowFatal is terminal: the attempt cannot continue.
	FlowFatal
)

// String returns the state name.
func (s DeviceFlowState) String() string {
	switch s {
	case FlowRequesting:
		return "requesting"
	case FlowWaiting:
		return "waiting"
	case FlowPolling:
		return "polling"
	case FlowSuccess:
		return "success"
	default:
		return "fatal"
	}
}
