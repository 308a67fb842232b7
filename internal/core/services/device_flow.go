package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// defaultPollInterval is used when the server does not send an interval.
const defaultPollInterval = 5 * time.Second

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// deviceFlow drives one device authorization attempt to completion.
//
//	Requesting -> Waiting(interval) -> Polling -> Waiting | Success | Fatal
//
// Expiry is checked before every wait. Pending keeps the interval and
// slow_down grows it by domain.SlowDownIncrement for the rest of the attempt.
type deviceFlow struct {
	client  driven.DeviceFlowClient
	now     func() time.Time
	sleep   sleepFunc
	onCode  func(*domain.DeviceSession)
	onState func(domain.DeviceFlowState)
}

func (f *deviceFlow) transition(s domain.DeviceFlowState) {
	if f.onState != nil {
		f.onState(s)
	}
}

func (f *deviceFlow) run(ctx context.Context) (*domain.Credential, error) {
	f.transition(domain.FlowRequesting)
	session, err := f.client.RequestDeviceCode(ctx)
	if err != nil {
		f.transition(domain.FlowFatal)
		return nil, fmt.Errorf("request device code: %w", err)
	}
	if session.Interval <= 0 {
		session.Interval = defaultPollInterval
	}
	if f.onCode != nil {
		f.onCode(session)
	}

	for {
		if session.ExpiredAt(f.now()) {
			f.transition(domain.FlowFatal)
			return nil, domain.NewAuthError(domain.AuthErrExpiredToken, "device code expired before approval")
		}

		f.transition(domain.FlowWaiting)
		if err := f.sleep(ctx, session.Interval); err != nil {
			f.transition(domain.FlowFatal)
			return nil, err
		}

		f.transition(domain.FlowPolling)
		polledAt := f.now()
		result, err := f.client.PollToken(ctx, session.DeviceCode)
		if err != nil {
			f.transition(domain.FlowFatal)
			return nil, err
		}

		switch result.Outcome {
		case domain.PollPending:
			continue
		case domain.PollSlowDown:
			session.SlowDown()
			continue
		case domain.PollSuccess:
			if result.Credential == nil {
				f.transition(domain.FlowFatal)
				return nil, domain.NewAuthError(domain.AuthErrInvalidResponse, "success without token")
			}
			cred := *result.Credential
			cred.IssuedAt(polledAt)
			f.transition(domain.FlowSuccess)
			return &cred, nil
		default:
			f.transition(domain.FlowFatal)
			return nil, domain.NewAuthError(domain.AuthErrUnknown, "unexpected poll outcome %s", result.Outcome)
		}
	}
}
