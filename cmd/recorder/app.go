package main

import (
	"context"
	"errors"
	"sync"

	tokenfile "github.com/custodia-labs/recorder/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/core/services"
	"github.com/custodia-labs/recorder/internal/logger"
)

// tokenWatchFunc reports changes to the persisted credential until ctx is done.
type tokenWatchFunc func(ctx context.Context, onEvent func(tokenfile.TokenEvent)) error

// app runs the recorder: sign-in, calendar sync and credential watching
// in the background while the orchestrator owns the foreground.
type app struct {
	orchestrator *services.Orchestrator
	auth         *services.Authenticator
	calendar     *services.CalendarSync
	session      driving.SessionService
	state        *services.SharedState
	watch        tokenWatchFunc
	log          logger.Logger
}

// Send implements driving.CommandSink.
func (a *app) Send(cmd domain.CaptureCommand) error {
	return a.orchestrator.Send(cmd)
}

// Run blocks until the orchestrator exits. On quit or logout, uploads
// already in flight are allowed to finish.
func (a *app) Run(ctx context.Context) (domain.ExitReason, error) {
	logger.Section("Recorder")
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	a.goBackground(&wg, func() {
		if err := a.auth.Run(bgCtx); err != nil {
			return
		}
		if a.calendar != nil {
			a.calendar.RefreshNow()
		}
	})
	if a.calendar != nil {
		a.goBackground(&wg, func() {
			if err := a.calendar.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("calendar sync: %v", err)
			}
		})
	}
	if a.watch != nil {
		a.goBackground(&wg, func() {
			if err := a.watch(bgCtx, a.onTokenEvent); err != nil {
				a.log.Warn("token watch: %v", err)
			}
		})
	}

	reason, err := a.orchestrator.Run(ctx)
	logger.Section("Shutdown: " + reason.String())

	if n := a.orchestrator.InFlight(); n > 0 {
		a.log.Info("waiting for %d upload(s) to finish", n)
	}
	a.orchestrator.Wait()

	if a.calendar != nil {
		_ = a.calendar.Stop()
	}
	cancel()
	wg.Wait()

	if reason == domain.ExitLogout {
		if err := a.session.Logout(context.WithoutCancel(ctx)); err != nil {
			a.log.Error("logout: %v", err)
		}
		a.state.SetCredential(nil)
	}
	if reason == domain.ExitContextDone && errors.Is(err, context.Canceled) {
		err = nil
	}
	return reason, err
}

func (a *app) goBackground(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// onTokenEvent keeps the held credential in step with the credential file,
// so a sign-in or logout in another process is picked up.
func (a *app) onTokenEvent(ev tokenfile.TokenEvent) {
	switch ev.Change {
	case tokenfile.TokenUpdated:
		a.state.SetCredential(ev.Credential)
		a.log.Debug("credential file updated")
	case tokenfile.TokenRemoved:
		a.state.SetCredential(nil)
		a.log.Info("credential file removed, signed out")
	}
}
