package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// SessionManager owns the credential lifecycle: load, expiry check,
// refresh, and fallback to a full device authorization.
type SessionManager struct {
	store  driven.TokenStore
	client driven.DeviceFlowClient
	flow   deviceFlow
	now    func() time.Time
	log    logger.Logger

	publisher driving.AuthStatePublisher
	group     singleflight.Group

	// unsaved holds a credential whose persistence failed.
	// It stays usable for the life of the process.
	mu      sync.Mutex
	unsaved *domain.Credential
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// WithSleeper overrides how the device flow waits between polls.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) SessionOption {
	return func(m *SessionManager) { m.flow.sleep = sleep }
}

// WithAuthStatePublisher receives NeedsAuth when a device code is issued.
func WithAuthStatePublisher(p driving.AuthStatePublisher) SessionOption {
	return func(m *SessionManager) { m.publisher = p }
}

// WithFlowObserver receives every device-flow state transition.
func WithFlowObserver(fn func(domain.DeviceFlowState)) SessionOption {
	return func(m *SessionManager) { m.flow.onState = fn }
}

// NewSessionManager creates a session manager.
func NewSessionManager(store driven.TokenStore, client driven.DeviceFlowClient, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:  store,
		client: client,
		now:    time.Now,
		log:    logger.Named("session"),
		flow: deviceFlow{
			client: client,
			sleep:  sleepContext,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.flow.now = m.now
	m.flow.onCode = func(s *domain.DeviceSession) {
		m.log.Info("device code issued, user code %s", s.UserCode)
		if m.publisher != nil {
			m.publisher.PublishAuthState(domain.NeedsAuthState(s))
		}
	}
	return m
}

// GetValidCredential returns a credential outside the expiry margin.
// Concurrent callers share one acquisition.
func (m *SessionManager) GetValidCredential(ctx context.Context) (*domain.Credential, error) {
	v, err, _ := m.group.Do("interactive", func() (any, error) {
		return m.getValidCredential(ctx)
	})
	if err != nil {
		return nil, err
	}
	cred := *v.(*domain.Credential)
	return &cred, nil
}

func (m *SessionManager) getValidCredential(ctx context.Context) (*domain.Credential, error) {
	if cred := m.load(ctx); cred != nil {
		if !cred.IsExpiredAt(m.now()) {
			return cred, nil
		}
		if cred.CanRefresh() {
			refreshed, err := m.refresh(ctx, cred)
			if err == nil {
				return refreshed, nil
			}
			m.log.Warn("refresh failed, starting device authorization: %v", err)
		}
	}

	cred, err := m.flow.run(ctx)
	if err != nil {
		return nil, fmt.Errorf("device authorization: %w", err)
	}
	m.remember(ctx, cred)
	return cred, nil
}

// CredentialForUpload returns a credential without user interaction.
func (m *SessionManager) CredentialForUpload(ctx context.Context) (*domain.Credential, error) {
	v, err, _ := m.group.Do("upload", func() (any, error) {
		cred := m.load(ctx)
		if cred == nil {
			return nil, domain.ErrAuthRequired
		}
		if !cred.IsExpiredAt(m.now()) {
			return cred, nil
		}
		if !cred.CanRefresh() {
			return nil, domain.ErrAuthExpired
		}
		refreshed, err := m.refresh(ctx, cred)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAuthExpired, err)
		}
		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	cred := *v.(*domain.Credential)
	return &cred, nil
}

// Current returns the held credential without any network call.
func (m *SessionManager) Current(ctx context.Context) (*domain.Credential, error) {
	if cred := m.load(ctx); cred != nil {
		return cred, nil
	}
	return nil, domain.ErrAuthRequired
}

// Logout deletes the persisted credential. Copies already handed out
// stay valid until the caller discards them.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.unsaved = nil
	m.mu.Unlock()

	if err := m.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// refresh exchanges the refresh token, keeping the old refresh and
// identity tokens when the server omits them.
func (m *SessionManager) refresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	issuedAt := m.now()
	next, err := m.client.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}

	refreshed := *next
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}
	if refreshed.IDToken == "" {
		refreshed.IDToken = cred.IDToken
	}
	refreshed.IssuedAt(issuedAt)

	m.remember(ctx, &refreshed)
	return &refreshed, nil
}

// load returns the unsaved credential if there is one, then the stored one.
// Storage failures are treated as no credential.
func (m *SessionManager) load(ctx context.Context) *domain.Credential {
	m.mu.Lock()
	unsaved := m.unsaved
	m.mu.Unlock()
	if unsaved != nil {
		cp := *unsaved
		return &cp
	}

	cred, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.log.Warn("load credential: %v", err)
		}
		return nil
	}
	return cred
}

// remember persists cred on a best-effort basis.
func (m *SessionManager) remember(ctx context.Context, cred *domain.Credential) {
	err := m.store.Save(ctx, *cred)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.log.Warn("save credential: %v", err)
		cp := *cred
		m.unsaved = &cp
		return
	}
	m.unsaved = nil
}
