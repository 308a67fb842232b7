package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

func newTestSession(store *mockTokenStore, client *mockDeviceClient, clock *fakeClock, opts ...SessionOption) *SessionManager {
	opts = append([]SessionOption{WithClock(clock.Now), WithSleeper(clock.Sleep)}, opts...)
	return NewSessionManager(store, client, opts...)
}

func deviceSession(clock *fakeClock, interval time.Duration) *domain.DeviceSession {
	return &domain.DeviceSession{
		DeviceCode:      "dev-code",
		UserCode:        "ABCD-EFGH",
		VerificationURI: "https://login.example.com/activate",
		ExpiresAt:       clock.Now().Add(15 * time.Minute),
		Interval:        interval,
	}
}

func TestGetValidCredential_FreshStoredCredential_NoNetwork(t *testing.T) {
	clock := newFakeClock()
	stored := &domain.Credential{AccessToken: "at", RefreshToken: "rt", ExpiresAt: clock.Now().Add(time.Hour).Unix()}
	store := &mockTokenStore{cred: stored}
	client := &mockDeviceClient{}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "at", cred.AccessToken)
	assert.Zero(t, client.networkCalls())
	assert.Empty(t, store.saves)
}

func TestGetValidCredential_PollSequenceIntervals(t *testing.T) {
	clock := newFakeClock()
	i := 5 * time.Second
	client := &mockDeviceClient{
		session: deviceSession(clock, i),
		polls: []pollStep{
			{outcome: domain.PollPending},
			{outcome: domain.PollPending},
			{outcome: domain.PollSlowDown},
			{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "new", RefreshToken: "rt", ExpiresIn: 86400}},
		},
	}
	store := &mockTokenStore{}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{i, i, i, i + 5*time.Second}, clock.sleeps)
	// The clock only moves in Sleep, so the final poll happens at the current time.
	assert.Equal(t, clock.Now().Unix()+86400, cred.ExpiresAt)
	require.Len(t, store.saves, 1)
	assert.Equal(t, "new", store.saves[0].AccessToken)
}

func TestGetValidCredential_PublishesNeedsAuth(t *testing.T) {
	clock := newFakeClock()
	client := &mockDeviceClient{
		session: deviceSession(clock, time.Second),
		polls:   []pollStep{{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "at", ExpiresIn: 3600}}},
	}
	pub := &recordingPublisher{}
	var states []domain.DeviceFlowState
	m := newTestSession(&mockTokenStore{}, client, clock,
		WithAuthStatePublisher(pub),
		WithFlowObserver(func(s domain.DeviceFlowState) { states = append(states, s) }))

	_, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	require.Len(t, pub.states, 1)
	assert.Equal(t, domain.AuthNeedsAuth, pub.states[0].Phase)
	assert.Equal(t, "ABCD-EFGH", pub.states[0].UserCode)
	assert.Equal(t, []domain.DeviceFlowState{
		domain.FlowRequesting, domain.FlowWaiting, domain.FlowPolling, domain.FlowSuccess,
	}, states)
}

func TestGetValidCredential_ExpiredSession_Fatal(t *testing.T) {
	clock := newFakeClock()
	session := deviceSession(clock, 10*time.Second)
	session.ExpiresAt = clock.Now().Add(5 * time.Second)
	client := &mockDeviceClient{
		session: session,
		polls: []pollStep{
			{outcome: domain.PollPending},
			{outcome: domain.PollPending},
			{outcome: domain.PollPending},
		},
	}
	m := newTestSession(&mockTokenStore{}, client, clock)

	_, err := m.GetValidCredential(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExpiredToken))
	// One wait and one poll, then the 10s mark is past expiry.
	assert.Equal(t, []time.Duration{10 * time.Second}, clock.sleeps)
	assert.Equal(t, 1, client.pollCalls)
}

func TestGetValidCredential_AccessDenied_Propagates(t *testing.T) {
	clock := newFakeClock()
	client := &mockDeviceClient{
		session: deviceSession(clock, time.Second),
		polls:   []pollStep{{err: domain.NewAuthError(domain.AuthErrAccessDenied, "")}},
	}
	m := newTestSession(&mockTokenStore{}, client, clock)

	_, err := m.GetValidCredential(context.Background())

	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
}

func TestGetValidCredential_ExpiredCredential_Refreshes(t *testing.T) {
	clock := newFakeClock()
	stored := &domain.Credential{AccessToken: "old", RefreshToken: "rt-1", IDToken: "id-1", ExpiresAt: clock.Now().Add(time.Minute).Unix()}
	store := &mockTokenStore{cred: stored}
	client := &mockDeviceClient{refreshed: &domain.Credential{AccessToken: "new", ExpiresIn: 3600}}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "new", cred.AccessToken)
	assert.Equal(t, "rt-1", cred.RefreshToken, "omitted refresh token keeps the old one")
	assert.Equal(t, "id-1", cred.IDToken)
	assert.Equal(t, clock.Now().Unix()+3600, cred.ExpiresAt)
	assert.Equal(t, []string{"rt-1"}, client.refreshCalls)
	assert.Zero(t, client.requestCalls)
	require.Len(t, store.saves, 1)
}

func TestGetValidCredential_RotatedRefreshToken_Replaces(t *testing.T) {
	clock := newFakeClock()
	store := &mockTokenStore{cred: &domain.Credential{AccessToken: "old", RefreshToken: "rt-1", ExpiresAt: clock.Now().Unix()}}
	client := &mockDeviceClient{refreshed: &domain.Credential{AccessToken: "new", RefreshToken: "rt-2", ExpiresIn: 3600}}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "rt-2", cred.RefreshToken)
}

func TestGetValidCredential_RefreshFails_FallsThroughOnce(t *testing.T) {
	clock := newFakeClock()
	store := &mockTokenStore{cred: &domain.Credential{AccessToken: "old", RefreshToken: "rt", ExpiresAt: clock.Now().Unix()}}
	client := &mockDeviceClient{
		refreshErr: domain.NewAuthError(domain.AuthErrUnknown, "invalid_grant"),
		session:    deviceSession(clock, time.Second),
		polls:      []pollStep{{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "fresh", ExpiresIn: 3600}}},
	}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.AccessToken)
	assert.Len(t, client.refreshCalls, 1)
	assert.Equal(t, 1, client.requestCalls)
	assert.Equal(t, 1, client.pollCalls)
}

func TestGetValidCredential_ExpiredWithoutRefreshToken_RunsDeviceFlow(t *testing.T) {
	clock := newFakeClock()
	store := &mockTokenStore{cred: &domain.Credential{AccessToken: "old", ExpiresAt: clock.Now().Unix()}}
	client := &mockDeviceClient{
		session: deviceSession(clock, time.Second),
		polls:   []pollStep{{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "fresh", ExpiresIn: 3600}}},
	}
	m := newTestSession(store, client, clock)

	_, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Empty(t, client.refreshCalls)
	assert.Equal(t, 1, client.requestCalls)
}

func TestGetValidCredential_SaveFailure_StillUsable(t *testing.T) {
	clock := newFakeClock()
	store := &mockTokenStore{saveErr: errors.New("read-only filesystem")}
	client := &mockDeviceClient{
		session: deviceSession(clock, time.Second),
		polls:   []pollStep{{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "mem", ExpiresIn: 3600}}},
	}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mem", cred.AccessToken)

	again, err := m.GetValidCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mem", again.AccessToken)
	assert.Equal(t, 1, client.requestCalls, "second call is served from memory")
}

func TestGetValidCredential_LoadFailure_TreatedAsMissing(t *testing.T) {
	clock := newFakeClock()
	store := &mockTokenStore{loadErr: errors.New("permission denied")}
	client := &mockDeviceClient{
		session: deviceSession(clock, time.Second),
		polls:   []pollStep{{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "fresh", ExpiresIn: 3600}}},
	}
	m := newTestSession(store, client, clock)

	cred, err := m.GetValidCredential(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.AccessToken)
}

func TestGetValidCredential_ConcurrentCallersShareFlow(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})
	client := &mockDeviceClient{
		session: deviceSession(clock, time.Second),
		polls:   []pollStep{{outcome: domain.PollSuccess, cred: &domain.Credential{AccessToken: "shared", ExpiresIn: 3600}}},
	}
	m := newTestSession(&mockTokenStore{}, client, clock, WithSleeper(func(_ context.Context, d time.Duration) error {
		<-release
		return clock.Sleep(context.Background(), d)
	}))

	var wg sync.WaitGroup
	results := make([]string, 4)
	for n := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := m.GetValidCredential(context.Background())
			if err == nil {
				results[n] = cred.AccessToken
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, client.requestCalls)
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestCredentialForUpload(t *testing.T) {
	t.Run("no credential requires login", func(t *testing.T) {
		clock := newFakeClock()
		client := &mockDeviceClient{}
		m := newTestSession(&mockTokenStore{}, client, clock)

		_, err := m.CredentialForUpload(context.Background())

		assert.ErrorIs(t, err, domain.ErrAuthRequired)
		assert.Zero(t, client.networkCalls())
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		clock := newFakeClock()
		store := &mockTokenStore{cred: &domain.Credential{AccessToken: "at", ExpiresAt: clock.Now().Unix()}}
		m := newTestSession(store, &mockDeviceClient{}, clock)

		_, err := m.CredentialForUpload(context.Background())

		assert.ErrorIs(t, err, domain.ErrAuthExpired)
	})

	t.Run("expired refreshes synchronously", func(t *testing.T) {
		clock := newFakeClock()
		store := &mockTokenStore{cred: &domain.Credential{AccessToken: "at", RefreshToken: "rt", ExpiresAt: clock.Now().Add(299 * time.Second).Unix()}}
		client := &mockDeviceClient{refreshed: &domain.Credential{AccessToken: "renewed", ExpiresIn: 3600}}
		m := newTestSession(store, client, clock)

		cred, err := m.CredentialForUpload(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "renewed", cred.AccessToken)
		assert.False(t, cred.IsExpiredAt(clock.Now()))
	})

	t.Run("refresh failure never starts device flow", func(t *testing.T) {
		clock := newFakeClock()
		store := &mockTokenStore{cred: &domain.Credential{AccessToken: "at", RefreshToken: "rt", ExpiresAt: clock.Now().Unix()}}
		client := &mockDeviceClient{refreshErr: errors.New("boom")}
		m := newTestSession(store, client, clock)

		_, err := m.CredentialForUpload(context.Background())

		assert.ErrorIs(t, err, domain.ErrAuthExpired)
		assert.Zero(t, client.requestCalls)
	})
}

func TestLogout_DeletesPersistedCredential(t *testing.T) {
	clock := newFakeClock()
	store := &mockTokenStore{cred: &domain.Credential{AccessToken: "at", ExpiresAt: clock.Now().Add(time.Hour).Unix()}}
	m := newTestSession(store, &mockDeviceClient{}, clock)

	held, err := m.Current(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, 1, store.deletes)
	assert.Equal(t, "at", held.AccessToken, "copies held by callers are unaffected")
	_, err = m.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestLogout_DeleteError(t *testing.T) {
	store := &mockTokenStore{deleteErr: errors.New("busy")}
	m := newTestSession(store, &mockDeviceClient{}, newFakeClock())

	err := m.Logout(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
}
