package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
)

// --- Mock implementations for service testing ---

// mockTokenStore implements driven.TokenStore for testing.
type mockTokenStore struct {
	mu        sync.Mutex
	cred      *domain.Credential
	saves     []domain.Credential
	deletes   int
	loadErr   error
	saveErr   error
	deleteErr error
}

var _ driven.TokenStore = (*mockTokenStore)(nil)

func (m *mockTokenStore) Load(_ context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.cred == nil {
		return nil, domain.ErrNotFound
	}
	c := *m.cred
	return &c, nil
}

func (m *mockTokenStore) Save(_ context.Context, cred domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, cred)
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cred = &cred
	return nil
}

func (m *mockTokenStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.cred = nil
	return nil
}

// pollStep is one scripted PollToken response.
type pollStep struct {
	outcome domain.PollOutcome
	cred    *domain.Credential
	err     error
}

// mockDeviceClient implements driven.DeviceFlowClient for testing.
type mockDeviceClient struct {
	mu sync.Mutex

	session    *domain.DeviceSession
	requestErr error
	polls      []pollStep

	refreshed  *domain.Credential
	refreshErr error

	requestCalls int
	pollCalls    int
	refreshCalls []string
}

var _ driven.DeviceFlowClient = (*mockDeviceClient)(nil)

func (m *mockDeviceClient) RequestDeviceCode(_ context.Context) (*domain.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCalls++
	if m.requestErr != nil {
		return nil, m.requestErr
	}
	s := *m.session
	return &s, nil
}

func (m *mockDeviceClient) PollToken(_ context.Context, _ string) (domain.PollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollCalls >= len(m.polls) {
		return domain.PollResult{}, errors.New("unexpected poll")
	}
	step := m.polls[m.pollCalls]
	m.pollCalls++
	if step.err != nil {
		return domain.PollResult{}, step.err
	}
	return domain.PollResult{Outcome: step.outcome, Credential: step.cred}, nil
}

func (m *mockDeviceClient) RefreshToken(_ context.Context, refreshToken string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls = append(m.refreshCalls, refreshToken)
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	c := *m.refreshed
	return &c, nil
}

func (m *mockDeviceClient) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCalls + m.pollCalls + len(m.refreshCalls)
}

// fakeClock advances only when the recorded sleeper is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// recordingPublisher implements driving.AuthStatePublisher for testing.
type recordingPublisher struct {
	mu     sync.Mutex
	states []domain.AuthState
}

var _ driving.AuthStatePublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) PublishAuthState(s domain.AuthState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

// mockStorageClient implements driven.StorageClient for testing.
type mockStorageClient struct {
	mu sync.Mutex

	entry     *domain.FileEntry
	createErr error
	uploadErr error
	metaErr   error
	size      int64

	block chan struct{}

	calls    []string
	metadata []domain.CallMetadata
}

var _ driven.StorageClient = (*mockStorageClient)(nil)

func (m *mockStorageClient) CreateFileEntry(_ context.Context, _ string, fileName string) (*domain.FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create:"+fileName)
	if m.createErr != nil {
		return nil, m.createErr
	}
	e := *m.entry
	return &e, nil
}

func (m *mockStorageClient) UploadBinary(ctx context.Context, uploadURL, _ string) (int64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "put:"+uploadURL)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, domain.NewUploadError(domain.UploadErrNetwork, "%v", ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return 0, m.uploadErr
	}
	return m.size, nil
}

func (m *mockStorageClient) CreateMetadata(_ context.Context, _ string, fileID string, meta domain.CallMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "meta:"+fileID)
	m.metadata = append(m.metadata, meta)
	return m.metaErr
}

func (m *mockStorageClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockJobStore implements driven.UploadJobStore for testing.
type mockJobStore struct {
	mu      sync.Mutex
	jobs    map[string]domain.UploadJob
	order   []string
	saveErr error
}

var _ driven.UploadJobStore = (*mockJobStore)(nil)

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]domain.UploadJob)}
}

func (m *mockJobStore) Save(_ context.Context, job domain.UploadJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.jobs[job.ID]; !ok {
		m.order = append(m.order, job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStore) Get(_ context.Context, id string) (*domain.UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *mockJobStore) List(_ context.Context, limit int) ([]domain.UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UploadJob
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.jobs[m.order[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// statusRecorder implements driving.UploadObserver for testing.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []domain.UploadStatus
}

var _ driving.UploadObserver = (*statusRecorder)(nil)

func (r *statusRecorder) Publish(s domain.UploadStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) Phases() []domain.UploadPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UploadPhase, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, s.Phase)
	}
	return out
}

// mockStream implements driven.Stream for testing.
type mockStream struct{ id string }

func (s *mockStream) ID() string { return s.id }

// mockCaptureEngine implements driven.CaptureEngine for testing.
type mockCaptureEngine struct {
	mu       sync.Mutex
	startErr error
	starts   []domain.ContentFilter
	sizes    []domain.Size
	configs  []domain.StreamConfig
	stops    int
	updates  []domain.ContentFilter
	next     int

	updateErr   error
	updateCalls int
}

var _ driven.CaptureEngine = (*mockCaptureEngine)(nil)

func (m *mockCaptureEngine) StartCapture(f domain.ContentFilter, size domain.Size, cfg domain.StreamConfig) (driven.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.next++
	m.starts = append(m.starts, f)
	m.sizes = append(m.sizes, size)
	m.configs = append(m.configs, cfg)
	return &mockStream{id: fmt.Sprintf("stream-%d", m.next)}, nil
}

func (m *mockCaptureEngine) StopCapture(_ driven.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

func (m *mockCaptureEngine) UpdateFilter(_ driven.Stream, f domain.ContentFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, f)
	return nil
}

func (m *mockCaptureEngine) FrameCount() uint64 { return 0 }

func (m *mockCaptureEngine) LatestSurface() *domain.Surface { return nil }

func (m *mockCaptureEngine) counts() (starts, stops, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.starts), m.stops, len(m.updates)
}

// mockRecordingEngine implements driven.RecordingEngine for testing.
type mockRecordingEngine struct {
	mu       sync.Mutex
	path     string
	startErr error
	noFile   bool
	starts   int
	stops    int
}

var _ driven.RecordingEngine = (*mockRecordingEngine)(nil)

func (m *mockRecordingEngine) StartRecording(_ driven.Stream, _ domain.RecordingConfig) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return "", m.startErr
	}
	m.starts++
	return m.path, nil
}

func (m *mockRecordingEngine) StopRecording(_ driven.Stream) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if m.noFile {
		return "", false
	}
	return m.path, true
}

// mockSourcePicker implements driven.SourcePicker, depositing a canned result.
type mockSourcePicker struct {
	mu        sync.Mutex
	result    domain.PickerResult
	picks     int
	livePicks int
}

var _ driven.SourcePicker = (*mockSourcePicker)(nil)

func (m *mockSourcePicker) Pick(sink driven.PickerSink) {
	m.mu.Lock()
	m.picks++
	r := m.result
	m.mu.Unlock()
	sink.Deposit(r)
}

func (m *mockSourcePicker) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.picks
}

func (m *mockSourcePicker) PickForStream(sink driven.PickerSink, _ driven.Stream) {
	m.mu.Lock()
	m.livePicks++
	r := m.result
	m.mu.Unlock()
	sink.Deposit(r)
}

// mockSession implements driving.SessionService for testing.
type mockSession struct {
	mu        sync.Mutex
	cred      *domain.Credential
	err       error
	uploadErr error
	calls     int
	logouts   int
}

var _ driving.SessionService = (*mockSession)(nil)

func (m *mockSession) GetValidCredential(_ context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	c := *m.cred
	return &c, nil
}

func (m *mockSession) CredentialForUpload(_ context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	c := *m.cred
	return &c, nil
}

func (m *mockSession) Current(_ context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil, domain.ErrAuthRequired
	}
	c := *m.cred
	return &c, nil
}

func (m *mockSession) Logout(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logouts++
	return nil
}

// mockProfileClient implements driven.ProfileClient for testing.
type mockProfileClient struct {
	profile *domain.UserProfile
	err     error
}

var _ driven.ProfileClient = (*mockProfileClient)(nil)

func (m *mockProfileClient) GetProfile(_ context.Context, _ domain.Credential) (*domain.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := *m.profile
	return &p, nil
}

// mockEventsProvider implements driven.EventsProvider for testing.
type mockEventsProvider struct {
	mu     sync.Mutex
	events []domain.MeetingEvent
	err    error
	tokens []string
}

var _ driven.EventsProvider = (*mockEventsProvider)(nil)

func (m *mockEventsProvider) FetchEvents(_ context.Context, token string) ([]domain.MeetingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

func (m *mockEventsProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}
