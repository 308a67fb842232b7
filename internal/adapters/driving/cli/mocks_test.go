package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recorder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/services"
)

// fakeDeviceClient issues one device code and approves it on the first poll.
type fakeDeviceClient struct {
	pollErr    error
	refreshErr error
}

func (f *fakeDeviceClient) RequestDeviceCode(_ context.Context) (*domain.DeviceSession, error) {
	return &domain.DeviceSession{
		DeviceCode:              "dev-code",
		UserCode:                "ABCD-EFGH",
		VerificationURI:         "https://login.example.com/activate",
		VerificationURIComplete: "https://login.example.com/activate?user_code=ABCD-EFGH",
		ExpiresAt:               time.Now().Add(10 * time.Minute),
		Interval:                time.Second,
	}, nil
}

func (f *fakeDeviceClient) PollToken(_ context.Context, _ string) (domain.PollResult, error) {
	if f.pollErr != nil {
		return domain.PollResult{}, f.pollErr
	}
	return domain.PollResult{
		Outcome:    domain.PollSuccess,
		Credential: &domain.Credential{AccessToken: "issued", RefreshToken: "rt", ExpiresIn: 3600},
	}, nil
}

func (f *fakeDeviceClient) RefreshToken(_ context.Context, _ string) (*domain.Credential, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &domain.Credential{AccessToken: "refreshed", ExpiresIn: 3600}, nil
}

type fakeProfileClient struct {
	profile *domain.UserProfile
	err     error
}

func (f *fakeProfileClient) GetProfile(_ context.Context, _ domain.Credential) (*domain.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

type fakeStorageClient struct {
	mu        sync.Mutex
	uploaded  []string
	uploadErr error
}

func (f *fakeStorageClient) CreateFileEntry(_ context.Context, _, fileName string) (*domain.FileEntry, error) {
	return &domain.FileEntry{FileID: "file-" + fileName, UploadURL: "https://s3.example.com/put"}, nil
}

func (f *fakeStorageClient) UploadBinary(_ context.Context, _, filePath string) (int64, error) {
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, domain.NewUploadError(domain.UploadErrIO, "%v", err)
	}
	f.mu.Lock()
	f.uploaded = append(f.uploaded, filePath)
	f.mu.Unlock()
	return info.Size(), nil
}

func (f *fakeStorageClient) CreateMetadata(_ context.Context, _, _ string, _ domain.CallMetadata) error {
	return nil
}

type fakeEventsProvider struct {
	events []domain.MeetingEvent
	tokens []string
}

func (f *fakeEventsProvider) FetchEvents(_ context.Context, accessToken string) ([]domain.MeetingEvent, error) {
	f.tokens = append(f.tokens, accessToken)
	return f.events, nil
}

// fakeRunner records commands and returns once it sees quit or logout.
type fakeRunner struct {
	mu       sync.Mutex
	commands []domain.CaptureCommand
	exit     chan domain.ExitReason
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{exit: make(chan domain.ExitReason, 1)}
}

func (f *fakeRunner) Send(cmd domain.CaptureCommand) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	switch cmd {
	case domain.CmdQuit:
		f.exit <- domain.ExitQuit
	case domain.CmdLogout:
		f.exit <- domain.ExitLogout
	}
	return nil
}

func (f *fakeRunner) Run(ctx context.Context) (domain.ExitReason, error) {
	select {
	case r := <-f.exit:
		return r, nil
	case <-ctx.Done():
		return domain.ExitContextDone, nil
	}
}

func (f *fakeRunner) Commands() []domain.CaptureCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CaptureCommand(nil), f.commands...)
}

// testEnv wires real services over in-memory stores and fakes at the
// network edge.
type testEnv struct {
	tokens   *memory.TokenStore
	device   *fakeDeviceClient
	profiles *fakeProfileClient
	storage  *fakeStorageClient
	events   *fakeEventsProvider
	runner   *fakeRunner
	state    *services.SharedState
	config   *memory.ConfigStore
	opened   []string
}

func setupCLITest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tokens:   memory.NewTokenStore(),
		device:   &fakeDeviceClient{},
		profiles: &fakeProfileClient{profile: &domain.UserProfile{Name: "Ada Lovelace", Email: "ada@example.com", Subject: "auth0|1"}},
		storage:  &fakeStorageClient{},
		events:   &fakeEventsProvider{},
		runner:   newFakeRunner(),
		state:    services.NewSharedState(),
		config:   memory.NewConfigStore(domain.DefaultSettings()),
	}

	session := services.NewSessionManager(env.tokens, env.device,
		services.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		services.WithAuthStatePublisher(env.state),
	)
	pipeline := services.NewUploadPipeline(env.storage, memory.NewUploadJobStore(), domain.StorageSettings{})

	Configure(Services{
		Session:       session,
		Profiles:      env.profiles,
		Uploads:       pipeline,
		Config:        env.config,
		State:         env.state,
		Authenticator: services.NewAuthenticator(session, env.profiles, env.state),
		Events:        services.NewCalendarSync(env.events, env.state, domain.CalendarSettings{}),
		Runner:        env.runner,
	})

	oldOpen := openBrowser
	openBrowser = func(url string) error {
		env.opened = append(env.opened, url)
		return nil
	}
	noBrowser = false
	uploadTitle = ""
	uploadSpeakers = nil
	uploadsLimit = 20

	t.Cleanup(func() {
		Configure(Services{})
		openBrowser = oldOpen
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	return env
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	require.NoError(t, e.tokens.Save(context.Background(), domain.Credential{
		AccessToken:  "stored",
		RefreshToken: "rt",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}))
}

func writeRecording(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
