// Command recorder signs in, syncs upcoming meetings and uploads
// recordings.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/recorder/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recorder/internal/adapters/driven/oauth"
	tokenfile "github.com/custodia-labs/recorder/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/recorder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recorder/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recorder/internal/adapters/driven/upload"
	"github.com/custodia-labs/recorder/internal/adapters/driving/cli"
	gcal "github.com/custodia-labs/recorder/internal/connectors/google/calendar"
	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/services"
	"github.com/custodia-labs/recorder/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// authHTTPTimeout bounds identity provider calls. Uploads have no timeout.
const authHTTPTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	settings := configStore.Settings()

	tokens, err := tokenfile.NewTokenStore(settings.Paths.TokenFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	jobs, closeJobs := openJobStore(settings.Paths.DataDir)
	defer closeJobs()

	authHTTP := &http.Client{Timeout: authHTTPTimeout}
	oauthCfg := oauth.ConfigFrom(settings.Auth)
	deviceClient := oauth.NewDeviceClient(oauthCfg, authHTTP)
	profiles := oauth.NewProfileClient(oauthCfg, authHTTP)

	state := services.NewSharedState()
	session := services.NewSessionManager(tokens, deviceClient, services.WithAuthStatePublisher(state))
	pipeline := services.NewUploadPipeline(upload.NewClient(settings.Storage.BaseURL), jobs, settings.Storage)
	authenticator := services.NewAuthenticator(session, profiles, state)

	// No capture engine ships with the CLI; capture commands are logged
	// and ignored until a platform engine is wired in.
	orchestrator := services.NewOrchestrator(nil, nil, nil, session, pipeline, state,
		services.OrchestratorConfigFrom(settings))

	recorder := &app{
		orchestrator: orchestrator,
		auth:         authenticator,
		session:      session,
		state:        state,
		watch:        tokens.Watch,
		log:          logger.Named("app"),
	}

	svc := cli.Services{
		Session:       session,
		Profiles:      profiles,
		Uploads:       pipeline,
		Config:        configStore,
		State:         state,
		Authenticator: authenticator,
		Runner:        recorder,
	}
	if settings.Calendar.Provider == domain.CalendarGoogle {
		calendar := services.NewCalendarSync(gcal.NewProvider(settings.Calendar.CalendarID), state, settings.Calendar)
		recorder.calendar = calendar
		svc.Events = calendar
	}

	cli.SetVersion(version)
	cli.Configure(svc)
	return cli.Execute(ctx)
}

// openJobStore opens the upload history database, falling back to an
// in-memory history when it cannot be opened.
func openJobStore(dataDir string) (driven.UploadJobStore, func()) {
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		logger.Warn("upload history disabled: %v", err)
		return memory.NewUploadJobStore(), func() {}
	}
	return store.UploadJobStore(), func() {
		if err := store.Close(); err != nil {
			logger.Warn("close upload history: %v", err)
		}
	}
}
