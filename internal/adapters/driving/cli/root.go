package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/core/services"
	"github.com/custodia-labs/recorder/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "recorder",
	Short: "Record meetings and upload them",
	Long: `recorder signs in with a device code, keeps your upcoming meetings in
view, and uploads finished recordings to storage.

Run 'recorder login' first, then 'recorder run' to start the recorder or
'recorder upload <file>' to send an existing recording.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Authenticator signs the user in and publishes the outcome to shared state.
type Authenticator interface {
	Run(ctx context.Context) error
}

// EventsFetcher fetches meeting events with the held credential.
type EventsFetcher interface {
	FetchOnce(ctx context.Context) ([]domain.MeetingEvent, error)
}

// Runner starts the recorder and blocks until it exits.
// Commands sent before Run returns are handled in order.
type Runner interface {
	driving.CommandSink
	Run(ctx context.Context) (domain.ExitReason, error)
}

// Services are the dependencies commands run against.
// Nil members disable the commands that need them.
type Services struct {
	Session       driving.SessionService
	Profiles      driven.ProfileClient
	Uploads       driving.UploadService
	Config        driven.ConfigStore
	State         *services.SharedState
	Authenticator Authenticator
	Events        EventsFetcher
	Runner        Runner
}

var (
	sessionService driving.SessionService
	profileClient  driven.ProfileClient
	uploadService  driving.UploadService
	configStore    driven.ConfigStore
	sharedState    *services.SharedState
	authenticator  Authenticator
	eventsFetcher  EventsFetcher
	appRunner      Runner
)

// Configure installs the services used by commands.
func Configure(s Services) {
	sessionService = s.Session
	profileClient = s.Profiles
	uploadService = s.Uploads
	configStore = s.Config
	sharedState = s.State
	authenticator = s.Authenticator
	eventsFetcher = s.Events
	appRunner = s.Runner
}

// SetVersion sets the version reported by 'recorder version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}
