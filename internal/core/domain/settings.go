package domain

import "time"

// Duration is a time.Duration that reads and writes as text ("50ms", "5m").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// String returns the duration text.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// CalendarProvider selects where meeting events come from.
type CalendarProvider string

const (
	// CalendarNone disables calendar sync.
	CalendarNone CalendarProvider = "none"
	// CalendarGoogle reads events from Google Calendar.
	CalendarGoogle CalendarProvider = "google"
)

// IsValid returns true if the provider is recognised.
func (p CalendarProvider) IsValid() bool {
	return p == CalendarNone || p == CalendarGoogle
}

// Settings is the effective application configuration.
type Settings struct {
	Auth         AuthSettings         `toml:"auth" envPrefix:"AUTH_"`
	Storage      StorageSettings      `toml:"storage" envPrefix:"STORAGE_"`
	Paths        PathSettings         `toml:"paths" envPrefix:"PATHS_"`
	Calendar     CalendarSettings     `toml:"calendar" envPrefix:"CALENDAR_"`
	Capture      CaptureSettings      `toml:"capture" envPrefix:"CAPTURE_"`
	Orchestrator OrchestratorSettings `toml:"orchestrator" envPrefix:"ORCHESTRATOR_"`
}

// AuthSettings configures the identity provider.
type AuthSettings struct {
	Domain        string `toml:"domain" env:"DOMAIN"`
	DeviceCodeURL string `toml:"device_code_url" env:"DEVICE_CODE_URL"`
	TokenURL      string `toml:"token_url" env:"TOKEN_URL"`
	UserInfoURL   string `toml:"userinfo_url" env:"USERINFO_URL"`
	ClientID      string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret  string `toml:"client_secret" env:"CLIENT_SECRET"`
	Audience      string `toml:"audience" env:"AUDIENCE"`
	Scope         string `toml:"scope" env:"SCOPE"`
}

// DeviceCodeEndpoint returns the configured URL or the domain default.
func (a AuthSettings) DeviceCodeEndpoint() string {
	if a.DeviceCodeURL != "" {
		return a.DeviceCodeURL
	}
	return "https://" + a.Domain + "/oauth/device/code"
}

// TokenEndpoint returns the configured URL or the domain default.
func (a AuthSettings) TokenEndpoint() string {
	if a.TokenURL != "" {
		return a.TokenURL
	}
	return "https://" + a.Domain + "/oauth/token"
}

// UserInfoEndpoint returns the configured URL or the domain default.
func (a AuthSettings) UserInfoEndpoint() string {
	if a.UserInfoURL != "" {
		return a.UserInfoURL
	}
	return "https://" + a.Domain + "/userinfo"
}

// StorageSettings configures the upload service.
type StorageSettings struct {
	BaseURL  string `toml:"base_url" env:"BASE_URL"`
	Provider string `toml:"provider" env:"PROVIDER"`
	Private  bool   `toml:"private" env:"PRIVATE"`
}

// PathSettings locates local files. Empty values resolve under the home directory.
type PathSettings struct {
	TokenFile     string `toml:"token_file" env:"TOKEN_FILE"`
	DataDir       string `toml:"data_dir" env:"DATA_DIR"`
	RecordingsDir string `toml:"recordings_dir" env:"RECORDINGS_DIR"`
}

// CalendarSettings configures meeting event sync.
type CalendarSettings struct {
	Provider     CalendarProvider `toml:"provider" env:"PROVIDER"`
	InitialDelay Duration         `toml:"initial_delay" env:"INITIAL_DELAY"`
	Interval     Duration         `toml:"interval" env:"INTERVAL"`
	CalendarID   string           `toml:"calendar_id" env:"ID"`
}

// CaptureSettings configures new capture streams.
type CaptureSettings struct {
	Width             uint32 `toml:"width" env:"WIDTH"`
	Height            uint32 `toml:"height" env:"HEIGHT"`
	FPS               int    `toml:"fps" env:"FPS"`
	ShowsCursor       bool   `toml:"shows_cursor" env:"SHOWS_CURSOR"`
	CaptureMicrophone bool   `toml:"capture_microphone" env:"MICROPHONE"`
}

// OrchestratorSettings tunes the command loop.
type OrchestratorSettings struct {
	CommandTimeout  Duration `toml:"command_timeout" env:"COMMAND_TIMEOUT"`
	MonitorInterval Duration `toml:"monitor_interval" env:"MONITOR_INTERVAL"`
	LoginNotice     Duration `toml:"login_notice" env:"LOGIN_NOTICE"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Auth: AuthSettings{
			Domain:   "login.talka.ai",
			Audience: "https://talka/api",
			Scope:    "openid profile email offline_access",
		},
		Storage: StorageSettings{
			BaseURL:  "https://storage.talka.ai",
			Provider: DefaultProvider,
		},
		Calendar: CalendarSettings{
			Provider:     CalendarNone,
			InitialDelay: Duration(2 * time.Second),
			Interval:     Duration(5 * time.Minute),
			CalendarID:   "primary",
		},
		Capture: CaptureSettings{
			Width:       DefaultCaptureWidth,
			Height:      DefaultCaptureHeight,
			FPS:         60,
			ShowsCursor: true,
		},
		Orchestrator: OrchestratorSettings{
			CommandTimeout:  Duration(50 * time.Millisecond),
			MonitorInterval: Duration(200 * time.Millisecond),
			LoginNotice:     Duration(3 * time.Second),
		},
	}
}

// CaptureSize returns the configured default capture size.
func (s Settings) CaptureSize() Size {
	return Size{Width: s.Capture.Width, Height: s.Capture.Height}
}

// StreamConfig builds the capture engine config from settings.
func (s Settings) StreamConfig() StreamConfig {
	return StreamConfig{
		FPS:               s.Capture.FPS,
		ShowsCursor:       s.Capture.ShowsCursor,
		CaptureMicrophone: s.Capture.CaptureMicrophone,
	}
}
