package driven

import "github.com/custodia-labs/recorder/internal/core/domain"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Settings returns the effective typed configuration:
	// defaults, then the file, then environment overrides.
	Settings() domain.Settings

	// Get retrieves a configuration value by dotted key (e.g. "auth.client_id").
	// Returns the value and a boolean indicating if the key exists in the file.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
