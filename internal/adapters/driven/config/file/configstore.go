package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RECORDER_"

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
	settings domain.Settings
	environ  map[string]string
}

// Option configures a ConfigStore.
type Option func(*ConfigStore)

// WithEnvironment replaces the process environment for overrides.
func WithEnvironment(environ map[string]string) Option {
	return func(s *ConfigStore) { s.environ = environ }
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.recorder/config.toml.
func NewConfigStore(configDir string, opts ...Option) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".recorder")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
		settings: domain.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Settings returns the resolved configuration.
func (s *ConfigStore) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Get retrieves a configuration value set in the file.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// Keys returns the keys set in the file, sorted.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores a configuration value and persists immediately.
// A string that does not fit the target field is retried as a TOML
// literal, so "1920" sets an integer and "true" a boolean.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	settings, err := s.resolve()
	if err != nil {
		if str, ok := value.(string); ok {
			if lit, ok := parseLiteral(str); ok {
				s.data[key] = lit
				settings, err = s.resolve()
			}
		}
	}
	if err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return fmt.Errorf("set %s: %w", key, err)
	}

	s.settings = settings
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(unflattenMap(s.data))
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file and re-resolves settings.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	switch {
	case os.IsNotExist(err):
		s.data = make(map[string]any)
	case err != nil:
		return err
	default:
		var loaded map[string]any
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parse %s: %w", s.filePath, err)
		}
		if loaded == nil {
			loaded = make(map[string]any)
		}
		s.data = flattenMap(loaded, "")
	}

	settings, err := s.resolve()
	if err != nil {
		return err
	}
	s.settings = settings
	return nil
}

// resolve layers defaults, file values and the environment (caller must hold lock).
func (s *ConfigStore) resolve() (domain.Settings, error) {
	settings := domain.DefaultSettings()

	doc, err := toml.Marshal(unflattenMap(s.data))
	if err != nil {
		return settings, fmt.Errorf("encode config: %w", err)
	}
	if err := toml.Unmarshal(doc, &settings); err != nil {
		return settings, fmt.Errorf("decode config: %w", err)
	}

	opts := env.Options{Prefix: EnvPrefix}
	if s.environ != nil {
		opts.Environment = s.environ
	}
	if err := env.ParseWithOptions(&settings, opts); err != nil {
		return settings, fmt.Errorf("environment overrides: %w", err)
	}

	if !settings.Calendar.Provider.IsValid() {
		return settings, fmt.Errorf("%w: calendar.provider %q", domain.ErrInvalidInput, settings.Calendar.Provider)
	}
	return settings, nil
}

// parseLiteral reads str as a TOML value.
func parseLiteral(str string) (any, bool) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte("v = "+str), &doc); err != nil {
		return nil, false
	}
	return doc["v"], true
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// unflattenMap is the inverse of flattenMap.
func unflattenMap(m map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		parts := strings.Split(key, ".")
		node := result
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
