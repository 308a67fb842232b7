package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/logger"
)

// Verify interface compliance.
var _ driven.TokenStore = (*TokenStore)(nil)

// DefaultTokenFile is the credential file name under the home directory.
const DefaultTokenFile = ".talka_tokens.json"

// TokenStore persists one credential as JSON.
type TokenStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
	log  logger.Logger
}

// NewTokenStore creates a store at path. An empty path resolves to
// ~/.talka_tokens.json.
func NewTokenStore(path string) (*TokenStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, DefaultTokenFile)
	}
	path = filepath.Clean(path)
	return &TokenStore{
		path: path,
		lock: flock.New(path + ".lock"),
		log:  logger.Named("tokens"),
	}, nil
}

// Path returns the credential file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the credential. A missing or unparsable file is ErrNotFound.
func (s *TokenStore) Load(_ context.Context) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *TokenStore) read() (*domain.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.log.Warn("ignoring unreadable token file %s: %v", s.path, err)
		return nil, domain.ErrNotFound
	}
	if cred.AccessToken == "" {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

// Save replaces the credential file.
func (s *TokenStore) Save(ctx context.Context, cred domain.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	return s.withLock(ctx, func() error {
		if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
		tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)

		if err := tmp.Chmod(0600); err != nil {
			tmp.Close()
			return fmt.Errorf("chmod temp file: %w", err)
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("close temp file: %w", err)
		}
		if err := os.Rename(tmpPath, s.path); err != nil {
			return fmt.Errorf("replace token file: %w", err)
		}
		return nil
	})
}

// Delete removes the credential file. A missing file is not an error.
func (s *TokenStore) Delete(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	})
}

// withLock serialises writers in this process and across processes.
func (s *TokenStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire token lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire token lock: %s is held by another process", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.log.Warn("release token lock: %v", err)
		}
	}()
	return fn()
}
