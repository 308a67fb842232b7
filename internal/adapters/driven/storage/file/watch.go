package file

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// lockRetryDelay is how often a blocked writer retries the file lock.
const lockRetryDelay = 50 * time.Millisecond

// TokenChange describes what happened to the credential file.
type TokenChange int

const (
	// TokenUpdated means the file was written; the new credential is attached.
	TokenUpdated TokenChange = iota
	// TokenRemoved means the file is gone (logout elsewhere).
	TokenRemoved
)

// TokenEvent is delivered by Watch.
type TokenEvent struct {
	Change     TokenChange
	Credential *domain.Credential
}

// Watch reports changes to the credential file until ctx is done.
// The parent directory is watched so atomic replacements are seen.
func (s *TokenStore) Watch(ctx context.Context, onEvent func(TokenEvent)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if te, ok := s.handleFsEvent(event); ok {
				onEvent(te)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("token watcher: %v", err)
		}
	}
}

// handleFsEvent maps a filesystem event on the credential file to a
// TokenEvent. Events on other files and attribute-only changes are ignored.
func (s *TokenStore) handleFsEvent(event fsnotify.Event) (TokenEvent, bool) {
	if filepath.Clean(event.Name) != s.path {
		return TokenEvent{}, false
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		s.mu.Lock()
		cred, err := s.read()
		s.mu.Unlock()
		if errors.Is(err, domain.ErrNotFound) {
			return TokenEvent{Change: TokenRemoved}, true
		}
		if err != nil {
			s.log.Warn("reload token file: %v", err)
			return TokenEvent{}, false
		}
		return TokenEvent{Change: TokenUpdated, Credential: cred}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return TokenEvent{Change: TokenRemoved}, true
	default:
		return TokenEvent{}, false
	}
}
