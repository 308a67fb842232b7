package driven

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// TokenStore persists the single credential record on local disk.
type TokenStore interface {
	// Load returns the stored credential.
	// Returns domain.ErrNotFound when nothing usable is stored,
	// including when the record cannot be parsed.
	Load(ctx context.Context) (*domain.Credential, error)

	// Save replaces the stored credential.
	Save(ctx context.Context, cred domain.Credential) error

	// Delete removes the stored credential. Deleting a missing record is not an error.
	Delete(ctx context.Context) error
}
