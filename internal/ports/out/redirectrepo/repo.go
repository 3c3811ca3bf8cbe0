package redirectrepo

import (
	"context"
	"time"

	"github.com/agus-dev/shortlink-api/internal/domain"
)

// Redirect is the persistence shape used by the redirect repository.
// It is an internal record, not an HTTP DTO.
type Redirect struct {
	ID         domain.RedirectID
	OwnerEmail string
	Key        string
	Target     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted redirects.
//
// Every operation except GetByKey takes an owner email and must apply it as
// part of the query predicate itself, never as a post-hoc check: a record that
// exists under a different owner is indistinguishable from one that does not
// exist at all.
type Repository interface {
	// Create persists a new redirect. A uniqueness violation on the key
	// column is reported as ErrKeyAlreadyExists.
	Create(ctx context.Context, r Redirect) error

	// GetByKey looks a redirect up by its globally unique key, regardless of
	// owner. This is the only unscoped read; it backs the public
	// redirect-resolution path.
	GetByKey(ctx context.Context, key string) (Redirect, error)

	// GetByIDAndOwner returns ErrNotFound when no record matches both id and
	// owner.
	GetByIDAndOwner(ctx context.Context, id domain.RedirectID, owner string) (Redirect, error)

	// ListByOwner returns the owner's redirects ordered ascending by key.
	// When after is non-empty only records with key strictly greater than
	// after are returned. limit must be positive.
	ListByOwner(ctx context.Context, owner string, after string, limit int) ([]Redirect, error)

	// Update rewrites key, target and updatedAt for the record matching both
	// id and owner, returning the updated record. ErrNotFound when no record
	// matches; ErrKeyAlreadyExists on a key uniqueness violation.
	Update(ctx context.Context, id domain.RedirectID, owner, key, target string, updatedAt time.Time) (Redirect, error)

	// Delete removes the record matching both id and owner and returns the
	// pre-deletion snapshot, or ErrNotFound.
	Delete(ctx context.Context, id domain.RedirectID, owner string) (Redirect, error)
}
