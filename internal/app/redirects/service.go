package redirects

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agus-dev/shortlink-api/internal/domain"
	clockport "github.com/agus-dev/shortlink-api/internal/ports/out/clock"
	"github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
)

// Service implements the redirect use-cases on top of the repository port.
//
// The owner email is always the one resolved from the request's credential,
// never client-supplied data; every scoped operation passes it straight into
// the repository predicate.
type Service struct {
	repo redirectrepo.Repository
	clk  clockport.Clock

	newRedirectID func() domain.RedirectID

	// DefaultPageLimit is applied when the caller supplies no limit.
	DefaultPageLimit int
	// MaxPageLimit caps a caller-supplied limit.
	MaxPageLimit int
}

func NewService(repo redirectrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newRedirectID: func() domain.RedirectID {
			return domain.RedirectID(uuid.NewString())
		},
		DefaultPageLimit: 50,
		MaxPageLimit:     200,
	}
}

// SetNewRedirectIDForTest overrides ID generation with a deterministic source.
func (s *Service) SetNewRedirectIDForTest(fn func() domain.RedirectID) {
	s.newRedirectID = fn
}

func (s *Service) CreateRedirect(ctx context.Context, owner string, in RedirectInput) (domain.Redirect, error) {
	key, err := domain.ParseKey(in.Key)
	if err != nil {
		return domain.Redirect{}, keyValidationError(err)
	}

	now := s.clk.Now()
	rec := redirectrepo.Redirect{
		ID:         s.newRedirectID(),
		OwnerEmail: owner,
		Key:        string(key),
		Target:     in.Target,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, redirectrepo.ErrKeyAlreadyExists) {
			return domain.Redirect{}, keyConflictError(in.Key)
		}
		return domain.Redirect{}, err
	}
	return toDomain(rec), nil
}

// Resolve looks a redirect up by key for the public redirect path. It is the
// only operation not scoped by owner: keys are globally unique and any request
// may dereference one.
func (s *Service) Resolve(ctx context.Context, key string) (domain.Redirect, error) {
	rec, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, redirectrepo.ErrNotFound) {
			return domain.Redirect{}, notFoundError()
		}
		return domain.Redirect{}, err
	}
	return toDomain(rec), nil
}

func (s *Service) GetRedirect(ctx context.Context, owner string, id domain.RedirectID) (domain.Redirect, error) {
	rec, err := s.repo.GetByIDAndOwner(ctx, id, owner)
	if err != nil {
		if errors.Is(err, redirectrepo.ErrNotFound) {
			return domain.Redirect{}, notFoundError()
		}
		return domain.Redirect{}, err
	}
	return toDomain(rec), nil
}

// ListRedirects returns one page of the owner's redirects ordered ascending by
// key. When after is non-empty, only redirects with key strictly greater than
// after are returned.
func (s *Service) ListRedirects(ctx context.Context, owner string, after string, limit int) ([]domain.Redirect, error) {
	if limit <= 0 {
		limit = s.DefaultPageLimit
	}
	if limit > s.MaxPageLimit {
		limit = s.MaxPageLimit
	}

	recs, err := s.repo.ListByOwner(ctx, owner, after, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Redirect, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomain(rec))
	}
	return out, nil
}

func (s *Service) UpdateRedirect(ctx context.Context, owner string, id domain.RedirectID, in RedirectInput) (domain.Redirect, error) {
	key, err := domain.ParseKey(in.Key)
	if err != nil {
		return domain.Redirect{}, keyValidationError(err)
	}

	rec, err := s.repo.Update(ctx, id, owner, string(key), in.Target, s.clk.Now())
	if err != nil {
		switch {
		case errors.Is(err, redirectrepo.ErrNotFound):
			return domain.Redirect{}, notFoundError()
		case errors.Is(err, redirectrepo.ErrKeyAlreadyExists):
			return domain.Redirect{}, keyConflictError(in.Key)
		}
		return domain.Redirect{}, err
	}
	return toDomain(rec), nil
}

// DeleteRedirect removes the redirect and returns its pre-deletion snapshot.
func (s *Service) DeleteRedirect(ctx context.Context, owner string, id domain.RedirectID) (domain.Redirect, error) {
	rec, err := s.repo.Delete(ctx, id, owner)
	if err != nil {
		if errors.Is(err, redirectrepo.ErrNotFound) {
			return domain.Redirect{}, notFoundError()
		}
		return domain.Redirect{}, err
	}
	return toDomain(rec), nil
}

func toDomain(rec redirectrepo.Redirect) domain.Redirect {
	return domain.Redirect{
		ID:         rec.ID,
		OwnerEmail: rec.OwnerEmail,
		Key:        domain.Key(rec.Key),
		Target:     rec.Target,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func notFoundError() *Error {
	return &Error{
		Status:  404,
		Code:    "NOT_FOUND",
		Message: "not found",
	}
}

func keyConflictError(key string) *Error {
	return &Error{
		Status:  409,
		Code:    "KEY_ALREADY_EXISTS",
		Message: "key already exists",
		Details: map[string]any{"key": key},
	}
}

func keyValidationError(err error) error {
	ke := (*domain.KeyError)(nil)
	if !errors.As(err, &ke) {
		return err
	}
	details := map[string]any{}
	switch ke.Reason {
	case domain.KeyTooLong:
		details["key"] = "must be at most 100 characters"
	case domain.KeyInvalidCharacters:
		details["key"] = "contains invalid characters"
		details["invalidCharacters"] = ke.InvalidString()
	}
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid key",
		Details: details,
	}
}
