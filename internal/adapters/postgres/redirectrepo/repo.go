package redirectrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/agus-dev/shortlink-api/internal/adapters/postgres"
	"github.com/agus-dev/shortlink-api/internal/domain"
	"github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
)

const keyUniqueConstraint = "url_redirects_key_key"

// Repo is a Postgres implementation of redirectrepo.Repository.
//
// Ownership scoping is always a single predicate (id AND owner_email) inside
// one statement, never a fetch-then-check.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, rec redirectrepo.Redirect) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(rec.ID))
	if err != nil {
		return errors.New("invalid redirect id")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO url_redirects (
			id,
			owner_email,
			key,
			target,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		id,
		rec.OwnerEmail,
		rec.Key,
		rec.Target,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == keyUniqueConstraint {
			return redirectrepo.ErrKeyAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByKey(ctx context.Context, key string) (redirectrepo.Redirect, error) {
	if r.pool == nil {
		return redirectrepo.Redirect{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_email, key, target, created_at, updated_at
		FROM url_redirects
		WHERE key = $1
	`, key)
	return scanRedirect(row)
}

func (r *Repo) GetByIDAndOwner(ctx context.Context, id domain.RedirectID, owner string) (redirectrepo.Redirect, error) {
	if r.pool == nil {
		return redirectrepo.Redirect{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_email, key, target, created_at, updated_at
		FROM url_redirects
		WHERE id = $1 AND owner_email = $2
	`, uid, owner)
	return scanRedirect(row)
}

func (r *Repo) ListByOwner(ctx context.Context, owner string, after string, limit int) ([]redirectrepo.Redirect, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}

	query := `
		SELECT id, owner_email, key, target, created_at, updated_at
		FROM url_redirects
		WHERE owner_email = $1
	`
	args := []any{owner}
	if after != "" {
		query += ` AND key > $2`
		args = append(args, after)
	}
	query += ` ORDER BY key ASC`
	if limit > 0 {
		args = append(args, limit)
		if after != "" {
			query += ` LIMIT $3`
		} else {
			query += ` LIMIT $2`
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]redirectrepo.Redirect, 0)
	for rows.Next() {
		rec, err := scanRedirect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, id domain.RedirectID, owner, key, target string, updatedAt time.Time) (redirectrepo.Redirect, error) {
	if r.pool == nil {
		return redirectrepo.Redirect{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE url_redirects
		SET key = $3,
		    target = $4,
		    updated_at = $5
		WHERE id = $1 AND owner_email = $2
		RETURNING id, owner_email, key, target, created_at, updated_at
	`, uid, owner, key, target, updatedAt.UTC())

	rec, err := scanRedirect(row)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == keyUniqueConstraint {
			return redirectrepo.Redirect{}, redirectrepo.ErrKeyAlreadyExists
		}
		return redirectrepo.Redirect{}, err
	}
	return rec, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.RedirectID, owner string) (redirectrepo.Redirect, error) {
	if r.pool == nil {
		return redirectrepo.Redirect{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		DELETE FROM url_redirects
		WHERE id = $1 AND owner_email = $2
		RETURNING id, owner_email, key, target, created_at, updated_at
	`, uid, owner)
	return scanRedirect(row)
}

func scanRedirect(row interface {
	Scan(dest ...any) error
}) (redirectrepo.Redirect, error) {
	var (
		id         uuid.UUID
		ownerEmail string
		key        string
		target     string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &ownerEmail, &key, &target, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
		}
		return redirectrepo.Redirect{}, err
	}
	return redirectrepo.Redirect{
		ID:         domain.RedirectID(id.String()),
		OwnerEmail: ownerEmail,
		Key:        key,
		Target:     target,
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  updatedAt.UTC(),
	}, nil
}
