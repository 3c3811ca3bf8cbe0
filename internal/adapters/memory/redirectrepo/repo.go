package redirectrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agus-dev/shortlink-api/internal/domain"
	"github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
)

// Repo is an in-memory implementation of redirectrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID    map[domain.RedirectID]redirectrepo.Redirect
	idByKey map[string]domain.RedirectID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.RedirectID]redirectrepo.Redirect),
		idByKey: make(map[string]domain.RedirectID),
	}
}

func (r *Repo) Create(ctx context.Context, rec redirectrepo.Redirect) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.idByKey[rec.Key]; ok {
		return redirectrepo.ErrKeyAlreadyExists
	}
	r.byID[rec.ID] = rec
	r.idByKey[rec.Key] = rec.ID
	return nil
}

func (r *Repo) GetByKey(ctx context.Context, key string) (redirectrepo.Redirect, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByKey[key]
	if !ok {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repo) GetByIDAndOwner(ctx context.Context, id domain.RedirectID, owner string) (redirectrepo.Redirect, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok || rec.OwnerEmail != owner {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}
	return rec, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner string, after string, limit int) ([]redirectrepo.Redirect, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]redirectrepo.Redirect, 0)
	for _, rec := range r.byID {
		if rec.OwnerEmail != owner {
			continue
		}
		if after != "" && rec.Key <= after {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, id domain.RedirectID, owner, key, target string, updatedAt time.Time) (redirectrepo.Redirect, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.OwnerEmail != owner {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}
	if existingID, ok := r.idByKey[key]; ok && existingID != id {
		return redirectrepo.Redirect{}, redirectrepo.ErrKeyAlreadyExists
	}

	delete(r.idByKey, rec.Key)
	rec.Key = key
	rec.Target = target
	rec.UpdatedAt = updatedAt
	r.byID[id] = rec
	r.idByKey[key] = id
	return rec, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.RedirectID, owner string) (redirectrepo.Redirect, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.OwnerEmail != owner {
		return redirectrepo.Redirect{}, redirectrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByKey, rec.Key)
	return rec, nil
}
