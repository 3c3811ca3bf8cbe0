package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agus-dev/shortlink-api/internal/domain"
	redirectrepoport "github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
	tokencacheport "github.com/agus-dev/shortlink-api/internal/ports/out/tokencache"
)

type CleanupFunc = func()

type RedirectRepoFactory func(t *testing.T) (redirectrepoport.Repository, CleanupFunc)
type TokenCacheFactory func(t *testing.T) (tokencacheport.Cache, CleanupFunc)

// RunRedirectRepo exercises the redirect repository contract against any
// implementation: key uniqueness, ownership scoping, cursor pagination and
// idempotent absence on delete.
func RunRedirectRepo(t *testing.T, newRepo RedirectRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	owner := "alice@example.com"
	other := "bob@example.com"

	newRec := func(ownerEmail, key, target string) redirectrepoport.Redirect {
		return redirectrepoport.Redirect{
			ID:         domain.RedirectID(uuid.NewString()),
			OwnerEmail: ownerEmail,
			Key:        key,
			Target:     target,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	recA := newRec(owner, "a", "https://example.com/a")
	recB := newRec(owner, "b", "https://example.com/b")
	recC := newRec(owner, "c", "https://example.com/c")
	for _, rec := range []redirectrepoport.Redirect{recA, recB, recC} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create %q: %v", rec.Key, err)
		}
	}

	// Keys are unique system-wide: same owner and different owner both conflict.
	if err := repo.Create(ctx, newRec(owner, "a", "https://example.com/dup")); !errors.Is(err, redirectrepoport.ErrKeyAlreadyExists) {
		t.Fatalf("Create duplicate key (same owner): err=%v, want ErrKeyAlreadyExists", err)
	}
	if err := repo.Create(ctx, newRec(other, "a", "https://example.com/dup")); !errors.Is(err, redirectrepoport.ErrKeyAlreadyExists) {
		t.Fatalf("Create duplicate key (other owner): err=%v, want ErrKeyAlreadyExists", err)
	}

	// The first record stays readable after the failed duplicates.
	got, err := repo.GetByKey(ctx, "a")
	if err != nil {
		t.Fatalf("GetByKey a: %v", err)
	}
	if got.ID != recA.ID || got.Target != recA.Target {
		t.Fatalf("GetByKey a = %+v, want %+v", got, recA)
	}

	if _, err := repo.GetByKey(ctx, "missing"); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("GetByKey missing: err=%v, want ErrNotFound", err)
	}

	// Ownership isolation: a foreign id+owner pair looks exactly like absence.
	if _, err := repo.GetByIDAndOwner(ctx, recA.ID, other); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("GetByIDAndOwner wrong owner: err=%v, want ErrNotFound", err)
	}
	got, err = repo.GetByIDAndOwner(ctx, recA.ID, owner)
	if err != nil || got.Key != "a" {
		t.Fatalf("GetByIDAndOwner: got=%+v err=%v", got, err)
	}

	// Cursor pagination: ["a","b"] then, after "b", ["c"].
	page, err := repo.ListByOwner(ctx, owner, "", 2)
	if err != nil {
		t.Fatalf("ListByOwner page 1: %v", err)
	}
	if len(page) != 2 || page[0].Key != "a" || page[1].Key != "b" {
		t.Fatalf("page 1 keys = %v", keysOf(page))
	}
	page, err = repo.ListByOwner(ctx, owner, "b", 2)
	if err != nil {
		t.Fatalf("ListByOwner page 2: %v", err)
	}
	if len(page) != 1 || page[0].Key != "c" {
		t.Fatalf("page 2 keys = %v", keysOf(page))
	}

	// Lists are owner-scoped.
	page, err = repo.ListByOwner(ctx, other, "", 10)
	if err != nil {
		t.Fatalf("ListByOwner other: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("other owner list = %v, want empty", keysOf(page))
	}

	// Update is scoped: nonexistent id and wrong owner both report absence
	// without mutating anything.
	later := now.Add(time.Hour)
	if _, err := repo.Update(ctx, domain.RedirectID(uuid.NewString()), owner, "zz", "https://example.com/zz", later); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("Update nonexistent: err=%v, want ErrNotFound", err)
	}
	if _, err := repo.Update(ctx, recB.ID, other, "zz", "https://example.com/zz", later); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("Update wrong owner: err=%v, want ErrNotFound", err)
	}
	if got, err := repo.GetByKey(ctx, "b"); err != nil || got.Target != recB.Target || !got.UpdatedAt.Equal(now) {
		t.Fatalf("record b mutated by failed updates: got=%+v err=%v", got, err)
	}

	// Update rewrites key, target and updated_at; created_at is untouched.
	updated, err := repo.Update(ctx, recB.ID, owner, "b2", "https://example.com/b2", later)
	if err != nil {
		t.Fatalf("Update b: %v", err)
	}
	if updated.Key != "b2" || updated.Target != "https://example.com/b2" {
		t.Fatalf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.Equal(later) || !updated.CreatedAt.Equal(now) {
		t.Fatalf("timestamps = created %v updated %v", updated.CreatedAt, updated.UpdatedAt)
	}
	if _, err := repo.GetByKey(ctx, "b"); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("old key b still resolves after update")
	}

	// Updating onto a taken key conflicts.
	if _, err := repo.Update(ctx, recC.ID, owner, "a", "https://example.com/c", later); !errors.Is(err, redirectrepoport.ErrKeyAlreadyExists) {
		t.Fatalf("Update onto taken key: err=%v, want ErrKeyAlreadyExists", err)
	}
	// Updating a record keeping its own key is not a conflict.
	if _, err := repo.Update(ctx, recC.ID, owner, "c", "https://example.com/c2", later); err != nil {
		t.Fatalf("Update keeping own key: %v", err)
	}

	// Delete is scoped and returns the pre-deletion snapshot; repeating it
	// reports absence, not an error class of its own.
	if _, err := repo.Delete(ctx, recA.ID, other); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("Delete wrong owner: err=%v, want ErrNotFound", err)
	}
	snap, err := repo.Delete(ctx, recA.ID, owner)
	if err != nil {
		t.Fatalf("Delete a: %v", err)
	}
	if snap.Key != "a" || snap.Target != recA.Target {
		t.Fatalf("delete snapshot = %+v", snap)
	}
	if _, err := repo.Delete(ctx, recA.ID, owner); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("second Delete: err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByKey(ctx, "a"); !errors.Is(err, redirectrepoport.ErrNotFound) {
		t.Fatalf("deleted key still resolves")
	}
}

// RunTokenCache exercises the token cache contract: miss on absence, hit after
// a write, and set-if-not-present never clobbering an existing entry.
func RunTokenCache(t *testing.T, newCache TokenCacheFactory) {
	t.Helper()
	ctx := context.Background()

	cache, cleanup := newCache(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, ok, err := cache.Get(ctx, "tok-1"); err != nil || ok {
		t.Fatalf("Get on empty cache: ok=%v err=%v", ok, err)
	}

	if err := cache.SetIfAbsent(ctx, "tok-1", "alice@example.com", time.Minute); err != nil {
		t.Fatalf("SetIfAbsent: %v", err)
	}
	email, ok, err := cache.Get(ctx, "tok-1")
	if err != nil || !ok || email != "alice@example.com" {
		t.Fatalf("Get after set: email=%q ok=%v err=%v", email, ok, err)
	}

	// A second writer for the same token must not overwrite the first value.
	if err := cache.SetIfAbsent(ctx, "tok-1", "mallory@example.com", time.Minute); err != nil {
		t.Fatalf("SetIfAbsent second writer: %v", err)
	}
	email, ok, err = cache.Get(ctx, "tok-1")
	if err != nil || !ok || email != "alice@example.com" {
		t.Fatalf("Get after second set: email=%q ok=%v err=%v", email, ok, err)
	}

	// Distinct tokens are independent entries.
	if err := cache.SetIfAbsent(ctx, "tok-2", "bob@example.com", time.Minute); err != nil {
		t.Fatalf("SetIfAbsent tok-2: %v", err)
	}
	email, ok, err = cache.Get(ctx, "tok-2")
	if err != nil || !ok || email != "bob@example.com" {
		t.Fatalf("Get tok-2: email=%q ok=%v err=%v", email, ok, err)
	}
}

func keysOf(recs []redirectrepoport.Redirect) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Key)
	}
	return out
}
