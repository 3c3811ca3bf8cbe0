package redirectrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agus-dev/shortlink-api/internal/domain"
	redirectrepoport "github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
)

func TestRepo_ConcurrentCreateSameKey_OneWinner(t *testing.T) {
	t.Parallel()

	repo := NewRepo()
	ctx := context.Background()
	now := time.Unix(1000, 0).UTC()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, redirectrepoport.Redirect{
				ID:         domain.RedirectID(uuid.NewString()),
				OwnerEmail: "alice@example.com",
				Key:        "contested",
				Target:     "https://example.com",
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, redirectrepoport.ErrKeyAlreadyExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
}
