package redirectrepo

import (
	"testing"

	"github.com/agus-dev/shortlink-api/internal/adapters/contracttest"
	"github.com/agus-dev/shortlink-api/internal/adapters/postgres/testutil"
	redirectrepoport "github.com/agus-dev/shortlink-api/internal/ports/out/redirectrepo"
)

func TestContract_PostgresRedirectRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunRedirectRepo(t, func(t *testing.T) (redirectrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
