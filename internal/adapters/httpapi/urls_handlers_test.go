package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	memclock "github.com/agus-dev/shortlink-api/internal/adapters/memory/clock"
	memredirectrepo "github.com/agus-dev/shortlink-api/internal/adapters/memory/redirectrepo"
	memtokencache "github.com/agus-dev/shortlink-api/internal/adapters/memory/tokencache"
	"github.com/agus-dev/shortlink-api/internal/app/redirects"
	"github.com/agus-dev/shortlink-api/internal/platform/auth/introspect"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := memredirectrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	svc := redirects.NewService(repo, clk)

	// The urls routes never reach the identity provider; any host will do.
	verifier := introspect.New(introspect.Config{Host: "http://sso.invalid"}, memtokencache.NewCache(), discardLogger())

	s := NewServer(svc, verifier, discardLogger())
	return NewRouter(s, RouterOptions{AuthMiddleware: NewDevAuthMiddleware("")})
}

func doJSON(t *testing.T, h http.Handler, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set("X-Debug-Email", email)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createURL(t *testing.T, h http.Handler, email, key, target string) redirectResponse {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/urls", email, map[string]string{"key": key, "target": target})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %q: status=%d body=%s", key, rec.Code, rec.Body.String())
	}
	var out redirectResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return out
}

func TestURLs_CreateAndFetch(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	created := createURL(t, h, "alice@example.com", "docs", "https://docs.example.com")
	if created.ID == "" || created.Key != "docs" || created.Target != "https://docs.example.com" {
		t.Fatalf("created=%+v", created)
	}
	if created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatalf("timestamps=%v/%v", created.CreatedAt, created.UpdatedAt)
	}

	rec := doJSON(t, h, http.MethodGet, "/urls/"+created.ID, "alice@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got redirectResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != created {
		t.Fatalf("got=%+v want=%+v", got, created)
	}
}

func TestURLs_CreateValidation(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/urls", strings.NewReader("{nope"))
	req.Header.Set("X-Debug-Email", "alice@example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed body: status=%d", rec.Code)
	}

	// Missing required field.
	rec = doJSON(t, h, http.MethodPost, "/urls", "alice@example.com", map[string]string{"key": "docs"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing target: status=%d", rec.Code)
	}

	// Key with characters outside [A-Za-z0-9_-].
	rec = doJSON(t, h, http.MethodPost, "/urls", "alice@example.com", map[string]string{"key": "a/b c", "target": "https://example.com"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid key: status=%d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != "VALIDATION_ERROR" || body.Error.Details["invalidCharacters"] != " /" {
		t.Fatalf("body=%+v", body)
	}

	// Key over the length limit.
	rec = doJSON(t, h, http.MethodPost, "/urls", "alice@example.com", map[string]string{"key": strings.Repeat("a", 101), "target": "https://example.com"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("long key: status=%d", rec.Code)
	}
}

func TestURLs_CreateConflict(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	createURL(t, h, "alice@example.com", "docs", "https://a.example.com")

	rec := doJSON(t, h, http.MethodPost, "/urls", "bob@example.com", map[string]string{"key": "docs", "target": "https://b.example.com"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Error.Code != "KEY_ALREADY_EXISTS" {
		t.Fatalf("body=%+v", body)
	}
}

func TestURLs_OwnershipScoping(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	created := createURL(t, h, "alice@example.com", "docs", "https://docs.example.com")

	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPatch, map[string]string{"key": "docs", "target": "https://x.example.com"}},
		{http.MethodDelete, nil},
	} {
		rec := doJSON(t, h, tc.method, "/urls/"+created.ID, "bob@example.com", tc.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s as other owner: status=%d", tc.method, rec.Code)
		}
	}

	// The denied operations must not have touched the record.
	rec := doJSON(t, h, http.MethodGet, "/urls/"+created.ID, "alice@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get after denials: status=%d", rec.Code)
	}
}

func TestURLs_ListPagination(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	for _, key := range []string{"c", "a", "b"} {
		createURL(t, h, "alice@example.com", key, "https://example.com/"+key)
	}

	rec := doJSON(t, h, http.MethodGet, "/urls?limit=2", "alice@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status=%d", rec.Code)
	}
	var page pagedResponse
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Data) != 2 || page.Data[0].Key != "a" || page.Data[1].Key != "b" {
		t.Fatalf("page=%+v", page)
	}
	if page.Last == nil || *page.Last != "b" {
		t.Fatalf("last=%v", page.Last)
	}

	rec = doJSON(t, h, http.MethodGet, "/urls?limit=2&after=b", "alice@example.com", nil)
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode second page: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Key != "c" || page.Last == nil || *page.Last != "c" {
		t.Fatalf("second page=%+v", page)
	}

	// An owner with no redirects gets an empty page and a null cursor.
	rec = doJSON(t, h, http.MethodGet, "/urls", "bob@example.com", nil)
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode empty page: %v", err)
	}
	if len(page.Data) != 0 || page.Last != nil {
		t.Fatalf("empty page=%+v", page)
	}

	rec = doJSON(t, h, http.MethodGet, "/urls?limit=abc", "alice@example.com", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad limit: status=%d", rec.Code)
	}
}

func TestURLs_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	created := createURL(t, h, "alice@example.com", "docs", "https://old.example.com")

	rec := doJSON(t, h, http.MethodPatch, "/urls/"+created.ID, "alice@example.com", map[string]string{"key": "docs-v2", "target": "https://new.example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var updated redirectResponse
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Key != "docs-v2" || updated.Target != "https://new.example.com" {
		t.Fatalf("updated=%+v", updated)
	}

	rec = doJSON(t, h, http.MethodDelete, "/urls/"+created.ID, "alice@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status=%d", rec.Code)
	}
	var snapshot redirectResponse
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Key != "docs-v2" {
		t.Fatalf("snapshot=%+v", snapshot)
	}

	rec = doJSON(t, h, http.MethodGet, "/urls/"+created.ID, "alice@example.com", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status=%d", rec.Code)
	}
}

func TestResolve_PublicRedirect(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	createURL(t, h, "alice@example.com", "docs", "https://docs.example.com")

	// No credential needed on the public path.
	rec := doJSON(t, h, http.MethodGet, "/r/docs", "", nil)
	if rec.Code != http.StatusPermanentRedirect {
		t.Fatalf("status=%d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://docs.example.com" {
		t.Fatalf("Location=%q", loc)
	}

	rec = doJSON(t, h, http.MethodGet, "/r/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing key: status=%d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/me", "alice@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var me meResponse
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Fatalf("me=%+v", me)
	}

	rec = doJSON(t, h, http.MethodGet, "/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status=%d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAuthCallback(t *testing.T) {
	t.Parallel()

	sso := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		switch r.PostForm.Get("code") {
		case "good-code":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"at-1","token_type":"Bearer"}`)
		case "bad-code":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(sso.Close)

	svc := redirects.NewService(memredirectrepo.NewRepo(), memclock.NewManualClock(time.Unix(1700000000, 0).UTC()))
	verifier := introspect.New(introspect.Config{Host: sso.URL, ClientID: "client-1"}, memtokencache.NewCache(), discardLogger())
	h := NewRouter(NewServer(svc, verifier, discardLogger()), RouterOptions{AuthMiddleware: NewDevAuthMiddleware("")})

	rec := doJSON(t, h, http.MethodPost, "/auth/callback", "", map[string]string{"authorization_code": "good-code"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var tok authCallbackResponse
	if err := json.NewDecoder(rec.Body).Decode(&tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.AccessToken != "at-1" || tok.TokenType != "Bearer" {
		t.Fatalf("token=%+v", tok)
	}

	rec = doJSON(t, h, http.MethodPost, "/auth/callback", "", map[string]string{"authorization_code": ""})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty code: status=%d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/auth/callback", "", map[string]string{"authorization_code": "bad-code"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("rejected code: status=%d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/auth/callback", "", map[string]string{"authorization_code": "boom"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("upstream failure: status=%d", rec.Code)
	}
}
