package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agus-dev/shortlink-api/internal/ports/out/tokencache"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	// DefaultCacheTTL bounds how long a verified token -> email mapping may be
	// served without re-contacting the identity provider.
	DefaultCacheTTL = 30 * time.Second

	defaultHTTPTimeout    = 10 * time.Second
	cacheWriteTimeout     = 5 * time.Second
	profilePath           = "/profile"
	tokenPath             = "/oauth2/token"
	authorizationCodeType = "authorization_code"
)

// Config configures the verifier against the external identity provider.
type Config struct {
	// Host is the provider base URL, without a trailing slash.
	Host string

	// Client credentials for the authorization-code exchange.
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Verifier introspects bearer tokens against the identity provider's profile
// endpoint, memoizing successful results in a short-lived token cache.
type Verifier struct {
	cfg    Config
	client *http.Client
	cache  tokencache.Cache
	logger *slog.Logger

	cacheTTL time.Duration

	// writes tracks in-flight background cache writes so callers (tests,
	// shutdown) can drain them via Flush.
	writes sync.WaitGroup
}

func New(cfg Config, cache tokencache.Cache, logger *slog.Logger) *Verifier {
	return NewWithOptions(cfg, cache, nil, logger, DefaultCacheTTL)
}

func NewWithOptions(cfg Config, cache tokencache.Cache, httpClient *http.Client, logger *slog.Logger, cacheTTL time.Duration) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Verifier{
		cfg:      Config{Host: strings.TrimRight(cfg.Host, "/"), ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret, RedirectURI: cfg.RedirectURI},
		client:   httpClient,
		cache:    cache,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Introspect verifies a bearer Authorization header value and returns the
// authenticated principal's email.
//
// The cache is consulted first; a cache read failure is logged and treated as
// a miss, never as an authentication failure. On a miss the provider's profile
// endpoint is authoritative: 200 yields the email, 400/401 yield
// ErrUnauthorized, and any other status or transport failure is an opaque
// internal error so an unreachable provider is never reported as a rejected
// credential.
func (v *Verifier) Introspect(ctx context.Context, header string) (string, error) {
	email, ok, err := v.cache.Get(ctx, header)
	if err != nil {
		v.logger.Error("token cache read failed", "error", err)
	} else if ok {
		v.logger.Debug("token cache hit, skipping profile call")
		return email, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.Host+profilePath, nil)
	if err != nil {
		return "", fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", header)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode below
	case http.StatusBadRequest, http.StatusUnauthorized:
		return "", ErrUnauthorized
	default:
		v.logger.Error("unexpected status from identity provider", "status", resp.StatusCode)
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode profile response: %w", err)
	}
	if profile.Email == "" {
		return "", fmt.Errorf("profile response missing email")
	}

	// Cache the token in the background. The write is set-if-not-present so a
	// concurrent request that already cached this token wins; failures are
	// logged and otherwise ignored.
	v.writes.Add(1)
	go func(token, email string) {
		defer v.writes.Done()
		cacheCtx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := v.cache.SetIfAbsent(cacheCtx, token, email, v.cacheTTL); err != nil {
			v.logger.Error("failed to store token cache", "error", err)
		}
	}(header, profile.Email)

	return profile.Email, nil
}

// Flush blocks until all background cache writes spawned so far have finished.
func (v *Verifier) Flush() {
	v.writes.Wait()
}

// Token is a provider-issued access token returned by ExchangeToken.
type Token struct {
	AccessToken string
	TokenType   string
}

// ExchangeToken redeems an authorization code for an access token at the
// provider's token endpoint. A 400 response means the code was rejected
// (ErrUnauthorized); other non-200 statuses are opaque internal errors.
func (v *Verifier) ExchangeToken(ctx context.Context, authorizationCode string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", authorizationCodeType)
	form.Set("client_id", v.cfg.ClientID)
	form.Set("client_secret", v.cfg.ClientSecret)
	form.Set("redirect_uri", v.cfg.RedirectURI)
	form.Set("code", authorizationCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.Host+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode below
	case http.StatusBadRequest:
		return Token{}, ErrUnauthorized
	default:
		v.logger.Error("unexpected status from token endpoint", "status", resp.StatusCode)
		return Token{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	return Token{AccessToken: body.AccessToken, TokenType: body.TokenType}, nil
}
