package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds deployment-provided settings for the API process.
type Config struct {
	// SSOHost is the base URL of the external identity provider.
	SSOHost string
	Port    string

	DatabaseURL string
	RedisURL    string

	// OAuth2 client credentials used for the authorization-code exchange.
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AllowedOrigins []string
}

const defaultSSOHost = "https://sso.v2.agus.dev"

// LoadFromEnv reads configuration from environment variables.
//
// CLIENT_ID, CLIENT_SECRET and REDIRECT_URI are required; the rest have
// defaults that make local/dev behavior predictable. DATABASE_URL and
// REDIS_URL are validated by the caller depending on the selected backends.
func LoadFromEnv() (Config, error) {
	clientID := os.Getenv("CLIENT_ID")
	clientSecret := os.Getenv("CLIENT_SECRET")
	redirectURI := os.Getenv("REDIRECT_URI")
	if clientID == "" || clientSecret == "" || redirectURI == "" {
		return Config{}, fmt.Errorf("missing required env vars: CLIENT_ID, CLIENT_SECRET, REDIRECT_URI")
	}

	cfg := Config{
		SSOHost:      defaultSSOHost,
		Port:         "8080",
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
	}

	if v := os.Getenv("SSO_HOST"); v != "" {
		cfg.SSOHost = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg, nil
}
