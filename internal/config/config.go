// config.go

// Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all env configuration vars for the JetPass sign-in service.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	LogLevel    slog.Level

	// JetPass client registration. Both required.
	ClientID     string
	ClientSecret string

	// Hub location. Issuer enables OIDC discovery and wins over RootURL; explicit
	// endpoints override whichever of the two produced them.
	RootURL               string
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string

	// CallbackPath is where the hub redirects back to. Empty means the handler default.
	CallbackPath string

	// Scopes requested on every challenge, in addition to the mandatory scope.
	Scopes []string

	// BackchannelTimeout bounds each token and user-info call. Default 60s.
	BackchannelTimeout time.Duration

	// PinnedSPKI lists base64 SHA-256 SubjectPublicKeyInfo pins for the hub.
	// Empty disables pinning.
	PinnedSPKI []string

	// StateSecret derives the state encryption key. Empty means a per-process key,
	// so pending sign-ins do not survive a restart or span replicas.
	StateSecret string

	// TrustForwardedProto honors X-Forwarded-Proto when building the callback URL.
	TrustForwardedProto bool

	// SessionTTL is the lifetime of a host session. Default 24h.
	SessionTTL time.Duration
}

// LoadConfig reads environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	for _, req := range []struct {
		key string
		dst *string
	}{
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"REDIS_URL", &cfg.RedisURL},
		{"JETPASS_CLIENT_ID", &cfg.ClientID},
		{"JETPASS_CLIENT_SECRET", &cfg.ClientSecret},
	} {
		*req.dst = os.Getenv(req.key)
		if strings.TrimSpace(*req.dst) == "" {
			return nil, fmt.Errorf("%s is required", req.key)
		}
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "7865"
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.RootURL = os.Getenv("JETPASS_ROOT_URL")
	cfg.Issuer = os.Getenv("JETPASS_ISSUER")
	cfg.AuthorizationEndpoint = os.Getenv("JETPASS_AUTHORIZATION_ENDPOINT")
	cfg.TokenEndpoint = os.Getenv("JETPASS_TOKEN_ENDPOINT")
	cfg.UserInfoEndpoint = os.Getenv("JETPASS_USERINFO_ENDPOINT")

	// Endpoints carry the authorization code and access token.
	for key, v := range map[string]string{
		"JETPASS_ROOT_URL":               cfg.RootURL,
		"JETPASS_ISSUER":                 cfg.Issuer,
		"JETPASS_AUTHORIZATION_ENDPOINT": cfg.AuthorizationEndpoint,
		"JETPASS_TOKEN_ENDPOINT":         cfg.TokenEndpoint,
		"JETPASS_USERINFO_ENDPOINT":      cfg.UserInfoEndpoint,
	} {
		if v != "" && !strings.HasPrefix(v, "https://") {
			return nil, fmt.Errorf("%s must start with https://", key)
		}
	}

	cfg.CallbackPath = os.Getenv("JETPASS_CALLBACK_PATH")
	cfg.Scopes = envList("JETPASS_SCOPES")
	cfg.PinnedSPKI = envList("JETPASS_PINNED_SPKI")
	cfg.BackchannelTimeout = envDuration("JETPASS_BACKCHANNEL_TIMEOUT", 60*time.Second)
	cfg.StateSecret = os.Getenv("JETPASS_STATE_SECRET")

	// Default false -- only explicit "true" enables.
	cfg.TrustForwardedProto = os.Getenv("TRUST_FORWARDED_PROTO") == "true"

	cfg.SessionTTL = envDuration("SESSION_TTL", 24*time.Hour)

	return cfg, nil
}

// envList splits an env var on commas and whitespace, dropping empty entries.
func envList(key string) []string {
	return strings.FieldsFunc(os.Getenv(key), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
