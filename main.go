package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MGallo-Code/jetpass/internal/auth"
	"github.com/MGallo-Code/jetpass/internal/config"
	"github.com/MGallo-Code/jetpass/internal/jetpass"
	"github.com/MGallo-Code/jetpass/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds every route except the JetPass callback.
const requestTimeout = 30 * time.Second

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel == slog.LevelDebug,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup (ps.Close, rdb.Close) always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	ps, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	defer ps.Close()

	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to set up redis client: %w", err)
	}
	defer rdb.Close()

	h := &auth.AuthHandler{IS: ps, RS: store.NewRedisStore(rdb), SessionTTL: cfg.SessionTTL}

	opts, err := jetpassOptions(ctx, cfg, &http.Client{Timeout: cfg.BackchannelTimeout})
	if err != nil {
		return err
	}
	opts.SignIn = h
	jp, err := jetpass.New(opts)
	if err != nil {
		return fmt.Errorf("failed to set up jetpass: %w", err)
	}
	h.JetPass = jp

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(h), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("jetpass listening", "addr", ln.Addr().String(), "callback", jp.CallbackPath())
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Stops accepting, then waits for in-flight requests (including callbacks
	// mid-exchange) until the timeout.
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// jetpassOptions maps cfg onto handler options, without SignIn.
// Endpoints come from discovery when an issuer is set, else from the root URL or the
// public hub; explicit endpoint vars override either. client is used for discovery.
func jetpassOptions(ctx context.Context, cfg *config.Config, client *http.Client) (jetpass.Options, error) {
	var ep jetpass.Endpoints
	var err error
	switch {
	case cfg.Issuer != "":
		ep, err = jetpass.DiscoverEndpoints(ctx, cfg.Issuer, client)
		if err != nil {
			return jetpass.Options{}, fmt.Errorf("failed to discover jetpass endpoints: %w", err)
		}
	case cfg.RootURL != "":
		ep, err = jetpass.EndpointsForRoot(cfg.RootURL)
		if err != nil {
			return jetpass.Options{}, fmt.Errorf("invalid JETPASS_ROOT_URL: %w", err)
		}
	}
	if cfg.AuthorizationEndpoint != "" {
		ep.AuthorizationEndpoint = cfg.AuthorizationEndpoint
	}
	if cfg.TokenEndpoint != "" {
		ep.TokenEndpoint = cfg.TokenEndpoint
	}
	if cfg.UserInfoEndpoint != "" {
		ep.UserInfoEndpoint = cfg.UserInfoEndpoint
	}

	opts := jetpass.Options{
		ClientID:            cfg.ClientID,
		ClientSecret:        cfg.ClientSecret,
		Endpoints:           ep,
		CallbackPath:        cfg.CallbackPath,
		Scope:               cfg.Scopes,
		BackchannelTimeout:  cfg.BackchannelTimeout,
		TrustForwardedProto: cfg.TrustForwardedProto,
	}
	if len(cfg.PinnedSPKI) > 0 {
		opts.BackchannelCertificateValidator = &jetpass.SPKIPinValidator{Pins: cfg.PinnedSPKI}
	}
	if cfg.StateSecret != "" {
		codec, err := jetpass.NewJOSECodecFromSecret([]byte(cfg.StateSecret),
			jetpass.StatePurpose(jetpass.DefaultAuthenticationType), jetpass.DefaultStateTTL)
		if err != nil {
			return jetpass.Options{}, fmt.Errorf("failed to set up state codec: %w", err)
		}
		opts.StateCodec = codec
	}
	return opts, nil
}

// buildRouter wires all routes and middleware.
// Called from run() and from smoke tests.
//
// The callback sits outside the request timeout: its token and profile calls are
// each bounded by the backchannel timeout, which may exceed it.
func buildRouter(h *auth.AuthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, h.JetPass.CallbackPath(), h.JetPass)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/health", h.CheckHealth)
		r.Get("/login", h.Login)

		// Authentication required routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
		})
	})

	return r
}
