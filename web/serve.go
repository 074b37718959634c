package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/auth/battlenet"
	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
	"github.com/devilmonastery/bnetsso/internal/pkg/idgen"
	"github.com/devilmonastery/bnetsso/internal/sso"
	"github.com/devilmonastery/bnetsso/web/internal/handlers"
	"github.com/devilmonastery/bnetsso/web/internal/middleware"
	"github.com/devilmonastery/bnetsso/web/internal/render"
	"github.com/devilmonastery/bnetsso/web/internal/session"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.Default().With("component", "web")
	log.Info("starting bnetsso", slog.String("environment", cfg.Environment))

	if err := idgen.Initialize(1); err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	store, err := openBackend(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()

	templates, err := render.LoadTemplates(cfg.Templates.Path)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	render.LogTemplateNames(templates, log)

	sessionSecret, err := resolveSessionSecret(cfg.Session.Secret, log)
	if err != nil {
		return err
	}
	sessionMgr := session.NewManager(sessionSecret, cfg.Session)

	signingKey := cfg.State.SigningKey
	if signingKey == "" {
		log.Warn("no state signing key configured, generating random one (logins in flight will fail after a restart)")
		if signingKey, err = auth.GenerateSecret(); err != nil {
			return fmt.Errorf("failed to generate state signing key: %w", err)
		}
	}
	stateMgr := auth.NewStateManager(signingKey, cfg.State.Lifetime)

	// an incomplete configuration leaves the plugin disabled
	provider, err := battlenet.NewProvider(cfg.BattleNet)
	if err != nil && !errors.Is(err, battlenet.ErrMissingConfiguration) {
		return err
	}

	accounts := services.NewAccountService(store.Users, store.Associations)
	plugin := sso.NewPlugin(provider,
		services.NewIdentityService(store.Users, store.Associations),
		services.NewRegistrationService(store.Users, cfg.Registration),
		accounts)

	authMw := middleware.NewAuthMiddleware(sessionMgr, accounts, log)
	h := handlers.New(plugin, stateMgr, sessionMgr, templates, cfg.BattleNet, log)

	router := mux.NewRouter()
	router.Use(middleware.LogRequest(log), authMw.LoadUser)
	h.Register(router, authMw)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	admin := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.AdminPort),
		Handler:           adminRouter(store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		log.Info("starting admin server", slog.String("address", admin.Addr))
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("admin server failed: %w", err)
		}
	}()
	go func() {
		log.Info("starting http server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http server shutdown", slog.String("error", serr.Error()))
	}
	if serr := admin.Shutdown(shutdownCtx); serr != nil {
		log.Warn("admin server shutdown", slog.String("error", serr.Error()))
	}
	return err
}

// adminRouter serves probes and metrics on the admin port
func adminRouter(store *backend) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
	router.HandleFunc("/readiness", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.HealthCheck(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return router
}

// resolveSessionSecret picks the session key: SESSION_SECRET env var, then
// config, then a random key that does not survive restarts
func resolveSessionSecret(configured string, log *slog.Logger) ([]byte, error) {
	if env := os.Getenv("SESSION_SECRET"); env != "" {
		secret, err := base64.StdEncoding.DecodeString(env)
		if err == nil {
			log.Info("using session secret", slog.String("source", "environment variable"))
			return secret, nil
		}
		log.Warn("failed to decode SESSION_SECRET env var, trying config", slog.Any("error", err))
	}

	if configured != "" {
		secret, err := base64.StdEncoding.DecodeString(configured)
		if err == nil {
			log.Info("using session secret", slog.String("source", "config file"))
			return secret, nil
		}
		log.Warn("failed to decode session secret from config", slog.Any("error", err))
	}

	log.Warn("no session secret configured, generating random one (sessions won't persist)")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}
