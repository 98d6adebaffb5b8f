package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mindscape-agent/internal/cache"
	"mindscape-agent/internal/config"
	"mindscape-agent/internal/db"
	"mindscape-agent/internal/events"
	"mindscape-agent/internal/handlers"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/services"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/internal/webhook"
	"mindscape-agent/pkg/logger"
	"mindscape-agent/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	webhookRoute    = "/api/webhooks/telnyx"
	shutdownTimeout = 5 * time.Second
)

// Server is the HTTP server plus the long-lived resources it owns
type Server struct {
	HTTP        *http.Server
	database    *db.Database
	broadcaster *events.Broadcaster
	replay      cache.ReplayGuard
}

// SetupServer initializes the database, services, webhook pipeline and routes
func SetupServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid inbound timezone: %w", err)
	}

	// Initialize database
	database, err := db.NewDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	replay, err := cache.NewReplayGuard(context.Background(), cfg.Redis.URL, cfg.Telnyx.SignatureTolerance)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize replay guard: %w", err)
	}

	var verifier handlers.SignatureVerifier
	if cfg.SignatureEnforced() {
		v, err := telnyx.NewVerifier(cfg.Telnyx.PublicKey, cfg.Telnyx.SignatureTolerance)
		if err != nil {
			_ = replay.Close()
			_ = database.Close()
			return nil, fmt.Errorf("failed to initialize webhook verifier: %w", err)
		}
		verifier = v
	} else if cfg.IsProduction() {
		logger.Warn("Webhook signature verification disabled: no carrier public key configured")
	}

	// Initialize repositories
	messageRepo := db.NewMessageRepository(database.DB())
	profileRepo := db.NewProfileRepository(database.DB())
	contactRepo := db.NewContactRepository(database.DB())
	settingsRepo := db.NewSettingsRepository(database.DB())

	broadcaster := events.NewBroadcaster()
	carrier := telnyx.NewClient(cfg.Telnyx.APIKey, cfg.Telnyx.BaseURL, cfg.Telnyx.Timeout)

	// Initialize services
	contactService := services.NewContactService(contactRepo)
	settingsService := services.NewSettingsService(settingsRepo)
	profileService := services.NewProfileService(profileRepo, carrier)
	messageService := services.NewMessageService(messageRepo, contactService, profileService, carrier, broadcaster)
	if base := strings.TrimRight(cfg.Server.PublicBaseURL, "/"); base != "" {
		messageService.WithWebhookURLs(base+webhookRoute, "")
	}
	authService, err := services.NewAuthService(cfg)
	if err != nil {
		_ = replay.Close()
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	processor := webhook.NewProcessor(webhook.Dependencies{
		Settings:  settingsService,
		Contacts:  contactService,
		Messages:  messageRepo,
		Profiles:  profileRepo,
		Replier:   messageService,
		Publisher: broadcaster,
		Resolver:  webhook.NewProfileResolver(profileRepo, models.NewUserContext(cfg.Auth.UserID)),
		Replay:    replay,
		Location:  location,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := router.Handlers{
		Health:   handlers.NewHealthHandler(database, broadcaster, version),
		Auth:     handlers.NewAuthHandler(cfg, authService),
		Webhook:  handlers.NewWebhookHandler(processor, verifier),
		Events:   handlers.NewEventsHandler(broadcaster, cfg.Stream.HeartbeatInterval, cfg.Stream.BufferSize, cfg.Server.CORSOrigin),
		Messages: handlers.NewMessageHandler(messageService),
		Contacts: handlers.NewContactHandler(contactService),
		Settings: handlers.NewSettingsHandler(settingsService),
		Profiles: handlers.NewProfileHandler(profileService),
	}
	if !cfg.IsProduction() {
		h.TestInbound = handlers.NewTestInboundHandler(processor)
	}

	// WriteTimeout stays zero: event streams hold the response open
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.NewRouter(cfg, h),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		HTTP:        srv,
		database:    database,
		broadcaster: broadcaster,
		replay:      replay,
	}, nil
}

// Close ends live streams and releases the replay guard and database
func (s *Server) Close() error {
	s.broadcaster.CloseAll()
	return errors.Join(s.replay.Close(), s.database.Close())
}

// StartServer starts the HTTP server and handles graceful shutdown
func StartServer(srv *Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return StartServerWithContext(ctx, srv)
}

// StartServerWithContext starts the HTTP server and shuts it down when ctx is done
func StartServerWithContext(ctx context.Context, srv *Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.HTTP.Addr))
		if err := srv.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = srv.Close()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Streams never finish on their own, so close them before draining
	srv.broadcaster.CloseAll()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	shutdownErr := srv.HTTP.Shutdown(ctxShutdown)
	closeErr := srv.Close()
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}
	return closeErr
}
