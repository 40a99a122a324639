package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/auth"
	"github.com/averonhq/deskchat/internal/cache"
	"github.com/averonhq/deskchat/internal/config"
	"github.com/averonhq/deskchat/internal/gateway"
	"github.com/averonhq/deskchat/internal/inbox"
	"github.com/averonhq/deskchat/internal/observability"
	"github.com/averonhq/deskchat/internal/rest"
	"github.com/averonhq/deskchat/internal/roster"
	"github.com/averonhq/deskchat/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closeLog()

	selfID := cfg.EmployeeCode
	if identity, err := auth.Introspect(cfg.Token); err == nil {
		if selfID == "" {
			selfID = identity.EmployeeCode
		}
		if identity.Expired(time.Now()) {
			logger.Warn().Time("expired_at", identity.ExpiresAt).Msg("access token is expired")
		}
	} else {
		logger.Warn().Err(err).Msg("token introspection failed")
	}
	if selfID == "" {
		log.Fatal("employee code must be provided via DESKCHAT_EMPLOYEE_CODE or the token")
	}

	store, err := openCache(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("history cache unavailable, running without it")
	}
	if store != nil {
		defer store.Close()
		if err := store.Prune(time.Now().Add(-cfg.CacheRetention)); err != nil {
			logger.Warn().Err(err).Msg("cache prune failed")
		}
	}

	client := rest.NewClient(cfg.ServerURL, cfg.Token, selfID, logger)
	state := inbox.NewState(selfID, logger)
	rosterService := roster.NewService(client, selfID, logger)

	observability.Serve(cfg.MetricsAddr, logger)

	session := &tui.Session{
		Config: cfg,
		API:    client,
		State:  state,
		Cache:  store,
		Roster: rosterService,
		SelfID: selfID,
		Logger: logger,
	}

	inboxSocket := gateway.NewInboxSocket(gateway.InboxSocketConfig{
		BaseURL:      cfg.ServerURL,
		Token:        cfg.Token,
		EmployeeCode: selfID,
		Handler:      session.DeliverInboxEvent,
		Logger:       logger,
		Poll:         pollThreads(client, state, logger),
		PollInterval: cfg.PollInterval,
		Heartbeat:    cfg.Heartbeat,
		Backoff:      cfg.ReconnectBase,
	})
	inboxSocket.Start()
	defer inboxSocket.Stop()

	if err := session.Run(); err != nil {
		logger.Error().Err(err).Msg("ui loop failed")
		os.Exit(1)
	}
}

// pollThreads re-fetches thread summaries while the inbox socket is down, so
// the list keeps moving even without live events.
func pollThreads(client *rest.Client, state *inbox.State, logger zerolog.Logger) gateway.PollFunc {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		threads, err := client.ListThreads(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("thread poll failed")
			return
		}
		state.SetThreads(threads)
	}
}

func openCache(cfg config.Config, logger zerolog.Logger) (*cache.Store, error) {
	if cfg.CachePath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o700); err != nil {
		return nil, err
	}
	return cache.Open(cfg.CachePath, logger)
}

// newLogger writes structured logs to the configured file, or discards them.
// Stdout belongs to the TUI, so logging never goes there.
func newLogger(cfg config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.LogFile == "" {
		return zerolog.Nop(), func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, func() { _ = f.Close() }, nil
}
