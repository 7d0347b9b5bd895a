package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Nearby/internal/adapters/http"
	"github.com/dkeye/Nearby/internal/adapters/store"
	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/config"
	"github.com/dkeye/Nearby/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	msgStore, closer := openStore(cfg)
	defer func() {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	reg := app.NewRegistry().WithMaxNameLen(cfg.Limits.MaxUsernameLen)
	rooms := app.NewRoomManager(cfg.Rooms.EmptyTTL, cfg.Rooms.BufferSize)
	limiter := app.NewRateLimiter(cfg.Limits.MessagesPerWindow, cfg.Limits.Window, cfg.Limits.IdleTTL)

	o := &orch.Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Limiter:  limiter,
		Store:    msgStore,
		Policy:   app.SimplePolicy{},
		Settings: orch.Settings{
			RadiusMeters:  cfg.Geo.RadiusMeters,
			MaxMessageLen: cfg.Limits.MaxMessageLen,
			HistoryWindow: cfg.History.Window,
			HistoryLimit:  cfg.History.Limit,
			StoreTimeout:  cfg.Store.Timeout,
		},
	}

	janitor := app.NewJanitor(rooms, limiter, cfg.Cleanup.Interval)
	janitor.Start(ctx)
	defer janitor.Stop()

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Nearby server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// openStore opens the configured message store. A SQLite database that
// cannot be opened falls back to memory so the server still starts.
func openStore(cfg *config.Config) (core.MessageStore, io.Closer) {
	capacity := cfg.History.Limit * 100
	if cfg.Store.Driver == "sqlite" {
		s, err := store.OpenSQLite(cfg.Store.DSN, cfg.Mode == "debug")
		if err == nil {
			log.Info().Str("module", "store").Str("dsn", cfg.Store.DSN).Msg("sqlite message store")
			return s, s
		}
		log.Error().Err(err).Str("module", "store").Msg("sqlite unavailable, keeping messages in memory")
	}
	s := store.NewMemoryStore(capacity)
	return s, s
}
