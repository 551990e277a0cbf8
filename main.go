package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/digitspan/internal/config"
	"github.com/robalobadob/digitspan/internal/guide"
	"github.com/robalobadob/digitspan/internal/httpserver"
	"github.com/robalobadob/digitspan/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := guide.Init(cfg.GuideHowToFile, cfg.GuideFAQFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load guide texts")
	}

	clock := clockwork.NewRealClock()
	mem := store.NewMemoryStore()

	sweeper, err := store.NewSweeper(mem, cfg.SweepInterval, cfg.GameIdleTTL, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule sweeper")
	}
	sweeper.Start()

	srv := httpserver.New(mem, httpserver.Options{
		Secret:    []byte(cfg.JWTSecret),
		TokenTTL:  cfg.TokenTTL,
		Origin:    cfg.ClientOrigin,
		DailySalt: cfg.DailySalt,
		Clock:     clock,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting digitspan server")
		errc <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := sweeper.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("sweeper shutdown")
	}
	_ = mem.Close()
}
