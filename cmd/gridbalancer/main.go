package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raterudder/gridbalancer/pkg/demand"
	"github.com/raterudder/gridbalancer/pkg/grid"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/server"
	"github.com/raterudder/gridbalancer/pkg/storage"
	"github.com/raterudder/gridbalancer/pkg/weather"

	"github.com/levenlabs/go-lflag"
)

func main() {
	// init packages
	g := grid.Configured()
	w := weather.Configured()
	d := demand.Configured()
	s := storage.Configured()

	// init server
	srv := server.Configured(g, w, d, s)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log.Ctx(ctx).DebugContext(ctx, "logger configured", slog.String("level", level.String()))

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
