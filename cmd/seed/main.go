package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/demand"
	"github.com/raterudder/gridbalancer/pkg/grid"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/storage"
	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/raterudder/gridbalancer/pkg/weather"
)

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	g := grid.Configured()
	s := storage.Configured()
	cycles := 48
	lflag.JSON(&cycles, "seed-cycles", cycles, "number of hourly cycles to seed, ending now")
	city := lflag.String("seed-city", weather.DefaultCity, "city recorded on the synthetic observations")
	gridID := lflag.String("seed-grid-id", "", "grid to seed (defaults to --grid-default-id)")
	lflag.Configure()

	ctx := context.Background()
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	o, err := g.Grid(*gridID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get grid", slog.Any("error", err))
		os.Exit(1)
	}
	ctx = log.WithAttrs(ctx, slog.String("gridID", o.GridID()))
	log.Ctx(ctx).InfoContext(ctx, "seeding synthetic cycles", slog.Int("cycles", cycles))

	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	ws := weather.NewService(weather.NewSynthetic(rnd), *city)

	// the predictor reads the simulated hour instead of the wall clock
	now := time.Now().Truncate(time.Hour)
	ts := now.Add(-time.Duration(cycles) * time.Hour)
	predictor := demand.NewPredictor(demand.DefaultBaseMW, rnd, func() time.Time { return ts })

	var stored int
	for ; ts.Before(now); ts = ts.Add(time.Hour) {
		obs, potential, err := ws.Observe(ctx, *city)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to observe weather", slog.Any("error", err))
			os.Exit(1)
		}
		obs.Timestamp = ts.UTC()
		prediction := predictor.PredictCurrent(ctx)

		result, err := o.BalanceGrid(ctx, prediction.PredictedDemandMW, o.RenewableGeneration(potential))
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to balance grid", slog.Any("error", err))
			os.Exit(1)
		}
		result.Timestamp = ts.UTC()

		if err := s.InsertWeatherObservation(ctx, o.GridID(), types.WeatherRecord{Observation: obs, Potential: potential}); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to store weather observation", slog.Any("error", err))
			os.Exit(1)
		}
		if err := s.InsertDemandPrediction(ctx, o.GridID(), prediction); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to store demand prediction", slog.Any("error", err))
			os.Exit(1)
		}
		if err := s.InsertBalancingResult(ctx, result); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to store balancing result", slog.Any("error", err))
			os.Exit(1)
		}
		stored++
	}

	metrics := o.PerformanceMetrics(stored)
	log.Ctx(ctx).InfoContext(
		ctx,
		"seeding complete",
		slog.Int("stored", stored),
		slog.Float64("avgRenewablePercentage", metrics.AvgRenewablePercentage),
		slog.Float64("avgStabilityIndex", metrics.AvgStabilityIndex),
		slog.Any("balanceCounts", metrics.BalanceCounts),
	)
}
