package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/types"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("not found")

// Database defines the interface for persisting balancing cycles.
type Database interface {
	// Balancing results
	InsertBalancingResult(ctx context.Context, result types.BalancingResult) error
	GetBalancingHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.BalancingResult, error)
	// GetLatestBalancingResult returns ErrNotFound when the grid has no results.
	GetLatestBalancingResult(ctx context.Context, gridID string) (types.BalancingResult, error)

	// Inputs to the balancing cycle
	InsertWeatherObservation(ctx context.Context, gridID string, record types.WeatherRecord) error
	GetWeatherHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.WeatherRecord, error)
	InsertDemandPrediction(ctx context.Context, gridID string, prediction types.DemandPrediction) error
	GetDemandHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.DemandPrediction, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, sqlite)")

	var p struct{ Database }

	fs := configuredFirestore()
	sq := configuredSQLite()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "sqlite":
			if err := sq.Validate(); err != nil {
				panic(fmt.Sprintf("sqlite validation failed: %v", err))
			}
			p.Database = sq
			if err := sq.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("sqlite init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

// docTime formats timestamps with a fixed width so that lexical order matches
// chronological order.
const docTimeFormat = "2006-01-02T15:04:05.000000000Z"

func formatDocTime(t time.Time) string {
	return t.UTC().Format(docTimeFormat)
}
