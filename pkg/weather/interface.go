package weather

import (
	"context"

	"github.com/raterudder/gridbalancer/pkg/types"
)

// Provider returns weather observations for a city.
type Provider interface {
	// GetObservation returns the current conditions for the given city.
	GetObservation(ctx context.Context, city string) (types.WeatherObservation, error)
}
