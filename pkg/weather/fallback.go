package weather

import (
	"context"
	"log/slog"

	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

// Fallback uses Secondary whenever Primary fails.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

// GetObservation implements Provider.
func (f *Fallback) GetObservation(ctx context.Context, city string) (types.WeatherObservation, error) {
	obs, err := f.Primary.GetObservation(ctx, city)
	if err == nil {
		return obs, nil
	}
	log.Ctx(ctx).WarnContext(
		ctx,
		"primary weather provider failed, using fallback",
		slog.String("city", city),
		slog.Any("error", err),
	)
	return f.Secondary.GetObservation(ctx, city)
}
