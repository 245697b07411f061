package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/common"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

// DefaultCity is used when a request does not name a city.
const DefaultCity = "Colombo"

// Service wraps a Provider and derives renewable potential from its
// observations.
type Service struct {
	provider    Provider
	defaultCity string
}

// NewService returns a Service backed by p.
func NewService(p Provider, defaultCity string) *Service {
	if defaultCity == "" {
		defaultCity = DefaultCity
	}
	return &Service{
		provider:    p,
		defaultCity: defaultCity,
	}
}

// Configured sets up the weather provider based on flags. Without an API key
// only synthetic observations are produced, otherwise OpenWeatherMap is used
// and synthetic observations are substituted when it fails.
func Configured() *Service {
	s := &Service{}
	apiKey := lflag.String("weather-api-key", "", "OpenWeatherMap API key (synthetic weather is used when empty)")
	apiURL := lflag.String("weather-api-url", "https://api.openweathermap.org/data/2.5", "base URL of the OpenWeatherMap API")
	timeout := lflag.Duration("weather-timeout", 10*time.Second, "timeout for weather API requests")
	defaultCity := lflag.String("weather-default-city", DefaultCity, "city used when a request does not specify one")

	lflag.Do(func() {
		s.defaultCity = *defaultCity
		synthetic := NewSynthetic(nil)
		if *apiKey == "" {
			log.Ctx(context.Background()).Info("no weather-api-key set, using synthetic weather")
			s.provider = synthetic
			return
		}
		s.provider = &Fallback{
			Primary: &OpenWeatherMap{
				apiURL: *apiURL,
				apiKey: *apiKey,
				client: common.HTTPClient(*timeout),
			},
			Secondary: synthetic,
		}
	})
	return s
}

// DefaultCity returns the city used when none is given.
func (s *Service) DefaultCity() string {
	return s.defaultCity
}

// Observe fetches the current observation for city and computes its renewable
// potential.
func (s *Service) Observe(ctx context.Context, city string) (types.WeatherObservation, types.RenewablePotential, error) {
	if city == "" {
		city = s.defaultCity
	}
	obs, err := s.provider.GetObservation(ctx, city)
	if err != nil {
		return types.WeatherObservation{}, types.RenewablePotential{}, fmt.Errorf("failed to get weather for %s: %w", city, err)
	}
	p := Potential(obs)
	log.Ctx(ctx).DebugContext(
		ctx,
		"calculated renewable potential",
		slog.String("city", city),
		slog.String("source", obs.Source),
		slog.Float64("solarPotential", p.SolarPotential),
		slog.Float64("windPotential", p.WindPotential),
		slog.Float64("renewableScore", p.RenewableScore),
	)
	return obs, p, nil
}
