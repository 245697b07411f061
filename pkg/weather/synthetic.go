package weather

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/raterudder/gridbalancer/pkg/types"
)

const syntheticSource = "Sample Generator"

var syntheticConditions = []string{"Clear", "Clouds", "Rain", "Sunny"}

// Synthetic implements Provider by generating plausible tropical weather.
type Synthetic struct {
	mu  sync.Mutex
	rnd *rand.Rand

	now func() time.Time
}

// NewSynthetic returns a synthetic provider. A nil rnd uses a randomly seeded
// source.
func NewSynthetic(rnd *rand.Rand) *Synthetic {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Synthetic{
		rnd: rnd,
		now: time.Now,
	}
}

func (s *Synthetic) uniform(lo, hi float64) float64 {
	return lo + s.rnd.Float64()*(hi-lo)
}

// GetObservation implements Provider.
func (s *Synthetic) GetObservation(ctx context.Context, city string) (types.WeatherObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.WeatherObservation{
		Timestamp:     s.now().UTC(),
		City:          city,
		TemperatureC:  s.uniform(20, 35),
		HumidityPct:   s.uniform(40, 90),
		WindSpeedMS:   s.uniform(0, 15),
		CloudCoverPct: s.uniform(0, 100),
		Condition:     syntheticConditions[s.rnd.IntN(len(syntheticConditions))],
		Description:   "sample data for demonstration",
		PressureHPA:   s.uniform(990, 1030),
		VisibilityKM:  s.uniform(5, 15),
		RealData:      false,
		Source:        syntheticSource,
	}, nil
}
