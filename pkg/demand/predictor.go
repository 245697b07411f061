package demand

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

const (
	// DefaultBaseMW is the demand of an average weekday hour before any
	// adjustment.
	DefaultBaseMW = 1000.0

	weekendFactor = 0.85
)

// Predictor estimates grid demand from time of day, season and weekday. It is
// safe for concurrent use.
type Predictor struct {
	baseMW float64

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewPredictor creates a predictor. A nil rnd uses a randomly seeded source
// and a nil now uses time.Now.
func NewPredictor(baseMW float64, rnd *rand.Rand, now func() time.Time) *Predictor {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Predictor{
		baseMW: baseMW,
		rnd:    rnd,
		now:    now,
	}
}

// DailyFactor follows a sine over the day, lowest at midnight and highest at
// noon.
func DailyFactor(hour int) float64 {
	return 0.7 + 0.3*math.Sin(float64(hour-6)*math.Pi/12)
}

// SeasonalFactor is highest in January and lowest in July.
func SeasonalFactor(month time.Month) float64 {
	return 0.8 + 0.2*math.Cos(float64(month-1)*math.Pi/6)
}

// WeekendFactor reduces demand on Saturday and Sunday.
func WeekendFactor(day time.Weekday) float64 {
	if day == time.Saturday || day == time.Sunday {
		return weekendFactor
	}
	return 1
}

// IsPeakHour reports whether hour falls in the morning (6-9) or evening
// (18-21) peak.
func IsPeakHour(hour int) bool {
	return (hour >= 6 && hour <= 9) || (hour >= 18 && hour <= 21)
}

// jitter must be called with mu held
func (p *Predictor) jitter() float64 {
	return 0.95 + 0.1*p.rnd.Float64()
}

// PredictCurrent estimates the demand right now.
func (p *Predictor) PredictCurrent(ctx context.Context) types.DemandPrediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	daily := DailyFactor(now.Hour())
	seasonal := SeasonalFactor(now.Month())
	weekend := WeekendFactor(now.Weekday())

	demand := p.baseMW * daily * seasonal * weekend * p.jitter()
	pred := types.DemandPrediction{
		Timestamp:         now.UTC(),
		PredictedDemandMW: types.Round2(demand),
		Confidence:        0.85 + 0.1*p.rnd.Float64(),
		DailyFactor:       daily,
		SeasonalFactor:    seasonal,
		WeekendFactor:     weekend,
		IsPeakHour:        IsPeakHour(now.Hour()),
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"predicted current demand",
		slog.Float64("demandMW", pred.PredictedDemandMW),
		slog.Float64("confidence", pred.Confidence),
	)
	return pred
}

// Forecast24h returns hourly demand estimates starting at the current hour.
// Unlike PredictCurrent it ignores the seasonal factor.
func (p *Predictor) Forecast24h(ctx context.Context) []types.HourlyDemand {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]types.HourlyDemand, 0, 24)
	for i := 0; i < 24; i++ {
		ts := now.Add(time.Duration(i) * time.Hour)
		demand := p.baseMW * DailyFactor(ts.Hour()) * WeekendFactor(ts.Weekday()) * p.jitter()
		out = append(out, types.HourlyDemand{
			Hour:              i,
			Timestamp:         ts.UTC(),
			PredictedDemandMW: types.Round2(demand),
		})
	}
	log.Ctx(ctx).DebugContext(ctx, "forecasted demand", slog.Int("hours", len(out)))
	return out
}
