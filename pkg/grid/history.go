package grid

import (
	"github.com/raterudder/gridbalancer/pkg/types"
)

// DefaultPerformanceWindow is the number of cycles PerformanceMetrics
// aggregates when no window is given.
const DefaultPerformanceWindow = 24

func (o *Optimizer) appendHistoryLocked(r types.BalancingResult) {
	if len(o.history) >= maxHistory {
		// shift instead of reslicing so the backing array never grows
		copy(o.history, o.history[1:])
		o.history = o.history[:len(o.history)-1]
	}
	o.history = append(o.history, r)
}

// History returns a copy of the in-memory balancing history, oldest first.
func (o *Optimizer) History() []types.BalancingResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]types.BalancingResult, len(o.history))
	copy(out, o.history)
	return out
}

// PerformanceMetrics summarizes the last window cycles of this optimizer.
func (o *Optimizer) PerformanceMetrics(window int) types.PerformanceMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return SummarizeHistory(o.history, window, o.state.StorageSOCPercent())
}

// SummarizeHistory aggregates the last window entries of history. A
// non-positive window uses DefaultPerformanceWindow. NoData is set when there
// is nothing to aggregate.
func SummarizeHistory(history []types.BalancingResult, window int, currentSOCPercent float64) types.PerformanceMetrics {
	if window <= 0 {
		window = DefaultPerformanceWindow
	}
	m := types.PerformanceMetrics{
		Window:            window,
		BalanceCounts:     map[types.GridBalance]int{},
		CurrentSOCPercent: types.Round2(currentSOCPercent),
	}
	if len(history) == 0 {
		m.NoData = true
		return m
	}

	recent := history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	var renewable, efficiency, stability, carbon float64
	for _, r := range recent {
		renewable += r.RenewablePercentage
		efficiency += r.Efficiency
		stability += r.StabilityIndex
		carbon += r.CarbonIntensityGCO2KWh
		m.BalanceCounts[r.GridBalance]++
	}
	n := float64(len(recent))
	m.Samples = len(recent)
	m.AvgRenewablePercentage = types.Round2(renewable / n)
	m.AvgEfficiency = types.Round2(efficiency / n)
	m.AvgStabilityIndex = types.Round2(stability / n)
	m.AvgCarbonIntensity = types.Round2(carbon / n)
	return m
}
