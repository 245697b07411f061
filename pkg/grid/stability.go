package grid

import (
	"math"

	"github.com/raterudder/gridbalancer/pkg/types"
)

const (
	frequencyWeight = 0.35
	voltageWeight   = 0.25
	storageWeight   = 0.20
	balanceWeight   = 0.20

	// number of recent cycles considered by the balance score
	balanceLookback = 10
)

// FrequencyScore scores the deviation from nominal frequency. Deviations up to
// 0.2 Hz are perfect, up to 0.5 Hz lose up to 30 points, beyond that the score
// falls 50 points per Hz.
func FrequencyScore(frequencyHz float64) float64 {
	d := math.Abs(frequencyHz - nominalFrequencyHz)
	switch {
	case d <= 0.2:
		return 100
	case d <= 0.5:
		return 100 - ((d-0.2)/0.3)*30
	default:
		return math.Max(0, 70-(d-0.5)*50)
	}
}

// VoltageScore scores the per-unit voltage deviation; a 5% deviation scores 0.
func VoltageScore(voltagePU float64) float64 {
	v := math.Abs(voltagePU - nominalVoltagePU)
	return math.Max(0, 100-(v/0.05)*100)
}

// StorageScore scores a state of charge percentage. 20-80% is ideal.
func StorageScore(socPercent float64) float64 {
	switch {
	case socPercent < 20:
		return math.Max(0, socPercent*5)
	case socPercent > 80:
		return math.Max(0, 100-(socPercent-80))
	default:
		return 100
	}
}

// BalanceScore is the percentage of the last 10 results that were BALANCED or
// SURPLUS. An empty history is neutral.
func BalanceScore(history []types.BalancingResult) float64 {
	if len(history) == 0 {
		return 50
	}
	recent := history
	if len(recent) > balanceLookback {
		recent = recent[len(recent)-balanceLookback:]
	}
	var healthy int
	for _, r := range recent {
		if r.GridBalance.Healthy() {
			healthy++
		}
	}
	return float64(healthy) / float64(len(recent)) * 100
}

// StabilityIndex blends the frequency, voltage, storage and balance scores
// into a 0-100 index rounded to two decimals.
func (o *Optimizer) StabilityIndex() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stabilityIndexLocked()
}

func (o *Optimizer) stabilityIndexLocked() float64 {
	index := FrequencyScore(o.state.GridFrequencyHz)*frequencyWeight +
		VoltageScore(o.state.VoltagePU)*voltageWeight +
		StorageScore(o.state.StorageSOCPercent())*storageWeight +
		BalanceScore(o.history)*balanceWeight
	return types.Round2(index)
}
