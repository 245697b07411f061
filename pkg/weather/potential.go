package weather

import (
	"math"

	"github.com/raterudder/gridbalancer/pkg/types"
)

// SolarPotential estimates solar output as a percentage of nameplate
// capacity. It never drops below 5%.
func SolarPotential(obs types.WeatherObservation) float64 {
	t := obs.TemperatureC
	var tempFactor float64
	if t >= 15 && t <= 35 {
		tempFactor = 100 - math.Abs(t-25)*1.5
	} else {
		tempFactor = math.Max(0, 100-math.Abs(t-25)*3)
	}
	cloudFactor := math.Max(10, 100-obs.CloudCoverPct*0.8)
	humidityFactor := math.Max(20, 100-obs.HumidityPct*0.6)
	visibilityFactor := math.Min(100, obs.VisibilityKM*8)

	p := tempFactor*0.3 + cloudFactor*0.4 + humidityFactor*0.15 + visibilityFactor*0.15
	return math.Min(100, math.Max(5, p))
}

// WindPotential estimates wind output as a percentage of nameplate capacity
// from a turbine power curve: cut-in at 2 m/s, rated from 12 m/s and a
// linear safety derate above 25 m/s.
func WindPotential(obs types.WeatherObservation) float64 {
	v := obs.WindSpeedMS
	switch {
	case v < 2:
		return 0
	case v < 3:
		return v * 15
	case v <= 12:
		return 45 + (v-3)*6.1
	case v <= 25:
		return 100
	default:
		return math.Max(0, 100-(v-25)*4)
	}
}

// Potential computes both potentials and their mean.
func Potential(obs types.WeatherObservation) types.RenewablePotential {
	solar := SolarPotential(obs)
	wind := WindPotential(obs)
	return types.RenewablePotential{
		SolarPotential: solar,
		WindPotential:  wind,
		RenewableScore: (solar + wind) / 2,
	}
}
