package weather

import (
	"testing"

	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSolarPotential(t *testing.T) {
	tests := []struct {
		name string
		obs  types.WeatherObservation
		want float64
	}{
		{
			name: "Ideal",
			obs:  types.WeatherObservation{TemperatureC: 25, VisibilityKM: 12.5},
			want: 100,
		},
		{
			name: "Hot Overcast Humid",
			obs:  types.WeatherObservation{TemperatureC: 45, CloudCoverPct: 100, HumidityPct: 100},
			want: 26,
		},
		{
			name: "Edge Of Optimal Range",
			// temp 85, cloud 60, humidity 70, visibility 80
			obs:  types.WeatherObservation{TemperatureC: 35, CloudCoverPct: 50, HumidityPct: 50, VisibilityKM: 10},
			want: 85*0.3 + 60*0.4 + 70*0.15 + 80*0.15,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, SolarPotential(tc.obs), 1e-9)
		})
	}
}

func TestWindPotential(t *testing.T) {
	tests := []struct {
		speed float64
		want  float64
	}{
		{0, 0},
		{1.9, 0},
		{2.5, 37.5},
		{3, 45},
		{12, 99.9},
		{20, 100},
		{25, 100},
		{30, 80},
		{60, 0},
	}
	for _, tc := range tests {
		got := WindPotential(types.WeatherObservation{WindSpeedMS: tc.speed})
		assert.InDelta(t, tc.want, got, 1e-9, "speed %v", tc.speed)
	}
}

func TestPotential(t *testing.T) {
	p := Potential(types.WeatherObservation{TemperatureC: 25, VisibilityKM: 12.5, WindSpeedMS: 1})
	assert.InDelta(t, 100.0, p.SolarPotential, 1e-9)
	assert.Equal(t, 0.0, p.WindPotential)
	assert.InDelta(t, 50.0, p.RenewableScore, 1e-9)
}
