package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCycle() types.Cycle {
	return types.Cycle{
		GridID: "default",
		City:   "Colombo",
		Weather: types.WeatherObservation{
			TemperatureC:  31.26,
			HumidityPct:   70,
			WindSpeedMS:   6.5,
			CloudCoverPct: 20,
			Condition:     "Clouds",
			Description:   "few clouds",
			Source:        "Sample Generator",
		},
		Potential: types.RenewablePotential{SolarPotential: 59, WindPotential: 66.35},
		Balancing: types.BalancingResult{
			GridID:            "default",
			Timestamp:         time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC),
			DemandMW:          945.123456,
			SolarGenerationMW: 300,
			WindGenerationMW:  290,
			EnergyMix: types.EnergyMix{
				RenewableUsedMW:     590,
				StorageDischargedMW: 200,
				ConventionalUsedMW:  155.123456,
			},
			GridBalance:            types.GridBalanceBalanced,
			Stability:              types.StabilityOptimal,
			RenewablePercentage:    62.4257,
			SupplyDemandRatio:      1,
			StorageLevelMWh:        50,
			StorageSOCPercent:      10,
			CarbonIntensityGCO2KWh: 73.8571,
			Efficiency:             62.4257,
			StabilityIndex:         73.5,
			Recommendations:        []string{"Supply meets demand", "Storage is low"},
		},
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, testCycle()))
	out := buf.String()

	assert.Contains(t, out, "# Energy Report: Colombo")
	assert.Contains(t, out, "2026-04-02 14:00 UTC")
	assert.Contains(t, out, "| Temperature | 31.3 °C (acceptable) |")
	assert.Contains(t, out, "Sample Generator (synthetic)")
	assert.Contains(t, out, "| Demand | 945.12 MW |")
	assert.Contains(t, out, "| Conventional | 155.12 |")
	assert.Contains(t, out, "| Renewable share | 62.43 % (good) |")
	assert.Contains(t, out, "Grid balance: **BALANCED** (optimal)")
	assert.Contains(t, out, "Carbon intensity: 73.86 gCO2/kWh")
	assert.Contains(t, out, "- Supply meets demand\n- Storage is low")
	assert.NotContains(t, out, "Unserved")
}

func TestGenerateDeficit(t *testing.T) {
	c := testCycle()
	c.Balancing.GridBalance = types.GridBalanceDeficit
	c.Balancing.Stability = types.StabilityCritical
	c.Balancing.EnergyMix.UnservedMW = 42
	c.Balancing.Recommendations = nil
	c.Weather.RealData = true

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, c))
	out := buf.String()
	assert.Contains(t, out, "| **Unserved** | 42.00 |")
	assert.Contains(t, out, "immediate action is required")
	assert.Contains(t, out, "- No action required")
	assert.NotContains(t, out, "(synthetic)")
}

func TestRatings(t *testing.T) {
	assert.Equal(t, "optimal", thermalAssessment(25))
	assert.Equal(t, "acceptable", thermalAssessment(33))
	assert.Equal(t, "challenging", thermalAssessment(36))
	assert.Equal(t, "challenging", thermalAssessment(10))

	assert.Equal(t, "excellent", renewableRating(71))
	assert.Equal(t, "good", renewableRating(51))
	assert.Equal(t, "moderate", renewableRating(31))
	assert.Equal(t, "low", renewableRating(30))
}
