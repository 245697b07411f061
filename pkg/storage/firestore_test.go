package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirestoreProvider(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	// Use a random database for isolation
	randDB := fmt.Sprintf("test-db-%d", time.Now().UnixNano())
	f := &FirestoreProvider{
		projectID: "test-project-id",
		database:  randDB,
	}

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
	})

	t.Run("EmptyGridID", func(t *testing.T) {
		_, err := f.GetLatestBalancingResult(ctx, "")
		assert.ErrorContains(t, err, "gridID cannot be empty")
	})

	t.Run("Balancing Results", func(t *testing.T) {
		_, err := f.GetLatestBalancingResult(ctx, "test-grid")
		assert.ErrorIs(t, err, ErrNotFound)

		now := time.Now().Truncate(time.Millisecond).UTC()
		r1 := testBalancingResult("test-grid", now.Add(-time.Hour), 945)
		r1.ID = "r1"
		r2 := testBalancingResult("test-grid", now, 1000)
		r2.ID = "r2"
		require.NoError(t, f.InsertBalancingResult(ctx, r1))
		require.NoError(t, f.InsertBalancingResult(ctx, r2))

		history, err := f.GetBalancingHistory(ctx, "test-grid", now.Add(-2*time.Hour), now.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "r1", history[0].ID)
		assert.Equal(t, "r2", history[1].ID)
		assert.True(t, r2.Timestamp.Equal(history[1].Timestamp))
		assert.Equal(t, r2.Recommendations, history[1].Recommendations)
		assert.Equal(t, r2.CarbonIntensityGCO2KWh, history[1].CarbonIntensityGCO2KWh)

		latest, err := f.GetLatestBalancingResult(ctx, "test-grid")
		require.NoError(t, err)
		assert.Equal(t, "r2", latest.ID)
	})

	t.Run("Weather", func(t *testing.T) {
		now := time.Now().Truncate(time.Millisecond).UTC()
		rec := types.WeatherRecord{
			Observation: types.WeatherObservation{Timestamp: now, City: "Colombo", TemperatureC: 28},
			Potential:   types.RenewablePotential{SolarPotential: 70},
		}
		require.NoError(t, f.InsertWeatherObservation(ctx, "test-grid", rec))

		records, err := f.GetWeatherHistory(ctx, "test-grid", now.Add(-time.Minute), now.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Colombo", records[0].Observation.City)
		assert.Equal(t, 70.0, records[0].Potential.SolarPotential)
	})

	t.Run("Demand", func(t *testing.T) {
		now := time.Now().UTC()
		require.NoError(t, f.InsertDemandPrediction(ctx, "test-grid", types.DemandPrediction{
			Timestamp:         now,
			PredictedDemandMW: 1000,
		}))
		assert.Error(t, f.InsertDemandPrediction(ctx, "test-grid", types.DemandPrediction{}))

		predictions, err := f.GetDemandHistory(ctx, "test-grid", now.Add(-time.Minute), now.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, predictions, 1)
		assert.Equal(t, 1000.0, predictions[0].PredictedDemandMW)
	})
}
