package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	r := types.BalancingResult{
		GridID:                 "metrics-test",
		GridBalance:            types.GridBalanceBalanced,
		StabilityIndex:         91.25,
		StorageSOCPercent:      48,
		RenewablePercentage:    62.5,
		CarbonIntensityGCO2KWh: 73.8,
		SupplyDemandRatio:      1,
		EnergyMix:              types.EnergyMix{CurtailedRenewableMW: 20},
	}
	Observe(r)
	Observe(r)

	assert.Equal(t, 2.0, testutil.ToFloat64(cyclesTotal.WithLabelValues("metrics-test", "BALANCED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(cyclesTotal.WithLabelValues("metrics-test", "DEFICIT")))
	assert.Equal(t, 91.25, testutil.ToFloat64(stabilityIndex.WithLabelValues("metrics-test")))
	assert.Equal(t, 48.0, testutil.ToFloat64(storageSOC.WithLabelValues("metrics-test")))
	assert.Equal(t, 62.5, testutil.ToFloat64(renewablePercentage.WithLabelValues("metrics-test")))
	assert.Equal(t, 73.8, testutil.ToFloat64(carbonIntensity.WithLabelValues("metrics-test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(supplyDemandRatio.WithLabelValues("metrics-test")))
	assert.Equal(t, 40.0, testutil.ToFloat64(curtailedMW.WithLabelValues("metrics-test")))

	PersistFailed("metrics-test")
	assert.Equal(t, 1.0, testutil.ToFloat64(persistFailures.WithLabelValues("metrics-test")))
}

func TestHandler(t *testing.T) {
	Observe(types.BalancingResult{GridID: "handler-test", GridBalance: types.GridBalanceDeficit, StabilityIndex: 12})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gridbalancer_cycles_total{balance="DEFICIT",grid="handler-test"} 1`)
	assert.Contains(t, string(body), `gridbalancer_stability_index{grid="handler-test"} 12`)
}
