package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raterudder/gridbalancer/pkg/types"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbalancer_cycles_total",
			Help: "Total number of balancing cycles by resulting grid balance",
		},
		[]string{"grid", "balance"},
	)
	stabilityIndex = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbalancer_stability_index",
			Help: "Grid stability index (0-100) of the latest cycle",
		},
		[]string{"grid"},
	)
	storageSOC = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbalancer_storage_soc_percent",
			Help: "Storage state of charge after the latest cycle",
		},
		[]string{"grid"},
	)
	renewablePercentage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbalancer_renewable_percentage",
			Help: "Renewable generation as a percentage of demand in the latest cycle",
		},
		[]string{"grid"},
	)
	carbonIntensity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbalancer_carbon_intensity_gco2_kwh",
			Help: "Carbon intensity of the latest cycle",
		},
		[]string{"grid"},
	)
	supplyDemandRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbalancer_supply_demand_ratio",
			Help: "Supply/demand ratio of the latest cycle",
		},
		[]string{"grid"},
	)
	curtailedMW = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbalancer_curtailed_renewable_mw_total",
			Help: "Sum of curtailed renewable output across cycles",
		},
		[]string{"grid"},
	)
	persistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbalancer_persist_failures_total",
			Help: "Number of cycles that could not be fully persisted",
		},
		[]string{"grid"},
	)
)

func init() {
	prometheus.MustRegister(
		cyclesTotal,
		stabilityIndex,
		storageSOC,
		renewablePercentage,
		carbonIntensity,
		supplyDemandRatio,
		curtailedMW,
		persistFailures,
	)
}

// Observe records a balancing result.
func Observe(r types.BalancingResult) {
	cyclesTotal.WithLabelValues(r.GridID, string(r.GridBalance)).Inc()
	stabilityIndex.WithLabelValues(r.GridID).Set(r.StabilityIndex)
	storageSOC.WithLabelValues(r.GridID).Set(r.StorageSOCPercent)
	renewablePercentage.WithLabelValues(r.GridID).Set(r.RenewablePercentage)
	carbonIntensity.WithLabelValues(r.GridID).Set(r.CarbonIntensityGCO2KWh)
	supplyDemandRatio.WithLabelValues(r.GridID).Set(r.SupplyDemandRatio)
	if r.EnergyMix.CurtailedRenewableMW > 0 {
		curtailedMW.WithLabelValues(r.GridID).Add(r.EnergyMix.CurtailedRenewableMW)
	}
}

// PersistFailed records a cycle whose records could not all be stored.
func PersistFailed(gridID string) {
	persistFailures.WithLabelValues(gridID).Inc()
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
