package types

import (
	"math"
	"time"
)

// GridBalance classifies how well supply met demand in a balancing cycle.
type GridBalance string

const (
	GridBalanceBalanced GridBalance = "BALANCED"
	GridBalanceSurplus  GridBalance = "SURPLUS"
	GridBalanceTight    GridBalance = "TIGHT"
	GridBalanceDeficit  GridBalance = "DEFICIT"
)

// Healthy reports whether the balance counts toward grid stability.
func (b GridBalance) Healthy() bool {
	return b == GridBalanceBalanced || b == GridBalanceSurplus
}

// Stability is the operator-facing label paired with a GridBalance.
type Stability string

const (
	StabilityOptimal  Stability = "optimal"
	StabilityStable   Stability = "stable"
	StabilityMarginal Stability = "marginal"
	StabilityCritical Stability = "critical"
)

// GridState is a snapshot of the long-lived state owned by an optimizer.
type GridState struct {
	TotalCapacityMW          float64 `json:"total_capacity_mw"`
	RenewableCapacityMW      float64 `json:"renewable_capacity_mw"`
	StorageCapacityMWh       float64 `json:"storage_capacity_mwh"`
	StorageLevelMWh          float64 `json:"storage_level_mwh"`
	CurrentLoadMW            float64 `json:"current_load_mw"`
	ConventionalGenerationMW float64 `json:"conventional_generation_mw"`
	GridFrequencyHz          float64 `json:"grid_frequency_hz"`
	VoltagePU                float64 `json:"voltage_pu"`
}

// StorageSOCPercent returns the storage state of charge as a percentage.
func (s GridState) StorageSOCPercent() float64 {
	if s.StorageCapacityMWh <= 0 {
		return 0
	}
	return s.StorageLevelMWh / s.StorageCapacityMWh * 100
}

// RenewableGeneration is the renewable output available in a cycle.
type RenewableGeneration struct {
	SolarMW float64 `json:"solar_mw"`
	WindMW  float64 `json:"wind_mw"`
	TotalMW float64 `json:"total_mw"`
}

// EnergyMix describes how demand was served in a single cycle. All values are
// non-negative MW.
type EnergyMix struct {
	RenewableUsedMW      float64 `json:"renewable_used_mw"`
	StorageDischargedMW  float64 `json:"storage_discharged_mw"`
	ConventionalUsedMW   float64 `json:"conventional_used_mw"`
	StorageChargedMW     float64 `json:"storage_charged_mw"`
	CurtailedRenewableMW float64 `json:"curtailed_renewable_mw"`
	// UnservedMW is demand none of the sources could cover.
	UnservedMW float64 `json:"unserved_mw"`
}

// TotalGenerationMW is the generation actually dispatched to serve load.
func (m EnergyMix) TotalGenerationMW() float64 {
	return m.RenewableUsedMW + m.StorageDischargedMW + m.ConventionalUsedMW
}

// BalancingResult is the scorecard of one balancing cycle.
type BalancingResult struct {
	ID        string    `json:"id"`
	GridID    string    `json:"grid_id"`
	Timestamp time.Time `json:"timestamp"`

	DemandMW              float64 `json:"demand_mw"`
	SolarGenerationMW     float64 `json:"solar_generation_mw"`
	WindGenerationMW      float64 `json:"wind_generation_mw"`
	RenewableGenerationMW float64 `json:"renewable_generation_mw"`
	TotalGenerationMW     float64 `json:"total_generation_mw"`
	SupplyDemandRatio     float64 `json:"supply_demand_ratio"`

	EnergyMix EnergyMix `json:"energy_mix"`

	GridBalance            GridBalance `json:"grid_balance"`
	Stability              Stability   `json:"stability"`
	RenewablePercentage    float64     `json:"renewable_percentage"`
	StorageLevelMWh        float64     `json:"storage_level_mwh"`
	StorageSOCPercent      float64     `json:"storage_soc_percent"`
	CarbonIntensityGCO2KWh float64     `json:"carbon_intensity_gco2_kwh"`
	Efficiency             float64     `json:"efficiency"`
	StabilityIndex         float64     `json:"stability_index"`
	Recommendations        []string    `json:"recommendations"`
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rounded returns a copy with every quantity rounded to two decimals. It is
// meant for presentation only; never feed the rounded values back into
// calculations.
func (r BalancingResult) Rounded() BalancingResult {
	out := r
	out.DemandMW = Round2(r.DemandMW)
	out.SolarGenerationMW = Round2(r.SolarGenerationMW)
	out.WindGenerationMW = Round2(r.WindGenerationMW)
	out.RenewableGenerationMW = Round2(r.RenewableGenerationMW)
	out.TotalGenerationMW = Round2(r.TotalGenerationMW)
	out.SupplyDemandRatio = Round2(r.SupplyDemandRatio)
	out.EnergyMix = EnergyMix{
		RenewableUsedMW:      Round2(r.EnergyMix.RenewableUsedMW),
		StorageDischargedMW:  Round2(r.EnergyMix.StorageDischargedMW),
		ConventionalUsedMW:   Round2(r.EnergyMix.ConventionalUsedMW),
		StorageChargedMW:     Round2(r.EnergyMix.StorageChargedMW),
		CurtailedRenewableMW: Round2(r.EnergyMix.CurtailedRenewableMW),
		UnservedMW:           Round2(r.EnergyMix.UnservedMW),
	}
	out.RenewablePercentage = Round2(r.RenewablePercentage)
	out.StorageLevelMWh = Round2(r.StorageLevelMWh)
	out.StorageSOCPercent = Round2(r.StorageSOCPercent)
	out.CarbonIntensityGCO2KWh = Round2(r.CarbonIntensityGCO2KWh)
	out.Efficiency = Round2(r.Efficiency)
	out.StabilityIndex = Round2(r.StabilityIndex)
	out.Recommendations = append([]string(nil), r.Recommendations...)
	return out
}

// PerformanceMetrics aggregates a window of balancing history.
type PerformanceMetrics struct {
	Window  int  `json:"window"`
	Samples int  `json:"samples"`
	NoData  bool `json:"no_data"`

	AvgRenewablePercentage float64             `json:"avg_renewable_percentage"`
	AvgEfficiency          float64             `json:"avg_efficiency"`
	AvgStabilityIndex      float64             `json:"avg_stability_index"`
	AvgCarbonIntensity     float64             `json:"avg_carbon_intensity_gco2_kwh"`
	BalanceCounts          map[GridBalance]int `json:"balance_counts"`
	CurrentSOCPercent      float64             `json:"current_soc_percent"`
}
