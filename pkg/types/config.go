package types

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned when a GridConfig cannot describe a physical grid.
var ErrInvalidConfig = errors.New("invalid grid configuration")

// GridConfig holds the nameplate parameters of a grid. It is fixed for the
// lifetime of an optimizer.
type GridConfig struct {
	TotalCapacityMW     float64 `json:"total_capacity_mw"`
	RenewableCapacityMW float64 `json:"renewable_capacity_mw"`
	SolarCapacityMW     float64 `json:"solar_capacity_mw"`
	WindCapacityMW      float64 `json:"wind_capacity_mw"`
	StorageCapacityMWh  float64 `json:"storage_capacity_mwh"`

	// InitialStorageLevelMWh defaults to half of StorageCapacityMWh when nil.
	InitialStorageLevelMWh *float64 `json:"initial_storage_level_mwh,omitempty"`
}

// DefaultGridConfig returns the demonstration grid: 5 GW total of which 2 GW
// is renewable (1 GW solar, 1 GW wind) with 500 MWh of storage.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		TotalCapacityMW:     5000,
		RenewableCapacityMW: 2000,
		SolarCapacityMW:     1000,
		WindCapacityMW:      1000,
		StorageCapacityMWh:  500,
	}
}

// InitialStorageLevel returns the storage level the grid starts with.
func (c GridConfig) InitialStorageLevel() float64 {
	if c.InitialStorageLevelMWh != nil {
		return *c.InitialStorageLevelMWh
	}
	return c.StorageCapacityMWh * 0.5
}

// ConventionalCapacityMW is the nameplate capacity available to conventional
// generators.
func (c GridConfig) ConventionalCapacityMW() float64 {
	return c.TotalCapacityMW - c.RenewableCapacityMW
}

// Validate checks that the configuration is physically consistent.
func (c GridConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"total_capacity_mw", c.TotalCapacityMW},
		{"renewable_capacity_mw", c.RenewableCapacityMW},
		{"solar_capacity_mw", c.SolarCapacityMW},
		{"wind_capacity_mw", c.WindCapacityMW},
		{"storage_capacity_mwh", c.StorageCapacityMWh},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidConfig, f.name, f.value)
		}
	}
	if c.RenewableCapacityMW > c.TotalCapacityMW {
		return fmt.Errorf(
			"%w: renewable capacity (%g MW) exceeds total capacity (%g MW)",
			ErrInvalidConfig,
			c.RenewableCapacityMW,
			c.TotalCapacityMW,
		)
	}
	level := c.InitialStorageLevel()
	if math.IsNaN(level) || level < 0 || level > c.StorageCapacityMWh {
		return fmt.Errorf(
			"%w: initial storage level %g MWh outside [0, %g]",
			ErrInvalidConfig,
			level,
			c.StorageCapacityMWh,
		)
	}
	return nil
}
