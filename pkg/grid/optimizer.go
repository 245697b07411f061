package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

const (
	// at most this fraction of stored energy (or of remaining headroom) may be
	// discharged (or charged) in one cycle
	storageRateFraction = 0.8

	// conventional generation emits a fixed intensity; renewable and storage
	// discharge are treated as zero-carbon
	conventionalGCO2PerKWh = 450.0

	nominalFrequencyHz = 50.0
	nominalVoltagePU   = 1.0

	maxHistory = 100
)

// ErrInvalidInput is returned when a caller passes a negative or non-finite
// quantity. The optimizer state is never modified when it is returned.
var ErrInvalidInput = errors.New("invalid input")

// Optimizer allocates supply between renewable, storage and conventional
// sources for a single grid and scores the result. It is safe for concurrent
// use; every operation holds the same lock since each one reads and writes the
// whole state.
type Optimizer struct {
	mu sync.Mutex

	gridID  string
	config  types.GridConfig
	state   types.GridState
	history []types.BalancingResult

	now   func() time.Time
	newID func() string
}

// New creates an optimizer for the given configuration.
func New(gridID string, cfg types.GridConfig) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		gridID: gridID,
		config: cfg,
		state: types.GridState{
			TotalCapacityMW:     cfg.TotalCapacityMW,
			RenewableCapacityMW: cfg.RenewableCapacityMW,
			StorageCapacityMWh:  cfg.StorageCapacityMWh,
			StorageLevelMWh:     cfg.InitialStorageLevel(),
			GridFrequencyHz:     nominalFrequencyHz,
			VoltagePU:           nominalVoltagePU,
		},
		history: make([]types.BalancingResult, 0, maxHistory),
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// GridID returns the ID of the grid this optimizer manages.
func (o *Optimizer) GridID() string {
	return o.gridID
}

// Config returns the configuration the optimizer was created with.
func (o *Optimizer) Config() types.GridConfig {
	return o.config
}

// State returns a snapshot of the current grid state.
func (o *Optimizer) State() types.GridState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ValidateGridConditions returns ErrInvalidInput unless both values are
// finite and non-negative.
func ValidateGridConditions(frequencyHz, voltagePU float64) error {
	if err := checkQuantity("grid_frequency_hz", frequencyHz); err != nil {
		return err
	}
	return checkQuantity("voltage_pu", voltagePU)
}

// SetGridConditions updates the simulated physical state used by the
// stability index.
func (o *Optimizer) SetGridConditions(frequencyHz, voltagePU float64) error {
	if err := ValidateGridConditions(frequencyHz, voltagePU); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.GridFrequencyHz = frequencyHz
	o.state.VoltagePU = voltagePU
	return nil
}

// RenewableGeneration converts solar and wind potentials (percent of
// nameplate) into MW using the configured solar and wind capacities.
func (o *Optimizer) RenewableGeneration(p types.RenewablePotential) types.RenewableGeneration {
	solar := p.SolarPotential / 100 * o.config.SolarCapacityMW
	wind := p.WindPotential / 100 * o.config.WindCapacityMW
	return types.RenewableGeneration{
		SolarMW: solar,
		WindMW:  wind,
		TotalMW: solar + wind,
	}
}

func checkQuantity(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite", ErrInvalidInput, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidInput, name, v)
	}
	return nil
}

// OptimizeEnergyMix dispatches demand in strict priority order: renewables,
// then storage discharge, then conventional generation. Surplus renewable
// output charges storage and the rest is curtailed. The storage level, current
// load and conventional generation are updated.
func (o *Optimizer) OptimizeEnergyMix(demandMW, renewableAvailableMW float64) (types.EnergyMix, error) {
	if err := checkQuantity("demand_mw", demandMW); err != nil {
		return types.EnergyMix{}, err
	}
	if err := checkQuantity("renewable_available_mw", renewableAvailableMW); err != nil {
		return types.EnergyMix{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.optimizeLocked(demandMW, renewableAvailableMW), nil
}

func (o *Optimizer) optimizeLocked(demandMW, renewableAvailableMW float64) types.EnergyMix {
	var mix types.EnergyMix
	mix.RenewableUsedMW = math.Min(renewableAvailableMW, demandMW)

	remaining := demandMW - renewableAvailableMW
	if remaining > 0 {
		mix.StorageDischargedMW = math.Min(remaining, o.state.StorageLevelMWh*storageRateFraction)
		o.state.StorageLevelMWh -= mix.StorageDischargedMW
		remaining -= mix.StorageDischargedMW

		if remaining > 0 {
			// nameplate conventional capacity, deliberately not reduced by
			// the renewable output of this cycle
			mix.ConventionalUsedMW = math.Min(remaining, o.config.ConventionalCapacityMW())
			remaining -= mix.ConventionalUsedMW
		}
		if remaining > 0 {
			mix.UnservedMW = remaining
		}
	} else if remaining < 0 {
		surplus := -remaining
		headroom := o.state.StorageCapacityMWh - o.state.StorageLevelMWh
		mix.StorageChargedMW = math.Min(surplus, headroom*storageRateFraction)
		o.state.StorageLevelMWh += mix.StorageChargedMW
		mix.CurtailedRenewableMW = surplus - mix.StorageChargedMW
	}

	o.state.CurrentLoadMW = demandMW
	o.state.ConventionalGenerationMW = mix.ConventionalUsedMW
	return mix
}

// ClassifyBalance maps a supply/demand ratio to a balance state and stability
// label. The first matching rule wins.
func ClassifyBalance(ratio float64) (types.GridBalance, types.Stability) {
	switch {
	case ratio >= 0.99 && ratio > 1.15:
		return types.GridBalanceSurplus, types.StabilityStable
	case ratio >= 0.99:
		return types.GridBalanceBalanced, types.StabilityOptimal
	case ratio >= 0.90:
		return types.GridBalanceTight, types.StabilityMarginal
	default:
		return types.GridBalanceDeficit, types.StabilityCritical
	}
}

// BalanceGrid runs one balancing cycle: it optimizes the energy mix, scores the
// result and appends it to the bounded history.
func (o *Optimizer) BalanceGrid(ctx context.Context, demandMW float64, gen types.RenewableGeneration) (types.BalancingResult, error) {
	if err := checkQuantity("demand_mw", demandMW); err != nil {
		return types.BalancingResult{}, err
	}
	if err := checkQuantity("renewable_generation.solar", gen.SolarMW); err != nil {
		return types.BalancingResult{}, err
	}
	if err := checkQuantity("renewable_generation.wind", gen.WindMW); err != nil {
		return types.BalancingResult{}, err
	}
	if err := checkQuantity("renewable_generation.total", gen.TotalMW); err != nil {
		return types.BalancingResult{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	mix := o.optimizeLocked(demandMW, gen.TotalMW)
	totalGeneration := mix.TotalGenerationMW()

	ratio := 1.0
	var renewablePct, carbonIntensity float64
	if demandMW > 0 {
		ratio = totalGeneration / demandMW
		renewablePct = gen.TotalMW / demandMW * 100
		// MW -> kW on both sides cancels out but keep the units explicit
		carbonIntensity = (mix.ConventionalUsedMW * 1000) * conventionalGCO2PerKWh / (demandMW * 1000)
	}
	balance, stability := ClassifyBalance(ratio)
	soc := o.state.StorageSOCPercent()

	result := types.BalancingResult{
		ID:                     o.newID(),
		GridID:                 o.gridID,
		Timestamp:              o.now(),
		DemandMW:               demandMW,
		SolarGenerationMW:      gen.SolarMW,
		WindGenerationMW:       gen.WindMW,
		RenewableGenerationMW:  gen.TotalMW,
		TotalGenerationMW:      totalGeneration,
		SupplyDemandRatio:      ratio,
		EnergyMix:              mix,
		GridBalance:            balance,
		Stability:              stability,
		RenewablePercentage:    renewablePct,
		StorageLevelMWh:        o.state.StorageLevelMWh,
		StorageSOCPercent:      soc,
		CarbonIntensityGCO2KWh: carbonIntensity,
		Efficiency:             math.Min(100, renewablePct),
		StabilityIndex:         o.stabilityIndexLocked(),
		Recommendations:        Recommendations(balance, soc, renewablePct, mix.CurtailedRenewableMW, mix.UnservedMW),
	}

	o.appendHistoryLocked(result)

	log.Ctx(ctx).DebugContext(
		ctx,
		"grid balanced",
		slog.String("gridID", o.gridID),
		slog.Float64("demandMW", demandMW),
		slog.Float64("renewableMW", gen.TotalMW),
		slog.Float64("storageDischargedMW", mix.StorageDischargedMW),
		slog.Float64("storageChargedMW", mix.StorageChargedMW),
		slog.Float64("conventionalMW", mix.ConventionalUsedMW),
		slog.Float64("curtailedMW", mix.CurtailedRenewableMW),
		slog.Float64("ratio", ratio),
		slog.String("balance", string(balance)),
		slog.Float64("socPercent", soc),
		slog.Float64("stabilityIndex", result.StabilityIndex),
	)
	if balance == types.GridBalanceDeficit {
		log.Ctx(ctx).WarnContext(
			ctx,
			"grid in deficit",
			slog.String("gridID", o.gridID),
			slog.Float64("unservedMW", mix.UnservedMW),
			slog.Float64("ratio", ratio),
		)
	}

	return result, nil
}
