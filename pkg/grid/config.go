package grid

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

// DefaultGridID is used when a request does not name a grid.
const DefaultGridID = "default"

// Configured registers the grid flags and returns a Map that creates
// optimizers from the configured GridConfig.
func Configured() *Map {
	m := &Map{
		optimizers: make(map[string]*Optimizer),
	}
	cfg := types.DefaultGridConfig()
	lflag.JSON(&cfg, "grid-config", cfg, "JSON grid configuration (capacities in MW/MWh); initial_storage_level_mwh defaults to 50% of capacity")
	defaultID := lflag.String("grid-default-id", DefaultGridID, "grid ID used when a request does not specify one")

	lflag.Do(func() {
		if err := cfg.Validate(); err != nil {
			log.Ctx(context.Background()).Error("invalid grid-config", slog.Any("error", err))
			os.Exit(1)
		}
		m.config = cfg
		m.defaultID = *defaultID
		if _, err := m.Grid(""); err != nil {
			log.Ctx(context.Background()).Error("failed to create default grid", slog.Any("error", err))
			os.Exit(1)
		}
	})
	return m
}

// Map holds one optimizer per grid.
type Map struct {
	mu         sync.Mutex
	config     types.GridConfig
	defaultID  string
	optimizers map[string]*Optimizer
}

// NewMap creates a Map whose optimizers all use cfg. The default grid exists
// from the start.
func NewMap(cfg types.GridConfig) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Map{
		config:     cfg,
		defaultID:  DefaultGridID,
		optimizers: make(map[string]*Optimizer),
	}
	if _, err := m.Grid(""); err != nil {
		return nil, err
	}
	return m, nil
}

// Lookup returns the optimizer for gridID without creating one. An empty
// gridID selects the default grid.
func (m *Map) Lookup(gridID string) (*Optimizer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gridID == "" {
		gridID = m.defaultID
	}
	o, ok := m.optimizers[gridID]
	return o, ok
}

// Grid returns the optimizer for gridID, creating it on first use. An empty
// gridID selects the default grid. Only cycle runs should create grids; read
// paths use Lookup.
func (m *Map) Grid(gridID string) (*Optimizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gridID == "" {
		gridID = m.defaultID
	}
	if o, ok := m.optimizers[gridID]; ok {
		return o, nil
	}
	o, err := New(gridID, m.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimizer for grid %s: %w", gridID, err)
	}
	m.optimizers[gridID] = o
	return o, nil
}

// SetGrid sets the optimizer for a specific grid. This is primarily used for
// testing.
func (m *Map) SetGrid(o *Optimizer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optimizers[o.GridID()] = o
}

// Config returns the configuration new optimizers are created with.
func (m *Map) Config() types.GridConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// DefaultID returns the grid ID used for requests that omit one.
func (m *Map) DefaultID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultID
}
