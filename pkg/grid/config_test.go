package grid

import (
	"testing"

	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	m, err := NewMap(types.DefaultGridConfig())
	require.NoError(t, err)

	def, err := m.Grid("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGridID, def.GridID())

	again, err := m.Grid(DefaultGridID)
	require.NoError(t, err)
	assert.Same(t, def, again)

	other, err := m.Grid("north")
	require.NoError(t, err)
	assert.NotSame(t, def, other)
	assert.Equal(t, "north", other.GridID())

	custom, err := New("north", testConfig(10))
	require.NoError(t, err)
	m.SetGrid(custom)
	got, err := m.Grid("north")
	require.NoError(t, err)
	assert.Same(t, custom, got)
}

func TestMapLookup(t *testing.T) {
	m, err := NewMap(types.DefaultGridConfig())
	require.NoError(t, err)

	def, ok := m.Lookup("")
	require.True(t, ok)
	assert.Equal(t, DefaultGridID, def.GridID())

	_, ok = m.Lookup("north")
	assert.False(t, ok)
	// a failed lookup must not create the grid
	_, ok = m.Lookup("north")
	assert.False(t, ok)

	created, err := m.Grid("north")
	require.NoError(t, err)
	got, ok := m.Lookup("north")
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestNewMapInvalidConfig(t *testing.T) {
	cfg := types.DefaultGridConfig()
	cfg.StorageCapacityMWh = -1
	_, err := NewMap(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}
