package storagemock

import (
	"context"
	"time"

	"github.com/raterudder/gridbalancer/pkg/storage"
	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) InsertBalancingResult(ctx context.Context, result types.BalancingResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDatabase) GetBalancingHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.BalancingResult, error) {
	args := m.Called(ctx, gridID, start, end)
	// return empty if not specified
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.BalancingResult), args.Error(1)
}

func (m *MockDatabase) GetLatestBalancingResult(ctx context.Context, gridID string) (types.BalancingResult, error) {
	args := m.Called(ctx, gridID)
	if len(args) > 0 {
		return args.Get(0).(types.BalancingResult), args.Error(1)
	}
	return types.BalancingResult{}, storage.ErrNotFound
}

func (m *MockDatabase) InsertWeatherObservation(ctx context.Context, gridID string, record types.WeatherRecord) error {
	args := m.Called(ctx, gridID, record)
	return args.Error(0)
}

func (m *MockDatabase) GetWeatherHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.WeatherRecord, error) {
	args := m.Called(ctx, gridID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WeatherRecord), args.Error(1)
}

func (m *MockDatabase) GetDemandHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.DemandPrediction, error) {
	args := m.Called(ctx, gridID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.DemandPrediction), args.Error(1)
}

func (m *MockDatabase) InsertDemandPrediction(ctx context.Context, gridID string, prediction types.DemandPrediction) error {
	args := m.Called(ctx, gridID, prediction)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
