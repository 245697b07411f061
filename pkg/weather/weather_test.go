package weather

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raterudder/gridbalancer/pkg/common"
	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetObservation(ctx context.Context, city string) (types.WeatherObservation, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(types.WeatherObservation), args.Error(1)
}

func TestOpenWeatherMap(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/data/2.5/weather", r.URL.Path)
			assert.Equal(t, "Colombo", r.URL.Query().Get("q"))
			assert.Equal(t, "secret", r.URL.Query().Get("appid"))
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"main": {"temp": 29.5, "humidity": 74, "pressure": 1009},
				"wind": {"speed": 5.2},
				"clouds": {"all": 40},
				"weather": [{"main": "Clouds", "description": "scattered clouds"}],
				"visibility": 8000
			}`))
		}))
		defer server.Close()

		o := NewOpenWeatherMap(server.URL+"/data/2.5/", "secret", common.HTTPClient(time.Second))
		o.now = func() time.Time { return fixed }
		obs, err := o.GetObservation(ctx, "Colombo")
		require.NoError(t, err)

		assert.Equal(t, types.WeatherObservation{
			Timestamp:     fixed,
			City:          "Colombo",
			TemperatureC:  29.5,
			HumidityPct:   74,
			WindSpeedMS:   5.2,
			CloudCoverPct: 40,
			Condition:     "Clouds",
			Description:   "scattered clouds",
			PressureHPA:   1009,
			VisibilityKM:  8,
			RealData:      true,
			Source:        "OpenWeatherMap",
		}, obs)
	})

	t.Run("Optional Fields Default", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"main": {"temp": 20, "humidity": 50}, "wind": {"speed": 1}, "clouds": {"all": 0}, "weather": [{"main": "Clear", "description": "clear sky"}]}`))
		}))
		defer server.Close()

		o := NewOpenWeatherMap(server.URL, "secret", common.HTTPClient(time.Second))
		obs, err := o.GetObservation(ctx, "Kandy")
		require.NoError(t, err)
		assert.Equal(t, 1013.0, obs.PressureHPA)
		assert.Equal(t, 10.0, obs.VisibilityKM)
	})

	t.Run("Non 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		o := NewOpenWeatherMap(server.URL, "bad", common.HTTPClient(time.Second))
		_, err := o.GetObservation(ctx, "Colombo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("Missing Conditions", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"main": {"temp": 20}, "weather": []}`))
		}))
		defer server.Close()

		o := NewOpenWeatherMap(server.URL, "secret", common.HTTPClient(time.Second))
		_, err := o.GetObservation(ctx, "Colombo")
		assert.Error(t, err)
	})
}

func TestSynthetic(t *testing.T) {
	s := NewSynthetic(rand.New(rand.NewPCG(7, 11)))
	for i := 0; i < 200; i++ {
		obs, err := s.GetObservation(context.Background(), "Galle")
		require.NoError(t, err)
		assert.Equal(t, "Galle", obs.City)
		assert.False(t, obs.RealData)
		assert.Equal(t, "Sample Generator", obs.Source)
		assert.GreaterOrEqual(t, obs.TemperatureC, 20.0)
		assert.Less(t, obs.TemperatureC, 35.0)
		assert.GreaterOrEqual(t, obs.HumidityPct, 40.0)
		assert.Less(t, obs.HumidityPct, 90.0)
		assert.GreaterOrEqual(t, obs.WindSpeedMS, 0.0)
		assert.Less(t, obs.WindSpeedMS, 15.0)
		assert.GreaterOrEqual(t, obs.CloudCoverPct, 0.0)
		assert.Less(t, obs.CloudCoverPct, 100.0)
		assert.GreaterOrEqual(t, obs.PressureHPA, 990.0)
		assert.Less(t, obs.PressureHPA, 1030.0)
		assert.GreaterOrEqual(t, obs.VisibilityKM, 5.0)
		assert.Less(t, obs.VisibilityKM, 15.0)
		assert.Contains(t, syntheticConditions, obs.Condition)
	}
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	live := types.WeatherObservation{City: "Colombo", RealData: true}
	sample := types.WeatherObservation{City: "Colombo", Source: "Sample Generator"}

	t.Run("Primary Succeeds", func(t *testing.T) {
		primary := &mockProvider{}
		secondary := &mockProvider{}
		primary.On("GetObservation", ctx, "Colombo").Return(live, nil)

		obs, err := (&Fallback{Primary: primary, Secondary: secondary}).GetObservation(ctx, "Colombo")
		require.NoError(t, err)
		assert.Equal(t, live, obs)
		secondary.AssertNotCalled(t, "GetObservation", mock.Anything, mock.Anything)
	})

	t.Run("Primary Fails", func(t *testing.T) {
		primary := &mockProvider{}
		secondary := &mockProvider{}
		primary.On("GetObservation", ctx, "Colombo").Return(types.WeatherObservation{}, errors.New("boom"))
		secondary.On("GetObservation", ctx, "Colombo").Return(sample, nil)

		obs, err := (&Fallback{Primary: primary, Secondary: secondary}).GetObservation(ctx, "Colombo")
		require.NoError(t, err)
		assert.Equal(t, sample, obs)
		primary.AssertExpectations(t)
		secondary.AssertExpectations(t)
	})
}

func TestServiceObserve(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{}
	obs := types.WeatherObservation{
		City:          "Colombo",
		TemperatureC:  25,
		HumidityPct:   0,
		CloudCoverPct: 0,
		VisibilityKM:  12.5,
		WindSpeedMS:   20,
	}
	p.On("GetObservation", ctx, "Colombo").Return(obs, nil)
	p.On("GetObservation", ctx, "Nowhere").Return(types.WeatherObservation{}, errors.New("not found"))

	s := NewService(p, "")
	assert.Equal(t, DefaultCity, s.DefaultCity())

	got, potential, err := s.Observe(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, obs, got)
	assert.InDelta(t, 100.0, potential.SolarPotential, 1e-9)
	assert.Equal(t, 100.0, potential.WindPotential)
	assert.InDelta(t, 100.0, potential.RenewableScore, 1e-9)

	_, _, err = s.Observe(ctx, "Nowhere")
	assert.ErrorContains(t, err, "Nowhere")
}
