package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/raterudder/gridbalancer/pkg/search"
	"github.com/raterudder/gridbalancer/pkg/storage/storagemock"
	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleSearch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		obs := testObservation("Kandy")
		obs.Timestamp = time.Now().Add(-time.Hour)
		db.On("GetWeatherHistory", mock.Anything, "north", mock.Anything, mock.Anything).Return([]types.WeatherRecord{
			{Observation: obs, Potential: types.RenewablePotential{RenewableScore: 55}},
		}, nil)

		srv := newTestServer(t, db, new(mockWeather))
		w := doRequest(t, srv.setupHandler(), http.MethodGet, "/api/search?q=kandy+clouds&type=weather&gridID=north&days=3", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp search.Response
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, []string{"kandy", "clouds"}, resp.Keywords)
		assert.Equal(t, 3, resp.Filters.Days)
		assert.Equal(t, "north", resp.Filters.GridID)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, search.TypeWeather, resp.Results[0].Type)
		// two matches, both keywords, under a day old
		assert.Equal(t, 6, resp.Results[0].Score)
		db.AssertNotCalled(t, "GetBalancingHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Does Not Create Grid", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		db.On("GetWeatherHistory", mock.Anything, "ghost", mock.Anything, mock.Anything).Return(nil, nil)
		db.On("GetDemandHistory", mock.Anything, "ghost", mock.Anything, mock.Anything).Return(nil, nil)
		db.On("GetBalancingHistory", mock.Anything, "ghost", mock.Anything, mock.Anything).Return(nil, nil)

		srv := newTestServer(t, db, new(mockWeather))
		w := doRequest(t, srv.setupHandler(), http.MethodGet, "/api/search?q=deficit&gridID=ghost", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", mustField(t, w.Body.Bytes(), "results"))
		_, ok := srv.grids.Lookup("ghost")
		assert.False(t, ok)
	})

	tests := []struct {
		name  string
		query string
	}{
		{"Missing Query", ""},
		{"Blank Query", "q=+++"},
		{"Long Query", "q=" + strings.Repeat("a", 201)},
		{"Unknown Type", "q=grid&type=decisions"},
		{"Bad Days", "q=grid&days=abc"},
		{"Too Many Days", "q=grid&days=31"},
		{"Bad Limit", "q=grid&limit=0"},
		{"Limit Too High", "q=grid&limit=500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, new(storagemock.MockDatabase), new(mockWeather))
			w := doRequest(t, srv.setupHandler(), http.MethodGet, "/api/search?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	t.Run("Storage Error", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		db.On("GetWeatherHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		srv := newTestServer(t, db, new(mockWeather))
		w := doRequest(t, srv.setupHandler(), http.MethodGet, "/api/search?q=kandy", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleSearchSuggestions(t *testing.T) {
	srv := newTestServer(t, new(storagemock.MockDatabase), new(mockWeather))
	w := doRequest(t, srv.setupHandler(), http.MethodGet, "/api/search/suggestions?q=energy", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var suggestions []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&suggestions))
	assert.Equal(t, []string{"renewable energy", "energy efficiency", "surplus energy"}, suggestions)
}

func mustField(t *testing.T, body []byte, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return string(m[field])
}
