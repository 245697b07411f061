package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raterudder/gridbalancer/pkg/storage/storagemock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	l := newRateLimiter(3)
	l.now = func() time.Time { return now }

	for range 3 {
		assert.True(t, l.allow("10.0.0.1"))
	}
	assert.False(t, l.allow("10.0.0.1"))
	// other clients have their own allowance
	assert.True(t, l.allow("10.0.0.2"))

	// one request refills every 20 seconds
	now = now.Add(20 * time.Second)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	t.Run("Idle Clients Dropped", func(t *testing.T) {
		now = now.Add(rateLimitIdle)
		assert.True(t, l.allow("10.0.0.3"))
		assert.Len(t, l.clients, 1)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(t, new(storagemock.MockDatabase), new(mockWeather))
	srv.limiter = newRateLimiter(2)
	h := srv.setupHandler()

	get := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/search/suggestions?q=grid", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, get("192.0.2.1:1000").Code)
	require.Equal(t, http.StatusOK, get("192.0.2.1:1001").Code)
	w := get("192.0.2.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, get("192.0.2.9:1000").Code)

	t.Run("Health Not Limited", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "192.0.2.1:1003"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
