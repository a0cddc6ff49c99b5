package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func okServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRateLimitOnlyTokenEndpoints(t *testing.T) {
	var hits atomic.Int32
	srv := okServer(t, &hits)

	// 1 burst, effectively no refill during the test
	rl := NewRateLimiter(0.001, 1)
	client := &http.Client{Transport: RateLimit(rl, nil)}

	// unlimited path goes through every time
	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL + "/appointment")
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := client.Post(srv.URL+"/fisioterapista/login", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	// second login has to wait; a short deadline aborts it
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/fisioterapista/login", nil)
	_, err = client.Do(req)
	assert.Error(t, err)

	assert.EqualValues(t, 4, hits.Load())
}

func TestRateLimitUnderBasePath(t *testing.T) {
	var hits atomic.Int32
	srv := okServer(t, &hits)

	rl := NewRateLimiter(0.001, 1)
	client := &http.Client{Transport: RateLimit(rl, nil)}
	base := srv.URL + "/api/v1"

	resp, err := client.Post(base+"/fisioterapista/login", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, base+"/fisioterapista/login", nil)
	_, err = client.Do(req)
	assert.Error(t, err)

	// similar looking paths are not token endpoints
	resp, err = client.Get(base + "/fisioterapista/login/history")
	require.NoError(t, err)
	resp.Body.Close()

	assert.EqualValues(t, 2, hits.Load())
}

func TestRateLimitKeysSeparate(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	assert.Same(t, rl.get("/a"), rl.get("/a"))
	assert.NotSame(t, rl.get("/a"), rl.get("/b"))
}

func TestLogging(t *testing.T) {
	var hits atomic.Int32
	srv := okServer(t, &hits)

	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: Logging(zap.New(core), nil)}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/profile", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "api request", entry.Message)
	assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusNoContent, entry.ContextMap()["status"])
}

func TestLoggingTransportError(t *testing.T) {
	boom := errors.New("dial refused")
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: Logging(zap.New(core), failing)}
	_, err := client.Get("http://flexifisio.invalid/profile")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, logs.FilterMessage("api request failed").Len())
}
