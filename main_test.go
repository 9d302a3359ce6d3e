package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukvd/vrmlookup/cache"
	"github.com/ukvd/vrmlookup/log"
	"github.com/ukvd/vrmlookup/lookup"
	"github.com/ukvd/vrmlookup/upstream"
	"github.com/ukvd/vrmlookup/vehicle"
)

func TestMain(m *testing.M) {
	log.SuppressOutput(true)
	retCode := m.Run()
	log.SuppressOutput(false)
	os.Exit(retCode)
}

type fakeFetcher struct {
	delay time.Duration
	resp  func(key string) (*vehicle.Record, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string) (*vehicle.Record, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp(key)
}

func newTestServer(f upstream.Fetcher, fetchTimeout time.Duration) *lookupServer {
	if fetchTimeout == 0 {
		fetchTimeout = time.Second
	}
	s := newLookupServer()
	s.coordinator = lookup.NewCoordinator(cache.NewStore(0), f, lookup.Config{
		FreshTTL:     time.Hour,
		NegativeTTL:  time.Minute,
		FetchTimeout: fetchTimeout,
	}, nil)
	s.staticDir = "static"
	return s
}

func fixedRecord(key string) (*vehicle.Record, error) {
	return &vehicle.Record{
		VRM:      key,
		Make:     "FORD",
		Model:    "FIESTA",
		Colour:   "BLUE",
		FuelType: "PETROL",
		Extra: map[string]string{
			"EngineCapacity": "1242",
		},
	}, nil
}

func doRequest(s *lookupServer, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rw := httptest.NewRecorder()
	s.ServeHTTP(rw, req)
	return rw
}

func TestLookupPlainText(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)

	rw := doRequest(s, http.MethodGet, "/ab12%20cde", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Header().Get("Content-Type"), "text/plain")

	body := rw.Body.String()
	assert.Contains(t, body, "VRM: AB12CDE\n")
	assert.Contains(t, body, "Make: FORD\n")
	assert.Contains(t, body, "EngineCapacity: 1242\n")
}

func TestLookupJSON(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)

	for _, target := range []string{"/AB12CDE?format=json", "/AB12CDE"} {
		headers := map[string]string{}
		if !strings.Contains(target, "format=json") {
			headers["Accept"] = "application/json"
		}
		rw := doRequest(s, http.MethodGet, target, headers)
		require.Equal(t, http.StatusOK, rw.Code)
		assert.Contains(t, rw.Header().Get("Content-Type"), "application/json")

		var rec vehicle.Record
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &rec))
		assert.Equal(t, "AB12CDE", rec.VRM)
		assert.Equal(t, "FIESTA", rec.Model)
	}
}

func TestLookupInvalidKey(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)

	rw := doRequest(s, http.MethodGet, "/notaplate", nil)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Contains(t, rw.Body.String(), "expecting a UK mark like AB12CDE")
}

func TestLookupNotFound(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: func(string) (*vehicle.Record, error) {
		return nil, upstream.ErrNotFound
	}}, 0)

	rw := doRequest(s, http.MethodGet, "/ZZ00ZZZ", nil)
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestLookupUpstreamError(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: func(string) (*vehicle.Record, error) {
		return nil, fmt.Errorf("connection refused")
	}}, 0)

	rw := doRequest(s, http.MethodGet, "/AB12CDE", nil)
	assert.Equal(t, http.StatusBadGateway, rw.Code)
}

func TestLookupUpstreamTimeout(t *testing.T) {
	s := newTestServer(&fakeFetcher{delay: 200 * time.Millisecond, resp: fixedRecord}, 20*time.Millisecond)

	rw := doRequest(s, http.MethodGet, "/XY99ZZZ", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rw.Code)
}

func TestHomePage(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)

	rw := doRequest(s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rw.Body.String(), "UK Vehicle Lookup")
}

func TestHomePageFallback(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)
	s.staticDir = "no-such-dir"

	rw := doRequest(s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "UK Vehicle Lookup Service")
}

func TestFaviconNoContent(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)
	s.staticDir = "no-such-dir"

	rw := doRequest(s, http.MethodGet, "/favicon.ico", nil)
	assert.Equal(t, http.StatusNoContent, rw.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)

	rw := doRequest(s, http.MethodPost, "/AB12CDE", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rw.Code)
}

func TestNestedPathNotFound(t *testing.T) {
	s := newTestServer(&fakeFetcher{resp: fixedRecord}, 0)

	rw := doRequest(s, http.MethodGet, "/AB12CDE/history", nil)
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestFullHandlerMetricsAndCORS(t *testing.T) {
	server.coordinator = newTestServer(&fakeFetcher{resp: fixedRecord}, 0).coordinator
	server.staticDir = "static"
	h := handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "cache_misses")

	req = httptest.NewRequest(http.MethodGet, "/AB12CDE", nil)
	req.Header.Set("Origin", "https://garage.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "https://garage.example", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rw.Header().Get("Access-Control-Allow-Credentials"))
}
