package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCORSRecorder(t *testing.T, method string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	reached := false
	m := NewCORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(method, "/AB12CDE", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rw := httptest.NewRecorder()
	m.ServeHTTP(rw, req)

	if method == http.MethodOptions && headers[requestMethodHeader] != "" && reached {
		t.Fatalf("preflight request must not reach the handler")
	}
	return rw
}

func TestCORSEchoesOrigin(t *testing.T) {
	rw := newCORSRecorder(t, http.MethodGet, map[string]string{
		originHeader: "https://garage.example",
	})

	assert.Equal(t, http.StatusTeapot, rw.Code)
	assert.Equal(t, "https://garage.example", rw.Header().Get(allowOriginHeader))
	assert.Equal(t, "true", rw.Header().Get(allowCredentialsHeader))
	assert.Equal(t, originHeader, rw.Header().Get("Vary"))
}

func TestCORSPreflight(t *testing.T) {
	rw := newCORSRecorder(t, http.MethodOptions, map[string]string{
		originHeader:         "https://garage.example",
		requestMethodHeader:  "POST",
		requestHeadersHeader: "X-Custom-Token",
	})

	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "POST", rw.Header().Get(allowMethodsHeader))
	assert.Equal(t, "X-Custom-Token", rw.Header().Get(allowHeadersHeader))
	assert.Equal(t, "86400", rw.Header().Get(maxAgeHeader))
}

func TestCORSNoOriginPassesThrough(t *testing.T) {
	rw := newCORSRecorder(t, http.MethodGet, nil)

	assert.Equal(t, http.StatusTeapot, rw.Code)
	assert.Empty(t, rw.Header().Get(allowOriginHeader))
	assert.Empty(t, rw.Header().Get(allowCredentialsHeader))
}
