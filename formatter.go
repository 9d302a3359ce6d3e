package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ukvd/vrmlookup/log"
	"github.com/ukvd/vrmlookup/lookup"
	"github.com/ukvd/vrmlookup/vehicle"
	"github.com/ukvd/vrmlookup/vrm"
)

const invalidKeyMessage = "invalid registration format: expecting a UK mark like AB12CDE"

// writeLookupResult renders a lookup outcome and returns the status code
// sent. Records render as `Field: value` lines by default, or as JSON
// when the client asks for it.
func writeLookupResult(w http.ResponseWriter, r *http.Request, rec *vehicle.Record, err error) int {
	if err == nil {
		if wantsJSON(r) {
			return writeJSON(w, rec)
		}
		return writeText(w, rec)
	}

	var invalidKey *vrm.InvalidKeyError
	var upstreamErr *lookup.UpstreamError
	switch {
	case errors.As(err, &invalidKey):
		http.Error(w, invalidKeyMessage, http.StatusBadRequest)
		return http.StatusBadRequest

	case errors.Is(err, lookup.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return http.StatusNotFound

	case errors.As(err, &upstreamErr):
		code := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		http.Error(w, err.Error(), code)
		return code

	default:
		// the caller's own context expiring lands here as well
		log.Errorf("unexpected lookup error: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeText(w http.ResponseWriter, rec *vehicle.Record) int {
	var b strings.Builder
	for _, f := range rec.Fields() {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(b.String()))
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, rec *vehicle.Record) int {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		log.Errorf("cannot encode record for %q: %s", rec.VRM, err)
	}
	return http.StatusOK
}
