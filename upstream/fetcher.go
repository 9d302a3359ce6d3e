// Package upstream fetches vehicle data for a VRM from the remote
// provider and translates its responses into vehicle records.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ukvd/vrmlookup/config"
	"github.com/ukvd/vrmlookup/log"
	"github.com/ukvd/vrmlookup/vehicle"
)

// ErrNotFound is returned when the provider authoritatively reports no
// vehicle data for the requested mark. Any other fetch error is transient.
var ErrNotFound = errors.New("no vehicle data found upstream")

// Fetcher performs a single remote lookup for a normalized VRM.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (*vehicle.Record, error)
}

// HTTPFetcher scrapes the provider booking page and lifts the embedded
// vehicle data object out of it.
type HTTPFetcher struct {
	client    *http.Client
	url       string
	userAgent string
	retries   int
	limiter   *rate.Limiter

	// pause between retry attempts, shortened in tests
	retryPause time.Duration

	now func() time.Time
}

// NewHTTPFetcher creates a fetcher for the configured provider endpoint.
// cfg.URL must contain the `{vrm}` placeholder.
func NewHTTPFetcher(cfg config.Upstream) *HTTPFetcher {
	f := &HTTPFetcher{
		client:     &http.Client{},
		url:        cfg.URL,
		userAgent:  cfg.UserAgent,
		retries:    cfg.Retries,
		retryPause: time.Second,
		now:        time.Now,
	}
	if cfg.MaxRPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}
	return f
}

// Fetch retrieves the provider page for key and extracts the vehicle
// record from it. A page without the vehicle data object is an
// authoritative ErrNotFound; transport failures and undecodable data are
// transient errors the caller may retry on a later request.
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) (*vehicle.Record, error) {
	doc, err := f.fetchPage(ctx, key)
	if err != nil {
		return nil, err
	}

	raw, err := extractObject(doc, vrmDetailsKey)
	if err != nil {
		log.Debugf("no %s object for %q: %s", vrmDetailsKey, key, err)
		return nil, ErrNotFound
	}

	details, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed vehicle data for %q: %w", key, err)
	}

	return newRecord(key, details, f.now()), nil
}

func (f *HTTPFetcher) fetchPage(ctx context.Context, key string) (string, error) {
	target := strings.ReplaceAll(f.url, "{vrm}", url.QueryEscape(key))

	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(f.retryPause):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return "", err
		}
		if len(f.userAgent) > 0 {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			log.Debugf("attempt %d/%d failed for %q: %s", attempt, f.retries, key, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status code %d for %q", resp.StatusCode, key)
		}
		if err != nil {
			lastErr = err
			continue
		}
		return string(body), nil
	}

	return "", fmt.Errorf("upstream request for %q failed after %d attempts: %w", key, f.retries, lastErr)
}

// Fields lifted into the typed part of the record. Everything else the
// provider reports lands in Record.Extra untouched.
var knownFields = map[string]func(*vehicle.Record, string){
	"Make":                func(r *vehicle.Record, v string) { r.Make = v },
	"Model":               func(r *vehicle.Record, v string) { r.Model = v },
	"Colour":              func(r *vehicle.Record, v string) { r.Colour = v },
	"FuelType":            func(r *vehicle.Record, v string) { r.FuelType = v },
	"DateFirstRegistered": func(r *vehicle.Record, v string) { r.FirstRegistered = v },
	"MotStatus":           func(r *vehicle.Record, v string) { r.MOTStatus = v },
	"MotExpiryDate":       func(r *vehicle.Record, v string) { r.MOTExpiry = v },
	"TaxStatus":           func(r *vehicle.Record, v string) { r.TaxStatus = v },
	"TaxExpiryDate":       func(r *vehicle.Record, v string) { r.TaxExpiry = v },
}

func newRecord(key string, details map[string]interface{}, retrievedAt time.Time) *vehicle.Record {
	rec := &vehicle.Record{
		VRM:         key,
		RetrievedAt: retrievedAt,
	}

	for name, value := range details {
		s := stringify(value)
		if len(s) == 0 {
			continue
		}
		if set, ok := knownFields[name]; ok {
			set(rec, s)
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[name] = s
	}

	return rec
}
