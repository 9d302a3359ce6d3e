// Package lookup implements the lookup-and-cache core: cache probe,
// fetch-on-miss with request coalescing, and cache population.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ukvd/vrmlookup/cache"
	"github.com/ukvd/vrmlookup/log"
	"github.com/ukvd/vrmlookup/upstream"
	"github.com/ukvd/vrmlookup/vehicle"
	"github.com/ukvd/vrmlookup/vrm"
)

// ErrNotFound is returned when the upstream provider authoritatively
// reports no vehicle for the requested mark. The outcome is cached
// briefly as a negative entry.
var ErrNotFound = errors.New("no vehicle found for this registration")

// UpstreamError wraps a transient upstream failure: timeout, transport
// error or malformed provider response. It is never cached; the next
// request for the same key retries the fetch.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream lookup failed: %s", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Config carries the coordinator knobs.
type Config struct {
	// FreshTTL is the lifetime of entries holding real vehicle data.
	FreshTTL time.Duration

	// NegativeTTL is the lifetime of remembered not-found outcomes.
	// Kept shorter than FreshTTL so transient provider hiccups heal
	// faster than confirmed data goes stale.
	NegativeTTL time.Duration

	// FetchTimeout bounds a single upstream fetch. Exceeding it is a
	// transient failure.
	FetchTimeout time.Duration
}

// Coordinator orchestrates lookups: normalize, probe the cache, and on a
// miss run exactly one upstream fetch per key however many concurrent
// requests arrive for it.
type Coordinator struct {
	store   *cache.Store
	fetcher upstream.Fetcher
	metrics Metrics

	freshTTL     time.Duration
	negativeTTL  time.Duration
	fetchTimeout time.Duration

	group singleflight.Group

	now func() time.Time
}

// NewCoordinator wires a coordinator over the given store and fetcher.
// A nil metrics falls back to the no-op implementation.
func NewCoordinator(store *cache.Store, fetcher upstream.Fetcher, cfg Config, m Metrics) *Coordinator {
	if m == nil {
		m = NoopMetrics{}
	}
	return &Coordinator{
		store:        store,
		fetcher:      fetcher,
		metrics:      m,
		freshTTL:     cfg.FreshTTL,
		negativeTTL:  cfg.NegativeTTL,
		fetchTimeout: cfg.FetchTimeout,
		now:          time.Now,
	}
}

// Lookup resolves a raw registration mark to a vehicle record. Errors are
// one of *vrm.InvalidKeyError, ErrNotFound, *UpstreamError, or the
// caller's own context error while waiting on a shared fetch.
//
// Concurrent lookups for the same key share a single in-flight fetch and
// observe the identical outcome. A caller whose context is cancelled
// while waiting abandons only its own wait; the fetch keeps running for
// the remaining waiters.
func (c *Coordinator) Lookup(ctx context.Context, raw string) (*vehicle.Record, error) {
	key, err := vrm.Normalize(raw)
	if err != nil {
		return nil, err
	}

	if rec, found, err := c.probe(key); found {
		return rec, err
	}
	c.metrics.Miss()

	// The flight body runs on its own goroutine with a detached,
	// timeout-bounded context, so neither a cancelled waiter nor the
	// caller that opened the flight can abort the fetch for the others.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Another waiter of a just-resolved flight may have populated
		// the cache between our probe and the flight start.
		if rec, found, err := c.probe(key); found {
			return rec, err
		}
		return c.fetch(key)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.Coalesced()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*vehicle.Record).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// probe consults the cache. found reports whether the cache answered;
// when it did, the result is either a record snapshot or ErrNotFound for
// an unexpired negative entry. Expired entries count as absent.
func (c *Coordinator) probe(key string) (rec *vehicle.Record, found bool, err error) {
	e, ok := c.store.Get(key)
	if !ok || e.Expired(c.now()) {
		return nil, false, nil
	}

	switch e.State {
	case cache.Fresh:
		c.metrics.Hit()
		return e.Record.Clone(), true, nil
	case cache.Negative:
		c.metrics.NegativeHit()
		return nil, true, ErrNotFound
	}

	return nil, false, nil
}

// fetch performs the single upstream call for a miss episode and settles
// the cache according to the outcome.
func (c *Coordinator) fetch(key string) (interface{}, error) {
	c.metrics.FetchIssued()

	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	rec, err := c.fetcher.Fetch(ctx, key)
	now := c.now()
	switch {
	case err == nil:
		c.store.Put(key, cache.NewFreshEntry(rec, now, c.freshTTL))
		log.Debugf("cached %q for %s", key, c.freshTTL)
		return rec, nil

	case errors.Is(err, upstream.ErrNotFound):
		c.metrics.FetchNotFound()
		c.store.Put(key, cache.NewNegativeEntry(now, c.negativeTTL))
		log.Debugf("cached negative %q for %s", key, c.negativeTTL)
		return nil, ErrNotFound

	default:
		// Transient: nothing is cached so the next request retries.
		c.metrics.FetchFailed()
		log.Errorf("upstream fetch for %q failed: %s", key, err)
		return nil, &UpstreamError{Err: err}
	}
}
