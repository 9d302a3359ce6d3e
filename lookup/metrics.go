package lookup

// Metrics receives the coordinator's cache and fetch events. The HTTP
// boundary plugs in a prometheus-backed implementation; tests and library
// users get NoopMetrics by default.
type Metrics interface {
	// Hit is called when an unexpired Fresh entry answers a lookup.
	Hit()

	// NegativeHit is called when an unexpired Negative entry answers.
	NegativeHit()

	// Miss is called when the cache cannot answer and a fetch episode
	// starts or is joined.
	Miss()

	// Coalesced is called when a lookup shared another caller's fetch
	// instead of issuing its own.
	Coalesced()

	// FetchIssued is called once per upstream call.
	FetchIssued()

	// FetchNotFound is called when the upstream authoritatively reports
	// no vehicle.
	FetchNotFound()

	// FetchFailed is called on transient upstream failures.
	FetchFailed()
}

type NoopMetrics struct{}

func (NoopMetrics) Hit()           {}
func (NoopMetrics) NegativeHit()   {}
func (NoopMetrics) Miss()          {}
func (NoopMetrics) Coalesced()     {}
func (NoopMetrics) FetchIssued()   {}
func (NoopMetrics) FetchNotFound() {}
func (NoopMetrics) FetchFailed()   {}
