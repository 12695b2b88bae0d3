// Package metrics defines observability hooks for the cache, job tracker and
// store. Recording is optional: components default to NoopRecorder.
package metrics

// Cache lookup results.
const (
	LookupFresh   = "fresh"
	LookupStale   = "stale"
	LookupMiss    = "miss"
	LookupExpired = "expired"
)

// Poll and fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
	OutcomeSkipped = "skipped"
)

// Recorder receives counters from the client runtime. Implementations must be
// safe for concurrent use.
type Recorder interface {
	IncCacheLookup(result string)
	IncStaleFallback()
	IncPoll(outcome string)
	IncSolutionFetch(outcome string)
	IncPersistFailure()
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncCacheLookup(string)   {}
func (NoopRecorder) IncStaleFallback()       {}
func (NoopRecorder) IncPoll(string)          {}
func (NoopRecorder) IncSolutionFetch(string) {}
func (NoopRecorder) IncPersistFailure()      {}
