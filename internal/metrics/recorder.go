package metrics

import "time"

// CacheResult enumerates where a fetch key result was served from.
type CacheResult string

const (
	CacheHitMemory CacheResult = "hit_memory"
	CacheHitStore  CacheResult = "hit_store"
	CacheMiss      CacheResult = "miss"
)

// BuildOutcome enumerates publish run outcomes.
type BuildOutcome string

const (
	BuildPublished BuildOutcome = "published"
	BuildEmpty     BuildOutcome = "empty"
	BuildFailed    BuildOutcome = "failed"
	BuildCanceled  BuildOutcome = "canceled"
)

// Recorder defines observability hooks for fetch keys and site builds.
// Implementations may forward to Prometheus; NoopRecorder is the default.
type Recorder interface {
	IncCacheResult(keyType string, result CacheResult)
	ObserveComputeDuration(keyType string, d time.Duration, success bool)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcome)
	AddPagesRendered(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCacheResult(string, CacheResult)                {}
func (NoopRecorder) ObserveComputeDuration(string, time.Duration, bool) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                 {}
func (NoopRecorder) IncBuildOutcome(BuildOutcome)                       {}
func (NoopRecorder) AddPagesRendered(int)                               {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
