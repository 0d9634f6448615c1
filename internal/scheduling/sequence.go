package scheduling

import "context"

// SequencePort allocates the per-kind strictly-increasing integers that
// back MES plan IDs (§6.4). Implementations must be safe for concurrent
// use across pipeline runs: next() is the single point of cross-run
// contention (§5).
type SequencePort interface {
	// Next returns the next value for kind ("HWS" or "HJB"), monotonic
	// and surviving process restarts.
	Next(ctx context.Context, kind string) (uint64, error)
}
