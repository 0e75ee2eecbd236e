package ledger

import (
	"sync"
	"time"

	"github.com/vistaprop/backoffice/model"
)

// TrackerRegistry keys one PaidAtTracker per open contract. Each contract's
// snapshots must arrive in observation order; the registry serializes
// observations so that holds even when two requests for the same contract
// race.
type TrackerRegistry struct {
	mu       sync.Mutex
	trackers map[string]*PaidAtTracker
}

func NewTrackerRegistry() *TrackerRegistry {
	return &TrackerRegistry{trackers: make(map[string]*PaidAtTracker)}
}

// Observe feeds the contract's latest payment snapshot to its tracker,
// creating one on first sight, and returns the current optimistic stamps.
func (r *TrackerRegistry) Observe(contractID string, payments []model.Payment) map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracker, ok := r.trackers[contractID]
	if !ok {
		tracker = NewPaidAtTracker()
		r.trackers[contractID] = tracker
	}
	return tracker.Observe(payments)
}

// Forget drops a contract's tracker, e.g. when the contract is evicted.
func (r *TrackerRegistry) Forget(contractID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, contractID)
}
