package ledger

import (
	"time"

	"github.com/vistaprop/backoffice/model"
)

// PaidAtTracker infers a display-only "paid at" moment for payments the
// backing store marks PAID without recording when. It diffs each payment
// snapshot against the previous one: the first observed transition into PAID
// without a server paid-at stamps "now" optimistically. A later authoritative
// paid-at, a move away from PAID, or the payment vanishing from the snapshot
// all drop the optimistic stamp.
//
// The tracker is a sequence state machine, not a pure function: it must be
// fed snapshots in the order the view observed them, and it lives as long as
// the contract view that owns it.
type PaidAtTracker struct {
	prevStatus map[string]string
	stamps     map[string]time.Time
	now        func() time.Time
}

// NewPaidAtTracker returns an empty tracker.
func NewPaidAtTracker() *PaidAtTracker {
	return &PaidAtTracker{
		prevStatus: make(map[string]string),
		stamps:     make(map[string]time.Time),
		now:        time.Now,
	}
}

// Observe feeds the next payment snapshot and returns the current optimistic
// stamps keyed by payment identity. The returned map is a copy; callers may
// hold it across further observations.
func (t *PaidAtTracker) Observe(payments []model.Payment) map[string]time.Time {
	seen := make(map[string]bool, len(payments))

	for _, p := range payments {
		key := p.Key()
		if key == "" {
			continue
		}
		seen[key] = true

		switch {
		case p.PaidAt != nil:
			// Authoritative value has arrived; the guess is obsolete.
			delete(t.stamps, key)
		case p.Status != model.PaymentPaid:
			delete(t.stamps, key)
		default:
			_, stamped := t.stamps[key]
			if !stamped && t.prevStatus[key] != model.PaymentPaid {
				t.stamps[key] = t.now()
			}
		}

		t.prevStatus[key] = p.Status
	}

	// Payments gone from the snapshot take their state with them.
	for key := range t.prevStatus {
		if !seen[key] {
			delete(t.prevStatus, key)
			delete(t.stamps, key)
		}
	}

	out := make(map[string]time.Time, len(t.stamps))
	for key, ts := range t.stamps {
		out[key] = ts
	}
	return out
}
