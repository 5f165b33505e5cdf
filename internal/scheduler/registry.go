package scheduler

import (
	"sort"

	"github.com/dcastano/btcpayd/internal/domain"
)

// registry holds the requirements of one lifecycle stage. Entries are kept
// unordered; callers sort snapshots by the countdown relevant to the stage.
// Not goroutine-safe — the scheduler's mutex serializes all access.
type registry struct {
	entries []domain.PaymentRequirement
}

// contains reports whether a requirement with the exact order match ID is
// present.
func (r *registry) contains(orderMatchID string) bool {
	for i := range r.entries {
		if r.entries[i].OrderMatchID == orderMatchID {
			return true
		}
	}
	return false
}

// add appends a requirement. Duplicate checks happen at the scheduler
// level, across both registries.
func (r *registry) add(req domain.PaymentRequirement) {
	r.entries = append(r.entries, req)
}

// remove deletes the first entry matched by the full order match ID or by
// either 64-char order hash half, returning the removed requirement.
func (r *registry) remove(idOrHalf string) (domain.PaymentRequirement, bool) {
	for i := range r.entries {
		if r.entries[i].MatchesID(idOrHalf) {
			req := r.entries[i]
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return req, true
		}
	}
	return domain.PaymentRequirement{}, false
}

// get returns the first entry matched by full ID or half, without removing.
func (r *registry) get(idOrHalf string) (domain.PaymentRequirement, bool) {
	for i := range r.entries {
		if r.entries[i].MatchesID(idOrHalf) {
			return r.entries[i], true
		}
	}
	return domain.PaymentRequirement{}, false
}

func (r *registry) len() int { return len(r.entries) }

// sortedByEligibility returns a copy ordered soonest-eligible first, ties
// broken by order match ID for determinism.
func (r *registry) sortedByEligibility(height, threshold int64) []domain.PaymentRequirement {
	out := make([]domain.PaymentRequirement, len(r.entries))
	copy(out, r.entries)
	sort.Slice(out, func(i, j int) bool {
		bi := out[i].BlocksUntilEligible(height, threshold)
		bj := out[j].BlocksUntilEligible(height, threshold)
		if bi != bj {
			return bi < bj
		}
		return out[i].OrderMatchID < out[j].OrderMatchID
	})
	return out
}

// sortedByExpiry returns a copy ordered most-urgent first (fewest blocks to
// expiry), ties broken by order match ID.
func (r *registry) sortedByExpiry(height int64) []domain.PaymentRequirement {
	out := make([]domain.PaymentRequirement, len(r.entries))
	copy(out, r.entries)
	sort.Slice(out, func(i, j int) bool {
		bi := out[i].BlocksToExpiry(height)
		bj := out[j].BlocksToExpiry(height)
		if bi != bj {
			return bi < bj
		}
		return out[i].OrderMatchID < out[j].OrderMatchID
	})
	return out
}
