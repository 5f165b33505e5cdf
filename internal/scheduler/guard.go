package scheduler

import "sync"

// Guard is the idempotency set that enforces at most one broadcast per
// order match ID. A claim is taken synchronously immediately before a
// broadcast is initiated — both the automatic promotion path and the
// manual confirmation path check and claim here first, which is what makes
// a second trigger harmless while the first submission is still in flight.
//
// Claims are released only by the confirmation feed (payment confirmed and
// requirement deleted) or by the broadcast failure handler (to permit a
// retry from the waiting registry).
type Guard struct {
	mu      sync.Mutex
	claimed map[string]bool
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{claimed: make(map[string]bool)}
}

// Claim marks the ID as claimed. Returns false if it was already claimed,
// in which case the caller must not broadcast.
func (g *Guard) Claim(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[id] {
		return false
	}
	g.claimed[id] = true
	return true
}

// Claimed reports whether the ID holds a claim.
func (g *Guard) Claimed(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claimed[id]
}

// Release clears the claim for the ID, if any.
func (g *Guard) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, id)
}
