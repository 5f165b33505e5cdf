package prefs

import "sync"

// Store holds user preferences mutable at runtime. The scheduler reads
// AutoPay fresh on every promotion, so a toggle takes effect on the next
// eligible payment, not the next restart.
type Store struct {
	mu      sync.RWMutex
	autoPay bool
}

// NewStore seeds the store with the configured defaults.
func NewStore(autoPay bool) *Store {
	return &Store{autoPay: autoPay}
}

// AutoPay implements ports.Preferences.
func (s *Store) AutoPay() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoPay
}

// SetAutoPay flips the auto-pay preference.
func (s *Store) SetAutoPay(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPay = v
}
