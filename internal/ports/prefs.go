package ports

// Preferences exposes user settings the scheduler must read fresh on every
// promotion, never cached at requirement-creation time.
type Preferences interface {
	// AutoPay reports whether eligible payments are broadcast without
	// prompting the user.
	AutoPay() bool
}
