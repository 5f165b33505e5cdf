package scheduler

import "errors"

var (
	// ErrDuplicateSubmission means the dedup guard already holds a claim for
	// this order match; a broadcast was initiated before and never resolved
	// or already succeeded. No state is changed.
	ErrDuplicateSubmission = errors.New("payment already submitted for this order match")

	// ErrExpiredMatch means the match is at or past the expiry safety
	// margin. Terminal: the requirement must not be retried or re-added.
	ErrExpiredMatch = errors.New("order match expired or inside expiry margin")

	// ErrInsufficientBalance means the paying address cannot cover the
	// payment plus the reserve. Recoverable; the requirement stays waiting.
	ErrInsufficientBalance = errors.New("insufficient balance for payment")

	// ErrUnknownMatch means no waiting requirement matches the given ID.
	ErrUnknownMatch = errors.New("no waiting payment for this order match")
)
