package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle transition recorded in the journal.
type EventType string

const (
	EventObserved        EventType = "OBSERVED"         // match detected, requirement created
	EventPromoted        EventType = "PROMOTED"         // cleared the safety window
	EventDeferred        EventType = "DEFERRED"         // user chose to hold off
	EventBroadcast       EventType = "BROADCAST"        // submission handed to the network
	EventBroadcastFailed EventType = "BROADCAST_FAILED" // submission failed, back to waiting
	EventInsufficient    EventType = "INSUFFICIENT"     // balance too low to pay
	EventExpired         EventType = "EXPIRED"          // aged out unpaid
	EventConfirmed       EventType = "CONFIRMED"        // confirmation arrived, payment done
)

// PaymentEvent is one journal row describing what happened to a requirement.
type PaymentEvent struct {
	ID           string
	OrderMatchID string
	Type         EventType
	Address      string
	Quantity     int64
	Detail       string
	At           time.Time
}

// NewPaymentEvent builds a journal event for a requirement with a fresh ID.
func NewPaymentEvent(req PaymentRequirement, typ EventType, detail string) PaymentEvent {
	return PaymentEvent{
		ID:           uuid.New().String(),
		OrderMatchID: req.OrderMatchID,
		Type:         typ,
		Address:      req.MyAddress,
		Quantity:     req.PaymentQuantity,
		Detail:       detail,
		At:           time.Now().UTC(),
	}
}
