package ports

import (
	"context"

	"github.com/dcastano/btcpayd/internal/domain"
)

// Notifier presenta el estado de los pagos al usuario.
type Notifier interface {
	// Notify muestra un mensaje puntual (pago en curso, error, expirado).
	Notify(ctx context.Context, req domain.PaymentRequirement, typ domain.EventType, detail string)

	// ShowFeeds muestra los registros upcoming y waiting con sus countdowns.
	ShowFeeds(ctx context.Context, upcoming, waiting []FeedEntry)
}

// FeedEntry is a registry snapshot row handed to the notifier: the
// requirement plus its countdown at the current height.
type FeedEntry struct {
	Req     domain.PaymentRequirement
	Blocks  int64 // blocks until eligible (upcoming) or until expiry (waiting)
	Urgency domain.Urgency
}

// PaymentDecider prompts the user to settle an eligible match when auto-pay
// is off. Implementations return exactly one decision per call.
type PaymentDecider interface {
	Decide(ctx context.Context, req domain.PaymentRequirement) domain.Decision
}
