package ports

import "context"

// BroadcastResult is delivered asynchronously once the network accepts or
// rejects a payment submission.
type BroadcastResult struct {
	TxHash string
	Err    error
}

// Broadcaster submits settlement payment transactions to the network.
//
// Broadcast returns as soon as the submission is dispatched; the outcome
// arrives later through onResult, which is invoked exactly once. There is
// no cancellation of an in-flight submission and no local timeout: if the
// network never answers, onResult never fires.
type Broadcaster interface {
	Broadcast(ctx context.Context, sourceAddr, orderMatchID, destAddr string, onResult func(BroadcastResult))
}
