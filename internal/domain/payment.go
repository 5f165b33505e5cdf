package domain

import "time"

// PayState represents the lifecycle of an outbound settlement payment.
type PayState string

const (
	StateUpcoming     PayState = "UPCOMING"     // inside the reorg-safety window
	StateWaiting      PayState = "WAITING"      // eligible, not yet broadcast
	StateBroadcasting PayState = "BROADCASTING" // submission in flight / awaiting confirmation
	StateCompleted    PayState = "COMPLETED"    // confirmed on-chain
	StateExpired      PayState = "EXPIRED"      // match expired unpaid (terminal)
)

const (
	// QuantumPerUnit is the number of raw units in one display unit of a
	// divisible asset.
	QuantumPerUnit = 1e8

	// MinReserveBalance is kept on top of the payment quantity when checking
	// spendable balance, so the address retains enough to fee future txs.
	MinReserveBalance int64 = 50000

	// OrderHashLen is the length of one order's tx hash inside a composite
	// order match ID.
	OrderHashLen = 64
)

// OrderMatch is a raw pending order-match record as returned by the DEX
// layer API. Field names mirror the wire format.
type OrderMatch struct {
	Tx0Hash           string `json:"tx0_hash"`
	Tx1Hash           string `json:"tx1_hash"`
	Tx0Address        string `json:"tx0_address"`
	Tx1Address        string `json:"tx1_address"`
	Tx0Index          int64  `json:"tx0_index"`
	Tx1Index          int64  `json:"tx1_index"`
	ForwardAsset      string `json:"forward_asset"`
	ForwardQuantity   int64  `json:"forward_quantity"`
	BackwardAsset     string `json:"backward_asset"`
	BackwardQuantity  int64  `json:"backward_quantity"`
	ForwardDivisible  bool   `json:"_forward_asset_divisible"`
	BackwardDivisible bool   `json:"_backward_asset_divisible"`
	Tx1BlockIndex     int64  `json:"tx1_block_index"`
	MatchExpireIndex  int64  `json:"match_expire_index"`
	Status            string `json:"status"`
}

// ID returns the composite order match identifier: both order hashes
// concatenated, tx0 first.
func (m OrderMatch) ID() string {
	return m.Tx0Hash + m.Tx1Hash
}

// PaymentRequirement is one outbound payment this wallet owes for an order
// match. Built once from the raw match record; all countdown values are
// derived from the immutable block indexes plus the current height.
type PaymentRequirement struct {
	OrderMatchID         string
	MyAddress            string
	CounterpartyAddress  string
	PaymentQuantity      int64   // raw units owed by this wallet
	PaymentDisplay       float64 // normalized decimal form
	CounterpartyAsset    string
	CounterpartyQuantity int64
	CounterpartyDisplay  float64
	MatchBlockIndex      int64 // tx1 block index: when the match was made
	MatchExpireIndex     int64
	MyOrderTxIndex       int64
	MyOrderTxHash        string
	State                PayState
}

// NewPaymentRequirement maps a raw order match into a payment requirement.
// isOwned reports whether an address belongs to this wallet. Returns false
// when the counterparty, not this wallet, owes the baseAsset payment.
func NewPaymentRequirement(m OrderMatch, isOwned func(string) bool, baseAsset string) (PaymentRequirement, bool) {
	firstInPair := isOwned(m.Tx0Address) && m.ForwardAsset == baseAsset
	if !firstInPair && !(isOwned(m.Tx1Address) && m.BackwardAsset == baseAsset) {
		return PaymentRequirement{}, false
	}

	req := PaymentRequirement{
		OrderMatchID:     m.ID(),
		MatchBlockIndex:  m.Tx1BlockIndex,
		MatchExpireIndex: m.MatchExpireIndex,
		State:            StateUpcoming,
	}
	if firstInPair {
		req.MyAddress = m.Tx0Address
		req.CounterpartyAddress = m.Tx1Address
		req.PaymentQuantity = m.ForwardQuantity
		req.MyOrderTxIndex = m.Tx0Index
		req.MyOrderTxHash = m.Tx0Hash
		req.CounterpartyAsset = m.BackwardAsset
		req.CounterpartyQuantity = m.BackwardQuantity
		req.CounterpartyDisplay = NormalizeQuantity(m.BackwardQuantity, m.BackwardDivisible)
	} else {
		req.MyAddress = m.Tx1Address
		req.CounterpartyAddress = m.Tx0Address
		req.PaymentQuantity = m.BackwardQuantity
		req.MyOrderTxIndex = m.Tx1Index
		req.MyOrderTxHash = m.Tx1Hash
		req.CounterpartyAsset = m.ForwardAsset
		req.CounterpartyQuantity = m.ForwardQuantity
		req.CounterpartyDisplay = NormalizeQuantity(m.ForwardQuantity, m.ForwardDivisible)
	}
	req.PaymentDisplay = NormalizeQuantity(req.PaymentQuantity, true)
	return req, true
}

// NormalizeQuantity converts raw integer units to the decimal display form.
// Indivisible assets display as whole units.
func NormalizeQuantity(raw int64, divisible bool) float64 {
	if !divisible {
		return float64(raw)
	}
	return float64(raw) / QuantumPerUnit
}

// MatchesID reports whether id refers to this requirement: either the full
// composite order match ID, or either order's 64-char tx hash on its own.
func (r PaymentRequirement) MatchesID(id string) bool {
	if id == r.OrderMatchID {
		return true
	}
	if len(r.OrderMatchID) < 2*OrderHashLen {
		return false
	}
	return id == r.OrderMatchID[:OrderHashLen] || id == r.OrderMatchID[OrderHashLen:]
}

// BlocksUntilEligible returns how many blocks remain before the requirement
// clears the reorg-safety window. Zero means eligible now.
func (r PaymentRequirement) BlocksUntilEligible(height, threshold int64) int64 {
	n := threshold - (height - r.MatchBlockIndex)
	if n < 0 {
		return 0
	}
	return n
}

// BlocksToExpiry returns how many blocks remain before the match expires.
// May be negative once the expiry block has passed.
func (r PaymentRequirement) BlocksToExpiry(height int64) int64 {
	return r.MatchExpireIndex - height
}

// Urgency classifies how close a waiting payment is to its expiry block.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"      // > 2h estimated
	UrgencyMedium   Urgency = "MEDIUM"   // > 1h
	UrgencyHigh     Urgency = "HIGH"     // > 30m
	UrgencyCritical Urgency = "CRITICAL" // < 30m or already expired
)

// UrgencyFor maps blocks-to-expiry to an urgency band given the estimated
// block time. Pure function; no clock access.
func UrgencyFor(blocksToExpiry int64, blockTime time.Duration) Urgency {
	remaining := time.Duration(blocksToExpiry) * blockTime
	switch {
	case remaining > 2*time.Hour:
		return UrgencyLow
	case remaining > time.Hour:
		return UrgencyMedium
	case remaining > 30*time.Minute:
		return UrgencyHigh
	default:
		return UrgencyCritical
	}
}

// Decision is the user's answer when prompted to settle a match manually.
type Decision int

const (
	DecisionConfirm Decision = iota // pay now
	DecisionDefer                   // hold off, keep in waiting
	DecisionCancel                  // dismiss the prompt, keep in waiting
)

// PendingAction is an externally persisted record of a broadcast awaiting
// network confirmation. Requirements with a matching record are excluded
// from the registries to avoid double payment.
type PendingAction struct {
	Category     string `json:"category"`
	OrderMatchID string `json:"order_match_id"`
}

// CategoryBTCPay is the pending-action category for settlement payments.
const CategoryBTCPay = "btcpays"
