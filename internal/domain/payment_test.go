package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hash(tag string) string {
	return tag + strings.Repeat("f", OrderHashLen-len(tag))
}

func ownedBy(addrs ...string) func(string) bool {
	set := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		set[a] = true
	}
	return func(a string) bool { return set[a] }
}

func pendingMatch() OrderMatch {
	return OrderMatch{
		Tx0Hash:           hash("t0"),
		Tx1Hash:           hash("t1"),
		Tx0Address:        "addr0",
		Tx1Address:        "addr1",
		Tx0Index:          41,
		Tx1Index:          42,
		ForwardAsset:      "BTC",
		ForwardQuantity:   1_50000000,
		BackwardAsset:     "XCP",
		BackwardQuantity:  300_00000000,
		BackwardDivisible: true,
		Tx1BlockIndex:     100,
		MatchExpireIndex:  120,
	}
}

func TestNewPaymentRequirement_FirstInPair(t *testing.T) {
	req, ok := NewPaymentRequirement(pendingMatch(), ownedBy("addr0"), "BTC")
	require.True(t, ok)

	assert.Equal(t, hash("t0")+hash("t1"), req.OrderMatchID)
	assert.Equal(t, "addr0", req.MyAddress)
	assert.Equal(t, "addr1", req.CounterpartyAddress)
	assert.Equal(t, int64(1_50000000), req.PaymentQuantity)
	assert.InDelta(t, 1.5, req.PaymentDisplay, 1e-9)
	assert.Equal(t, "XCP", req.CounterpartyAsset)
	assert.InDelta(t, 300.0, req.CounterpartyDisplay, 1e-9)
	assert.Equal(t, int64(41), req.MyOrderTxIndex)
	assert.Equal(t, hash("t0"), req.MyOrderTxHash)
	assert.Equal(t, StateUpcoming, req.State)
}

func TestNewPaymentRequirement_SecondInPair(t *testing.T) {
	m := pendingMatch()
	m.ForwardAsset, m.BackwardAsset = "XCP", "BTC"
	m.ForwardQuantity, m.BackwardQuantity = 300_00000000, 1_50000000
	m.ForwardDivisible = true

	req, ok := NewPaymentRequirement(m, ownedBy("addr1"), "BTC")
	require.True(t, ok)

	assert.Equal(t, "addr1", req.MyAddress)
	assert.Equal(t, "addr0", req.CounterpartyAddress)
	assert.Equal(t, int64(1_50000000), req.PaymentQuantity)
	assert.Equal(t, hash("t1"), req.MyOrderTxHash)
	assert.Equal(t, int64(42), req.MyOrderTxIndex)
}

func TestNewPaymentRequirement_CounterpartyOwes(t *testing.T) {
	// we own addr1, but addr1's side pays XCP, not BTC
	_, ok := NewPaymentRequirement(pendingMatch(), ownedBy("addr1"), "BTC")
	assert.False(t, ok)
}

func TestNormalizeQuantity(t *testing.T) {
	assert.InDelta(t, 1.5, NormalizeQuantity(1_50000000, true), 1e-9)
	assert.InDelta(t, 42.0, NormalizeQuantity(42, false), 1e-9)
}

func TestMatchesID_FullAndHalves(t *testing.T) {
	req := PaymentRequirement{OrderMatchID: hash("t0") + hash("t1")}

	assert.True(t, req.MatchesID(hash("t0")+hash("t1")))
	assert.True(t, req.MatchesID(hash("t0")))
	assert.True(t, req.MatchesID(hash("t1")))
	assert.False(t, req.MatchesID(hash("xx")))
	assert.False(t, req.MatchesID(""))
}

func TestBlocksUntilEligible(t *testing.T) {
	req := PaymentRequirement{MatchBlockIndex: 100}

	assert.Equal(t, int64(6), req.BlocksUntilEligible(100, 6))
	assert.Equal(t, int64(1), req.BlocksUntilEligible(105, 6))
	assert.Equal(t, int64(0), req.BlocksUntilEligible(106, 6))
	assert.Equal(t, int64(0), req.BlocksUntilEligible(200, 6)) // clamped
}

func TestBlocksToExpiry(t *testing.T) {
	req := PaymentRequirement{MatchExpireIndex: 110}

	assert.Equal(t, int64(5), req.BlocksToExpiry(105))
	assert.Equal(t, int64(0), req.BlocksToExpiry(110))
	assert.Equal(t, int64(-3), req.BlocksToExpiry(113))
}

func TestUrgencyFor_Bands(t *testing.T) {
	block := 10 * time.Minute

	assert.Equal(t, UrgencyLow, UrgencyFor(13, block))     // ~2h10m
	assert.Equal(t, UrgencyMedium, UrgencyFor(12, block))  // exactly 2h is not > 2h
	assert.Equal(t, UrgencyMedium, UrgencyFor(7, block))   // 1h10m
	assert.Equal(t, UrgencyHigh, UrgencyFor(4, block))     // 40m
	assert.Equal(t, UrgencyCritical, UrgencyFor(3, block)) // exactly 30m
	assert.Equal(t, UrgencyCritical, UrgencyFor(0, block))
	assert.Equal(t, UrgencyCritical, UrgencyFor(-2, block))
}
