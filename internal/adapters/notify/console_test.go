package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dcastano/btcpayd/internal/adapters/notify"
	"github.com/dcastano/btcpayd/internal/domain"
	"github.com/dcastano/btcpayd/internal/ports"
	"github.com/stretchr/testify/assert"
)

func makeReq(tag string) domain.PaymentRequirement {
	half := tag + strings.Repeat("0", 64-len(tag))
	return domain.PaymentRequirement{
		OrderMatchID:        half + half,
		MyAddress:           "1MyWalletAddressXXXXXXXXXXXXXXXXXX",
		CounterpartyAddress: "1CounterpartyAddrXXXXXXXXXXXXXXXXX",
		PaymentQuantity:     1_50000000,
		PaymentDisplay:      1.5,
		CounterpartyAsset:   "XCP",
		CounterpartyDisplay: 300,
		State:               domain.StateWaiting,
	}
}

func TestConsole_Notify_EventLabels(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.Notify(context.Background(), makeReq("aa"), domain.EventBroadcastFailed, "tx rejected")

	out := buf.String()
	assert.Contains(t, out, "PAYMENT FAILED")
	assert.Contains(t, out, "tx rejected")
	assert.Contains(t, out, "1.50000000")
}

func TestConsole_ShowFeeds_Table(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	c.ShowFeeds(context.Background(),
		[]ports.FeedEntry{{Req: makeReq("aa"), Blocks: 4}},
		[]ports.FeedEntry{{Req: makeReq("bb"), Blocks: 9, Urgency: domain.UrgencyMedium}},
	)

	out := buf.String()
	assert.Contains(t, out, "upcoming:1 waiting:1")
	assert.Contains(t, out, "4 blocks")
	assert.Contains(t, out, "9 blocks")
	assert.Contains(t, out, "MEDIUM")
	assert.Contains(t, out, "XCP")
}

func TestConsole_ShowFeeds_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.ShowFeeds(context.Background(),
		nil,
		[]ports.FeedEntry{{Req: makeReq("bb"), Blocks: 2, Urgency: domain.UrgencyCritical}},
	)

	out := buf.String()
	assert.Contains(t, out, "upcoming:0 waiting:1")
	assert.Contains(t, out, "exp:2b")
}

func TestConsole_ShowFeeds_EmptyPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	c.ShowFeeds(context.Background(), nil, nil)
	assert.Empty(t, buf.String())
}
