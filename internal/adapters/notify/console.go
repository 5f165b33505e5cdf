package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dcastano/btcpayd/internal/domain"
	"github.com/dcastano/btcpayd/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool // tabla completa por tick vs. línea compacta
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime un mensaje puntual de un pago.
func (c *Console) Notify(_ context.Context, req domain.PaymentRequirement, typ domain.EventType, detail string) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] %s %s %.8f → %s",
		now, eventLabel(typ), shortID(req.OrderMatchID), req.PaymentDisplay, shortAddr(req.CounterpartyAddress))
	if detail != "" {
		fmt.Fprintf(c.out, " — %s", detail)
	}
	fmt.Fprintln(c.out)
}

// ShowFeeds imprime los registros upcoming y waiting con sus countdowns.
func (c *Console) ShowFeeds(_ context.Context, upcoming, waiting []ports.FeedEntry) {
	if len(upcoming) == 0 && len(waiting) == 0 {
		return
	}

	if !c.table {
		c.printCompact(upcoming, waiting)
		return
	}

	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] settlement payments — upcoming:%d waiting:%d\n",
		now, len(upcoming), len(waiting))

	if len(upcoming) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("#", "Match", "Pay", "For", "Eligible in", "My addr")
		for i, e := range upcoming {
			tbl.Append(
				fmt.Sprintf("%d", i+1),
				shortID(e.Req.OrderMatchID),
				fmt.Sprintf("%.8f", e.Req.PaymentDisplay),
				fmt.Sprintf("%.4f %s", e.Req.CounterpartyDisplay, e.Req.CounterpartyAsset),
				fmt.Sprintf("%d blocks", e.Blocks),
				shortAddr(e.Req.MyAddress),
			)
		}
		tbl.Render()
	}

	if len(waiting) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("#", "Match", "Pay", "For", "Expires in", "Urgency", "My addr")
		for i, e := range waiting {
			tbl.Append(
				fmt.Sprintf("%d", i+1),
				shortID(e.Req.OrderMatchID),
				fmt.Sprintf("%.8f", e.Req.PaymentDisplay),
				fmt.Sprintf("%.4f %s", e.Req.CounterpartyDisplay, e.Req.CounterpartyAsset),
				fmt.Sprintf("%d blocks", e.Blocks),
				string(e.Urgency),
				shortAddr(e.Req.MyAddress),
			)
		}
		tbl.Render()
	}
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(upcoming, waiting []ports.FeedEntry) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] upcoming:%d waiting:%d", now, len(upcoming), len(waiting))

	shown := 0
	for _, e := range waiting {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s exp:%db %.8f",
			urgencyIcon(e.Urgency), shortID(e.Req.OrderMatchID), e.Blocks, e.Req.PaymentDisplay)
		shown++
	}
	for _, e := range upcoming {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | ⧖ %s elig:%db", shortID(e.Req.OrderMatchID), e.Blocks)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

func eventLabel(typ domain.EventType) string {
	switch typ {
	case domain.EventBroadcast:
		return "PAYMENT SENT"
	case domain.EventBroadcastFailed:
		return "PAYMENT FAILED"
	case domain.EventInsufficient:
		return "LOW BALANCE"
	case domain.EventExpired:
		return "EXPIRED"
	case domain.EventConfirmed:
		return "CONFIRMED"
	case domain.EventDeferred:
		return "DEFERRED"
	default:
		return string(typ)
	}
}

func urgencyIcon(u domain.Urgency) string {
	switch u {
	case domain.UrgencyCritical:
		return "!!"
	case domain.UrgencyHigh:
		return "!"
	default:
		return "·"
	}
}

// shortID abrevia un order match ID de 128 chars para la consola.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:8] + "…" + id[len(id)-4:]
}

func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + "…"
}
