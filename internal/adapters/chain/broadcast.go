package chain

import (
	"context"
	"fmt"

	"github.com/dcastano/btcpayd/internal/ports"
)

// Broadcast implementa ports.Broadcaster. La composición y firma de la
// transacción las hace el nodo; aquí solo se despacha la petición. El
// resultado llega por onResult, exactamente una vez, en otra goroutine.
func (c *Client) Broadcast(ctx context.Context, sourceAddr, orderMatchID, destAddr string, onResult func(ports.BroadcastResult)) {
	go func() {
		params := map[string]any{
			"order_match_id": orderMatchID,
			"source":         sourceAddr,
			"destination":    destAddr,
		}
		var res struct {
			TxHash string `json:"tx_hash"`
		}
		if err := c.call(ctx, c.txLimiter, "create_btcpay", params, &res); err != nil {
			onResult(ports.BroadcastResult{Err: fmt.Errorf("chain.Broadcast: %w", err)})
			return
		}
		onResult(ports.BroadcastResult{TxHash: res.TxHash})
	}()
}
