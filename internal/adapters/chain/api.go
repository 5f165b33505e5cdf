package chain

import (
	"context"
	"fmt"

	"github.com/dcastano/btcpayd/internal/domain"
)

// matchFilter is one clause of an order-match query.
type matchFilter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

// BlockHeight implementa ports.ChainQuery leyendo el running info del nodo.
func (c *Client) BlockHeight(ctx context.Context) (int64, error) {
	var info struct {
		LastBlock struct {
			BlockIndex int64 `json:"block_index"`
		} `json:"last_block"`
	}
	if err := c.call(ctx, c.queryLimiter, "get_running_info", map[string]any{}, &info); err != nil {
		return 0, fmt.Errorf("chain.BlockHeight: %w", err)
	}
	return info.LastBlock.BlockIndex, nil
}

// OrderMatches devuelve los order matches que involucran cualquiera de las
// direcciones dadas, en cualquiera de los dos lados del match.
func (c *Client) OrderMatches(ctx context.Context, addresses []string, status string) ([]domain.OrderMatch, error) {
	filters := make([]matchFilter, 0, 2*len(addresses))
	for _, addr := range addresses {
		filters = append(filters,
			matchFilter{Field: "tx0_address", Op: "==", Value: addr},
			matchFilter{Field: "tx1_address", Op: "==", Value: addr},
		)
	}

	params := map[string]any{
		"filters":  filters,
		"filterop": "or",
		"status":   status,
	}

	var matches []domain.OrderMatch
	if err := c.call(ctx, c.queryLimiter, "get_order_matches", params, &matches); err != nil {
		return nil, fmt.Errorf("chain.OrderMatches: %w", err)
	}
	return matches, nil
}

// Balance implementa ports.BalanceQuery con el balance confirmado gastable.
func (c *Client) Balance(ctx context.Context, address, asset string) (int64, error) {
	params := map[string]any{
		"address": address,
		"asset":   asset,
	}
	var res struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.call(ctx, c.queryLimiter, "get_spendable_balance", params, &res); err != nil {
		return 0, fmt.Errorf("chain.Balance: %w", err)
	}
	return res.Quantity, nil
}

// List implementa ports.PendingActions: broadcasts propios que siguen sin
// confirmar en la red, persistidos por el backend de la wallet.
func (c *Client) List(ctx context.Context) ([]domain.PendingAction, error) {
	var raw []struct {
		Category string `json:"category"`
		Data     struct {
			OrderMatchID string `json:"order_match_id"`
		} `json:"data"`
	}
	if err := c.call(ctx, c.queryLimiter, "get_pending_actions", map[string]any{}, &raw); err != nil {
		return nil, fmt.Errorf("chain.List: %w", err)
	}

	actions := make([]domain.PendingAction, 0, len(raw))
	for _, r := range raw {
		actions = append(actions, domain.PendingAction{
			Category:     r.Category,
			OrderMatchID: r.Data.OrderMatchID,
		})
	}
	return actions, nil
}
