package ports

import (
	"context"

	"github.com/dcastano/btcpayd/internal/domain"
)

// ChainQuery reads chain state from the DEX layer node.
type ChainQuery interface {
	// BlockHeight returns the current network block height. Monotonic
	// non-decreasing; used as the logical clock for safety windows.
	BlockHeight(ctx context.Context) (int64, error)

	// OrderMatches returns order matches involving any of the given
	// addresses, filtered by status (e.g. "pending").
	OrderMatches(ctx context.Context, addresses []string, status string) ([]domain.OrderMatch, error)
}

// BalanceQuery returns spendable balances per address and asset.
type BalanceQuery interface {
	// Balance returns the confirmed spendable balance in raw units.
	Balance(ctx context.Context, address, asset string) (int64, error)
}

// PendingActions exposes the externally persisted set of broadcasts that
// are still awaiting network confirmation. Survives restarts; owned by the
// wallet's pending-action feed, not by this daemon.
type PendingActions interface {
	List(ctx context.Context) ([]domain.PendingAction, error)
}
