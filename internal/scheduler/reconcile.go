package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dcastano/btcpayd/internal/domain"
)

// Reconcile rebuilds the registries after a restart from the two external
// sources of truth: the pending order matches for every wallet address, and
// the pending-action records of broadcasts still awaiting confirmation.
//
// Matches the counterparty must pay are discarded. Matches with a
// pending-action record were already broadcast before the restart; they
// stay tracked by that feed alone, never re-entering the registries — this
// is what prevents a double payment across restarts. Everything left is
// classified upcoming or waiting by its age against the safety threshold.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	height, err := s.chain.BlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("scheduler.Reconcile: block height: %w", err)
	}

	matches, err := s.chain.OrderMatches(ctx, s.cfg.Addresses, "pending")
	if err != nil {
		return fmt.Errorf("scheduler.Reconcile: order matches: %w", err)
	}

	inFlight, err := s.pendingPayments(ctx)
	if err != nil {
		return fmt.Errorf("scheduler.Reconcile: pending actions: %w", err)
	}

	restored, skipped := 0, 0
	s.mu.Lock()
	for _, m := range matches {
		req, owes := domain.NewPaymentRequirement(m, s.owns, s.cfg.BaseAsset)
		if !owes {
			continue
		}
		if inFlight[req.OrderMatchID] {
			// broadcast already issued before the restart
			slog.Debug("reconcile: payment already pending confirmation",
				"order_match", req.OrderMatchID)
			s.guard.Claim(req.OrderMatchID)
			skipped++
			continue
		}
		if s.addLocked(req, height) {
			restored++
		}
	}
	upcoming, waiting := s.upcoming.len(), s.waiting.len()
	s.mu.Unlock()

	slog.Info("reconcile complete",
		"height", height,
		"matches", len(matches),
		"restored", restored,
		"pending_confirmation", skipped,
		"upcoming", upcoming,
		"waiting", waiting,
	)
	return nil
}

// pendingPayments returns the set of order match IDs with a settlement
// pending-action record.
func (s *Scheduler) pendingPayments(ctx context.Context) (map[string]bool, error) {
	if s.pending == nil {
		return nil, nil
	}
	actions, err := s.pending.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(actions))
	for _, a := range actions {
		if a.Category == domain.CategoryBTCPay {
			ids[a.OrderMatchID] = true
		}
	}
	return ids, nil
}
