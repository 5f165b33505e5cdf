package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dcastano/btcpayd/internal/domain"
	"github.com/dcastano/btcpayd/internal/ports"
)

const (
	defaultThreshold    = 6
	defaultExpiryMargin = 6
	defaultTick         = 60 * time.Second
	defaultBlockTime    = 10 * time.Minute
)

// Config holds the safety windows and identity of the scheduler.
type Config struct {
	Addresses            []string
	BaseAsset            string
	EligibilityThreshold int64         // confirmations before a payment may be broadcast
	ExpiryMargin         int64         // refuse to pay with fewer blocks than this to expiry
	TickInterval         time.Duration // recompute/promote cycle period
	BlockTime            time.Duration // estimated block interval, for urgency display
}

// Scheduler owns the payment lifecycle: upcoming → waiting → broadcasting →
// completed (or expired). All registry state lives here, guarded by one
// mutex; the periodic tick, the confirmation feed, the live match feed and
// manual completion all serialize on it. The only cross-turn race — a
// second trigger firing while a broadcast is still in flight — is closed by
// the dedup guard's claim-before-initiate discipline.
type Scheduler struct {
	cfg      Config
	chain    ports.ChainQuery
	balances ports.BalanceQuery
	pending  ports.PendingActions
	caster   ports.Broadcaster
	prefs    ports.Preferences
	decider  ports.PaymentDecider
	notifier ports.Notifier
	store    ports.Storage
	guard    *Guard

	mu           sync.Mutex
	upcoming     registry
	waiting      registry
	broadcasting map[string]domain.PaymentRequirement // in-flight submissions by full ID
	owned        map[string]bool
}

// New wires a scheduler from its collaborators. notifier and store may be
// nil (events are then only logged).
func New(
	cfg Config,
	chain ports.ChainQuery,
	balances ports.BalanceQuery,
	pending ports.PendingActions,
	caster ports.Broadcaster,
	prefs ports.Preferences,
	decider ports.PaymentDecider,
	notifier ports.Notifier,
	store ports.Storage,
) *Scheduler {
	if cfg.EligibilityThreshold <= 0 {
		cfg.EligibilityThreshold = defaultThreshold
	}
	if cfg.ExpiryMargin <= 0 {
		cfg.ExpiryMargin = defaultExpiryMargin
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTick
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = defaultBlockTime
	}

	owned := make(map[string]bool, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		owned[a] = true
	}

	return &Scheduler{
		cfg:          cfg,
		chain:        chain,
		balances:     balances,
		pending:      pending,
		caster:       caster,
		prefs:        prefs,
		decider:      decider,
		notifier:     notifier,
		store:        store,
		guard:        NewGuard(),
		broadcasting: make(map[string]domain.PaymentRequirement),
		owned:        owned,
	}
}

// owns reports whether the address belongs to this wallet.
func (s *Scheduler) owns(addr string) bool { return s.owned[addr] }

// Run executes the periodic recompute/promote cycle until the context is
// cancelled. One tick runs immediately on start.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting",
		"tick", s.cfg.TickInterval,
		"threshold", s.cfg.EligibilityThreshold,
		"expiry_margin", s.cfg.ExpiryMargin,
		"addresses", len(s.cfg.Addresses),
	)

	if err := s.Tick(ctx); err != nil {
		slog.Error("tick failed", "err", err)
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				slog.Error("tick failed", "err", err)
			}
		}
	}
}

// Tick runs one recompute/promote cycle: fetch the current height, promote
// every upcoming requirement that cleared the safety window, sweep expired
// waiting entries, and publish the registry snapshots.
func (s *Scheduler) Tick(ctx context.Context) error {
	height, err := s.chain.BlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("scheduler.Tick: block height: %w", err)
	}

	s.mu.Lock()
	var eligible []string
	for _, req := range s.upcoming.sortedByEligibility(height, s.cfg.EligibilityThreshold) {
		if req.BlocksUntilEligible(height, s.cfg.EligibilityThreshold) == 0 {
			eligible = append(eligible, req.OrderMatchID)
		}
	}
	s.mu.Unlock()

	for _, id := range eligible {
		s.promote(ctx, id, height)
	}

	s.sweepExpired(ctx, height)
	s.publishFeeds(ctx, height)
	return nil
}

// Observe ingests one order match from the live detection feed. Returns
// false when this wallet owes nothing for it, or when the match is already
// tracked (duplicate IDs are rejected and logged, registries unchanged).
func (s *Scheduler) Observe(ctx context.Context, m domain.OrderMatch) (bool, error) {
	req, ok := domain.NewPaymentRequirement(m, s.owns, s.cfg.BaseAsset)
	if !ok {
		return false, nil
	}

	height, err := s.chain.BlockHeight(ctx)
	if err != nil {
		return false, fmt.Errorf("scheduler.Observe: block height: %w", err)
	}

	s.mu.Lock()
	added := s.addLocked(req, height)
	s.mu.Unlock()

	if !added {
		return false, nil
	}
	s.journal(ctx, req, domain.EventObserved, "")
	return true, nil
}

// addLocked classifies a requirement into upcoming or waiting by its age
// against the safety threshold. Rejects duplicates across both registries
// and in-flight broadcasts. Caller holds s.mu.
func (s *Scheduler) addLocked(req domain.PaymentRequirement, height int64) bool {
	id := req.OrderMatchID
	if s.upcoming.contains(id) || s.waiting.contains(id) {
		slog.Error("duplicate payment requirement rejected", "order_match", id)
		return false
	}
	if _, inFlight := s.broadcasting[id]; inFlight {
		slog.Error("duplicate payment requirement rejected, broadcast in flight", "order_match", id)
		return false
	}

	if req.BlocksUntilEligible(height, s.cfg.EligibilityThreshold) > 0 {
		req.State = domain.StateUpcoming
		s.upcoming.add(req)
		slog.Debug("payment requirement upcoming",
			"order_match", id,
			"blocks_until_eligible", req.BlocksUntilEligible(height, s.cfg.EligibilityThreshold))
	} else {
		req.State = domain.StateWaiting
		s.waiting.add(req)
		slog.Debug("payment requirement waiting",
			"order_match", id,
			"blocks_to_expiry", req.BlocksToExpiry(height))
	}
	return true
}

// promote moves one eligible requirement out of upcoming and fires the
// payment trigger. Eligibility and non-expiry are re-validated under the
// lock before the entry is removed.
func (s *Scheduler) promote(ctx context.Context, orderMatchID string, height int64) {
	if s.guard.Claimed(orderMatchID) {
		// a broadcast is already in flight; leave the registry untouched
		slog.Error("attempt to make duplicate payment", "order_match", orderMatchID)
		return
	}

	s.mu.Lock()
	req, ok := s.upcoming.remove(orderMatchID)
	if ok && req.BlocksUntilEligible(height, s.cfg.EligibilityThreshold) > 0 {
		// Raced with a fresher add; not actually eligible. Put it back.
		s.upcoming.add(req)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if req.BlocksToExpiry(height) <= s.cfg.ExpiryMargin {
		s.expire(ctx, req, height)
		return
	}

	s.journal(ctx, req, domain.EventPromoted, "")
	s.trigger(ctx, req, height)
}

// trigger is the payment decision point shared by every promotion: pay
// immediately when auto-pay is on, otherwise ask the user. The auto-pay
// flag is read fresh here, never cached on the requirement.
func (s *Scheduler) trigger(ctx context.Context, req domain.PaymentRequirement, height int64) {
	autoPay := s.prefs == nil || s.prefs.AutoPay()

	if !autoPay {
		switch s.decide(ctx, req) {
		case domain.DecisionConfirm:
			// fall through to the guarded completion below
		default:
			// Defer and Cancel both park the requirement unpaid, no
			// guard claimed; the user completes it manually later.
			s.moveToWaiting(req)
			s.journal(ctx, req, domain.EventDeferred, "")
			s.notify(ctx, req, domain.EventDeferred, "payment deferred, waiting for manual completion")
			return
		}
	}

	err := s.complete(ctx, req, height)
	switch {
	case err == nil:
		// submission in flight; outcome arrives via broadcast callback
	case errors.Is(err, ErrInsufficientBalance):
		s.moveToWaiting(req)
		s.journal(ctx, req, domain.EventInsufficient, "")
		s.notify(ctx, req, domain.EventInsufficient,
			fmt.Sprintf("balance too low on %s, payment kept waiting", req.MyAddress))
	case errors.Is(err, ErrExpiredMatch):
		s.expire(ctx, req, height)
	case errors.Is(err, ErrDuplicateSubmission):
		slog.Error("promotion hit duplicate submission", "order_match", req.OrderMatchID)
	default:
		// balance lookup failure or similar; keep the requirement payable
		slog.Warn("payment trigger failed, keeping requirement waiting",
			"order_match", req.OrderMatchID, "err", err)
		s.moveToWaiting(req)
	}
}

// decide asks the external decider; without one, hold the payment.
func (s *Scheduler) decide(ctx context.Context, req domain.PaymentRequirement) domain.Decision {
	if s.decider == nil {
		return domain.DecisionDefer
	}
	return s.decider.Decide(ctx, req)
}

// CompletePayment is the manual confirmation path: the user settles a
// waiting requirement identified by its full order match ID or either
// order hash half. The same guarded completion runs as for automatic
// promotion. On ErrInsufficientBalance the requirement stays waiting; on
// ErrExpiredMatch it is dropped for good.
func (s *Scheduler) CompletePayment(ctx context.Context, idOrHalf string) error {
	height, err := s.chain.BlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("scheduler.CompletePayment: block height: %w", err)
	}

	s.mu.Lock()
	req, ok := s.waiting.get(idOrHalf)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler.CompletePayment: %q: %w", idOrHalf, ErrUnknownMatch)
	}

	err = s.complete(ctx, req, height)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInsufficientBalance):
		s.journal(ctx, req, domain.EventInsufficient, "")
		s.notify(ctx, req, domain.EventInsufficient,
			fmt.Sprintf("balance too low on %s", req.MyAddress))
		return err
	case errors.Is(err, ErrExpiredMatch):
		s.expire(ctx, req, height)
		return err
	default:
		return err
	}
}

// complete performs the guarded broadcast shared by both trigger paths.
// Order matters: guard check, expiry check, balance check, then the claim
// is taken synchronously immediately before the submission is dispatched.
// Broadcast results arrive asynchronously at onBroadcastResult.
func (s *Scheduler) complete(ctx context.Context, req domain.PaymentRequirement, height int64) error {
	id := req.OrderMatchID

	if s.guard.Claimed(id) {
		slog.Error("attempt to make duplicate payment", "order_match", id)
		return ErrDuplicateSubmission
	}
	if req.BlocksToExpiry(height) <= s.cfg.ExpiryMargin {
		slog.Error("attempt to pay expired match",
			"order_match", id, "blocks_to_expiry", req.BlocksToExpiry(height))
		return ErrExpiredMatch
	}

	balance, err := s.balances.Balance(ctx, req.MyAddress, s.cfg.BaseAsset)
	if err != nil {
		return fmt.Errorf("scheduler.complete: balance %s: %w", req.MyAddress, err)
	}
	if balance < req.PaymentQuantity+domain.MinReserveBalance {
		return ErrInsufficientBalance
	}

	if !s.guard.Claim(id) {
		slog.Error("attempt to make duplicate payment", "order_match", id)
		return ErrDuplicateSubmission
	}

	s.mu.Lock()
	s.waiting.remove(id) // no-op on the automatic path
	req.State = domain.StateBroadcasting
	s.broadcasting[id] = req
	s.mu.Unlock()

	slog.Info("broadcasting payment",
		"order_match", id,
		"source", req.MyAddress,
		"dest", req.CounterpartyAddress,
		"quantity", req.PaymentQuantity)

	s.caster.Broadcast(ctx, req.MyAddress, id, req.CounterpartyAddress, func(res ports.BroadcastResult) {
		s.onBroadcastResult(ctx, id, res)
	})
	return nil
}

// onBroadcastResult handles the asynchronous submission outcome. Success
// leaves the requirement tracked only by the pending-action feed until
// confirmation; failure releases the guard and returns it to waiting so
// the user can retry.
func (s *Scheduler) onBroadcastResult(ctx context.Context, orderMatchID string, res ports.BroadcastResult) {
	s.mu.Lock()
	req, ok := s.broadcasting[orderMatchID]
	delete(s.broadcasting, orderMatchID)
	s.mu.Unlock()
	if !ok {
		// confirmation raced the callback and already removed it
		slog.Warn("broadcast result for untracked payment", "order_match", orderMatchID)
		return
	}

	if res.Err != nil {
		s.guard.Release(orderMatchID)
		s.moveToWaiting(req)
		s.journal(ctx, req, domain.EventBroadcastFailed, res.Err.Error())
		s.notify(ctx, req, domain.EventBroadcastFailed,
			fmt.Sprintf("payment broadcast failed: %v — will stay waiting for retry", res.Err))
		slog.Error("payment broadcast failed", "order_match", orderMatchID, "err", res.Err)
		return
	}

	s.journal(ctx, req, domain.EventBroadcast, res.TxHash)
	s.notify(ctx, req, domain.EventBroadcast,
		fmt.Sprintf("payment in progress, tx %s awaiting confirmation", res.TxHash))
	slog.Info("payment broadcast accepted", "order_match", orderMatchID, "tx", res.TxHash)
}

// Remove deletes a requirement on behalf of the confirmation feed: the
// payment confirmed on-chain, so the guard claim is released and the entry
// leaves every registry. Accepts the full order match ID or either half.
func (s *Scheduler) Remove(ctx context.Context, idOrHalf string) bool {
	s.mu.Lock()
	req, ok := s.waiting.remove(idOrHalf)
	if !ok {
		req, ok = s.upcoming.remove(idOrHalf)
	}
	if !ok {
		for id, b := range s.broadcasting {
			if b.MatchesID(idOrHalf) {
				req, ok = b, true
				delete(s.broadcasting, id)
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		s.guard.Release(idOrHalf)
		return false
	}

	s.guard.Release(req.OrderMatchID)
	req.State = domain.StateCompleted
	s.journal(ctx, req, domain.EventConfirmed, "")
	s.notify(ctx, req, domain.EventConfirmed, "payment confirmed")
	slog.Info("payment confirmed", "order_match", req.OrderMatchID)
	return true
}

// moveToWaiting parks a requirement in the waiting registry unless some
// path already re-added it.
func (s *Scheduler) moveToWaiting(req domain.PaymentRequirement) {
	req.State = domain.StateWaiting
	s.mu.Lock()
	if !s.waiting.contains(req.OrderMatchID) && !s.upcoming.contains(req.OrderMatchID) {
		s.waiting.add(req)
	}
	s.mu.Unlock()
}

// expire drops a requirement terminally: journaled, user notified, never
// re-added. The guard entry, if any, is left untouched.
func (s *Scheduler) expire(ctx context.Context, req domain.PaymentRequirement, height int64) {
	s.mu.Lock()
	s.waiting.remove(req.OrderMatchID)
	s.upcoming.remove(req.OrderMatchID)
	s.mu.Unlock()

	req.State = domain.StateExpired
	s.journal(ctx, req, domain.EventExpired, "")
	s.notify(ctx, req, domain.EventExpired,
		fmt.Sprintf("order match expired unpaid at height %d", height))
	slog.Warn("payment requirement expired",
		"order_match", req.OrderMatchID, "expire_index", req.MatchExpireIndex, "height", height)
}

// sweepExpired removes waiting entries whose expiry block has passed.
func (s *Scheduler) sweepExpired(ctx context.Context, height int64) {
	s.mu.Lock()
	var aged []domain.PaymentRequirement
	for _, req := range s.waiting.sortedByExpiry(height) {
		if req.BlocksToExpiry(height) <= 0 {
			aged = append(aged, req)
		}
	}
	s.mu.Unlock()

	for _, req := range aged {
		s.expire(ctx, req, height)
	}
}

// publishFeeds hands sorted registry snapshots to the notifier.
func (s *Scheduler) publishFeeds(ctx context.Context, height int64) {
	if s.notifier == nil {
		return
	}

	s.mu.Lock()
	up := s.upcoming.sortedByEligibility(height, s.cfg.EligibilityThreshold)
	wait := s.waiting.sortedByExpiry(height)
	s.mu.Unlock()

	upFeed := make([]ports.FeedEntry, 0, len(up))
	for _, req := range up {
		upFeed = append(upFeed, ports.FeedEntry{
			Req:    req,
			Blocks: req.BlocksUntilEligible(height, s.cfg.EligibilityThreshold),
		})
	}
	waitFeed := make([]ports.FeedEntry, 0, len(wait))
	for _, req := range wait {
		blocks := req.BlocksToExpiry(height)
		waitFeed = append(waitFeed, ports.FeedEntry{
			Req:     req,
			Blocks:  blocks,
			Urgency: domain.UrgencyFor(blocks, s.cfg.BlockTime),
		})
	}

	s.notifier.ShowFeeds(ctx, upFeed, waitFeed)
}

// Upcoming returns the upcoming registry ordered soonest-eligible first.
func (s *Scheduler) Upcoming(height int64) []domain.PaymentRequirement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upcoming.sortedByEligibility(height, s.cfg.EligibilityThreshold)
}

// Waiting returns the waiting registry ordered most-urgent first.
func (s *Scheduler) Waiting(height int64) []domain.PaymentRequirement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting.sortedByExpiry(height)
}

// InFlight reports whether a broadcast is currently awaiting its result.
func (s *Scheduler) InFlight(orderMatchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.broadcasting[orderMatchID]
	return ok
}

// Guard exposes the dedup guard, for the confirmation feed wiring and tests.
func (s *Scheduler) Guard() *Guard { return s.guard }

// journal records a lifecycle event; storage failures only warn.
func (s *Scheduler) journal(ctx context.Context, req domain.PaymentRequirement, typ domain.EventType, detail string) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveEvent(ctx, domain.NewPaymentEvent(req, typ, detail)); err != nil {
		slog.Warn("journal error", "type", typ, "order_match", req.OrderMatchID, "err", err)
	}
}

// notify surfaces a user-facing message when a notifier is wired.
func (s *Scheduler) notify(ctx context.Context, req domain.PaymentRequirement, typ domain.EventType, detail string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, req, typ, detail)
}
