package creditlimit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/cache"
	"github.com/dsilveira/finledger/internal/classifier"
	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

// historyMonths is the trailing transaction window fed to the limit
// computation.
const historyMonths = 12

// Service loads a card's state from the store and caches the derived
// snapshots per (user, card).
type Service struct {
	store store.Store
	cache *cache.Cache
	clock clock.Clock
	log   zerolog.Logger
}

// NewService creates a credit-limit service.
func NewService(st store.Store, c *cache.Cache, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{store: st, cache: c, clock: clk, log: log}
}

// Snapshot computes the card's current limit state. Results are served
// from the session cache until the TTL expires or the user's entries are
// invalidated by a change notification.
func (s *Service) Snapshot(ctx context.Context, userID, cardID string) (domain.CreditLimitSnapshot, error) {
	key := cache.Key(userID, "creditlimit", cardID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(domain.CreditLimitSnapshot), nil
	}

	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return domain.CreditLimitSnapshot{}, fmt.Errorf("Snapshot: %w", err)
	}

	var card domain.CreditCardView
	var cards []domain.CreditCardView
	found := false
	for i := range commitments {
		c := &commitments[i]
		if c.Kind != domain.KindCreditCard {
			continue
		}
		view, err := c.AsCreditCard()
		if err != nil {
			s.log.Warn().Err(err).Str("commitment_id", c.ID).Msg("Skipping malformed card")
			continue
		}
		cards = append(cards, view)
		if c.ID == cardID {
			card = view
			found = true
		}
	}
	if !found {
		return domain.CreditLimitSnapshot{}, fmt.Errorf("Snapshot: card %s: %w", cardID, store.ErrNotFound)
	}

	now := s.clock.Now()
	start := domain.MonthRefOf(now).AddMonths(-(historyMonths - 1))
	windowStart, _ := start.Bounds()
	_, windowEnd := domain.MonthRefOf(now).Bounds()

	txs, err := s.store.ListTransactionsByDateRange(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return domain.CreditLimitSnapshot{}, fmt.Errorf("Snapshot: %w", err)
	}

	snapshot := ComputeLimit(card, classifier.New(cards), txs, now)
	s.cache.Set(key, snapshot)

	if snapshot.CurrentAvailable < 0 {
		s.log.Warn().
			Str("user_id", userID).
			Str("card_id", cardID).
			Float64("available", snapshot.CurrentAvailable).
			Msg("Card is over limit")
	}
	return snapshot, nil
}

// Snapshots computes the limit state of every active card the user has.
func (s *Service) Snapshots(ctx context.Context, userID string) ([]domain.CreditLimitSnapshot, error) {
	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Snapshots: %w", err)
	}

	var out []domain.CreditLimitSnapshot
	for i := range commitments {
		c := &commitments[i]
		if c.Kind != domain.KindCreditCard || !c.Active {
			continue
		}
		snap, err := s.Snapshot(ctx, userID, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
