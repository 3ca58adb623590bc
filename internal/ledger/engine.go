// Package ledger is the balance reconciliation engine: it computes a
// month's opening/closing balance from classified transactions and
// cascades recalculation into later, non-manually-edited months.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/cache"
	"github.com/dsilveira/finledger/internal/classifier"
	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

// Epsilon is the tolerance for opening/closing continuity checks, in
// currency units.
const Epsilon = 0.01

// DefaultStoreTimeout bounds a single engine operation's persistence work.
const DefaultStoreTimeout = 5 * time.Second

// cascadeHorizonMonths bounds how far past the latest stored budget a
// cascade will walk.
const cascadeHorizonMonths = 12

// Engine reconciles monthly balances for users. All mutating operations
// on the same user are serialized.
type Engine struct {
	store   store.Store
	cache   *cache.Cache
	clock   clock.Clock
	log     zerolog.Logger
	locks   *userLocks
	timeout time.Duration
}

// New creates a reconciliation engine. cache may be nil to disable
// read caching.
func New(st store.Store, c *cache.Cache, clk clock.Clock, log zerolog.Logger) *Engine {
	return &Engine{
		store:   st,
		cache:   c,
		clock:   clk,
		log:     log,
		locks:   newUserLocks(),
		timeout: DefaultStoreTimeout,
	}
}

// WithTimeout overrides the per-operation persistence timeout.
func (e *Engine) WithTimeout(d time.Duration) *Engine {
	e.timeout = d
	return e
}

// ReconcileMonth computes the opening balance, income, expenses and
// closing balance for one month. Persistence failures are not
// propagated: the result is the zeroed safe fallback with Unknown set,
// so callers can render "no data" instead of a fabricated balance.
func (e *Engine) ReconcileMonth(ctx context.Context, userID string, month, year int) domain.BalanceResult {
	ref := domain.MonthRef{Month: month, Year: year}
	if !ref.Valid() {
		e.log.Warn().Str("user_id", userID).Int("month", month).Int("year", year).Msg("Invalid month reference")
		return domain.BalanceResult{Unknown: true}
	}

	key := cache.Key(userID, "balance", ref.String())
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v.(domain.BalanceResult)
		}
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.reconcileLocked(ctx, userID, ref, true)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Stringer("month", ref).Msg("Reconciliation failed, returning safe fallback")
		return domain.BalanceResult{Unknown: true}
	}

	if e.cache != nil {
		e.cache.Set(key, result)
	}
	return result
}

// CascadeFrom recomputes every month strictly after the given one whose
// opening balance was not manually edited, in chronological order, each
// month's closing feeding the next opening. Manually-edited months are
// skipped (their stored opening is respected and the cascade resumes
// after them) unless force is set. The walk is bounded by the latest
// stored budget row plus the forecast horizon.
func (e *Engine) CascadeFrom(ctx context.Context, userID string, month, year int, force bool) error {
	ref := domain.MonthRef{Month: month, Year: year}
	if !ref.Valid() {
		return fmt.Errorf("CascadeFrom: invalid month %d/%d", month, year)
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.cascadeLocked(ctx, userID, ref, force); err != nil {
		return fmt.Errorf("CascadeFrom: %w", err)
	}

	if e.cache != nil {
		e.cache.InvalidateUser(userID)
	}
	return nil
}

// EnsureContinuity repairs a month whose stored opening balance drifted
// from the previous month's closing (months created out of order). A
// manually-edited month is left alone. On repair the cascade re-runs
// from the repaired month.
func (e *Engine) EnsureContinuity(ctx context.Context, userID string, month, year int) error {
	ref := domain.MonthRef{Month: month, Year: year}
	if !ref.Valid() {
		return fmt.Errorf("EnsureContinuity: invalid month %d/%d", month, year)
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	budget, err := e.store.GetBudget(ctx, userID, ref.Month, ref.Year)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // nothing stored, nothing to repair
		}
		return fmt.Errorf("EnsureContinuity: read budget: %w", err)
	}
	if budget.OpeningBalanceManuallyEdited {
		return nil
	}

	prev, err := e.reconcileLocked(ctx, userID, ref.Prev(), false)
	if err != nil {
		return fmt.Errorf("EnsureContinuity: reconcile previous month: %w", err)
	}

	if math.Abs(budget.OpeningBalance-prev.Closing) <= Epsilon {
		return nil
	}

	e.log.Info().
		Str("user_id", userID).
		Stringer("month", ref).
		Float64("stored_opening", budget.OpeningBalance).
		Float64("previous_closing", prev.Closing).
		Msg("Repairing opening balance drift")

	budget.OpeningBalance = prev.Closing
	if err := e.store.UpsertBudget(ctx, budget); err != nil {
		return fmt.Errorf("EnsureContinuity: write budget: %w", err)
	}

	if err := e.cascadeLocked(ctx, userID, ref, false); err != nil {
		return fmt.Errorf("EnsureContinuity: cascade: %w", err)
	}

	if e.cache != nil {
		e.cache.InvalidateUser(userID)
	}
	return nil
}

// SetOpeningBalance records a manual opening-balance edit and cascades
// the change into later months. The edited month itself becomes a
// cascade boundary for future automatic recomputation.
func (e *Engine) SetOpeningBalance(ctx context.Context, userID string, month, year int, value float64) error {
	ref := domain.MonthRef{Month: month, Year: year}
	if !ref.Valid() {
		return fmt.Errorf("SetOpeningBalance: invalid month %d/%d", month, year)
	}
	if !domain.IsFinite(value) {
		return fmt.Errorf("SetOpeningBalance: value is not finite")
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	budget, err := e.store.GetBudget(ctx, userID, ref.Month, ref.Year)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("SetOpeningBalance: read budget: %w", err)
		}
		budget = &domain.MonthlyBudget{UserID: userID, Month: ref.Month, Year: ref.Year}
	}

	budget.OpeningBalance = value
	budget.OpeningBalanceManuallyEdited = true
	if err := e.store.UpsertBudget(ctx, budget); err != nil {
		return fmt.Errorf("SetOpeningBalance: write budget: %w", err)
	}

	if err := e.cascadeLocked(ctx, userID, ref, false); err != nil {
		return fmt.Errorf("SetOpeningBalance: cascade: %w", err)
	}

	if e.cache != nil {
		e.cache.InvalidateUser(userID)
	}
	return nil
}

// reconcileLocked computes one month's balance. Callers hold the user
// lock. When persist is set, a lazily-created budget row is written back.
func (e *Engine) reconcileLocked(ctx context.Context, userID string, ref domain.MonthRef, persist bool) (domain.BalanceResult, error) {
	opening, stored, err := e.openingBalance(ctx, userID, ref)
	if err != nil {
		return domain.BalanceResult{}, err
	}

	income, expenses, err := e.sumMonth(ctx, userID, ref)
	if err != nil {
		return domain.BalanceResult{}, err
	}

	result := domain.BalanceResult{
		Opening:  opening,
		Income:   income,
		Expenses: expenses,
		Closing:  opening + income - expenses,
	}

	if persist && !stored {
		budget := &domain.MonthlyBudget{
			UserID:         userID,
			Month:          ref.Month,
			Year:           ref.Year,
			OpeningBalance: opening,
		}
		if err := e.store.UpsertBudget(ctx, budget); err != nil {
			return domain.BalanceResult{}, fmt.Errorf("persist lazy budget: %w", err)
		}
	}

	return result, nil
}

// openingBalance resolves a month's opening balance. A stored row wins;
// otherwise the opening is the previous month's closing, computed by an
// iterative forward sweep from the nearest earlier anchor (stored budget
// row or the earliest month with data). stored reports whether a budget
// row existed for ref.
func (e *Engine) openingBalance(ctx context.Context, userID string, ref domain.MonthRef) (opening float64, stored bool, err error) {
	budget, err := e.store.GetBudget(ctx, userID, ref.Month, ref.Year)
	if err == nil {
		return budget.OpeningBalance, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, false, fmt.Errorf("read budget %s: %w", ref, err)
	}

	anchor, anchorOpening, err := e.findAnchor(ctx, userID, ref)
	if err != nil {
		return 0, false, err
	}
	if !anchor.Before(ref) {
		// No earlier data at all: the ledger starts here at zero,
		// unless the anchor row is ref itself (handled above).
		return anchorOpening, false, nil
	}

	// Forward sweep: closing of each month feeds the next opening.
	// Stored rows along the way override the running balance, which
	// keeps manually-edited months authoritative.
	running := anchorOpening
	for m := anchor; m.Before(ref); m = m.Next() {
		if b, err := e.store.GetBudget(ctx, userID, m.Month, m.Year); err == nil {
			running = b.OpeningBalance
		} else if !errors.Is(err, store.ErrNotFound) {
			return 0, false, fmt.Errorf("read budget %s: %w", m, err)
		}
		income, expenses, err := e.sumMonth(ctx, userID, m)
		if err != nil {
			return 0, false, err
		}
		running = running + income - expenses
	}
	return running, false, nil
}

// findAnchor locates the sweep start: the latest stored budget row at or
// before ref, else the earliest month with any data (opening zero).
func (e *Engine) findAnchor(ctx context.Context, userID string, ref domain.MonthRef) (domain.MonthRef, float64, error) {
	budgets, err := e.store.ListBudgets(ctx, userID)
	if err != nil {
		return domain.MonthRef{}, 0, fmt.Errorf("list budgets: %w", err)
	}

	var anchor domain.MonthRef
	var opening float64
	found := false
	for i := range budgets {
		b := budgets[i]
		r := b.Ref()
		if r.After(ref) {
			continue
		}
		if !found || r.After(anchor) {
			anchor = r
			opening = b.OpeningBalance
			found = true
		}
	}
	if found {
		return anchor, opening, nil
	}

	// No stored budgets: anchor on the earliest transaction month so the
	// sweep picks up all history, with a zero opening.
	start, _ := ref.AddMonths(-cascadeHorizonMonths * 10).Bounds()
	_, end := ref.Bounds()
	txs, err := e.store.ListTransactionsByDateRange(ctx, userID, start, end)
	if err != nil {
		return domain.MonthRef{}, 0, fmt.Errorf("list transactions: %w", err)
	}
	if len(txs) == 0 {
		return ref, 0, nil
	}
	return domain.MonthRefOf(txs[0].Date), 0, nil
}

// sumMonth totals classified income and expenses for the month,
// excluding the synthetic opening-balance category. Records with fatal
// validation issues are skipped with a warning; zero-value entries are
// annotated but still counted.
func (e *Engine) sumMonth(ctx context.Context, userID string, ref domain.MonthRef) (income, expenses float64, err error) {
	start, end := ref.Bounds()
	txs, err := e.store.ListTransactionsByDateRange(ctx, userID, start, end)
	if err != nil {
		return 0, 0, fmt.Errorf("list transactions %s: %w", ref, err)
	}

	cls, err := e.userClassifier(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	for i := range txs {
		tx := &txs[i]
		if tx.Category == domain.CategoryOpeningBalance {
			continue
		}

		issues := domain.ValidateTransaction(tx)
		if domain.HasFatal(issues) {
			e.log.Warn().Str("user_id", userID).Str("transaction_id", tx.ID).Interface("issues", issues).Msg("Skipping invalid transaction")
			continue
		}

		c := cls.Classify(tx)
		if c.LowConfidence {
			e.log.Debug().Str("transaction_id", tx.ID).Msg("Low-confidence classification, using amount-sign fallback")
		}

		amount := math.Abs(tx.Amount)
		if c.Direction == domain.DirectionIncome {
			income += amount
		} else {
			expenses += amount
		}
	}
	return income, expenses, nil
}

// cascadeLocked walks strictly-later months in chronological order,
// feeding each closing into the next opening. A manually-edited month is
// a boundary: without force its stored opening is kept and the running
// balance continues from its own closing, so the cascade tolerates gaps
// instead of stopping.
func (e *Engine) cascadeLocked(ctx context.Context, userID string, from domain.MonthRef, force bool) error {
	end, err := e.cascadeEnd(ctx, userID)
	if err != nil {
		return err
	}
	if end.Before(from) {
		end = from.AddMonths(cascadeHorizonMonths)
	}

	current, err := e.reconcileLocked(ctx, userID, from, true)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", from, err)
	}
	running := current.Closing

	for m := from.Next(); !m.After(end); m = m.Next() {
		budget, err := e.store.GetBudget(ctx, userID, m.Month, m.Year)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("read budget %s: %w", m, err)
			}
			budget = &domain.MonthlyBudget{UserID: userID, Month: m.Month, Year: m.Year}
		}

		if budget.OpeningBalanceManuallyEdited && !force {
			// Expected control flow, not an error: respect the manual
			// edit and resume the cascade from its value.
			e.log.Debug().Str("user_id", userID).Stringer("month", m).Msg("Cascade skipping manually-edited month")
		} else {
			budget.OpeningBalance = running
			if force {
				budget.OpeningBalanceManuallyEdited = false
			}
			if err := e.store.UpsertBudget(ctx, budget); err != nil {
				return fmt.Errorf("write budget %s: %w", m, err)
			}
		}

		income, expenses, err := e.sumMonth(ctx, userID, m)
		if err != nil {
			return err
		}
		running = budget.OpeningBalance + income - expenses
	}
	return nil
}

// cascadeEnd returns the last month a cascade needs to visit: the latest
// stored budget row, extended by the forecast horizon from today.
func (e *Engine) cascadeEnd(ctx context.Context, userID string) (domain.MonthRef, error) {
	end := domain.MonthRefOf(e.clock.Now()).AddMonths(cascadeHorizonMonths)

	budgets, err := e.store.ListBudgets(ctx, userID)
	if err != nil {
		return domain.MonthRef{}, fmt.Errorf("list budgets: %w", err)
	}
	for i := range budgets {
		if r := budgets[i].Ref(); r.After(end) {
			end = r
		}
	}
	return end, nil
}

// userClassifier builds a classifier from the user's credit cards.
func (e *Engine) userClassifier(ctx context.Context, userID string) (*classifier.Classifier, error) {
	commitments, err := e.store.ListCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}

	var cards []domain.CreditCardView
	for i := range commitments {
		c := commitments[i]
		if c.Kind != domain.KindCreditCard {
			continue
		}
		view, err := c.AsCreditCard()
		if err != nil {
			continue
		}
		cards = append(cards, view)
	}
	return classifier.New(cards), nil
}
