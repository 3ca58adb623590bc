package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/cache"
	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store/memory"
)

const userID = "user-1"

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestEngine(st *memory.Store) *Engine {
	return New(st, nil, clock.Fixed{T: testNow}, zerolog.Nop())
}

func tx(date time.Time, amount float64, movement domain.Direction, title string) domain.Transaction {
	return domain.Transaction{
		ID:           title,
		UserID:       userID,
		Date:         date,
		Amount:       amount,
		MovementType: movement,
		Title:        title,
	}
}

func seedJanuary(st *memory.Store) {
	// Opening balance Jan = 1000; income Jan = 3000; expenses Jan = 2500.
	st.UpsertBudget(context.Background(), &domain.MonthlyBudget{
		UserID: userID, Month: 1, Year: 2025, OpeningBalance: 1000,
	})
	st.AddTransactions(
		tx(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), 3000, domain.DirectionIncome, "salary-jan"),
		tx(time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), 2500, domain.DirectionExpense, "rent-jan"),
	)
}

func TestReconcileMonth_BasicTotalsAndCarryover(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	e := newTestEngine(st)

	jan := e.ReconcileMonth(context.Background(), userID, 1, 2025)
	if jan.Unknown {
		t.Fatal("january reconciliation returned unknown")
	}
	if jan.Opening != 1000 || jan.Income != 3000 || jan.Expenses != 2500 || jan.Closing != 1500 {
		t.Errorf("january = %+v, want {1000 3000 2500 1500}", jan)
	}

	// February has no stored row: its opening must equal January's closing.
	feb := e.ReconcileMonth(context.Background(), userID, 2, 2025)
	if feb.Opening != 1500 {
		t.Errorf("february opening = %v, want 1500", feb.Opening)
	}
}

func TestReconcileMonth_ExcludesOpeningBalanceCategory(t *testing.T) {
	st := memory.New()
	st.UpsertBudget(context.Background(), &domain.MonthlyBudget{
		UserID: userID, Month: 1, Year: 2025, OpeningBalance: 500,
	})
	seeded := tx(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 500, domain.DirectionIncome, "seed")
	seeded.Category = domain.CategoryOpeningBalance
	st.AddTransactions(seeded)

	e := newTestEngine(st)
	got := e.ReconcileMonth(context.Background(), userID, 1, 2025)
	if got.Income != 0 {
		t.Errorf("income = %v, want 0 (opening-balance category must not double count)", got.Income)
	}
	if got.Closing != 500 {
		t.Errorf("closing = %v, want 500", got.Closing)
	}
}

func TestReconcileMonth_SkipsNonFiniteAmounts(t *testing.T) {
	st := memory.New()
	bad := tx(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), 0, domain.DirectionIncome, "bad")
	bad.Amount = nan()
	st.AddTransactions(
		bad,
		tx(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), 100, domain.DirectionIncome, "good"),
	)

	e := newTestEngine(st)
	got := e.ReconcileMonth(context.Background(), userID, 1, 2025)
	if got.Unknown {
		t.Fatal("validation problems must not abort reconciliation")
	}
	if got.Income != 100 {
		t.Errorf("income = %v, want 100 (NaN row skipped)", got.Income)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestCascadeFrom_Continuity(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	// Stale later months.
	st.UpsertBudget(context.Background(), &domain.MonthlyBudget{UserID: userID, Month: 2, Year: 2025, OpeningBalance: -99})
	st.UpsertBudget(context.Background(), &domain.MonthlyBudget{UserID: userID, Month: 3, Year: 2025, OpeningBalance: -99})
	st.AddTransactions(
		tx(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 200, domain.DirectionExpense, "feb-expense"),
	)

	e := newTestEngine(st)
	if err := e.CascadeFrom(context.Background(), userID, 1, 2025, false); err != nil {
		t.Fatalf("CascadeFrom: %v", err)
	}

	ctx := context.Background()
	feb, err := st.GetBudget(ctx, userID, 2, 2025)
	if err != nil {
		t.Fatalf("GetBudget feb: %v", err)
	}
	if feb.OpeningBalance != 1500 {
		t.Errorf("feb opening = %v, want 1500", feb.OpeningBalance)
	}

	mar, err := st.GetBudget(ctx, userID, 3, 2025)
	if err != nil {
		t.Fatalf("GetBudget mar: %v", err)
	}
	if mar.OpeningBalance != 1300 {
		t.Errorf("mar opening = %v, want 1300 (1500 - 200)", mar.OpeningBalance)
	}
}

func TestCascadeFrom_Idempotent(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	st.AddTransactions(
		tx(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 200, domain.DirectionExpense, "feb-expense"),
	)

	e := newTestEngine(st)
	ctx := context.Background()

	if err := e.CascadeFrom(ctx, userID, 1, 2025, false); err != nil {
		t.Fatalf("first cascade: %v", err)
	}
	first, err := st.ListBudgets(ctx, userID)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}

	if err := e.CascadeFrom(ctx, userID, 1, 2025, false); err != nil {
		t.Fatalf("second cascade: %v", err)
	}
	second, err := st.ListBudgets(ctx, userID)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("budget count changed between cascades: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("budget %d changed on idempotent re-run: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCascadeFrom_ManualEditBoundaryToleratesGaps(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	ctx := context.Background()

	// February manually pinned to 9000; March automatic.
	st.UpsertBudget(ctx, &domain.MonthlyBudget{
		UserID: userID, Month: 2, Year: 2025,
		OpeningBalance: 9000, OpeningBalanceManuallyEdited: true,
	})
	st.UpsertBudget(ctx, &domain.MonthlyBudget{UserID: userID, Month: 3, Year: 2025, OpeningBalance: -1})
	st.AddTransactions(
		tx(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 500, domain.DirectionExpense, "feb-expense"),
	)

	e := newTestEngine(st)
	if err := e.CascadeFrom(ctx, userID, 1, 2025, false); err != nil {
		t.Fatalf("CascadeFrom: %v", err)
	}

	feb, _ := st.GetBudget(ctx, userID, 2, 2025)
	if feb.OpeningBalance != 9000 {
		t.Errorf("manually-edited feb opening = %v, want untouched 9000", feb.OpeningBalance)
	}

	// The cascade must resume past the boundary: march opening feeds off
	// february's own closing (9000 - 500), not stop entirely.
	mar, _ := st.GetBudget(ctx, userID, 3, 2025)
	if mar.OpeningBalance != 8500 {
		t.Errorf("mar opening = %v, want 8500", mar.OpeningBalance)
	}
}

func TestCascadeFrom_ForceOverwritesManualEdit(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	ctx := context.Background()

	st.UpsertBudget(ctx, &domain.MonthlyBudget{
		UserID: userID, Month: 2, Year: 2025,
		OpeningBalance: 9000, OpeningBalanceManuallyEdited: true,
	})

	e := newTestEngine(st)
	if err := e.CascadeFrom(ctx, userID, 1, 2025, true); err != nil {
		t.Fatalf("CascadeFrom force: %v", err)
	}

	feb, _ := st.GetBudget(ctx, userID, 2, 2025)
	if feb.OpeningBalance != 1500 {
		t.Errorf("forced feb opening = %v, want 1500", feb.OpeningBalance)
	}
	if feb.OpeningBalanceManuallyEdited {
		t.Error("force recompute must clear the manual-edit flag")
	}
}

func TestEnsureContinuity_RepairsDrift(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	ctx := context.Background()

	// February created out of order with a drifted opening.
	st.UpsertBudget(ctx, &domain.MonthlyBudget{UserID: userID, Month: 2, Year: 2025, OpeningBalance: 1234})

	e := newTestEngine(st)
	if err := e.EnsureContinuity(ctx, userID, 2, 2025); err != nil {
		t.Fatalf("EnsureContinuity: %v", err)
	}

	feb, _ := st.GetBudget(ctx, userID, 2, 2025)
	if feb.OpeningBalance != 1500 {
		t.Errorf("repaired feb opening = %v, want 1500", feb.OpeningBalance)
	}
}

func TestEnsureContinuity_WithinEpsilonLeftAlone(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	ctx := context.Background()

	st.UpsertBudget(ctx, &domain.MonthlyBudget{UserID: userID, Month: 2, Year: 2025, OpeningBalance: 1500.005})

	e := newTestEngine(st)
	if err := e.EnsureContinuity(ctx, userID, 2, 2025); err != nil {
		t.Fatalf("EnsureContinuity: %v", err)
	}

	feb, _ := st.GetBudget(ctx, userID, 2, 2025)
	if feb.OpeningBalance != 1500.005 {
		t.Errorf("sub-epsilon drift was rewritten: %v", feb.OpeningBalance)
	}
}

func TestEnsureContinuity_RespectsManualEdit(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	ctx := context.Background()

	st.UpsertBudget(ctx, &domain.MonthlyBudget{
		UserID: userID, Month: 2, Year: 2025,
		OpeningBalance: 777, OpeningBalanceManuallyEdited: true,
	})

	e := newTestEngine(st)
	if err := e.EnsureContinuity(ctx, userID, 2, 2025); err != nil {
		t.Fatalf("EnsureContinuity: %v", err)
	}

	feb, _ := st.GetBudget(ctx, userID, 2, 2025)
	if feb.OpeningBalance != 777 {
		t.Errorf("manually-edited month was repaired: %v", feb.OpeningBalance)
	}
}

func TestSetOpeningBalance_MarksEditedAndCascades(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	ctx := context.Background()
	st.UpsertBudget(ctx, &domain.MonthlyBudget{UserID: userID, Month: 2, Year: 2025, OpeningBalance: 0})

	e := newTestEngine(st)
	if err := e.SetOpeningBalance(ctx, userID, 1, 2025, 2000); err != nil {
		t.Fatalf("SetOpeningBalance: %v", err)
	}

	jan, _ := st.GetBudget(ctx, userID, 1, 2025)
	if jan.OpeningBalance != 2000 || !jan.OpeningBalanceManuallyEdited {
		t.Errorf("jan = %+v, want opening 2000 manually edited", jan)
	}

	feb, _ := st.GetBudget(ctx, userID, 2, 2025)
	if feb.OpeningBalance != 2500 {
		t.Errorf("feb opening = %v, want 2500 (2000 + 3000 - 2500)", feb.OpeningBalance)
	}
}

// failingStore wraps the in-memory store and fails every read.
type failingStore struct {
	*memory.Store
}

func (f *failingStore) GetBudget(ctx context.Context, userID string, month, year int) (*domain.MonthlyBudget, error) {
	return nil, errors.New("connection reset")
}

func TestReconcileMonth_StoreFailureReturnsUnknown(t *testing.T) {
	st := &failingStore{memory.New()}
	e := New(st, nil, clock.Fixed{T: testNow}, zerolog.Nop())

	got := e.ReconcileMonth(context.Background(), userID, 1, 2025)
	if !got.Unknown {
		t.Error("store failure must surface as Unknown, not as a zero balance")
	}
	if got.Opening != 0 || got.Closing != 0 {
		t.Errorf("fallback must be zeroed, got %+v", got)
	}
}

func TestReconcileMonth_CachedResultReused(t *testing.T) {
	st := memory.New()
	seedJanuary(st)
	c := cache.New(time.Minute)
	e := New(st, c, clock.Fixed{T: testNow}, zerolog.Nop())
	ctx := context.Background()

	first := e.ReconcileMonth(ctx, userID, 1, 2025)

	// Mutate underlying data without invalidation: the cached value must
	// still be served inside the TTL.
	st.AddTransactions(tx(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), 50, domain.DirectionIncome, "late"))
	second := e.ReconcileMonth(ctx, userID, 1, 2025)
	if first != second {
		t.Errorf("cached result changed: %+v vs %+v", first, second)
	}

	// Invalidation must expose the fresh data.
	c.InvalidateUser(userID)
	third := e.ReconcileMonth(ctx, userID, 1, 2025)
	if third.Income != 3050 {
		t.Errorf("post-invalidation income = %v, want 3050", third.Income)
	}
}
