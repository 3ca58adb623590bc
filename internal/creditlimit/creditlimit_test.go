package creditlimit

import (
	"testing"
	"time"

	"github.com/dsilveira/finledger/internal/classifier"
	"github.com/dsilveira/finledger/internal/domain"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func card() domain.CreditCardView {
	return domain.CreditCardView{
		ID:               "card-1",
		Nickname:         "Main Card",
		LastDigits:       "4242",
		TotalLimit:       1000,
		OpeningAvailable: 1000,
		HasOpening:       true,
	}
}

func TestComputeLimit_PurchaseAndPayment(t *testing.T) {
	c := card()
	cls := classifier.New([]domain.CreditCardView{c})

	txs := []domain.Transaction{
		{
			MovementType:   domain.DirectionExpense,
			CardLastDigits: "4242",
			Title:          "store purchase",
			Amount:         300,
			Date:           time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			MovementType:   domain.DirectionIncome,
			CardLastDigits: "4242",
			Title:          "invoice payment",
			Amount:         100,
			Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	snap := ComputeLimit(c, cls, txs, now)

	if snap.CurrentAvailable != 800 {
		t.Errorf("currentAvailable = %v, want 800", snap.CurrentAvailable)
	}
	if snap.Used != 200 {
		t.Errorf("used = %v, want 200", snap.Used)
	}
	if snap.PurchasesThisMonth != 300 {
		t.Errorf("purchasesThisMonth = %v, want 300", snap.PurchasesThisMonth)
	}
	if snap.PaymentsThisMonth != 100 {
		t.Errorf("paymentsThisMonth = %v, want 100", snap.PaymentsThisMonth)
	}
	if snap.PercentUsed != 20 {
		t.Errorf("percentUsed = %v, want 20", snap.PercentUsed)
	}
}

func TestComputeLimit_IgnoresOtherMonthsAndCards(t *testing.T) {
	c := card()
	cls := classifier.New([]domain.CreditCardView{c})

	txs := []domain.Transaction{
		// Previous month: outside the current window split.
		{MovementType: domain.DirectionExpense, CardLastDigits: "4242", Title: "purchase", Amount: 500, Date: time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		// Other card.
		{MovementType: domain.DirectionExpense, CardLastDigits: "9999", Title: "purchase", Amount: 500, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		// Card-agnostic.
		{MovementType: domain.DirectionExpense, Title: "groceries", Amount: 50, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	snap := ComputeLimit(c, cls, txs, now)
	if snap.PurchasesThisMonth != 0 {
		t.Errorf("purchasesThisMonth = %v, want 0", snap.PurchasesThisMonth)
	}
	if snap.CurrentAvailable != 1000 {
		t.Errorf("currentAvailable = %v, want 1000", snap.CurrentAvailable)
	}
}

func TestComputeLimit_OverLimitSurfaced(t *testing.T) {
	c := card()
	cls := classifier.New([]domain.CreditCardView{c})

	txs := []domain.Transaction{
		{MovementType: domain.DirectionExpense, CardLastDigits: "4242", Title: "purchase", Amount: 1200, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	snap := ComputeLimit(c, cls, txs, now)
	if snap.CurrentAvailable != -200 {
		t.Errorf("currentAvailable = %v, want -200 (over-limit must not be clamped)", snap.CurrentAvailable)
	}
	// used = totalLimit - currentAvailable, and must stay >= 0.
	if snap.Used != 1200 {
		t.Errorf("used = %v, want 1200", snap.Used)
	}
	if snap.Used < 0 {
		t.Errorf("used = %v, must never be negative", snap.Used)
	}
}

func TestComputeLimit_MissingOpeningDefaultsToTotal(t *testing.T) {
	c := card()
	c.HasOpening = false
	c.OpeningAvailable = 0
	cls := classifier.New([]domain.CreditCardView{c})

	snap := ComputeLimit(c, cls, nil, now)
	if snap.OpeningAvailable != c.TotalLimit {
		t.Errorf("openingAvailable = %v, want totalLimit %v", snap.OpeningAvailable, c.TotalLimit)
	}
}

func TestComputeLimit_PaymentsCannotExceedTotalLimit(t *testing.T) {
	c := card()
	cls := classifier.New([]domain.CreditCardView{c})

	txs := []domain.Transaction{
		{MovementType: domain.DirectionIncome, CardLastDigits: "4242", Title: "invoice payment", Amount: 600, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	snap := ComputeLimit(c, cls, txs, now)
	if snap.CurrentAvailable != 1000 {
		t.Errorf("currentAvailable = %v, want clamp to totalLimit 1000", snap.CurrentAvailable)
	}
	if snap.Used != 0 {
		t.Errorf("used = %v, want 0", snap.Used)
	}
}
