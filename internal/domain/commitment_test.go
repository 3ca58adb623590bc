package domain

import (
	"testing"
	"time"
)

func loan(total float64, installments, paid int, firstDue time.Time) Commitment {
	return Commitment{
		ID:                "loan-1",
		UserID:            "user-1",
		Kind:              KindInstallmentLoan,
		Name:              "Car loan",
		Active:            true,
		PrincipalValue:    total,
		DueDate:           firstDue,
		TotalInstallments: installments,
		InstallmentsPaid:  paid,
	}
}

func TestInstallmentValue(t *testing.T) {
	l := loan(2400, 12, 0, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if got := l.InstallmentValue(); got != 200 {
		t.Errorf("InstallmentValue = %.2f, want 200", got)
	}

	// Fixed expenses carry their monthly value untouched.
	fixed := Commitment{Kind: KindFixedExpense, PrincipalValue: 800}
	if got := fixed.InstallmentValue(); got != 800 {
		t.Errorf("fixed expense InstallmentValue = %.2f, want 800", got)
	}
}

func TestInstallmentIndex(t *testing.T) {
	l := loan(2400, 12, 0, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		ref  MonthRef
		want int
	}{
		{"first month", MonthRef{1, 2024}, 1},
		{"mid term", MonthRef{6, 2024}, 6},
		{"last month", MonthRef{12, 2024}, 12},
		{"before start", MonthRef{12, 2023}, 0},
		{"after end", MonthRef{1, 2025}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := l.InstallmentIndex(tc.ref); got != tc.want {
				t.Errorf("InstallmentIndex(%v) = %d, want %d", tc.ref, got, tc.want)
			}
		})
	}
}

func TestInstallmentIndexOpenEnded(t *testing.T) {
	fixed := Commitment{
		Kind:           KindFixedExpense,
		PrincipalValue: 800,
		DueDate:        time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		Active:         true,
	}
	if got := fixed.InstallmentIndex(MonthRef{6, 2025}); got != 30 {
		t.Errorf("open-ended index = %d, want 30", got)
	}
	if !fixed.ActiveIn(MonthRef{6, 2025}) {
		t.Error("open-ended commitment should stay active")
	}
}

func TestActiveIn(t *testing.T) {
	l := loan(2400, 12, 11, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	// Only the final unpaid installment is still owed.
	if l.ActiveIn(MonthRef{11, 2024}) {
		t.Error("installment 11 is already paid")
	}
	if !l.ActiveIn(MonthRef{12, 2024}) {
		t.Error("installment 12 is still owed")
	}

	inactive := l
	inactive.Active = false
	if inactive.ActiveIn(MonthRef{12, 2024}) {
		t.Error("deactivated commitment must never be active")
	}
}

func TestAsCreditCard(t *testing.T) {
	c := Commitment{
		ID:             "card-1",
		UserID:         "user-1",
		Kind:           KindCreditCard,
		Name:           "Main Card",
		Active:         true,
		PrincipalValue: 1500,
		KindData: map[string]any{
			"last_digits":       "4242",
			"nickname":          "travel card",
			"closing_day":       float64(28), // JSON numbers decode as float64
			"opening_available": 900.0,
		},
	}

	view, err := c.AsCreditCard()
	if err != nil {
		t.Fatalf("AsCreditCard: %v", err)
	}
	if view.TotalLimit != 1500 || view.LastDigits != "4242" || view.Nickname != "travel card" {
		t.Errorf("view = %+v", view)
	}
	if view.ClosingDay != 28 {
		t.Errorf("ClosingDay = %d, want 28", view.ClosingDay)
	}
	if !view.HasOpening || view.OpeningAvailable != 900 {
		t.Errorf("opening = %.2f (has=%v), want 900", view.OpeningAvailable, view.HasOpening)
	}
}

func TestAsCreditCardNicknameFallsBackToName(t *testing.T) {
	c := Commitment{ID: "card-1", Kind: KindCreditCard, Name: "Main Card", PrincipalValue: 1500}
	view, err := c.AsCreditCard()
	if err != nil {
		t.Fatalf("AsCreditCard: %v", err)
	}
	if view.Nickname != "Main Card" {
		t.Errorf("Nickname = %q, want name fallback", view.Nickname)
	}
	if view.HasOpening {
		t.Error("HasOpening should be false without kind data")
	}
}

func TestViewMappersRejectWrongKind(t *testing.T) {
	c := Commitment{ID: "c1", Kind: KindIncomeSource}
	if _, err := c.AsCreditCard(); err == nil {
		t.Error("AsCreditCard should reject an income source")
	}
	if _, err := c.AsFixedExpense(); err == nil {
		t.Error("AsFixedExpense should reject an income source")
	}
	if _, err := c.AsInstallmentLoan(); err == nil {
		t.Error("AsInstallmentLoan should reject an income source")
	}
}

func TestHasManualStatus(t *testing.T) {
	c := Commitment{ManualStatus: StatusPaid, ManualStatusMonth: 3, ManualStatusYear: 2025}
	if !c.HasManualStatus(3, 2025) {
		t.Error("expected override for 3/2025")
	}
	if c.HasManualStatus(4, 2025) || c.HasManualStatus(3, 2024) {
		t.Error("override must match the exact period")
	}
	if (&Commitment{}).HasManualStatus(3, 2025) {
		t.Error("zero value has no override")
	}
}
