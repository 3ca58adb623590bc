package domain

import (
	"fmt"
	"time"
)

// CommitmentKind discriminates the commitment tagged union.
type CommitmentKind string

const (
	KindCreditCard      CommitmentKind = "credit_card"
	KindFixedExpense    CommitmentKind = "fixed_expense"
	KindInstallmentLoan CommitmentKind = "installment_loan"
	KindIncomeSource    CommitmentKind = "income_source"
)

// PaymentStatus is the resolved status of a commitment for one period.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPaid      PaymentStatus = "paid"
	StatusReceived  PaymentStatus = "received"
	StatusOverdue   PaymentStatus = "overdue"
	StatusCancelled PaymentStatus = "cancelled"
)

// Commitment is the generic row shape shared by all commitment kinds.
// Kind-specific payloads live in KindData; use the view functions below
// instead of duck-typing on optional fields.
type Commitment struct {
	ID     string
	UserID string
	Kind   CommitmentKind
	Name   string
	Active bool

	// PrincipalValue is the total limit for cards, the monthly value for
	// fixed expenses and income sources, and the financed total for loans.
	PrincipalValue float64

	DueDate           time.Time
	TotalInstallments int
	InstallmentsPaid  int

	KindData map[string]any

	// Manual period-scoped status override. All three fields are set
	// together and cleared together; zero values mean no override.
	ManualStatus      PaymentStatus
	ManualStatusMonth int
	ManualStatusYear  int
}

// HasManualStatus reports whether a manual override is set for the
// given period.
func (c *Commitment) HasManualStatus(month, year int) bool {
	return c.ManualStatus != "" && c.ManualStatusMonth == month && c.ManualStatusYear == year
}

// InstallmentValue is the per-month charge of the commitment. Only
// installment loans split their principal; for every other kind the
// principal already is the monthly value.
func (c *Commitment) InstallmentValue() float64 {
	if c.Kind == KindInstallmentLoan && c.TotalInstallments > 1 {
		return c.PrincipalValue / float64(c.TotalInstallments)
	}
	return c.PrincipalValue
}

// FirstInstallmentMonth is the calendar month installment 1 falls in.
// Commitments created without an explicit start anchor on the due date.
func (c *Commitment) FirstInstallmentMonth() MonthRef {
	return MonthRefOf(c.DueDate)
}

// InstallmentIndex returns the 1-based installment index due in the given
// month, or 0 when the month is outside the commitment's installment
// range. A commitment with TotalInstallments <= 0 is open-ended: every
// month from the first one on carries a charge.
func (c *Commitment) InstallmentIndex(ref MonthRef) int {
	k := c.FirstInstallmentMonth().MonthsUntil(ref) + 1
	if k < 1 {
		return 0
	}
	if c.TotalInstallments > 0 && k > c.TotalInstallments {
		return 0
	}
	return k
}

// ActiveIn reports whether the commitment carries a charge in the given
// month: the installment index must be in range and not already paid.
func (c *Commitment) ActiveIn(ref MonthRef) bool {
	if !c.Active {
		return false
	}
	k := c.InstallmentIndex(ref)
	return k > 0 && k > c.InstallmentsPaid
}

// IsIncome reports whether the commitment represents money coming in.
func (c *Commitment) IsIncome() bool {
	return c.Kind == KindIncomeSource
}

// CreditCardView is the credit-card specialization of a commitment.
type CreditCardView struct {
	ID               string
	UserID           string
	Name             string
	Active           bool
	TotalLimit       float64
	LastDigits       string
	Nickname         string
	ClosingDay       int
	DueDay           int
	OpeningAvailable float64
	HasOpening       bool
}

// FixedExpenseView is the fixed-expense specialization of a commitment.
type FixedExpenseView struct {
	ID           string
	UserID       string
	Name         string
	Active       bool
	MonthlyValue float64
	DueDate      time.Time
}

// InstallmentLoanView is the installment-loan specialization.
type InstallmentLoanView struct {
	ID                string
	UserID            string
	Name              string
	Active            bool
	TotalValue        float64
	InstallmentValue  float64
	TotalInstallments int
	InstallmentsPaid  int
	FirstInstallment  MonthRef
}

// AsCreditCard maps the generic row to its credit-card view.
func (c *Commitment) AsCreditCard() (CreditCardView, error) {
	if c.Kind != KindCreditCard {
		return CreditCardView{}, fmt.Errorf("AsCreditCard: commitment %s has kind %q", c.ID, c.Kind)
	}
	v := CreditCardView{
		ID:         c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
		Active:     c.Active,
		TotalLimit: c.PrincipalValue,
		LastDigits: kindString(c.KindData, "last_digits"),
		Nickname:   kindString(c.KindData, "nickname"),
		ClosingDay: kindInt(c.KindData, "closing_day"),
		DueDay:     kindInt(c.KindData, "due_day"),
	}
	if v.Nickname == "" {
		v.Nickname = c.Name
	}
	if raw, ok := kindFloat(c.KindData, "opening_available"); ok {
		v.OpeningAvailable = raw
		v.HasOpening = true
	}
	return v, nil
}

// AsFixedExpense maps the generic row to its fixed-expense view.
func (c *Commitment) AsFixedExpense() (FixedExpenseView, error) {
	if c.Kind != KindFixedExpense {
		return FixedExpenseView{}, fmt.Errorf("AsFixedExpense: commitment %s has kind %q", c.ID, c.Kind)
	}
	return FixedExpenseView{
		ID:           c.ID,
		UserID:       c.UserID,
		Name:         c.Name,
		Active:       c.Active,
		MonthlyValue: c.PrincipalValue,
		DueDate:      c.DueDate,
	}, nil
}

// AsInstallmentLoan maps the generic row to its installment-loan view.
func (c *Commitment) AsInstallmentLoan() (InstallmentLoanView, error) {
	if c.Kind != KindInstallmentLoan {
		return InstallmentLoanView{}, fmt.Errorf("AsInstallmentLoan: commitment %s has kind %q", c.ID, c.Kind)
	}
	return InstallmentLoanView{
		ID:                c.ID,
		UserID:            c.UserID,
		Name:              c.Name,
		Active:            c.Active,
		TotalValue:        c.PrincipalValue,
		InstallmentValue:  c.InstallmentValue(),
		TotalInstallments: c.TotalInstallments,
		InstallmentsPaid:  c.InstallmentsPaid,
		FirstInstallment:  c.FirstInstallmentMonth(),
	}, nil
}

func kindString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func kindInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64: // encoding/json decodes numbers as float64
		return int(v)
	}
	return 0
}

func kindFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
