package domain

import (
	"time"
)

// Direction is the resolved money flow of a transaction.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// CategoryOpeningBalance is the synthetic category used to seed a month's
// opening balance as a transaction row. Reconciliation excludes it so the
// seeded balance is never double counted.
const CategoryOpeningBalance = "opening_balance"

// Transaction represents one raw transaction record for a user.
// The engine only reads transactions; they are created by user input or
// external ingestion and never mutated here.
type Transaction struct {
	ID     string
	UserID string

	Date   time.Time
	Amount float64

	// MovementType is an explicit income/expense marker from the source
	// system. Empty when the source did not provide one.
	MovementType Direction

	Category      string
	Title         string
	Counterpart   string
	Establishment string
	Note          string

	PaymentMethod  string
	CardLastDigits string
	CardNickname   string
}

// Classification is the output of classifying a single transaction.
type Classification struct {
	Direction        Direction
	IsInvoicePayment bool

	// MatchedCardID is empty when the transaction is card-agnostic.
	MatchedCardID string

	// LowConfidence marks a direction resolved by the amount-sign
	// fallback rather than an explicit marker or a keyword rule.
	LowConfidence bool
}
