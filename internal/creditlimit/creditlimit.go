// Package creditlimit computes the dynamically available limit of one
// credit card from its classified transaction history.
package creditlimit

import (
	"time"

	"github.com/dsilveira/finledger/internal/classifier"
	"github.com/dsilveira/finledger/internal/domain"
)

// ComputeLimit derives a CreditLimitSnapshot for the card from the given
// transaction window (normally the trailing 12 months). The split of
// purchases vs payments is restricted to the calendar month containing
// now. A negative current available is valid over-limit state and is
// surfaced, never clamped to zero.
func ComputeLimit(card domain.CreditCardView, cls *classifier.Classifier, txs []domain.Transaction, now time.Time) domain.CreditLimitSnapshot {
	month := domain.MonthRefOf(now)

	opening := card.TotalLimit
	if card.HasOpening {
		opening = card.OpeningAvailable
	}

	var purchases, payments float64
	for i := range txs {
		tx := &txs[i]
		c := cls.Classify(tx)
		if c.MatchedCardID != card.ID {
			continue
		}
		if !month.Contains(tx.Date) {
			continue
		}

		amount := domain.SafeAmount(tx.Amount)
		if amount < 0 {
			amount = -amount
		}

		switch {
		case c.IsInvoicePayment:
			payments += amount
		case c.Direction == domain.DirectionExpense:
			purchases += amount
		}
	}

	available := opening - purchases + payments
	if available > card.TotalLimit {
		available = card.TotalLimit
	}

	used := card.TotalLimit - available
	if used < 0 {
		used = 0
	}

	snapshot := domain.CreditLimitSnapshot{
		CardID:             card.ID,
		TotalLimit:         card.TotalLimit,
		OpeningAvailable:   opening,
		CurrentAvailable:   available,
		Used:               used,
		PurchasesThisMonth: purchases,
		PaymentsThisMonth:  payments,
	}
	if card.TotalLimit > 0 {
		snapshot.PercentUsed = used / card.TotalLimit * 100
	}
	return snapshot
}
