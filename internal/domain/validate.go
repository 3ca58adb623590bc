package domain

import (
	"math"
)

// ValidationIssue describes one problem found in a record. Fatal issues
// mean the offending field could not be used; non-fatal issues annotate
// suspicious but usable data. Validation never aborts a computation;
// callers substitute safe values and carry on.
type ValidationIssue struct {
	Field   string
	Message string
	Fatal   bool
}

// ValidateTransaction checks a transaction for data inconsistencies.
// A nil result means the record is clean.
func ValidateTransaction(tx *Transaction) []ValidationIssue {
	var issues []ValidationIssue

	if !IsFinite(tx.Amount) {
		issues = append(issues, ValidationIssue{
			Field:   "amount",
			Message: "amount is not a finite number",
			Fatal:   true,
		})
	} else if tx.Amount == 0 {
		issues = append(issues, ValidationIssue{
			Field:   "amount",
			Message: "zero-value transaction",
		})
	}

	if tx.Date.IsZero() {
		issues = append(issues, ValidationIssue{
			Field:   "date",
			Message: "missing or unparseable date",
			Fatal:   true,
		})
	}

	if tx.UserID == "" {
		issues = append(issues, ValidationIssue{
			Field:   "user_id",
			Message: "transaction has no user",
			Fatal:   true,
		})
	}

	return issues
}

// HasFatal reports whether any issue in the list is fatal.
func HasFatal(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Fatal {
			return true
		}
	}
	return false
}

// IsFinite reports whether f is a usable amount (not NaN, not ±Inf).
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SafeAmount returns f when finite, 0 otherwise.
func SafeAmount(f float64) float64 {
	if IsFinite(f) {
		return f
	}
	return 0
}
