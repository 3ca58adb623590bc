package classifier

import (
	"strings"

	"github.com/dsilveira/finledger/internal/domain"
)

// Rule is one declarative text-pattern rule. Pattern is a lowercase
// substring; the first rule whose pattern appears in the normalized
// transaction text decides the verdict.
type Rule struct {
	Pattern string
	Verdict domain.Direction
}

// directionRules is the ordered rule table for direction classification.
// Income-indicating terms come first so "payment received" wins over the
// bare "payment" expense rule below it.
var directionRules = []Rule{
	{Pattern: "payment received", Verdict: domain.DirectionIncome},
	{Pattern: "salary", Verdict: domain.DirectionIncome},
	{Pattern: "payroll", Verdict: domain.DirectionIncome},
	{Pattern: "deposit", Verdict: domain.DirectionIncome},
	{Pattern: "refund", Verdict: domain.DirectionIncome},
	{Pattern: "cashback", Verdict: domain.DirectionIncome},
	{Pattern: "transfer received", Verdict: domain.DirectionIncome},
	{Pattern: "interest earned", Verdict: domain.DirectionIncome},
	{Pattern: "dividend", Verdict: domain.DirectionIncome},

	{Pattern: "purchase", Verdict: domain.DirectionExpense},
	{Pattern: "bill", Verdict: domain.DirectionExpense},
	{Pattern: "rent", Verdict: domain.DirectionExpense},
	{Pattern: "installment", Verdict: domain.DirectionExpense},
	{Pattern: "subscription", Verdict: domain.DirectionExpense},
	{Pattern: "withdrawal", Verdict: domain.DirectionExpense},
	{Pattern: "debit", Verdict: domain.DirectionExpense},
	{Pattern: "fee", Verdict: domain.DirectionExpense},
	{Pattern: "payment sent", Verdict: domain.DirectionExpense},
}

// invoiceVocabulary are the fixed tokens that mark an income-direction
// transaction as a credit-card invoice payment. Card nicknames and masked
// suffixes are checked separately against the user's known cards.
var invoiceVocabulary = []string{
	"invoice",
	"card payment",
	"auto-debit",
	"autopay",
	"statement payment",
}

// matchRules evaluates an ordered rule table against normalized text.
// First match wins; ok is false when no pattern applies.
func matchRules(text string, rules []Rule) (verdict domain.Direction, ok bool) {
	for _, r := range rules {
		if strings.Contains(text, r.Pattern) {
			return r.Verdict, true
		}
	}
	return "", false
}

// normalize lowercases and joins the free-text fields of a transaction
// into the single string the rule tables run against.
func normalize(tx *domain.Transaction) string {
	parts := []string{tx.Category, tx.Counterpart, tx.Title, tx.Establishment, tx.Note}
	return strings.ToLower(strings.Join(parts, " "))
}
