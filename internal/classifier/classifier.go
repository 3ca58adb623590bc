// Package classifier labels raw transactions: income vs expense, invoice
// payment vs purchase, and which of the user's credit cards a transaction
// belongs to. Classification is a pure function of the transaction and
// the card set; the same input always yields the same result.
package classifier

import (
	"regexp"
	"strings"

	"github.com/dsilveira/finledger/internal/domain"
)

// maskedRefPattern extracts the digits of a masked card reference such
// as "****1234" or "card ending 1234" from free text.
var maskedRefPattern = regexp.MustCompile(`(?:\*{2,}\s*|ending(?:\s+in)?\s+|final\s+)(\d{2,4})`)

// Classifier resolves transactions against a fixed set of the user's
// credit cards. It holds no mutable state.
type Classifier struct {
	cards []domain.CreditCardView
}

// New builds a classifier for one user's cards. Inactive cards still
// match so historical transactions classify consistently.
func New(cards []domain.CreditCardView) *Classifier {
	return &Classifier{cards: cards}
}

// Classify labels a single transaction. It never fails: text that no
// rule covers falls back to the amount-sign heuristic, flagged as low
// confidence.
func (c *Classifier) Classify(tx *domain.Transaction) domain.Classification {
	text := normalize(tx)

	var out domain.Classification

	switch {
	case tx.MovementType != "":
		out.Direction = tx.MovementType
	default:
		if verdict, ok := matchRules(text, directionRules); ok {
			out.Direction = verdict
		} else if tx.Amount < 0 {
			out.Direction = domain.DirectionExpense
			out.LowConfidence = true
		} else {
			out.Direction = domain.DirectionIncome
			out.LowConfidence = true
		}
	}

	out.MatchedCardID = c.matchCard(tx, text)

	if out.Direction == domain.DirectionIncome {
		out.IsInvoicePayment = c.isInvoicePayment(tx, text)
	}

	return out
}

// isInvoicePayment reports whether income-direction text carries invoice
// payment vocabulary, a known card nickname, or a masked card suffix.
func (c *Classifier) isInvoicePayment(tx *domain.Transaction, text string) bool {
	for _, token := range invoiceVocabulary {
		if strings.Contains(text, token) {
			return true
		}
	}
	for _, card := range c.cards {
		if card.Nickname != "" && strings.Contains(text, strings.ToLower(card.Nickname)) {
			return true
		}
		if card.LastDigits != "" && containsMaskedSuffix(text, card.LastDigits) {
			return true
		}
		// A structured card reference pointing at a known card counts the
		// same as that card's nickname appearing in the text.
		if tx.CardLastDigits != "" && tx.CardLastDigits == card.LastDigits {
			return true
		}
		if tx.CardNickname != "" && strings.EqualFold(tx.CardNickname, card.Nickname) {
			return true
		}
	}
	return false
}

// matchCard resolves the transaction to a card. Priority order: exact
// nickname, exact last-4 digits, masked reference substring. First match
// wins so ambiguous references resolve deterministically.
func (c *Classifier) matchCard(tx *domain.Transaction, text string) string {
	if nick := strings.ToLower(strings.TrimSpace(tx.CardNickname)); nick != "" {
		for _, card := range c.cards {
			if strings.ToLower(card.Nickname) == nick {
				return card.ID
			}
		}
	}

	if tx.CardLastDigits != "" {
		for _, card := range c.cards {
			if card.LastDigits != "" && card.LastDigits == tx.CardLastDigits {
				return card.ID
			}
		}
	}

	if refs := maskedRefs(text); len(refs) > 0 {
		for _, card := range c.cards {
			if card.LastDigits == "" {
				continue
			}
			for _, ref := range refs {
				if strings.Contains(card.LastDigits, ref) || strings.Contains(ref, card.LastDigits) {
					return card.ID
				}
			}
		}
	}

	return ""
}

// maskedRefs extracts masked card digit groups from free text.
func maskedRefs(text string) []string {
	matches := maskedRefPattern.FindAllStringSubmatch(text, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}

// containsMaskedSuffix reports whether text carries a masked reference
// matching the given last-4 digits.
func containsMaskedSuffix(text, lastDigits string) bool {
	for _, ref := range maskedRefs(text) {
		if strings.Contains(lastDigits, ref) || strings.Contains(ref, lastDigits) {
			return true
		}
	}
	return false
}
