// Package memory is an in-memory implementation of the store contract.
// It is safe for concurrent use and suitable for tests and single-user
// demo runs; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

type budgetKey struct {
	userID string
	month  int
	year   int
}

// Store holds all rows in maps guarded by one RWMutex. Reads return
// copies so callers cannot mutate stored state.
type Store struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
	commitments  map[string]*domain.Commitment
	budgets      map[budgetKey]*domain.MonthlyBudget
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		commitments: make(map[string]*domain.Commitment),
		budgets:     make(map[budgetKey]*domain.MonthlyBudget),
	}
}

// AddTransactions seeds transaction rows.
func (s *Store) AddTransactions(txs ...domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, txs...)
}

// AddCommitments seeds commitment rows.
func (s *Store) AddCommitments(cs ...domain.Commitment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range cs {
		c := cs[i]
		s.commitments[c.ID] = &c
	}
}

// ListTransactionsByDateRange implements store.TransactionRepository.
func (s *Store) ListTransactionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if tx.Date.Before(start) || !tx.Date.Before(end) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ListCommitments implements store.CommitmentRepository.
func (s *Store) ListCommitments(ctx context.Context, userID string) ([]domain.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Commitment
	for _, c := range s.commitments {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetCommitment implements store.CommitmentRepository.
func (s *Store) GetCommitment(ctx context.Context, id string) (*domain.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commitments[id]
	if !ok {
		return nil, fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	}
	out := *c
	return &out, nil
}

// SetManualStatus implements store.CommitmentRepository.
func (s *Store) SetManualStatus(ctx context.Context, id string, status domain.PaymentStatus, month, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commitments[id]
	if !ok {
		return fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	}
	c.ManualStatus = status
	c.ManualStatusMonth = month
	c.ManualStatusYear = year
	return nil
}

// ClearManualStatus implements store.CommitmentRepository.
func (s *Store) ClearManualStatus(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commitments[id]
	if !ok {
		return fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	}
	c.ManualStatus = ""
	c.ManualStatusMonth = 0
	c.ManualStatusYear = 0
	return nil
}

// SetInstallmentsPaid implements store.CommitmentRepository.
func (s *Store) SetInstallmentsPaid(ctx context.Context, id string, paid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commitments[id]
	if !ok {
		return fmt.Errorf("commitment %s: %w", id, store.ErrNotFound)
	}
	c.InstallmentsPaid = paid
	return nil
}

// GetBudget implements store.BudgetRepository.
func (s *Store) GetBudget(ctx context.Context, userID string, month, year int) (*domain.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[budgetKey{userID, month, year}]
	if !ok {
		return nil, fmt.Errorf("budget %s %d/%d: %w", userID, month, year, store.ErrNotFound)
	}
	out := *b
	return &out, nil
}

// ListBudgets implements store.BudgetRepository.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MonthlyBudget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ref().Before(out[j].Ref())
	})
	return out, nil
}

// UpsertBudget implements store.BudgetRepository.
func (s *Store) UpsertBudget(ctx context.Context, budget *domain.MonthlyBudget) error {
	if budget.UserID == "" {
		return fmt.Errorf("UpsertBudget: user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *budget
	s.budgets[budgetKey{budget.UserID, budget.Month, budget.Year}] = &row
	return nil
}

// Ensure Store satisfies the contract.
var _ store.Store = (*Store)(nil)
