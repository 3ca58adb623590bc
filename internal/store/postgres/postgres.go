// Package postgres implements the store contract on PostgreSQL using
// pgx connection pools. Change notifications ride on LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

// Store is the PostgreSQL-backed persistence layer.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Connect opens a connection pool against the database URL and verifies
// it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ListTransactionsByDateRange returns the user's transactions with date
// in [start, end), ordered by date ascending.
func (s *Store) ListTransactionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, date, amount, movement_type, category, title,
		       counterpart, establishment, note, payment_method,
		       card_last_digits, card_nickname
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var movement string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Amount, &movement,
			&t.Category, &t.Title, &t.Counterpart, &t.Establishment, &t.Note,
			&t.PaymentMethod, &t.CardLastDigits, &t.CardNickname); err != nil {
			return nil, fmt.Errorf("postgres: scanning transaction: %w", err)
		}
		t.MovementType = domain.Direction(movement)
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading transactions: %w", err)
	}
	return txs, nil
}

// GetBudget returns the row for (user, month, year) or store.ErrNotFound.
func (s *Store) GetBudget(ctx context.Context, userID string, month, year int) (*domain.MonthlyBudget, error) {
	var b domain.MonthlyBudget
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, month, year, opening_balance, savings_goal,
		       opening_balance_manually_edited
		FROM monthly_budgets
		WHERE user_id = $1 AND month = $2 AND year = $3`,
		userID, month, year).
		Scan(&b.UserID, &b.Month, &b.Year, &b.OpeningBalance, &b.SavingsGoal,
			&b.OpeningBalanceManuallyEdited)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting budget: %w", err)
	}
	return &b, nil
}

// ListBudgets returns all of the user's budget rows in chronological
// order.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.MonthlyBudget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, month, year, opening_balance, savings_goal,
		       opening_balance_manually_edited
		FROM monthly_budgets
		WHERE user_id = $1
		ORDER BY year ASC, month ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing budgets: %w", err)
	}
	defer rows.Close()

	var budgets []domain.MonthlyBudget
	for rows.Next() {
		var b domain.MonthlyBudget
		if err := rows.Scan(&b.UserID, &b.Month, &b.Year, &b.OpeningBalance,
			&b.SavingsGoal, &b.OpeningBalanceManuallyEdited); err != nil {
			return nil, fmt.Errorf("postgres: scanning budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading budgets: %w", err)
	}
	return budgets, nil
}

// UpsertBudget inserts or updates the row keyed by (user, month, year).
// The write goes through ON CONFLICT so concurrent creations of the same
// row never race.
func (s *Store) UpsertBudget(ctx context.Context, budget *domain.MonthlyBudget) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monthly_budgets
			(user_id, month, year, opening_balance, savings_goal,
			 opening_balance_manually_edited)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, month, year) DO UPDATE SET
			opening_balance                 = EXCLUDED.opening_balance,
			savings_goal                    = EXCLUDED.savings_goal,
			opening_balance_manually_edited = EXCLUDED.opening_balance_manually_edited,
			updated_at                      = now()`,
		budget.UserID, budget.Month, budget.Year, budget.OpeningBalance,
		budget.SavingsGoal, budget.OpeningBalanceManuallyEdited)
	if err != nil {
		return fmt.Errorf("postgres: upserting budget: %w", err)
	}
	return nil
}
