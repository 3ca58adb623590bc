package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

const commitmentColumns = `
	id, user_id, kind, name, active, principal_value, due_date,
	total_installments, installments_paid, kind_data,
	manual_status, manual_status_month, manual_status_year`

func scanCommitment(row pgx.Row) (*domain.Commitment, error) {
	var c domain.Commitment
	var kind, manualStatus string
	if err := row.Scan(&c.ID, &c.UserID, &kind, &c.Name, &c.Active,
		&c.PrincipalValue, &c.DueDate, &c.TotalInstallments,
		&c.InstallmentsPaid, &c.KindData,
		&manualStatus, &c.ManualStatusMonth, &c.ManualStatusYear); err != nil {
		return nil, err
	}
	c.Kind = domain.CommitmentKind(kind)
	c.ManualStatus = domain.PaymentStatus(manualStatus)
	return &c, nil
}

// ListCommitments returns all of the user's commitments, active and
// inactive.
func (s *Store) ListCommitments(ctx context.Context, userID string) ([]domain.Commitment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		WHERE user_id = $1
		ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing commitments: %w", err)
	}
	defer rows.Close()

	var commitments []domain.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning commitment: %w", err)
		}
		commitments = append(commitments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading commitments: %w", err)
	}
	return commitments, nil
}

// GetCommitment returns one commitment or store.ErrNotFound.
func (s *Store) GetCommitment(ctx context.Context, id string) (*domain.Commitment, error) {
	c, err := scanCommitment(s.pool.QueryRow(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		WHERE id = $1`,
		id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting commitment: %w", err)
	}
	return c, nil
}

// SetManualStatus writes the period-scoped manual override. The UPDATE
// hits the latest row directly, so a stale in-memory copy cannot clobber
// concurrent edits to other fields.
func (s *Store) SetManualStatus(ctx context.Context, id string, status domain.PaymentStatus, month, year int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE commitments
		SET manual_status = $2, manual_status_month = $3,
		    manual_status_year = $4, updated_at = now()
		WHERE id = $1`,
		id, string(status), month, year)
	if err != nil {
		return fmt.Errorf("postgres: setting manual status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearManualStatus nulls all three manual-override fields.
func (s *Store) ClearManualStatus(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE commitments
		SET manual_status = '', manual_status_month = 0,
		    manual_status_year = 0, updated_at = now()
		WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("postgres: clearing manual status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetInstallmentsPaid updates the paid-installment counter.
func (s *Store) SetInstallmentsPaid(ctx context.Context, id string, paid int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE commitments
		SET installments_paid = $2, updated_at = now()
		WHERE id = $1`,
		id, paid)
	if err != nil {
		return fmt.Errorf("postgres: setting installments paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
