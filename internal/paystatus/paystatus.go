// Package paystatus tracks the per-period payment status of
// commitments: a manual, period-scoped override when the user set one,
// an automatic pending/overdue derivation otherwise.
package paystatus

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

// applicable lists the statuses each commitment kind may take. Income
// commitments receive money, so "paid" and "overdue" make no sense for
// them; the reverse holds for "received".
var applicable = map[domain.CommitmentKind][]domain.PaymentStatus{
	domain.KindIncomeSource:    {domain.StatusPending, domain.StatusReceived, domain.StatusCancelled},
	domain.KindCreditCard:      {domain.StatusPending, domain.StatusPaid, domain.StatusOverdue, domain.StatusCancelled},
	domain.KindFixedExpense:    {domain.StatusPending, domain.StatusPaid, domain.StatusOverdue, domain.StatusCancelled},
	domain.KindInstallmentLoan: {domain.StatusPending, domain.StatusPaid, domain.StatusOverdue, domain.StatusCancelled},
}

// StatusApplicable reports whether a status is valid for the kind.
func StatusApplicable(kind domain.CommitmentKind, status domain.PaymentStatus) bool {
	for _, s := range applicable[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// ResolveStatus returns the commitment's status for one period. A manual
// override matching the period exactly takes precedence; otherwise the
// status is derived from the period's due date against now. Automatic
// derivation never yields paid, received or cancelled; those take a
// manual action.
func ResolveStatus(c *domain.Commitment, month, year int, now time.Time) domain.PaymentStatus {
	if c.HasManualStatus(month, year) {
		return c.ManualStatus
	}

	due := periodDueDate(c.DueDate, month, year)
	if due.Before(now) && StatusApplicable(c.Kind, domain.StatusOverdue) {
		return domain.StatusOverdue
	}
	return domain.StatusPending
}

// periodDueDate projects the commitment's due day into the queried
// month, clamping to the month's last day.
func periodDueDate(anchor time.Time, month, year int) time.Time {
	day := anchor.Day()
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 23, 59, 59, 0, time.UTC)
}

// ComputeTotals sums the installment values of commitments active in
// the period, keyed by resolved status. The reduction is
// order-independent.
func ComputeTotals(commitments []domain.Commitment, month, year int, now time.Time) map[domain.PaymentStatus]float64 {
	totals := make(map[domain.PaymentStatus]float64)
	ref := domain.MonthRef{Month: month, Year: year}

	for i := range commitments {
		c := &commitments[i]
		if !c.ActiveIn(ref) {
			continue
		}
		totals[ResolveStatus(c, month, year, now)] += c.InstallmentValue()
	}
	return totals
}

// Service exposes the status operations over the persistence store.
type Service struct {
	store store.CommitmentRepository
	clock clock.Clock
	log   zerolog.Logger
}

// New creates a payment-status service.
func New(st store.CommitmentRepository, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{store: st, clock: clk, log: log}
}

// Resolve loads a commitment and resolves its status for the period.
func (s *Service) Resolve(ctx context.Context, commitmentID string, month, year int) (domain.PaymentStatus, error) {
	c, err := s.store.GetCommitment(ctx, commitmentID)
	if err != nil {
		return "", fmt.Errorf("Resolve: %w", err)
	}
	return ResolveStatus(c, month, year, s.clock.Now()), nil
}

// SetManualStatus writes a period-scoped override after validating the
// status against the commitment's kind.
func (s *Service) SetManualStatus(ctx context.Context, commitmentID string, status domain.PaymentStatus, month, year int) error {
	ref := domain.MonthRef{Month: month, Year: year}
	if !ref.Valid() {
		return fmt.Errorf("SetManualStatus: invalid period %d/%d", month, year)
	}

	c, err := s.store.GetCommitment(ctx, commitmentID)
	if err != nil {
		return fmt.Errorf("SetManualStatus: %w", err)
	}
	if !StatusApplicable(c.Kind, status) {
		return fmt.Errorf("SetManualStatus: status %q not applicable to kind %q", status, c.Kind)
	}

	if err := s.store.SetManualStatus(ctx, commitmentID, status, month, year); err != nil {
		return fmt.Errorf("SetManualStatus: %w", err)
	}

	s.log.Info().
		Str("commitment_id", commitmentID).
		Str("status", string(status)).
		Int("month", month).
		Int("year", year).
		Msg("Manual status set")
	return nil
}

// ClearManualStatus removes the override; the status falls back to
// automatic derivation. There is no automatic expiry.
func (s *Service) ClearManualStatus(ctx context.Context, commitmentID string) error {
	if err := s.store.ClearManualStatus(ctx, commitmentID); err != nil {
		return fmt.Errorf("ClearManualStatus: %w", err)
	}
	return nil
}

// Totals resolves all of a user's commitments for the period and sums
// them by status.
func (s *Service) Totals(ctx context.Context, userID string, month, year int) (map[domain.PaymentStatus]float64, error) {
	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Totals: %w", err)
	}
	return ComputeTotals(commitments, month, year, s.clock.Now()), nil
}
