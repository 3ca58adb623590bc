// Package forecast projects commitments and recurring income twelve
// months forward, classifies each month's health and derives alerts.
//
// Income is the flat total of active income sources, not extrapolated
// from transaction history: the projection is forward-looking by
// contract, and trailing-history extrapolation was deliberately not
// adopted (it would couple projections to reconciliation state).
package forecast

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/cache"
	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/store"
)

// HorizonMonths is the fixed forward projection window.
const HorizonMonths = 12

// Service computes forecasts for users.
type Service struct {
	store store.CommitmentRepository
	cache *cache.Cache
	clock clock.Clock
	log   zerolog.Logger
}

// New creates a forecast service. cache may be nil.
func New(st store.CommitmentRepository, c *cache.Cache, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{store: st, cache: c, clock: clk, log: log}
}

// Project12Months returns exactly twelve projected months starting at
// the current calendar month, strictly increasing and wrapping year
// boundaries.
func (s *Service) Project12Months(ctx context.Context, userID string) ([]domain.MonthlyForecast, error) {
	key := cache.Key(userID, "forecast")
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]domain.MonthlyForecast), nil
		}
	}

	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Project12Months: list commitments: %w", err)
	}

	income := totalActiveIncome(commitments)
	start := domain.MonthRefOf(s.clock.Now())

	forecasts := make([]domain.MonthlyForecast, 0, HorizonMonths)
	for i := 0; i < HorizonMonths; i++ {
		ref := start.AddMonths(i)
		f := domain.MonthlyForecast{
			Month:  ref.Month,
			Year:   ref.Year,
			Income: income,
		}

		for j := range commitments {
			c := &commitments[j]
			if c.IsIncome() || !c.ActiveIn(ref) {
				continue
			}
			k := c.InstallmentIndex(ref)
			charge := domain.CommitmentCharge{
				CommitmentID:     c.ID,
				Name:             c.Name,
				Kind:             c.Kind,
				InstallmentValue: c.InstallmentValue(),
				Installment:      k,
				IsFinal:          k == c.TotalInstallments && c.TotalInstallments > 0,
			}
			f.Commitments = append(f.Commitments, charge)
			f.FixedCommitments += charge.InstallmentValue
		}

		f.ProjectedBalance = f.Income - f.FixedCommitments
		f.Status = classifyMonth(f.Income, f.ProjectedBalance)
		forecasts = append(forecasts, f)
	}

	if s.cache != nil {
		s.cache.Set(key, forecasts)
	}
	return forecasts, nil
}

// classifyMonth maps a projected month to its health status. A month
// without income cannot be classified.
func classifyMonth(income, projected float64) domain.ForecastStatus {
	if income <= 0 {
		return domain.ForecastNoData
	}
	if projected < 0 {
		return domain.ForecastDeficit
	}
	pct := projected / income * 100
	switch {
	case pct > 30:
		return domain.ForecastExcellent
	case pct > 10:
		return domain.ForecastPositive
	default:
		return domain.ForecastCritical
	}
}

// totalActiveIncome sums the monthly value of active income sources.
func totalActiveIncome(commitments []domain.Commitment) float64 {
	var total float64
	for i := range commitments {
		c := &commitments[i]
		if c.IsIncome() && c.Active {
			total += c.PrincipalValue
		}
	}
	return total
}

// GenerateAlerts derives alerts from a forecast run. Alerts are pure
// derivations regenerated on every call, never persisted.
func GenerateAlerts(forecasts []domain.MonthlyForecast) []domain.Alert {
	var alerts []domain.Alert

	for _, f := range forecasts {
		if f.Status != domain.ForecastDeficit {
			continue
		}
		deficit := -f.ProjectedBalance
		alerts = append(alerts, domain.Alert{
			ID:          uuid.NewString(),
			Kind:        domain.AlertDeficit,
			Title:       fmt.Sprintf("Projected deficit in %02d/%d", f.Month, f.Year),
			Description: fmt.Sprintf("Commitments exceed income by %.2f in %02d/%d.", deficit, f.Month, f.Year),
			Month:       f.Month,
			Year:        f.Year,
			Amount:      deficit,
			Priority:    domain.PriorityHigh,
		})
	}

	// One ending alert per commitment whose final installment falls
	// inside the horizon, since that frees up monthly cash flow.
	seen := make(map[string]bool)
	for _, f := range forecasts {
		for _, charge := range f.Commitments {
			if !charge.IsFinal || seen[charge.CommitmentID] {
				continue
			}
			seen[charge.CommitmentID] = true
			alerts = append(alerts, domain.Alert{
				ID:          uuid.NewString(),
				Kind:        domain.AlertCommitmentEnding,
				Title:       fmt.Sprintf("%s ends in %02d/%d", charge.Name, f.Month, f.Year),
				Description: fmt.Sprintf("Last installment of %s frees %.2f per month.", charge.Name, charge.InstallmentValue),
				Month:       f.Month,
				Year:        f.Year,
				Amount:      charge.InstallmentValue,
				Priority:    domain.PriorityMedium,
			})
		}
	}

	if opportunity, ok := savingsOpportunity(forecasts); ok {
		alerts = append(alerts, opportunity)
	}

	return alerts
}

// savingsOpportunity fires when every projected month is comfortable
// (excellent or positive), suggesting the minimum monthly surplus could
// be committed to savings.
func savingsOpportunity(forecasts []domain.MonthlyForecast) (domain.Alert, bool) {
	if len(forecasts) == 0 {
		return domain.Alert{}, false
	}
	minSurplus := forecasts[0].ProjectedBalance
	for _, f := range forecasts {
		if f.Status != domain.ForecastExcellent && f.Status != domain.ForecastPositive {
			return domain.Alert{}, false
		}
		if f.ProjectedBalance < minSurplus {
			minSurplus = f.ProjectedBalance
		}
	}
	return domain.Alert{
		ID:          uuid.NewString(),
		Kind:        domain.AlertSavingsOpportunity,
		Title:       "Room to save every month",
		Description: fmt.Sprintf("Every projected month closes positive; at least %.2f per month could go to savings.", minSurplus),
		Amount:      minSurplus,
		Priority:    domain.PriorityLow,
	}, true
}
