package domain

// MonthlyBudget is the stored balance row for one (user, month, year).
// Rows are created lazily the first time a month is reconciled.
type MonthlyBudget struct {
	UserID string
	Month  int
	Year   int

	OpeningBalance float64
	SavingsGoal    float64

	// OpeningBalanceManuallyEdited gates automatic cascading: a manually
	// edited month is never overwritten unless a force recompute is
	// explicitly requested.
	OpeningBalanceManuallyEdited bool
}

// Ref returns the month the budget row belongs to.
func (b *MonthlyBudget) Ref() MonthRef {
	return MonthRef{Month: b.Month, Year: b.Year}
}

// BalanceResult is the outcome of reconciling one month.
type BalanceResult struct {
	Opening  float64
	Income   float64
	Expenses float64
	Closing  float64

	// Unknown marks the safe-zero fallback returned when persistence
	// failed. Callers must treat it as "no data", not a zero balance.
	Unknown bool
}

// CreditLimitSnapshot is the derived, non-persisted view of one card's
// dynamically available limit.
type CreditLimitSnapshot struct {
	CardID             string  `json:"card_id"`
	TotalLimit         float64 `json:"total_limit"`
	OpeningAvailable   float64 `json:"opening_available"`
	CurrentAvailable   float64 `json:"current_available"`
	Used               float64 `json:"used"`
	PercentUsed        float64 `json:"percent_used"`
	PurchasesThisMonth float64 `json:"purchases_this_month"`
	PaymentsThisMonth  float64 `json:"payments_this_month"`
}

// ForecastStatus classifies the health of a projected month.
type ForecastStatus string

const (
	ForecastExcellent ForecastStatus = "excellent"
	ForecastPositive  ForecastStatus = "positive"
	ForecastCritical  ForecastStatus = "critical"
	ForecastDeficit   ForecastStatus = "deficit"
	ForecastNoData    ForecastStatus = "no-data"
)

// CommitmentCharge is one commitment's contribution to a forecast month.
type CommitmentCharge struct {
	CommitmentID     string         `json:"commitment_id"`
	Name             string         `json:"name"`
	Kind             CommitmentKind `json:"kind"`
	InstallmentValue float64        `json:"installment_value"`

	// Installment index due this month, and whether it is the last one.
	Installment int  `json:"installment"`
	IsFinal     bool `json:"is_final"`
}

// MonthlyForecast is one projected month in the 12-month horizon.
type MonthlyForecast struct {
	Month int `json:"month"`
	Year  int `json:"year"`

	Income           float64        `json:"income"`
	FixedCommitments float64        `json:"fixed_commitments"`
	ProjectedBalance float64        `json:"projected_balance"`
	Status           ForecastStatus `json:"status"`

	Commitments []CommitmentCharge `json:"commitments"`
}

// AlertKind discriminates forecast alerts.
type AlertKind string

const (
	AlertDeficit            AlertKind = "deficit"
	AlertCommitmentEnding   AlertKind = "commitment_ending"
	AlertSavingsOpportunity AlertKind = "savings_opportunity"
)

// AlertPriority orders alerts for display.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// Alert is a derived, non-persisted warning regenerated on every
// forecast run.
type Alert struct {
	ID          string        `json:"id"`
	Kind        AlertKind     `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Month       int           `json:"month"`
	Year        int           `json:"year"`
	Amount      float64       `json:"amount"`
	Priority    AlertPriority `json:"priority"`
}
