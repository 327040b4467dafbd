package sheets

import (
	"context"
	"time"

	"subtrack/internal/core"

	"github.com/shopspring/decimal"
)

// Snapshot is the full subscription list at one point in time, with the
// monthly total it adds up to.
type Snapshot struct {
	Subscriptions []core.Subscription
	MonthlyTotal  decimal.Decimal
	Currency      core.Currency
	ExchangeRate  float64
	GeneratedAt   time.Time
}

// NewSnapshot totals subs at rate.
func NewSnapshot(subs []core.Subscription, rate float64, now time.Time) Snapshot {
	return Snapshot{
		Subscriptions: subs,
		MonthlyTotal:  core.MonthlyTotal(subs, rate),
		Currency:      core.ReportingCurrency,
		ExchangeRate:  rate,
		GeneratedAt:   now,
	}
}

// Mirror is an outbound copy of the subscription list. WriteSnapshot
// replaces whatever the mirror held before.
type Mirror interface {
	WriteSnapshot(ctx context.Context, snap Snapshot) error
}
