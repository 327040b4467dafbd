// Package core holds the subscription domain shared by the API server,
// the terminal client and the sheets worker.
//
// This file normalizes subscription prices to a monthly amount in the
// reporting currency (HNL) and sums them.
package core

import "github.com/shopspring/decimal"

// DefaultExchangeRate is the fixed USD to HNL rate used when none is configured.
const DefaultExchangeRate = 26.0

// ReportingCurrency is the currency monthly totals are expressed in.
const ReportingCurrency = HNL

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyAmount returns the subscription's cost per month in HNL.
//
// Annual prices are divided by 12, then USD amounts are multiplied by rate.
//
// Examples (rate 26):
//
//	12  annual  HNL -> 1
//	10  monthly USD -> 260
//	120 annual  USD -> 260
func MonthlyAmount(s Subscription, rate float64) decimal.Decimal {
	amount := decimal.NewFromFloat(s.Price)
	if s.Frequency == Annual {
		amount = amount.Div(monthsPerYear)
	}
	if s.Currency == USD {
		amount = amount.Mul(decimal.NewFromFloat(rate))
	}
	return amount
}

// MonthlyTotal sums MonthlyAmount over subs. The result does not depend on order.
func MonthlyTotal(subs []Subscription, rate float64) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subs {
		total = total.Add(MonthlyAmount(s, rate))
	}
	return total
}
