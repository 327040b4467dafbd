package google

import (
	"time"

	"subtrack/internal/core"
	ports "subtrack/internal/sheets"
)

var headerRow = []interface{}{"Name", "Price", "Currency", "Frequency", "Payment date", "Monthly (HNL)"}

// buildRows lays out a snapshot as a values matrix: header, one row per
// subscription in snapshot order, then the total.
func buildRows(snap ports.Snapshot) [][]interface{} {
	rows := make([][]interface{}, 0, len(snap.Subscriptions)+2)
	rows = append(rows, headerRow)

	for _, s := range snap.Subscriptions {
		monthly := core.MonthlyAmount(s, snap.ExchangeRate).Round(2).InexactFloat64()
		rows = append(rows, []interface{}{
			s.Name,
			s.Price,
			string(s.Currency),
			string(s.Frequency),
			s.PaymentDate,
			monthly,
		})
	}

	rows = append(rows, []interface{}{
		"Total",
		"",
		string(snap.Currency),
		"",
		snap.GeneratedAt.UTC().Format(time.RFC3339),
		snap.MonthlyTotal.Round(2).InexactFloat64(),
	})
	return rows
}
