package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/ksred/studio-payroll/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Aggregate folds rows into a Summary. The empty input yields the zero
// summary. Rows are trusted to hold at most one entry per instructor, so
// PartnerCount is simply len(rows).
func Aggregate(rows []types.SettlementRow) Summary {
	summary := Summary{TotalPayout: decimal.Zero}
	for _, row := range rows {
		summary.TotalPayout = summary.TotalPayout.Add(row.TotalSalary)
		summary.TotalSessions += row.SessionCount
	}
	summary.PartnerCount = len(rows)
	return summary
}

// Breakdown derives the detail view for row within summary. Commission is
// for display only; the payout shown is always the backend's TotalSalary.
func Breakdown(row types.SettlementRow, summary Summary) Detail {
	detail := Detail{
		Row:        row,
		Commission: row.PerSessionRate.Mul(decimal.NewFromInt(int64(row.SessionCount))),
		SharePct:   decimal.Zero,
	}
	if !summary.TotalPayout.IsZero() {
		detail.SharePct = row.TotalSalary.Div(summary.TotalPayout).Mul(hundred).Round(1)
	}
	return detail
}
