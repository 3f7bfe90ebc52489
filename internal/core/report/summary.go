// Package report aggregates a reconciliation result and renders the
// irregularities for download.
package report

import (
	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize counts and sums every bucket of the result. The rate is matches
// over report records, in percent, and is zero for an empty report.
func Summarize(result domain.ReconciliationResult) domain.Summary {
	s := domain.Summary{
		MatchedCount:               len(result.Matches),
		MatchedAmount:              decimal.Zero,
		MissingFromStatementCount:  len(result.MissingFromStatement),
		MissingFromStatementAmount: decimal.Zero,
		MissingFromReportCount:     len(result.MissingFromReport),
		MissingFromReportAmount:    decimal.Zero,
		MethodCounts:               make(map[string]int),
	}

	for _, m := range result.Matches {
		s.MatchedAmount = s.MatchedAmount.Add(m.Report.Amount)
		s.MethodCounts[string(m.Method)]++
	}
	for _, u := range result.MissingFromStatement {
		s.MissingFromStatementAmount = s.MissingFromStatementAmount.Add(u.Record.Amount)
	}
	for _, u := range result.MissingFromReport {
		s.MissingFromReportAmount = s.MissingFromReportAmount.Add(u.Record.Amount)
	}

	s.StatementRecords = s.MatchedCount + s.MissingFromReportCount
	s.ReportRecords = s.MatchedCount + s.MissingFromStatementCount
	if s.ReportRecords > 0 {
		s.ReconciliationRate = decimal.NewFromInt(int64(s.MatchedCount)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(s.ReportRecords))).
			Round(2).
			InexactFloat64()
	}
	s.FullyReconciled = s.MissingFromStatementCount == 0 && s.MissingFromReportCount == 0
	return s
}
