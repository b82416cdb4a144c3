package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseReport is the data rendered into a request's expense workbook
type ExpenseReport struct {
	Request       *Request
	Routes        []*Route
	Receipts      []*Receipt
	ApprovedTotal decimal.Decimal
	ClaimedTotal  decimal.Decimal
	GeneratedAt   time.Time
}

// NewExpenseReport totals the receipts of a request
func NewExpenseReport(req *Request, routes []*Route, receipts []*Receipt, now time.Time) *ExpenseReport {
	report := &ExpenseReport{
		Request:       req,
		Routes:        routes,
		Receipts:      receipts,
		ApprovedTotal: decimal.Zero,
		ClaimedTotal:  decimal.Zero,
		GeneratedAt:   now,
	}
	for _, r := range receipts {
		report.ClaimedTotal = report.ClaimedTotal.Add(r.Amount)
		if r.Validation == ValidationApproved {
			report.ApprovedTotal = report.ApprovedTotal.Add(r.Amount)
		}
	}
	return report
}
