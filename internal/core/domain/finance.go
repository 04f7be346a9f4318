package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinanceFilter selects a subset of finance records.
type FinanceFilter string

const (
	FinanceFilterAll       FinanceFilter = "all"
	FinanceFilterIncome    FinanceFilter = "income"
	FinanceFilterExpense   FinanceFilter = "expense"
	FinanceFilterThisMonth FinanceFilter = "this-month"
	FinanceFilterLastMonth FinanceFilter = "last-month"
)

// FinanceSummary aggregates income and expense, overall and for the current month.
type FinanceSummary struct {
	TotalIncome    float64 `json:"totalIncome"`
	TotalExpense   float64 `json:"totalExpense"`
	NetIncome      float64 `json:"netIncome"`
	MonthlyIncome  float64 `json:"monthlyIncome"`
	MonthlyExpense float64 `json:"monthlyExpense"`
	MonthlyNet     float64 `json:"monthlyNet"`
}

// SummarizeFinances computes the summary relative to now.
func SummarizeFinances(records []Finance, now time.Time) FinanceSummary {
	var income, expense, monthIncome, monthExpense decimal.Decimal
	for _, f := range records {
		amount := decimal.NewFromFloat(f.Amount)
		thisMonth := inMonth(f.Date, now.Year(), now.Month())
		switch f.Type {
		case FinanceIncome:
			income = income.Add(amount)
			if thisMonth {
				monthIncome = monthIncome.Add(amount)
			}
		case FinanceExpense:
			expense = expense.Add(amount)
			if thisMonth {
				monthExpense = monthExpense.Add(amount)
			}
		}
	}
	return FinanceSummary{
		TotalIncome:    toFloat(income),
		TotalExpense:   toFloat(expense),
		NetIncome:      toFloat(income.Sub(expense)),
		MonthlyIncome:  toFloat(monthIncome),
		MonthlyExpense: toFloat(monthExpense),
		MonthlyNet:     toFloat(monthIncome.Sub(monthExpense)),
	}
}

// FilterFinances returns the records matching filter. Unknown filters match everything.
func FilterFinances(records []Finance, filter FinanceFilter, now time.Time) []Finance {
	last := now.AddDate(0, 0, -now.Day()+1).AddDate(0, -1, 0)
	out := make([]Finance, 0, len(records))
	for _, f := range records {
		var keep bool
		switch filter {
		case FinanceFilterIncome:
			keep = f.Type == FinanceIncome
		case FinanceFilterExpense:
			keep = f.Type == FinanceExpense
		case FinanceFilterThisMonth:
			keep = inMonth(f.Date, now.Year(), now.Month())
		case FinanceFilterLastMonth:
			keep = inMonth(f.Date, last.Year(), last.Month())
		default:
			keep = true
		}
		if keep {
			out = append(out, f)
		}
	}
	return out
}

func inMonth(date string, year int, month time.Month) bool {
	t, ok := ParseDate(date)
	return ok && t.Year() == year && t.Month() == month
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
