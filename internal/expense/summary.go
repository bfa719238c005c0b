package expense

import (
	"math"
	"strings"
	"time"
)

type CategoryTotal struct {
	Category string
	Total    float64
}

type Summary struct {
	Date               string
	Month              string
	TodayTotal         float64
	MonthTotal         float64
	MonthCount         int
	MonthAverage       float64
	Budget             float64
	Remaining          float64
	BudgetUsagePercent float64
	ByCategory         []CategoryTotal
}

// BuildSummary aggregates the given expenses for one reference day.
// Day and month totals compare the stored YYYY-MM-DD strings directly;
// the category breakdown spans every expense in the slice. The caller
// is responsible for passing an owner-scoped slice.
func BuildSummary(expenses []Expense, budget float64, today time.Time) Summary {
	date := today.Format(DateLayout)
	month := today.Format("2006-01")
	monthPrefix := month + "-"

	summary := Summary{
		Date:   date,
		Month:  month,
		Budget: budget,
	}

	for _, e := range expenses {
		if e.Date == date {
			summary.TodayTotal += e.Amount
		}
		if strings.HasPrefix(e.Date, monthPrefix) {
			summary.MonthTotal += e.Amount
			summary.MonthCount++
		}
	}

	// The breakdown covers the whole list, not just the reference month.
	totalsByCategory := make(map[string]float64)
	var categoryOrder []string

	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = "Uncategorized"
		}
		if _, seen := totalsByCategory[category]; !seen {
			categoryOrder = append(categoryOrder, category)
		}
		totalsByCategory[category] += e.Amount
	}

	summary.TodayTotal = round2(summary.TodayTotal)
	summary.MonthTotal = round2(summary.MonthTotal)
	summary.Remaining = round2(budget - summary.MonthTotal)
	if budget > 0 {
		summary.BudgetUsagePercent = round2(summary.MonthTotal / budget * 100)
	}
	if summary.MonthCount > 0 {
		summary.MonthAverage = round2(summary.MonthTotal / float64(summary.MonthCount))
	}

	for _, category := range categoryOrder {
		summary.ByCategory = append(summary.ByCategory, CategoryTotal{
			Category: category,
			Total:    round2(totalsByCategory[category]),
		})
	}

	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
