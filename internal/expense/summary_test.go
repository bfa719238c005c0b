package expense

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildSummaryJuneScenario(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Date: "2024-06-15", Amount: 10, Category: "Food"},
		{ID: 2, Date: "2024-06-20", Amount: 20, Category: "Transport"},
	}

	summary := BuildSummary(expenses, 100, day("2024-06-20"))

	assert.Equal(t, "2024-06", summary.Month)
	assert.Equal(t, 30.0, summary.MonthTotal)
	assert.Equal(t, 20.0, summary.TodayTotal)
	assert.Equal(t, 70.0, summary.Remaining)
	assert.Equal(t, 30.0, summary.BudgetUsagePercent)
	assert.Equal(t, 15.0, summary.MonthAverage)
	assert.Equal(t, 2, summary.MonthCount)
}

func TestBuildSummaryZeroBudget(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Date: "2024-06-15", Amount: 42.5, Category: "Food"},
	}

	summary := BuildSummary(expenses, 0, day("2024-06-15"))

	assert.Equal(t, 0.0, summary.BudgetUsagePercent)
	assert.Equal(t, -42.5, summary.Remaining)
}

func TestBuildSummaryEmptyMonth(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Date: "2024-05-31", Amount: 10, Category: "Food"},
	}

	summary := BuildSummary(expenses, 50, day("2024-06-01"))

	assert.Equal(t, 0, summary.MonthCount)
	assert.Equal(t, 0.0, summary.MonthAverage)
	assert.Equal(t, 0.0, summary.MonthTotal)

	// The breakdown still reflects the whole history.
	require.Len(t, summary.ByCategory, 1)
	assert.Equal(t, CategoryTotal{Category: "Food", Total: 10}, summary.ByCategory[0])
}

func TestBuildSummaryCategoryBreakdown(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Date: "2024-06-01", Amount: 10, Category: "Food"},
		{ID: 2, Date: "2024-06-02", Amount: 5, Category: ""},
		{ID: 3, Date: "2024-06-03", Amount: 7.25, Category: "Food"},
		{ID: 4, Date: "2024-05-20", Amount: 7, Category: "Travel"},
	}

	summary := BuildSummary(expenses, 0, day("2024-06-10"))

	// Categories cover the full list; month totals do not.
	assert.Equal(t, 22.25, summary.MonthTotal)
	require.Len(t, summary.ByCategory, 3)
	assert.Equal(t, CategoryTotal{Category: "Food", Total: 17.25}, summary.ByCategory[0])
	assert.Equal(t, CategoryTotal{Category: "Uncategorized", Total: 5}, summary.ByCategory[1])
	assert.Equal(t, CategoryTotal{Category: "Travel", Total: 7}, summary.ByCategory[2])
}

func TestBuildSummaryRounding(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Date: "2024-06-01", Amount: 10.111, Category: "Food"},
		{ID: 2, Date: "2024-06-02", Amount: 20.222, Category: "Food"},
		{ID: 3, Date: "2024-06-03", Amount: 0.004, Category: "Food"},
	}

	summary := BuildSummary(expenses, 100, day("2024-06-10"))

	assert.Equal(t, 30.34, summary.MonthTotal)
	assert.Equal(t, 30.34, summary.BudgetUsagePercent)
	assert.Equal(t, 10.11, summary.MonthAverage)
}

func TestNormalizeDate(t *testing.T) {
	t.Run("canonical passes through", func(t *testing.T) {
		got, err := NormalizeDate("2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", got)
	})

	t.Run("day first slashes", func(t *testing.T) {
		got, err := NormalizeDate("15/03/2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", got)
	})

	t.Run("month first wins when ambiguous", func(t *testing.T) {
		got, err := NormalizeDate("04/05/2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-04-05", got)
	})

	t.Run("written month", func(t *testing.T) {
		got, err := NormalizeDate("Mar 15, 2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", got)
	})

	t.Run("empty means today", func(t *testing.T) {
		got, err := NormalizeDate("")
		require.NoError(t, err)
		assert.Equal(t, time.Now().UTC().Format(DateLayout), got)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := NormalizeDate("not-a-date")
		assert.Error(t, err)
	})
}
