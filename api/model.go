package api

import (
	appErrors "spendtrack/customErrors"
	"spendtrack/internal/expense"
)

// REQUESTS START:
type SaveUserRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type UserLoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type ExpenseRequest struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type BudgetRequest struct {
	Budget float64 `json:"budget"`
}

//REQUESTS END:

//RESPONSES:

type UserCreatedResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type ExpenseResponse struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type CategoryTotalResponse struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type SummaryResponse struct {
	Date               string                  `json:"date"`
	Month              string                  `json:"month"`
	TodayTotal         float64                 `json:"today_total"`
	MonthTotal         float64                 `json:"month_total"`
	MonthCount         int                     `json:"month_count"`
	MonthAverage       float64                 `json:"month_average"`
	Budget             float64                 `json:"budget"`
	Remaining          float64                 `json:"remaining"`
	BudgetUsagePercent float64                 `json:"budget_usage_percent"`
	ByCategory         []CategoryTotalResponse `json:"by_category"`
}

type BudgetResponse struct {
	Budget float64 `json:"budget"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

func toExpenseResponse(e expense.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Date:        e.Date,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
	}
}

func toSummaryResponse(s expense.Summary) SummaryResponse {
	resp := SummaryResponse{
		Date:               s.Date,
		Month:              s.Month,
		TodayTotal:         s.TodayTotal,
		MonthTotal:         s.MonthTotal,
		MonthCount:         s.MonthCount,
		MonthAverage:       s.MonthAverage,
		Budget:             s.Budget,
		Remaining:          s.Remaining,
		BudgetUsagePercent: s.BudgetUsagePercent,
		ByCategory:         []CategoryTotalResponse{},
	}
	for _, ct := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, CategoryTotalResponse{
			Category: ct.Category,
			Total:    ct.Total,
		})
	}
	return resp
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 //internal error
	}
}
