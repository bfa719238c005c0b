package expense

import (
	"fmt"
	"strings"
	"time"

	appErrors "spendtrack/customErrors"
)

const (
	MAX_EXPENSE_AMOUNT_LIMIT       = 999999999999999999.99
	MAX_EXPENSE_DESCRIPTION_LENGTH = 1000
	MAX_EXPENSE_CATEGORY_LENGTH    = 255
	DateLayout                     = "2006-01-02"
	Epsilon                        = 1e-9 // For IsFloatZero() func.
)

func IsFloatZero(f float64) bool {
	return f >= 0 && f < Epsilon
}

type Expense struct {
	ID          int64
	Date        string
	Amount      float64
	Description string
	Category    string
	UserID      *int64
}

type NewExpenseRequest struct {
	Date        string
	Amount      float64
	Description string
	Category    string
}

type UpdateExpenseRequest struct {
	ID          int64
	Date        string
	Amount      float64
	Description string
	Category    string
}

// dateLayouts lists the accepted input formats in trial order.
// Ambiguous numeric forms resolve month-first, so "04/05/2024" is
// April 5th, and "15/03/2024" falls through to the day-first layout.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// NormalizeDate turns user input into the canonical YYYY-MM-DD form.
// An empty input means today (UTC). Anything unparseable is rejected.
func NormalizeDate(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return time.Now().UTC().Format(DateLayout), nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format(DateLayout), nil
		}
	}
	return "", appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: fmt.Sprintf("Unrecognized date: '%s', example valid date: 2024-03-15", input),
	}
}
