package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/0xcafe-io/iz"

	appErrors "spendtrack/customErrors"
	"spendtrack/internal/auth"
	"spendtrack/internal/expense"
	"spendtrack/logging"
)

type Api struct {
	Service *expense.Tracker
}

func NewApi(service *expense.Tracker) *Api {
	return &Api{
		Service: service,
	}
}

// authenticate resolves the Authorization header to a user id.
func (api *Api) authenticate(r *iz.Request) (int64, error) {
	token := r.Header.Get("Authorization")
	if token == "" {
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Authorization header is required.",
		}
	}
	return api.Service.CheckSession(r.Context(), token)
}

func (api *Api) RegisterUserHandler(r *iz.Request) iz.Responder {
	var newUserReq SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&newUserReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	newUser := auth.NewUser{
		UserName:      newUserReq.UserName,
		PasswordPlain: newUserReq.Password,
		Email:         newUserReq.Email,
	}

	token, err := api.Service.RegisterUser(r.Context(), newUser)
	if err != nil {
		msg := fmt.Sprintf("registration failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := UserCreatedResponse{
		Message: "Registration Completed",
		Token:   token,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	var loginReq UserLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	credentials := auth.UserCredentialsPure{
		UserName:      loginReq.UserName,
		PasswordPlain: loginReq.Password,
	}

	token, err := api.Service.GenerateSession(r.Context(), credentials)
	if err != nil {
		msg := fmt.Sprintf("login failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := LoginResponse{
		Message: "Login Completed",
		Token:   token,
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) LogoutUserHandler(r *iz.Request) iz.Responder {
	token := r.Header.Get("Authorization")
	if token == "" {
		return iz.Respond().Status(401).Text("authorization failed: Authorization header is required.")
	}

	if err := api.Service.LogoutUser(r.Context(), token); err != nil {
		msg := fmt.Sprintf("logout failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("logout successful")
}

func (api *Api) SaveExpenseHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	var expenseReq ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&expenseReq); err != nil {
		logging.Logger.Errorf("Failed to parse save expense request: %v", err)
		msg := fmt.Sprintf("failed to parse save expense request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	saved, err := api.Service.SaveExpense(r.Context(), &userId, expense.NewExpenseRequest{
		Date:        expenseReq.Date,
		Amount:      expenseReq.Amount,
		Description: expenseReq.Description,
		Category:    expenseReq.Category,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to create expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(201).JSON(toExpenseResponse(saved))
}

func (api *Api) GetExpensesHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	expenses, err := api.Service.GetExpenses(r.Context(), &userId)
	if err != nil {
		msg := fmt.Sprintf("failed to get expenses: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	response := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		response = append(response, toExpenseResponse(e))
	}
	return iz.Respond().Status(200).JSON(response)
}

func (api *Api) GetExpenseByIdHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		msg := fmt.Sprintf("invalid expense id: '%s'", r.PathValue("id"))
		return iz.Respond().Status(400).Text(msg)
	}

	e, err := api.Service.GetExpenseById(r.Context(), id, &userId)
	if err != nil {
		msg := fmt.Sprintf("failed to get expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(toExpenseResponse(e))
}

func (api *Api) UpdateExpenseHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		msg := fmt.Sprintf("invalid expense id: '%s'", r.PathValue("id"))
		return iz.Respond().Status(400).Text(msg)
	}

	var expenseReq ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&expenseReq); err != nil {
		msg := fmt.Sprintf("failed to parse update expense request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	updated, err := api.Service.UpdateExpense(r.Context(), &userId, expense.UpdateExpenseRequest{
		ID:          id,
		Date:        expenseReq.Date,
		Amount:      expenseReq.Amount,
		Description: expenseReq.Description,
		Category:    expenseReq.Category,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to update expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(toExpenseResponse(updated))
}

func (api *Api) DeleteExpenseHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		msg := fmt.Sprintf("invalid expense id: '%s'", r.PathValue("id"))
		return iz.Respond().Status(400).Text(msg)
	}

	if err := api.Service.DeleteExpense(r.Context(), id, &userId); err != nil {
		msg := fmt.Sprintf("failed to delete expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("expense successfully deleted")
}

func (api *Api) GetSummaryHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	// Default reference day is now; ?date=YYYY-MM-DD picks another.
	today := time.Now().UTC()
	params := r.URL.Query()
	if dateParam := params.Get("date"); dateParam != "" {
		normalized, err := expense.NormalizeDate(dateParam)
		if err != nil {
			return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
		}
		today, _ = time.Parse(expense.DateLayout, normalized)
	}

	summary, err := api.Service.Summarize(r.Context(), &userId, today)
	if err != nil {
		msg := fmt.Sprintf("failed to build summary: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(toSummaryResponse(summary))
}

func (api *Api) GetBudgetHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	budget, err := api.Service.GetBudget(r.Context(), userId)
	if err != nil {
		msg := fmt.Sprintf("failed to get budget: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(BudgetResponse{Budget: budget})
}

func (api *Api) SetBudgetHandler(r *iz.Request) iz.Responder {
	userId, err := api.authenticate(r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(401).Text(msg)
	}

	var budgetReq BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&budgetReq); err != nil {
		msg := fmt.Sprintf("failed to parse budget request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	if err := api.Service.SetBudget(r.Context(), userId, budgetReq.Budget); err != nil {
		msg := fmt.Sprintf("failed to set budget: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(BudgetResponse{Budget: budgetReq.Budget})
}

func (api *Api) HealthHandler(r *iz.Request) iz.Responder {
	return iz.Respond().Status(200).JSON(HealthResponse{Status: "ok"})
}

func (api *Api) HealthDbHandler(r *iz.Request) iz.Responder {
	if err := api.Service.Ping(r.Context()); err != nil {
		logging.Logger.Errorf("database health check failed: %v", err)
		return iz.Respond().Status(503).JSON(HealthResponse{
			Status:  "unavailable",
			Storage: api.Service.StorageType,
		})
	}
	return iz.Respond().Status(200).JSON(HealthResponse{
		Status:  "ok",
		Storage: api.Service.StorageType,
	})
}
