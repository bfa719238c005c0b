package main

import (
	"fmt"
	"net/http"

	"github.com/0xcafe-io/iz"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"spendtrack/api"
	"spendtrack/internal/config"
	"spendtrack/internal/contextutil"
	"spendtrack/internal/expense"
	"spendtrack/internal/storage"
	"spendtrack/logging"
)

var tracker expense.Tracker // Global

var corsConf = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"Authorization", "Content-Type"},
	AllowCredentials: true,
})

// withTraceID tags every request context so storage errors can be
// matched back to the request that caused them.
func withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextutil.WithTraceID(r.Context(), uuid.New().String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func main() {
	cfg := config.Load()

	if err := logging.Init(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return
	}

	logging.Logger.Info("application starting...")

	if err := cfg.Validate(); err != nil {
		logging.Logger.Errorf("invalid configuration: %v", err)
		return
	}

	storageInstance, err := storage.Open(cfg)
	if err != nil {
		logging.Logger.Errorf("failed to initialize storage: %v", err)
		return
	}

	tracker = expense.NewTracker(storageInstance)
	logging.Logger.Infof("using %s storage", tracker.StorageType)

	server := http.NewServeMux()
	api := api.NewApi(&tracker)

	// USER ENDPOINTS.
	server.HandleFunc("POST /api/register", iz.Bind(api.RegisterUserHandler)) // Create User
	server.HandleFunc("POST /api/login", iz.Bind(api.LoginUserHandler))       // Login User
	server.HandleFunc("GET /api/logout", iz.Bind(api.LogoutUserHandler))      // Logout User

	// EXPENSE ENDPOINTS.
	server.HandleFunc("POST /api/expenses", iz.Bind(api.SaveExpenseHandler))          // Create Expense
	server.HandleFunc("GET /api/expenses", iz.Bind(api.GetExpensesHandler))           // Get Expenses
	server.HandleFunc("GET /api/expenses/{id}", iz.Bind(api.GetExpenseByIdHandler))   // Get Expense by ID
	server.HandleFunc("PUT /api/expenses/{id}", iz.Bind(api.UpdateExpenseHandler))    // Update Expense
	server.HandleFunc("DELETE /api/expenses/{id}", iz.Bind(api.DeleteExpenseHandler)) // Delete Expense

	// SUMMARY AND BUDGET ENDPOINTS.
	server.HandleFunc("GET /api/summary", iz.Bind(api.GetSummaryHandler)) // Daily and monthly totals
	server.HandleFunc("GET /api/budget", iz.Bind(api.GetBudgetHandler))   // Get Monthly Budget
	server.HandleFunc("PUT /api/budget", iz.Bind(api.SetBudgetHandler))   // Set Monthly Budget

	// HEALTH ENDPOINTS.
	server.HandleFunc("GET /health", iz.Bind(api.HealthHandler))      // Liveness
	server.HandleFunc("GET /health/db", iz.Bind(api.HealthDbHandler)) // Storage reachability

	fmt.Println("Starting server on port: ", cfg.Port)
	handler := corsConf.Handler(withTraceID(server))
	err = http.ListenAndServe(":"+cfg.Port, handler) // Start the server
	if err != nil {
		logging.Logger.Errorf("failed to start server: %v", err)
		return
	}
}
