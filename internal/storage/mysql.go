package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "spendtrack/customErrors"
	"spendtrack/internal/auth"
	"spendtrack/internal/config"
	"spendtrack/internal/contextutil"
	"spendtrack/internal/expense"
	"spendtrack/logging"

	"github.com/go-sql-driver/mysql"
)

// InitMySQL connects to the MySQL server, creates the database when
// missing, then reconnects to it and applies pending migrations.
func InitMySQL(cfg config.MySQLConfig) (*sql.DB, error) {
	dbname := cfg.Database
	if dbname == "" {
		dbname = "spendtrack"
	}

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", cfg.DSN(""))
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %v", err)
	}

	connected := false
	for i := 0; i < 15; i++ {
		if err := adminDb.Ping(); err == nil {
			connected = true
			break
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/15)", i+1)
		time.Sleep(3 * time.Second)
	}
	if !connected {
		adminDb.Close()
		return nil, fmt.Errorf("database unreachable after multiple attempts")
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRow(checkDbnameExistQuery, dbname).Scan(&dbnameExistence)

	if err == sql.ErrNoRows {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
		if _, err := adminDb.Exec(createDbSql); err != nil {
			adminDb.Close()
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	} else if err != nil {
		adminDb.Close()
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	adminDb.Close()

	logging.Logger.Info("Connecting to database...")
	db, err := sql.Open("mysql", cfg.DSN(dbname))
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %v", err)
	}

	if _, err := db.Exec("SET time_zone = '+00:00'"); err != nil {
		logging.Logger.Warn("failed to set database timezone(UTC+0)")
	}

	logging.Logger.Info("Connected to database successfully")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(db, "mysql"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	return db, nil
}

type MySQLStorage struct {
	db *sql.DB
}

func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

func (m *MySQLStorage) GetStorageType() string {
	return "mysql"
}

func (m *MySQLStorage) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func isMySQLDuplicate(err error) bool {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		return mysqlErr.Number == 1062
	}
	return false
}

func (m *MySQLStorage) SaveUser(ctx context.Context, user auth.User) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO users (username, password, email, created_at) VALUES (?, ?, ?, ?);"
	result, err := m.db.ExecContext(ctx, query, user.UserName, user.PasswordHashed, user.Email, user.CreatedAt)
	if err != nil {
		if isMySQLDuplicate(err) {
			return 0, appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "Username or email already taken.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save user in Storage.SaveUser() function | Error: %v", traceID, err)
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Registration failed, try again later.",
		}
	}

	id, err := result.LastInsertId()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to read new user id in Storage.SaveUser() function | Error: %v", traceID, err)
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Registration failed, try again later.",
		}
	}
	return id, nil
}

func (m *MySQLStorage) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, username, password, email, budget, created_at FROM users WHERE username = ?;"
	var dbU dbUser
	err := m.db.QueryRowContext(ctx, query, username).Scan(
		&dbU.ID,
		&dbU.UserName,
		&dbU.PasswordHashed,
		&dbU.Email,
		&dbU.Budget,
		&dbU.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "User not found.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user in Storage.GetUserByUsername() function | Error: %v", traceID, err)
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to load user, try again later.",
		}
	}

	return auth.User{
		ID:             dbU.ID,
		UserName:       dbU.UserName,
		PasswordHashed: dbU.PasswordHashed,
		Email:          dbU.Email,
		Budget:         dbU.Budget,
		CreatedAt:      dbU.CreatedAt,
	}, nil
}

func (m *MySQLStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var existing string
	err := m.db.QueryRowContext(ctx, "SELECT username FROM users WHERE username = ?;", username).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check user existence in Storage.IsUserExists() function | Error: %v", traceID, err)
		return false, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check username availability, try again later.",
		}
	}
	return true, nil
}

func (m *MySQLStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var existing string
	err := m.db.QueryRowContext(ctx, "SELECT email FROM users WHERE email = ?;", email).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check email existence in Storage.IsEmailTaken() function | Error: %v", traceID, err)
		return false, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check email availability, try again later.",
		}
	}
	return true, nil
}

func (m *MySQLStorage) GetBudget(ctx context.Context, userID int64) (float64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var budget float64
	err := m.db.QueryRowContext(ctx, "SELECT budget FROM users WHERE id = ?;", userID).Scan(&budget)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "User not found.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get budget in Storage.GetBudget() function | Error: %v", traceID, err)
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to load budget, try again later.",
		}
	}
	return budget, nil
}

func (m *MySQLStorage) SetBudget(ctx context.Context, userID int64, amount float64) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	// RowsAffected is zero for a no-op update too, so check the user
	// first instead of relying on it.
	if _, err := m.GetBudget(ctx, userID); err != nil {
		return err
	}

	if _, err := m.db.ExecContext(ctx, "UPDATE users SET budget = ? WHERE id = ?;", amount, userID); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to set budget in Storage.SetBudget() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save budget, try again later.",
		}
	}
	return nil
}

func (m *MySQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO sessions (id, token, created_at, expire_at, user_id) VALUES (?, ?, ?, ?, ?);"
	_, err := m.db.ExecContext(ctx, query, session.ID, session.Token, session.CreatedAt, session.ExpireAt, session.UserID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save session in Storage.SaveSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save session, try again later.",
		}
	}
	return nil
}

func (m *MySQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, token, created_at, expire_at, user_id FROM sessions WHERE token = ?;"
	var dbS dbSession
	err := m.db.QueryRowContext(ctx, query, token).Scan(
		&dbS.ID,
		&dbS.Token,
		&dbS.CreatedAt,
		&dbS.ExpireAt,
		&dbS.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Session does not exist, please login.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get session in Storage.GetSessionByToken() function | Error: %v", traceID, err)
		return auth.Session{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check session, try again later.",
		}
	}

	return auth.Session{
		ID:        dbS.ID,
		Token:     dbS.Token,
		CreatedAt: dbS.CreatedAt,
		ExpireAt:  dbS.ExpireAt,
		UserID:    dbS.UserID,
	}, nil
}

func (m *MySQLStorage) UpdateSession(ctx context.Context, userID int64, newExpireDate time.Time) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	result, err := m.db.ExecContext(ctx, "UPDATE sessions SET expire_at = ? WHERE user_id = ?;", newExpireDate, userID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update session in Storage.UpdateSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check session, try again later.",
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdateSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check session, try again later.",
		}
	}
	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}
	return nil
}

func (m *MySQLStorage) DeleteSession(ctx context.Context, token string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	result, err := m.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?;", token)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete session in Storage.DeleteSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Logout failed, try again later.",
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.DeleteSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Logout failed, try again later.",
		}
	}
	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}
	return nil
}

func (m *MySQLStorage) SaveExpense(ctx context.Context, e expense.Expense) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO expenses (date, amount, description, category, user_id) VALUES (?, ?, ?, ?, ?);"
	result, err := m.db.ExecContext(ctx, query, e.Date, e.Amount, e.Description, e.Category, nullableID(e.UserID))
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save expense in Storage.SaveExpense() function | Error: %v", traceID, err)
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save expense, try again later.",
		}
	}

	id, err := result.LastInsertId()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to read new expense id in Storage.SaveExpense() function | Error: %v", traceID, err)
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save expense, try again later.",
		}
	}
	return id, nil
}

func (m *MySQLStorage) GetExpenses(ctx context.Context, userID *int64) ([]expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(userID)
	query := "SELECT id, date, amount, description, category, user_id FROM expenses WHERE " + scope + " ORDER BY date DESC, id DESC;"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to query expenses in Storage.GetExpenses() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to load expenses, try again later.",
		}
	}
	defer rows.Close()

	return collectExpenses(rows, traceID)
}

func (m *MySQLStorage) GetExpenseById(ctx context.Context, id int64, userID *int64) (expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(userID)
	query := "SELECT id, date, amount, description, category, user_id FROM expenses WHERE id = ? AND " + scope + ";"

	var dbE dbExpense
	err := m.db.QueryRowContext(ctx, query, append([]any{id}, args...)...).Scan(
		&dbE.ID,
		&dbE.Date,
		&dbE.Amount,
		&dbE.Description,
		&dbE.Category,
		&dbE.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return expense.Expense{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Expense not found.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get expense in Storage.GetExpenseById() function | Error: %v", traceID, err)
		return expense.Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to load expense, try again later.",
		}
	}

	return toExpense(dbE), nil
}

func (m *MySQLStorage) UpdateExpense(ctx context.Context, e expense.Expense) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	// RowsAffected is zero for a no-op update too, so check the row
	// first instead of relying on it.
	if _, err := m.GetExpenseById(ctx, e.ID, e.UserID); err != nil {
		return err
	}

	scope, args := userScope(e.UserID)
	query := "UPDATE expenses SET date = ?, amount = ?, description = ?, category = ? WHERE id = ? AND " + scope + ";"

	if _, err := m.db.ExecContext(ctx, query, append([]any{e.Date, e.Amount, e.Description, e.Category, e.ID}, args...)...); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update expense in Storage.UpdateExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update expense, try again later.",
		}
	}
	return nil
}

func (m *MySQLStorage) DeleteExpense(ctx context.Context, id int64, userID *int64) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(userID)
	query := "DELETE FROM expenses WHERE id = ? AND " + scope + ";"

	result, err := m.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete expense in Storage.DeleteExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete expense, try again later.",
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.DeleteExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete expense, try again later.",
		}
	}
	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Expense not found.",
		}
	}
	return nil
}
