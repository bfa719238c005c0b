package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	appErrors "spendtrack/customErrors"
	"spendtrack/internal/auth"
	"spendtrack/internal/contextutil"
	"spendtrack/internal/expense"
	"spendtrack/logging"

	_ "modernc.org/sqlite"
)

// InitSQLite opens the database file, applies pending migrations and
// returns the handle. A single connection keeps the writer serialized
// and makes ":memory:" paths behave, since every caller shares the
// same in-memory database.
func InitSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database handle: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach sqlite database at '%s': %v", path, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		logging.Logger.Warn("failed to enable sqlite foreign keys")
	}

	logging.Logger.Info("Connected to sqlite database")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(db, "sqlite"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	return db, nil
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) GetStorageType() string {
	return "sqlite"
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isSQLiteDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// userScope renders the owner predicate for expense queries. A nil
// owner selects only the unowned rows, never everyone's.
func userScope(userID *int64) (string, []any) {
	if userID == nil {
		return "user_id IS NULL", nil
	}
	return "user_id = ?", []any{*userID}
}

func (s *SQLiteStorage) SaveUser(ctx context.Context, user auth.User) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO users (username, password, email, created_at) VALUES (?, ?, ?, ?);"
	result, err := s.db.ExecContext(ctx, query, user.UserName, user.PasswordHashed, user.Email, user.CreatedAt)
	if err != nil {
		if isSQLiteDuplicate(err) {
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

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, username, password, email, budget, created_at FROM users WHERE username = ?;"
	var dbU dbUser
	err := s.db.QueryRowContext(ctx, query, username).Scan(
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

func (s *SQLiteStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var existing string
	err := s.db.QueryRowContext(ctx, "SELECT username FROM users WHERE username = ?;", username).Scan(&existing)
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

func (s *SQLiteStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var existing string
	err := s.db.QueryRowContext(ctx, "SELECT email FROM users WHERE email = ?;", email).Scan(&existing)
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

func (s *SQLiteStorage) GetBudget(ctx context.Context, userID int64) (float64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var budget float64
	err := s.db.QueryRowContext(ctx, "SELECT budget FROM users WHERE id = ?;", userID).Scan(&budget)
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

func (s *SQLiteStorage) SetBudget(ctx context.Context, userID int64, amount float64) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	result, err := s.db.ExecContext(ctx, "UPDATE users SET budget = ? WHERE id = ?;", amount, userID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to set budget in Storage.SetBudget() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save budget, try again later.",
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.SetBudget() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save budget, try again later.",
		}
	}
	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "User not found.",
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveSession(ctx context.Context, session auth.Session) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO sessions (id, token, created_at, expire_at, user_id) VALUES (?, ?, ?, ?, ?);"
	_, err := s.db.ExecContext(ctx, query, session.ID, session.Token, session.CreatedAt, session.ExpireAt, session.UserID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save session in Storage.SaveSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save session, try again later.",
		}
	}
	return nil
}

func (s *SQLiteStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, token, created_at, expire_at, user_id FROM sessions WHERE token = ?;"
	var dbS dbSession
	err := s.db.QueryRowContext(ctx, query, token).Scan(
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

func (s *SQLiteStorage) UpdateSession(ctx context.Context, userID int64, newExpireDate time.Time) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	result, err := s.db.ExecContext(ctx, "UPDATE sessions SET expire_at = ? WHERE user_id = ?;", newExpireDate, userID)
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

func (s *SQLiteStorage) DeleteSession(ctx context.Context, token string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?;", token)
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

func (s *SQLiteStorage) SaveExpense(ctx context.Context, e expense.Expense) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO expenses (date, amount, description, category, user_id) VALUES (?, ?, ?, ?, ?);"
	result, err := s.db.ExecContext(ctx, query, e.Date, e.Amount, e.Description, e.Category, nullableID(e.UserID))
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

func (s *SQLiteStorage) GetExpenses(ctx context.Context, userID *int64) ([]expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(userID)
	query := "SELECT id, date, amount, description, category, user_id FROM expenses WHERE " + scope + " ORDER BY date DESC, id DESC;"

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStorage) GetExpenseById(ctx context.Context, id int64, userID *int64) (expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(userID)
	query := "SELECT id, date, amount, description, category, user_id FROM expenses WHERE id = ? AND " + scope + ";"

	var dbE dbExpense
	err := s.db.QueryRowContext(ctx, query, append([]any{id}, args...)...).Scan(
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

func (s *SQLiteStorage) UpdateExpense(ctx context.Context, e expense.Expense) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(e.UserID)
	query := "UPDATE expenses SET date = ?, amount = ?, description = ?, category = ? WHERE id = ? AND " + scope + ";"

	result, err := s.db.ExecContext(ctx, query, append([]any{e.Date, e.Amount, e.Description, e.Category, e.ID}, args...)...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update expense in Storage.UpdateExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update expense, try again later.",
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdateExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update expense, try again later.",
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

func (s *SQLiteStorage) DeleteExpense(ctx context.Context, id int64, userID *int64) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	scope, args := userScope(userID)
	query := "DELETE FROM expenses WHERE id = ? AND " + scope + ";"

	result, err := s.db.ExecContext(ctx, query, append([]any{id}, args...)...)
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

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func toExpense(dbE dbExpense) expense.Expense {
	e := expense.Expense{
		ID:          dbE.ID,
		Date:        dbE.Date,
		Amount:      dbE.Amount,
		Description: dbE.Description,
		Category:    dbE.Category,
	}
	if dbE.UserID.Valid {
		userID := dbE.UserID.Int64
		e.UserID = &userID
	}
	return e
}

// collectExpenses scans the result set, skipping rows that fail to
// scan instead of failing the whole listing.
func collectExpenses(rows *sql.Rows, traceID string) ([]expense.Expense, error) {
	var expenses []expense.Expense
	for rows.Next() {
		var dbE dbExpense
		if err := rows.Scan(&dbE.ID, &dbE.Date, &dbE.Amount, &dbE.Description, &dbE.Category, &dbE.UserID); err != nil {
			logging.Logger.Warnf("[TraceID=%s] | skipping unreadable expense row | Error: %v", traceID, err)
			continue
		}
		expenses = append(expenses, toExpense(dbE))
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed while iterating expense rows | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to load expenses, try again later.",
		}
	}
	return expenses, nil
}
