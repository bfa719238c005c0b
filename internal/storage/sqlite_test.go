package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	appErrors "spendtrack/customErrors"
	"spendtrack/internal/auth"
	"spendtrack/internal/expense"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteStorageTestSuite struct {
	suite.Suite
	db      *sql.DB
	storage *SQLiteStorage
	ctx     context.Context
}

// SetupTest runs before each test
func (suite *SQLiteStorageTestSuite) SetupTest() {
	db, err := InitSQLite(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.storage = NewSQLiteStorage(db)
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *SQLiteStorageTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SQLiteStorageTestSuite) createUser(username string) int64 {
	id, err := suite.storage.SaveUser(suite.ctx, auth.User{
		UserName:       username,
		PasswordHashed: "$2a$10$fakehashfortests",
		Email:          username + "@example.com",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(suite.T(), err)
	return id
}

func (suite *SQLiteStorageTestSuite) TestSaveAndGetUser() {
	id := suite.createUser("john_doe")
	assert.Equal(suite.T(), int64(1), id)

	user, err := suite.storage.GetUserByUsername(suite.ctx, "john_doe")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, user.ID)
	assert.Equal(suite.T(), "john_doe@example.com", user.Email)
	assert.Equal(suite.T(), 0.0, user.Budget)
}

func (suite *SQLiteStorageTestSuite) TestDuplicateUsername() {
	suite.createUser("john_doe")

	_, err := suite.storage.SaveUser(suite.ctx, auth.User{
		UserName:       "john_doe",
		PasswordHashed: "x",
		Email:          "other@example.com",
		CreatedAt:      time.Now().UTC(),
	})
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrConflict, appErrors.CodeOf(err))

	// First user survives the failed insert.
	user, err := suite.storage.GetUserByUsername(suite.ctx, "john_doe")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "john_doe@example.com", user.Email)
}

func (suite *SQLiteStorageTestSuite) TestDuplicateEmail() {
	suite.createUser("john_doe")

	_, err := suite.storage.SaveUser(suite.ctx, auth.User{
		UserName:       "jane_doe",
		PasswordHashed: "x",
		Email:          "john_doe@example.com",
		CreatedAt:      time.Now().UTC(),
	})
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrConflict, appErrors.CodeOf(err))
}

func (suite *SQLiteStorageTestSuite) TestBudgetRoundTrip() {
	id := suite.createUser("john_doe")

	require.NoError(suite.T(), suite.storage.SetBudget(suite.ctx, id, 750.50))

	budget, err := suite.storage.GetBudget(suite.ctx, id)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 750.50, budget)
}

func (suite *SQLiteStorageTestSuite) TestSetBudgetUnknownUser() {
	err := suite.storage.SetBudget(suite.ctx, 999, 100)
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func (suite *SQLiteStorageTestSuite) TestSessionLifecycle() {
	userID := suite.createUser("john_doe")

	now := time.Now().UTC()
	session := auth.Session{
		ID:        "4f3a2b1c-0000-0000-0000-000000000001",
		Token:     "abc123",
		CreatedAt: now,
		ExpireAt:  now.AddDate(0, 3, 0),
		UserID:    userID,
	}
	require.NoError(suite.T(), suite.storage.SaveSession(suite.ctx, session))

	got, err := suite.storage.GetSessionByToken(suite.ctx, "abc123")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), userID, got.UserID)

	require.NoError(suite.T(), suite.storage.DeleteSession(suite.ctx, "abc123"))

	_, err = suite.storage.GetSessionByToken(suite.ctx, "abc123")
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrAuth, appErrors.CodeOf(err))
}

func (suite *SQLiteStorageTestSuite) TestExpenseRoundTrip() {
	userID := suite.createUser("john_doe")

	id, err := suite.storage.SaveExpense(suite.ctx, expense.Expense{
		Date:        "2024-03-15",
		Amount:      12.50,
		Description: "groceries",
		Category:    "Food",
		UserID:      &userID,
	})
	require.NoError(suite.T(), err)

	got, err := suite.storage.GetExpenseById(suite.ctx, id, &userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2024-03-15", got.Date)
	assert.Equal(suite.T(), 12.50, got.Amount)
	assert.Equal(suite.T(), "groceries", got.Description)
	assert.Equal(suite.T(), "Food", got.Category)
}

func (suite *SQLiteStorageTestSuite) TestGetExpensesOrderedByDateDesc() {
	userID := suite.createUser("john_doe")

	dates := []string{"2024-03-01", "2024-02-01", "2024-01-01"}
	for _, date := range []string{dates[2], dates[0], dates[1]} {
		_, err := suite.storage.SaveExpense(suite.ctx, expense.Expense{
			Date:   date,
			Amount: 1,
			UserID: &userID,
		})
		require.NoError(suite.T(), err)
	}

	expenses, err := suite.storage.GetExpenses(suite.ctx, &userID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 3)
	for i, date := range dates {
		assert.Equal(suite.T(), date, expenses[i].Date)
	}
}

func (suite *SQLiteStorageTestSuite) TestExpensesScopedByUser() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	id, err := suite.storage.SaveExpense(suite.ctx, expense.Expense{
		Date:   "2024-06-01",
		Amount: 9.99,
		UserID: &alice,
	})
	require.NoError(suite.T(), err)

	expenses, err := suite.storage.GetExpenses(suite.ctx, &bob)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses)

	_, err = suite.storage.GetExpenseById(suite.ctx, id, &bob)
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrNotFound, appErrors.CodeOf(err))

	err = suite.storage.DeleteExpense(suite.ctx, id, &bob)
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrNotFound, appErrors.CodeOf(err))

	// Still present for the owner.
	_, err = suite.storage.GetExpenseById(suite.ctx, id, &alice)
	assert.NoError(suite.T(), err)
}

func (suite *SQLiteStorageTestSuite) TestUpdateExpense() {
	userID := suite.createUser("john_doe")

	id, err := suite.storage.SaveExpense(suite.ctx, expense.Expense{
		Date:   "2024-06-01",
		Amount: 10,
		UserID: &userID,
	})
	require.NoError(suite.T(), err)

	err = suite.storage.UpdateExpense(suite.ctx, expense.Expense{
		ID:          id,
		Date:        "2024-06-02",
		Amount:      15,
		Description: "dinner",
		Category:    "Food",
		UserID:      &userID,
	})
	require.NoError(suite.T(), err)

	got, err := suite.storage.GetExpenseById(suite.ctx, id, &userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2024-06-02", got.Date)
	assert.Equal(suite.T(), 15.0, got.Amount)
}

func (suite *SQLiteStorageTestSuite) TestUpdateMissingExpense() {
	userID := suite.createUser("john_doe")

	err := suite.storage.UpdateExpense(suite.ctx, expense.Expense{
		ID:     999,
		Date:   "2024-06-02",
		Amount: 15,
		UserID: &userID,
	})
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func (suite *SQLiteStorageTestSuite) TestUpdateForeignExpense() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	id, err := suite.storage.SaveExpense(suite.ctx, expense.Expense{
		Date:   "2024-06-01",
		Amount: 10,
		UserID: &alice,
	})
	require.NoError(suite.T(), err)

	err = suite.storage.UpdateExpense(suite.ctx, expense.Expense{
		ID:     id,
		Date:   "2024-06-02",
		Amount: 99,
		UserID: &bob,
	})
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrNotFound, appErrors.CodeOf(err))

	// Untouched for the owner.
	got, err := suite.storage.GetExpenseById(suite.ctx, id, &alice)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 10.0, got.Amount)
}

func (suite *SQLiteStorageTestSuite) TestDeleteMissingExpense() {
	err := suite.storage.DeleteExpense(suite.ctx, 999, nil)
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func (suite *SQLiteStorageTestSuite) TestUnownedExpensesStayUnowned() {
	id, err := suite.storage.SaveExpense(suite.ctx, expense.Expense{
		Date:   "2024-06-01",
		Amount: 3.50,
	})
	require.NoError(suite.T(), err)

	got, err := suite.storage.GetExpenseById(suite.ctx, id, nil)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got.UserID)

	userID := suite.createUser("john_doe")
	expenses, err := suite.storage.GetExpenses(suite.ctx, &userID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses)
}

func TestSQLiteStorageTestSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStorageTestSuite))
}
