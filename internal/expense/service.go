package expense

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	appErrors "spendtrack/customErrors"
	"spendtrack/internal/auth"

	"github.com/google/uuid"
)

type Tracker struct {
	storage     Storage
	StorageType string
}

func NewTracker(s Storage) Tracker {
	return Tracker{
		storage:     s,
		StorageType: s.GetStorageType(),
	}
}

type Storage interface {
	SaveUser(ctx context.Context, newUser auth.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (auth.User, error)
	IsUserExists(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	GetBudget(ctx context.Context, userID int64) (float64, error)
	SetBudget(ctx context.Context, userID int64, amount float64) error
	SaveSession(ctx context.Context, session auth.Session) error
	GetSessionByToken(ctx context.Context, token string) (auth.Session, error)
	UpdateSession(ctx context.Context, userID int64, newExpireDate time.Time) error
	DeleteSession(ctx context.Context, token string) error
	SaveExpense(ctx context.Context, e Expense) (int64, error)
	GetExpenses(ctx context.Context, userID *int64) ([]Expense, error)
	GetExpenseById(ctx context.Context, id int64, userID *int64) (Expense, error)
	UpdateExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, id int64, userID *int64) error
	Ping(ctx context.Context) error
	GetStorageType() string
}

func (tr *Tracker) RegisterUser(ctx context.Context, newUser auth.NewUser) (string, error) {
	if err := newUser.ValidateUserFields(); err != nil {
		return "", err
	}

	isUserExists, err := tr.storage.IsUserExists(ctx, newUser.UserName)
	if err != nil {
		return "", fmt.Errorf("failed to check username availability: %w", err)
	}
	if isUserExists {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: fmt.Sprintf("This '%s' username already taken.", newUser.UserName),
		}
	}
	isEmailTaken, err := tr.storage.IsEmailTaken(ctx, newUser.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}
	if isEmailTaken {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: fmt.Sprintf("This '%s' email address already taken, try to register with another email.", newUser.Email),
		}
	}

	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := auth.User{
		UserName:       strings.ToLower(newUser.UserName),
		Email:          strings.ToLower(newUser.Email),
		PasswordHashed: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := tr.storage.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to registration: %w", err)
	}

	credentials := auth.UserCredentialsPure{
		UserName:      newUser.UserName,
		PasswordPlain: newUser.PasswordPlain,
	}

	token, err := tr.GenerateSession(ctx, credentials)
	if err != nil {
		return "", fmt.Errorf("registration successful but failed to generate session: %w | try login", err)
	}
	return token, nil
}

func (tr *Tracker) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	user, err := tr.storage.GetUserByUsername(ctx, strings.ToLower(credentials.UserName))
	if err != nil {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Username or password is wrong.",
		}
	}
	if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Username or password is wrong.",
		}
	}
	return user, nil
}

func (tr *Tracker) GenerateSession(ctx context.Context, credentialsPure auth.UserCredentialsPure) (string, error) {
	user, err := tr.ValidateUser(ctx, credentialsPure)
	if err != nil {
		return "", err
	}

	tokenByte := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, tokenByte); err != nil {
		return "", fmt.Errorf("failed to generate new session: %w", err)
	}

	token := hex.EncodeToString(tokenByte)

	now := time.Now().UTC()

	session := auth.Session{
		ID:        uuid.New().String(),
		Token:     token,
		CreatedAt: now,
		ExpireAt:  now.AddDate(0, 3, 0),
		UserID:    user.ID,
	}

	if err := tr.storage.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return token, nil
}

func (tr *Tracker) CheckSession(ctx context.Context, token string) (int64, error) {
	session, err := tr.storage.GetSessionByToken(ctx, token)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	if session.ExpireAt.Before(now) {
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Your session expired, please login again.",
		}
	}

	daysUntilExpiry := int(session.ExpireAt.Sub(now).Hours() / 24)
	if daysUntilExpiry <= 5 {
		newExpireAt := now.AddDate(0, 1, 0)
		if err := tr.storage.UpdateSession(ctx, session.UserID, newExpireAt); err != nil {
			return 0, fmt.Errorf("failed to update session: %w", err)
		}
	}

	return session.UserID, nil
}

func (tr *Tracker) LogoutUser(ctx context.Context, token string) error {
	if err := tr.storage.DeleteSession(ctx, token); err != nil {
		return err
	}
	return nil
}

func validateExpenseFields(amount float64, description string, category string) error {
	if IsFloatZero(amount) || amount < 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Expense amount must be greater than zero.",
		}
	}
	if amount > MAX_EXPENSE_AMOUNT_LIMIT {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Maximum allowed amount per expense is: %.2f", MAX_EXPENSE_AMOUNT_LIMIT),
		}
	}
	if len(description) > MAX_EXPENSE_DESCRIPTION_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Description so long, maximum allowed length is: %d", MAX_EXPENSE_DESCRIPTION_LENGTH),
		}
	}
	if len(category) > MAX_EXPENSE_CATEGORY_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Category so long, maximum allowed length is: %d", MAX_EXPENSE_CATEGORY_LENGTH),
		}
	}
	return nil
}

func (tr *Tracker) SaveExpense(ctx context.Context, userID *int64, request NewExpenseRequest) (Expense, error) {
	if err := validateExpenseFields(request.Amount, request.Description, request.Category); err != nil {
		return Expense{}, err
	}

	date, err := NormalizeDate(request.Date)
	if err != nil {
		return Expense{}, err
	}

	e := Expense{
		Date:        date,
		Amount:      request.Amount,
		Description: request.Description,
		Category:    request.Category,
		UserID:      userID,
	}

	id, err := tr.storage.SaveExpense(ctx, e)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to save expense: %w", err)
	}
	e.ID = id
	return e, nil
}

func (tr *Tracker) GetExpenses(ctx context.Context, userID *int64) ([]Expense, error) {
	expenses, err := tr.storage.GetExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return expenses, nil
}

func (tr *Tracker) GetExpenseById(ctx context.Context, id int64, userID *int64) (Expense, error) {
	e, err := tr.storage.GetExpenseById(ctx, id, userID)
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (tr *Tracker) UpdateExpense(ctx context.Context, userID *int64, request UpdateExpenseRequest) (Expense, error) {
	if err := validateExpenseFields(request.Amount, request.Description, request.Category); err != nil {
		return Expense{}, err
	}

	date, err := NormalizeDate(request.Date)
	if err != nil {
		return Expense{}, err
	}

	// Ownership check before the write so a foreign id reads as missing.
	if _, err := tr.storage.GetExpenseById(ctx, request.ID, userID); err != nil {
		return Expense{}, err
	}

	e := Expense{
		ID:          request.ID,
		Date:        date,
		Amount:      request.Amount,
		Description: request.Description,
		Category:    request.Category,
		UserID:      userID,
	}

	if err := tr.storage.UpdateExpense(ctx, e); err != nil {
		return Expense{}, fmt.Errorf("failed to update expense: %w", err)
	}
	return e, nil
}

func (tr *Tracker) DeleteExpense(ctx context.Context, id int64, userID *int64) error {
	if err := tr.storage.DeleteExpense(ctx, id, userID); err != nil {
		return err
	}
	return nil
}

func (tr *Tracker) GetBudget(ctx context.Context, userID int64) (float64, error) {
	budget, err := tr.storage.GetBudget(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

func (tr *Tracker) SetBudget(ctx context.Context, userID int64, amount float64) error {
	if amount < 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Budget cannot be negative.",
		}
	}
	if err := tr.storage.SetBudget(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

func (tr *Tracker) Summarize(ctx context.Context, userID *int64, today time.Time) (Summary, error) {
	expenses, err := tr.storage.GetExpenses(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get expenses for summary: %w", err)
	}

	var budget float64
	if userID != nil {
		budget, err = tr.storage.GetBudget(ctx, *userID)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to get budget for summary: %w", err)
		}
	}

	return BuildSummary(expenses, budget, today), nil
}

func (tr *Tracker) Ping(ctx context.Context) error {
	return tr.storage.Ping(ctx)
}
