package storage

import (
	"database/sql"
	"time"
)

type dbUser struct {
	ID             int64
	UserName       string
	PasswordHashed string
	Email          string
	Budget         float64
	CreatedAt      time.Time
}

type dbSession struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	UserID    int64
}

type dbExpense struct {
	ID          int64
	Date        string
	Amount      float64
	Description string
	Category    string
	UserID      sql.NullInt64
}
