package storage

import (
	"fmt"

	"spendtrack/internal/config"
	"spendtrack/internal/expense"
)

// Open builds the storage backend the configuration selects.
func Open(cfg *config.Config) (expense.Storage, error) {
	switch cfg.Engine {
	case config.EngineSQLite:
		db, err := InitSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		return NewSQLiteStorage(db), nil
	case config.EngineMySQL:
		db, err := InitMySQL(cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mysql storage: %w", err)
		}
		return NewMySQLStorage(db), nil
	default:
		return nil, fmt.Errorf("unknown storage engine: %q", cfg.Engine)
	}
}
