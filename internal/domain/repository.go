package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. Persistence
// failures never abort an evaluation; the pipeline logs and continues.
type Repository interface {
	// Evaluation records
	SaveEvaluation(ctx context.Context, eval *EvaluationResult) error
	GetEvaluation(ctx context.Context, id string) (*EvaluationResult, error)
	ListEvaluations(ctx context.Context, limit int) ([]*EvaluationResult, error)

	// Backtest reports, stored as opaque JSON documents
	SaveBacktestReport(ctx context.Context, id string, report []byte) error
	GetBacktestReport(ctx context.Context, id string) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
