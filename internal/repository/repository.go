// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveEvaluation stores an evaluation result. The full result is kept
// as a JSON document; key columns are broken out for querying.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, eval *domain.EvaluationResult) error {
	if eval == nil || eval.ID == "" {
		return fmt.Errorf("%w: evaluation ID is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation: %w", err)
	}

	valid := 0
	if eval.IsValid() {
		valid = 1
	}

	query := `
		INSERT INTO evaluations (
			id, timestamp, decision, final_score, dti_ratio, dti_class,
			threshold, valid, process_ms, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, eval.Timestamp, string(eval.Decision),
		eval.FinalScore, eval.DTIRatio, string(eval.DTIClass),
		eval.Threshold, valid, eval.ProcessMs, string(payload),
	)
	return err
}

// GetEvaluation retrieves an evaluation by ID.
func (r *SQLRepository) GetEvaluation(ctx context.Context, id string) (*domain.EvaluationResult, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: evaluation ID is required", ErrInvalidInput)
	}

	query := `SELECT payload FROM evaluations WHERE id = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var eval domain.EvaluationResult
	if err := json.Unmarshal([]byte(payload), &eval); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation %s: %w", id, err)
	}
	return &eval, nil
}

// ListEvaluations retrieves the most recent evaluations, newest first.
func (r *SQLRepository) ListEvaluations(ctx context.Context, limit int) ([]*domain.EvaluationResult, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT payload
		FROM evaluations
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []*domain.EvaluationResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var eval domain.EvaluationResult
		if err := json.Unmarshal([]byte(payload), &eval); err != nil {
			return nil, fmt.Errorf("failed to parse evaluation: %w", err)
		}
		evals = append(evals, &eval)
	}

	return evals, rows.Err()
}

// SaveBacktestReport stores a backtest report as an opaque JSON document.
func (r *SQLRepository) SaveBacktestReport(ctx context.Context, id string, report []byte) error {
	if id == "" {
		return fmt.Errorf("%w: report ID is required", ErrInvalidInput)
	}
	if !json.Valid(report) {
		return fmt.Errorf("%w: report must be valid JSON", ErrInvalidInput)
	}

	query := `
		INSERT INTO backtest_reports (id, created_at, report)
		VALUES (?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		id, time.Now().UTC(), string(report),
	)
	return err
}

// GetBacktestReport retrieves a backtest report by ID.
func (r *SQLRepository) GetBacktestReport(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: report ID is required", ErrInvalidInput)
	}

	query := `SELECT report FROM backtest_reports WHERE id = ?`

	var report string
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(report), nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
