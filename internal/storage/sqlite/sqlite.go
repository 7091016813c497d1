package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.InstanceRepository and storage.KVRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// SQLite serializes writers, a single connection avoids busy errors on
	// read-then-write transactions.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	version, err := migrations.Apply(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s (schema v%d)", cfg.DBPath, version)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the underlying database connection.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// RecordContact stores the latest contact time of an instance and returns the previous one.
func (r *Repository) RecordContact(ctx context.Context, pool string, id model.InstanceID, at time.Time) (*time.Time, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	var prevNanos sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT last_request_at FROM instances WHERE pool = ? AND instance_id = ?`,
		pool, int(id),
	).Scan(&prevNanos)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	// Never go back in time.
	query := `
		INSERT INTO instances (pool, instance_id, last_request_at)
		VALUES (?, ?, ?)
		ON CONFLICT (pool, instance_id) DO UPDATE
		SET last_request_at = MAX(instances.last_request_at, excluded.last_request_at)
	`
	if _, err := tx.ExecContext(ctx, query, pool, int(id), at.UnixNano()); err != nil {
		return nil, fmt.Errorf("could not upsert instance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	if !prevNanos.Valid {
		r.logger.Debugf("First contact with instance %s/%d", pool, id)
		return nil, nil
	}

	prev := fromNanos(prevNanos.Int64)
	return &prev, nil
}

// GetInstance returns the instance record.
func (r *Repository) GetInstance(ctx context.Context, pool string, id model.InstanceID) (*model.InstanceRecord, error) {
	var nanos int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_request_at FROM instances WHERE pool = ? AND instance_id = ?`,
		pool, int(id),
	).Scan(&nanos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance %s/%d: %w", pool, id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	at := fromNanos(nanos)
	return &model.InstanceRecord{Pool: pool, ID: id, LastRequestAt: &at}, nil
}

// ListInstances returns all the instance records sorted by pool and id.
func (r *Repository) ListInstances(ctx context.Context) ([]model.InstanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pool, instance_id, last_request_at
		FROM instances
		ORDER BY pool, instance_id
	`)
	if err != nil {
		return nil, fmt.Errorf("could not query instances: %w", err)
	}
	defer rows.Close()

	var records []model.InstanceRecord
	for rows.Next() {
		var (
			pool  string
			id    int
			nanos int64
		)
		if err := rows.Scan(&pool, &id, &nanos); err != nil {
			return nil, fmt.Errorf("could not scan instance: %w", err)
		}
		at := fromNanos(nanos)
		records = append(records, model.InstanceRecord{Pool: pool, ID: model.InstanceID(id), LastRequestAt: &at})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return records, nil
}

// GetValue returns the value of a key, nil if missing.
func (r *Repository) GetValue(ctx context.Context, key string) (*string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query key %s: %w", key, err)
	}

	return &value, nil
}

// SetValue sets the value of a key.
func (r *Repository) SetValue(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("could not set key %s: %w", key, err)
	}

	r.logger.Debugf("Set key in repository: %s", key)
	return nil
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
