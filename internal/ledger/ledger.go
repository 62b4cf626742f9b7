// Package ledger keeps a history of plan builds in a SQL database
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/compiler/cache"
)

// DefaultTable is the table builds are recorded in
const DefaultTable = "wpkgen_builds"

// Entry is one recorded build
type Entry struct {
	ID        uuid.UUID     `json:"id"`
	BuildID   string        `json:"buildId"`
	CacheKey  string        `json:"cacheKey"`
	PlanPath  string        `json:"planPath"`
	Namespace string        `json:"namespace"`
	Files     int           `json:"files"`
	Warnings  int           `json:"warnings"`
	Fallbacks int           `json:"fallbacks"`
	Cached    bool          `json:"cached"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
}

// EntryFor summarises an artifact for the ledger
func EntryFor(art *cache.Artifact, planPath, namespace string, cached bool, elapsed time.Duration) Entry {
	return Entry{
		BuildID:   art.BuildID,
		CacheKey:  art.Key,
		PlanPath:  planPath,
		Namespace: namespace,
		Files:     len(art.Files),
		Warnings:  len(art.Warnings),
		Fallbacks: len(art.Fallbacks),
		Cached:    cached,
		Duration:  elapsed,
	}
}

// Store records and lists builds
type Store struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  *zap.Logger
}

// Open connects to dsn with one of the supported drivers
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if driver == DriverSQLite {
		// every sqlite connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	store, err := New(db, driver, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection
func New(db *sql.DB, driver string, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: d, table: DefaultTable, logger: logger}, nil
}

// Initialize ensures the ledger table exists
func (s *Store) Initialize(ctx context.Context) error {
	for _, stmt := range s.dialect.schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize ledger: %w", err)
		}
	}
	return nil
}

// Record stores e, assigning an id and timestamp when they are unset
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO ` + s.dialect.quote(s.table) + ` (id, build_id, cache_key, plan_path, namespace, files, warnings, fallbacks, cached, duration_ms, created_at)
VALUES (` + s.dialect.binds(11) + `)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID.String(), e.BuildID, e.CacheKey, e.PlanPath, e.Namespace,
		e.Files, e.Warnings, e.Fallbacks, e.Cached, e.Duration.Milliseconds(), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", convertDBError(err))
	}

	s.logger.Debug("build recorded",
		zap.String("id", e.ID.String()),
		zap.String("build", e.BuildID),
		zap.Bool("cached", e.Cached),
	)
	return nil
}

const columns = `id, build_id, cache_key, plan_path, namespace, files, warnings, fallbacks, cached, duration_ms, created_at`

// List returns the most recent builds first. A limit of zero or less
// lists everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + columns + ` FROM ` + s.dialect.quote(s.table) + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ` + s.dialect.bind(1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}
	return entries, nil
}

// Get returns the entry with id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	query := `SELECT ` + columns + ` FROM ` + s.dialect.quote(s.table) + ` WHERE id = ` + s.dialect.bind(1)
	e, err := scanEntry(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return Entry{}, convertDBError(err)
	}
	return e, nil
}

// Count returns the number of recorded builds
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.dialect.quote(s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger: %w", err)
	}
	return n, nil
}

// Prune deletes builds recorded before cutoff
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM ` + s.dialect.quote(s.table) + ` WHERE created_at < ` + s.dialect.bind(1)
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	s.logger.Info("ledger pruned", zap.Int64("deleted", n), zap.Time("before", cutoff))
	return n, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		id         string
		durationMS int64
	)
	err := row.Scan(&id, &e.BuildID, &e.CacheKey, &e.PlanPath, &e.Namespace,
		&e.Files, &e.Warnings, &e.Fallbacks, &e.Cached, &durationMS, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	if e.ID, err = uuid.Parse(id); err != nil {
		return Entry{}, fmt.Errorf("corrupt ledger id %q: %w", id, err)
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return e, nil
}
