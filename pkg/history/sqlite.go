package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig contains configuration for the SQLite history store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// WALMode enables write-ahead logging so batch jobs can record runs
	// while the history command reads.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// OpenSQLite opens or creates the history database.
func OpenSQLite(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, newStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, newStorageError("sqlite", "open", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: logger.With("component", "history.sqlite"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug("history store opened", "path", cfg.Path, "wal_mode", cfg.WALMode)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return newStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	var errVal, reportVal any
	if run.Error != "" {
		errVal = run.Error
	}
	if len(run.Report) > 0 {
		reportVal = string(run.Report)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, started_at, finished_at, rules_path, source, status, error,
			records, field_violations, group_violations, type_mismatches,
			report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.RulesPath, run.Source, run.Status, errVal,
		run.Records, run.FieldViolations, run.GroupViolations, run.TypeMismatches,
		reportVal,
	)
	if err != nil {
		return newStorageError("sqlite", "save", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, rules_path, source, status, error,
	records, field_violations, group_violations, type_mismatches`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+`, report_json FROM runs WHERE id = ?`, id)

	var report sql.NullString
	run, err := scanRun(row, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, newStorageError("sqlite", "get", err)
	}
	if report.Valid {
		run.Report = []byte(report.String)
	}
	return run, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, newStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, newStorageError("sqlite", "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("sqlite", "list", err)
	}
	return runs, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, newStorageError("sqlite", "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newStorageError("sqlite", "prune", err)
	}
	if n > 0 {
		s.logger.Info("pruned run history", "deleted_count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, extra ...any) (*Run, error) {
	var (
		run    Run
		errMsg sql.NullString
	)
	dest := []any{
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.RulesPath, &run.Source, &run.Status, &errMsg,
		&run.Records, &run.FieldViolations, &run.GroupViolations, &run.TypeMismatches,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	run.Error = errMsg.String
	return &run, nil
}
