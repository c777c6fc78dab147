package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/tablint/pkg/rules/engine"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// SQLite reads one table of a SQLite database or GeoPackage. Column values
// are passed through as the driver returns them, except BLOB and TEXT bytes
// which become strings.
type SQLite struct {
	db         *sql.DB
	path       string
	table      string
	geoPackage bool
	logger     *slog.Logger
}

// OpenSQLite opens path read-only. geoPackage selects "fid" as the default
// identifier column.
func OpenSQLite(ctx context.Context, path, table string, geoPackage bool, logger *slog.Logger) (*SQLite, error) {
	s := &SQLite{path: path, table: table, geoPackage: geoPackage, logger: logger}

	// The driver would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, rulesErrors.NewDataAccessError(s.Name(), "open", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(s.Name(), "open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, rulesErrors.NewDataAccessError(s.Name(), "open", err)
	}
	s.db = db

	logger.Debug("sqlite source opened", "path", path, "table", table, "geopackage", geoPackage)
	return s, nil
}

func (s *SQLite) Name() string {
	scheme := SchemeSQLite
	if s.geoPackage {
		scheme = SchemeGeoPackage
	}
	return fmt.Sprintf("%s:%s?table=%s", scheme, s.path, s.table)
}

func (s *SQLite) DefaultIDField() string {
	if s.geoPackage {
		return "fid"
	}
	return "rowid"
}

func (s *SQLite) columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", s.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", s.table)
	}
	return cols, nil
}

func (s *SQLite) Records(ctx context.Context, fields []string, idField string) (Iterator, error) {
	cols, err := s.columns(ctx)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(s.Name(), "describe table", err)
	}
	// rowid is implicit on ordinary tables.
	if idField == "rowid" {
		cols = append(cols, "rowid")
	}

	names, positions, idPos := project(cols, fields, idField)
	if idPos < 0 {
		return nil, missingIDError(s.Name(), idField)
	}

	selected := make([]string, 0, len(names)+1)
	selected = append(selected, quoteSQLite(idField))
	for _, p := range positions {
		selected = append(selected, quoteSQLite(cols[p]))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), quoteSQLite(s.table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(s.Name(), "query", err)
	}

	return &sqlIterator{rows: rows, names: names, scan: make([]any, len(selected))}, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func quoteSQLite(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// sqlIterator streams database/sql rows whose first column is the identifier.
type sqlIterator struct {
	rows  *sql.Rows
	names []string
	scan  []any

	current engine.Record
	err     error
}

func (it *sqlIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}

	dest := make([]any, len(it.scan))
	for i := range it.scan {
		dest[i] = &it.scan[i]
	}
	if err := it.rows.Scan(dest...); err != nil {
		it.err = err
		return false
	}

	values := make(map[string]any, len(it.names))
	for i, name := range it.names {
		values[name] = normalizeSQLValue(it.scan[i+1])
	}
	it.current = engine.Record{ID: normalizeSQLValue(it.scan[0]), Values: values}
	return true
}

func (it *sqlIterator) Record() engine.Record { return it.current }

func (it *sqlIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *sqlIterator) Close() error { return it.rows.Close() }

func normalizeSQLValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
