package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/tablint/pkg/rules/engine"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// Postgres reads one table or view of a PostgreSQL (or PostGIS) database.
type Postgres struct {
	pool   *pgxpool.Pool
	name   string
	table  pgx.Identifier
	logger *slog.Logger
}

// OpenPostgres connects to the database named by uri. The "table" query
// parameter selects the table ("schema.table" is accepted) and is removed
// before the URI is handed to pgx.
func OpenPostgres(ctx context.Context, uri string, maxConns int32, logger *slog.Logger) (*Postgres, error) {
	dsn, table, redacted, err := parsePostgresURI(uri)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError("postgres", "parse uri", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(redacted, "parse uri", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(redacted, "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, rulesErrors.NewDataAccessError(redacted, "connect", err)
	}

	logger.Debug("postgres source opened", "source", redacted, "max_conns", cfg.MaxConns)
	return &Postgres{pool: pool, name: redacted, table: table, logger: logger}, nil
}

// parsePostgresURI splits the table parameter off uri and returns the
// remaining DSN plus a password-free form for logs.
func parsePostgresURI(uri string) (dsn string, table pgx.Identifier, redacted string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", nil, "", err
	}

	q := u.Query()
	name := q.Get("table")
	if name == "" {
		return "", nil, "", fmt.Errorf("missing table parameter")
	}
	q.Del("table")
	u.RawQuery = q.Encode()

	table = pgx.Identifier(strings.Split(name, "."))
	for _, part := range table {
		if part == "" {
			return "", nil, "", fmt.Errorf("invalid table name %q", name)
		}
	}

	r := *u
	r.RawQuery = url.Values{"table": {name}}.Encode()
	return u.String(), table, r.Redacted(), nil
}

func (p *Postgres) Name() string { return p.name }

func (p *Postgres) columns(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", p.table.Sanitize()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, rows.Err()
}

func (p *Postgres) Records(ctx context.Context, fields []string, idField string) (Iterator, error) {
	cols, err := p.columns(ctx)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(p.name, "describe table", err)
	}

	names, positions, idPos := project(cols, fields, idField)
	if idPos < 0 {
		return nil, missingIDError(p.name, idField)
	}

	selected := make([]string, 0, len(names)+1)
	selected = append(selected, pgx.Identifier{idField}.Sanitize())
	for _, pos := range positions {
		selected = append(selected, pgx.Identifier{cols[pos]}.Sanitize())
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), p.table.Sanitize())

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(p.name, "query", err)
	}
	return &pgxIterator{rows: rows, names: names}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type pgxIterator struct {
	rows  pgx.Rows
	names []string

	current engine.Record
	err     error
}

func (it *pgxIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}

	row, err := it.rows.Values()
	if err != nil {
		it.err = err
		return false
	}

	values := make(map[string]any, len(it.names))
	for i, name := range it.names {
		values[name] = normalizePGValue(row[i+1])
	}
	it.current = engine.Record{ID: normalizePGValue(row[0]), Values: values}
	return true
}

func (it *pgxIterator) Record() engine.Record { return it.current }

func (it *pgxIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *pgxIterator) Close() error {
	it.rows.Close()
	return nil
}

// normalizePGValue turns NUMERIC into float64 so range rules can read it.
func normalizePGValue(v any) any {
	switch n := v.(type) {
	case pgtype.Numeric:
		if !n.Valid {
			return nil
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []byte:
		return string(n)
	}
	return v
}
