package ingest

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"crossmarket/core/types"
	"crossmarket/internal/errors"
)

// Supported database/sql drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultQuery selects the listing table
const DefaultQuery = "SELECT * FROM listings"

// Connection retry policy for Open
var (
	PingAttempts = 10
	PingBackoff  = 2 * time.Second
)

// SQLSource reads listings from a query result. Column names follow the CSV header rules.
type SQLSource struct {
	db     *sql.DB
	driver string
	query  string
	owned  bool
	logger *zap.Logger
}

// Open connects to dsn with driver and retries the ping until the database answers
func Open(ctx context.Context, driver, dsn, query string, logger *zap.Logger) (*SQLSource, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Source("failed to open database", err).WithContext("driver", driver)
	}
	for i := 0; i < PingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(PingBackoff)
	}
	if err != nil {
		db.Close()
		return nil, errors.Source("database ping failed after retries", err).WithContext("driver", driver)
	}

	s := NewSQLSource(db, driver, query, logger)
	s.owned = true
	return s, nil
}

// NewSQLSource wraps an existing handle. The caller keeps ownership of db.
func NewSQLSource(db *sql.DB, driver, query string, logger *zap.Logger) *SQLSource {
	if query == "" {
		query = DefaultQuery
	}
	return &SQLSource{db: db, driver: driver, query: query, logger: logger}
}

// Name returns the driver name
func (s *SQLSource) Name() string {
	return "sql:" + s.driver
}

// Close releases the handle when Open created it
func (s *SQLSource) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Load runs the query and collects every row
func (s *SQLSource) Load(ctx context.Context) (*types.Snapshot, Report, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, Report{}, errors.Source("listing query failed", err).WithContext("query", s.query)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, Report{}, errors.Source("failed to read columns", err)
	}
	c := newCollector(s.Name(), s.logger)
	if err := c.header(columns); err != nil {
		return nil, Report{}, err
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	record := make([]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, c.report, errors.Source("failed to scan row", err).WithContext("row", c.report.Rows+1)
		}
		for i, v := range values {
			record[i] = v.String
		}
		c.add(record)
	}
	if err := rows.Err(); err != nil {
		return nil, c.report, errors.Source("listing query failed", err)
	}

	snap, report := c.finish()
	return snap, report, nil
}
