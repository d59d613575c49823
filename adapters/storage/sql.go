package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"crossmarket/internal/errors"
)

// PingAttempts and PingBackoff control the connection retry of OpenSQLStore
var (
	PingAttempts = 10
	PingBackoff  = 2 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	snapshot_id    TEXT NOT NULL,
	params         TEXT NOT NULL,
	items_scanned  INTEGER NOT NULL DEFAULT 0,
	opportunities  INTEGER NOT NULL DEFAULT 0,
	avg_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_roi        DOUBLE PRECISION NOT NULL DEFAULT 0,
	best_route     TEXT NOT NULL DEFAULT '',
	totals         TEXT NOT NULL,
	rows_json      TEXT NOT NULL,
	created_at     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_snapshot ON runs(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_runs_created  ON runs(created_at);
`

// SQLStore persists runs in sqlite or postgres
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLStore connects, retries the ping and migrates the schema
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	driver = strings.ToLower(driver)
	if dsn == "" {
		return nil, errors.New(errors.TypeConfig, "history DSN is required for SQL backends")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Config("failed to open history database", err).WithContext("driver", driver)
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
		return nil, errors.Source("history database ping failed after retries", err).WithContext("driver", driver)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Internal("history migration failed", err)
		}
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, run *StoredRun) error {
	if run.ID == "" {
		return errors.Input("run ID is required")
	}
	totals, err := json.Marshal(run.Totals)
	if err != nil {
		return errors.Export("failed to marshal totals", err)
	}
	rows, err := json.Marshal(run.Rows)
	if err != nil {
		return errors.Export("failed to marshal rows", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Export("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM runs WHERE id = ?"), run.ID); err != nil {
		return errors.Export("failed to replace run", err).WithContext("id", run.ID)
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO runs (id, snapshot_id, params, items_scanned, opportunities,
			avg_score, avg_roi, best_route, totals, rows_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.SnapshotID, run.Params, run.ItemsScanned, run.Opportunities,
		run.AvgScore, run.AvgROI, run.BestRoute, string(totals), string(rows), run.CreatedAt.UnixMilli())
	if err != nil {
		return errors.Export("failed to insert run", err).WithContext("id", run.ID)
	}
	if err := tx.Commit(); err != nil {
		return errors.Export("failed to commit run", err)
	}
	return nil
}

const headerColumns = `id, snapshot_id, params, items_scanned, opportunities, avg_score, avg_roi, best_route, totals, created_at`

func (s *SQLStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+headerColumns+", rows_json FROM runs WHERE id = ?"), id)

	var rowsJSON string
	run, err := scanRun(row, &rowsJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, errors.Internal("failed to read run", err).WithContext("id", id)
	}
	if err := json.Unmarshal([]byte(rowsJSON), &run.Rows); err != nil {
		return nil, errors.Internal("failed to unmarshal rows", err).WithContext("id", id)
	}
	return run, nil
}

func (s *SQLStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	query := "SELECT " + headerColumns + " FROM runs"
	var where []string
	var args []interface{}
	if filter != nil {
		if filter.SnapshotID != "" {
			where = append(where, "snapshot_id = ?")
			args = append(args, filter.SnapshotID)
		}
		if !filter.Since.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, filter.Since.UnixMilli())
		}
		if !filter.Until.IsZero() {
			where = append(where, "created_at <= ?")
			args = append(args, filter.Until.UnixMilli())
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, errors.Internal("failed to list runs", err)
	}
	defer rows.Close()

	runs := []*StoredRun{}
	for rows.Next() {
		run, err := scanRun(rows, nil)
		if err != nil {
			return nil, errors.Internal("failed to scan run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list runs", err)
	}
	return filter.page(runs), nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM runs WHERE id = ?"), id)
	if err != nil {
		return errors.Internal("failed to delete run", err).WithContext("id", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound(id)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner, rowsJSON *string) (*StoredRun, error) {
	var (
		run     StoredRun
		totals  string
		created int64
	)
	dest := []interface{}{
		&run.ID, &run.SnapshotID, &run.Params, &run.ItemsScanned, &run.Opportunities,
		&run.AvgScore, &run.AvgROI, &run.BestRoute, &totals, &created,
	}
	if rowsJSON != nil {
		dest = append(dest, rowsJSON)
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(totals), &run.Totals); err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(created).UTC()
	return &run, nil
}

// rebind converts ? placeholders to $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != string(BackendPostgres) {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
