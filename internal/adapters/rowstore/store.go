package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/pkg/logger"
	"github.com/deshmukhh/crease/pkg/metrics"

	_ "modernc.org/sqlite" // sqlite driver registration
)

// Store is the read side of the event log.
type Store interface {
	// Execute runs one query description and returns the rows plus the
	// rendered query text for transparency.
	Execute(ctx context.Context, qd *model.QueryDescription) (*model.Result, error)

	// Render returns the query text and parameters without executing,
	// for validation dry runs.
	Render(qd *model.QueryDescription) (string, []any, error)

	// Distinct value scans feed the entity registry at startup.
	DistinctPlayers(ctx context.Context) ([]string, error)
	DistinctTeams(ctx context.Context) ([]string, error)
	DistinctVenues(ctx context.Context) ([]string, error)

	// Summary reports the stored span of the event log.
	Summary(ctx context.Context) (SummaryStats, error)

	Close() error
}

// SummaryStats describes the loaded event log.
type SummaryStats struct {
	Deliveries  int64 `json:"deliveries"`
	Matches     int64 `json:"matches"`
	Players     int64 `json:"players"`
	Teams       int64 `json:"teams"`
	Venues      int64 `json:"venues"`
	FirstSeason int   `json:"first_season"`
	LastSeason  int   `json:"last_season"`
}

// SQLiteStore implements Store over a local SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	timeout     time.Duration
	maxInFlight int
	inFlight    chan struct{}
}

// New opens the event-log database. ":memory:" opens an in-process
// database, used by the tests and the replay tool.
func New(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		timeout:     5 * time.Second,
		maxInFlight: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inFlight = make(chan struct{}, s.maxInFlight)

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening event log %q: %w", path, err)
	}
	if path == ":memory:" {
		// One connection, or each pooled connection gets its own empty
		// in-process database.
		db.SetMaxOpenConns(1)
	}
	s.db = db
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return ":memory:"
	}
	return "file:" + path + "?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)"
}

// Execute renders and runs one description under the store's timeout
// and in-flight gate. Transient lock errors get a single retry; a
// deadline maps to the query-timeout code.
func (s *SQLiteStore) Execute(ctx context.Context, qd *model.QueryDescription) (*model.Result, error) {
	query, params, err := render(qd)
	if err != nil {
		return nil, qerror.Wrap(qerror.CodeRowStoreError, "rendering query", err)
	}

	select {
	case s.inFlight <- struct{}{}:
	case <-ctx.Done():
		return nil, qerror.Wrap(qerror.CodeQueryTimeout, "waiting for a query slot", ctx.Err())
	}
	metrics.UpdateRowStoreInFlight(len(s.inFlight))
	defer func() {
		<-s.inFlight
		metrics.UpdateRowStoreInFlight(len(s.inFlight))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rows, err := s.query(ctx, query, params)
	elapsed := time.Since(start)
	metrics.RecordRowStoreQueryLatency(float64(elapsed.Microseconds()) / 1000.0)
	if err != nil {
		return nil, err
	}

	metrics.RecordRowStoreRowsReturned(len(rows.rows))
	return &model.Result{
		Columns:       rows.columns,
		Rows:          rows.rows,
		QueryText:     query,
		Params:        params,
		ExecutionTime: elapsed,
	}, nil
}

// Render renders without executing.
func (s *SQLiteStore) Render(qd *model.QueryDescription) (string, []any, error) {
	query, params, err := render(qd)
	if err != nil {
		return "", nil, qerror.Wrap(qerror.CodeRowStoreError, "rendering query", err)
	}
	return query, params, nil
}

type rowSet struct {
	columns []string
	rows    []model.Row
}

func (s *SQLiteStore) query(ctx context.Context, query string, params []any) (*rowSet, error) {
	rs, err := s.scan(ctx, query, params)
	if err == nil {
		return rs, nil
	}
	if ctx.Err() != nil {
		metrics.RecordRowStoreTimeout()
		return nil, qerror.Wrap(qerror.CodeQueryTimeout, "query exceeded its time budget", ctx.Err())
	}
	if !transient(err) {
		return nil, qerror.Wrap(qerror.CodeRowStoreError, "executing query", err)
	}

	// One retry for lock contention only. Timeouts are never retried;
	// the budget is already spent.
	metrics.RecordRowStoreRetry()
	logger.Get().Warn(ctx, "retrying query after transient error", logger.Error(err))
	rs, err = s.scan(ctx, query, params)
	if err != nil {
		if ctx.Err() != nil {
			metrics.RecordRowStoreTimeout()
			return nil, qerror.Wrap(qerror.CodeQueryTimeout, "query exceeded its time budget", ctx.Err())
		}
		return nil, qerror.Wrap(qerror.CodeRowStoreError, "executing query", err)
	}
	return rs, nil
}

func (s *SQLiteStore) scan(ctx context.Context, query string, params []any) (*rowSet, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &rowSet{columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(model.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out.rows = append(out.rows, row)
	}
	return out, rows.Err()
}

// normalizeValue keeps the row values JSON-friendly.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// transient reports whether the error is lock contention worth one
// retry.
func transient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "DATABASE IS LOCKED")
}

// DistinctPlayers returns every name that batted or bowled.
func (s *SQLiteStore) DistinctPlayers(ctx context.Context) ([]string, error) {
	return s.distinct(ctx,
		"SELECT DISTINCT batter_name FROM deliveries UNION SELECT DISTINCT bowler_name FROM deliveries")
}

// DistinctTeams returns every side that batted.
func (s *SQLiteStore) DistinctTeams(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "SELECT DISTINCT batting_team FROM deliveries")
}

// DistinctVenues returns every ground in the log.
func (s *SQLiteStore) DistinctVenues(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "SELECT DISTINCT venue FROM deliveries")
}

func (s *SQLiteStore) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, qerror.Wrap(qerror.CodeRowStoreError, "scanning distinct values", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, qerror.Wrap(qerror.CodeRowStoreError, "scanning distinct values", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Summary reports the span of the stored log.
func (s *SQLiteStore) Summary(ctx context.Context) (SummaryStats, error) {
	const q = `SELECT
		COUNT(*),
		COUNT(DISTINCT match_id),
		COUNT(DISTINCT batter_name),
		COUNT(DISTINCT batting_team),
		COUNT(DISTINCT venue),
		COALESCE(MIN(season), 0),
		COALESCE(MAX(season), 0)
	FROM deliveries`

	var st SummaryStats
	err := s.db.QueryRowContext(ctx, q).Scan(
		&st.Deliveries, &st.Matches, &st.Players, &st.Teams, &st.Venues,
		&st.FirstSeason, &st.LastSeason,
	)
	if err != nil {
		return SummaryStats{}, qerror.Wrap(qerror.CodeRowStoreError, "summarizing event log", err)
	}
	return st, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
