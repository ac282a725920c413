// Package sqldb implements transport.Transport on top of database/sql.
//
// A Transport pins a single *sql.Conn so that session state such as the last
// insert id belongs to the statements this transport issued.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport"
)

// Transport implements transport.Transport for a database/sql driver
type Transport struct {
	opts    Options
	db      *sql.DB
	ownsDB  bool
	conn    *sql.Conn
	mapper  *mapper.ResponseMapper
	logger  client.Logger
	metrics transportMetrics

	mu     sync.RWMutex
	closed bool
}

// transportMetrics tracks transport performance
type transportMetrics struct {
	totalQueries       atomic.Int64
	totalStatements    atomic.Int64
	totalErrors        atomic.Int64
	rowsRead           atomic.Int64
	rowsAffected       atomic.Int64
	healthChecksPassed atomic.Int64
	healthChecksFailed atomic.Int64
	latencySum         atomic.Int64 // nanoseconds
	lastError          error
	lastErrorTime      time.Time
	mu                 sync.RWMutex
}

// Open opens opts.DSN with opts.Driver and pins one connection.
func Open(ctx context.Context, opts Options) (*Transport, error) {
	opts = opts.withDefaults()
	if opts.DSN == "" {
		return nil, fmt.Errorf("dsn is required for driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, connectionError("E_OPEN", fmt.Sprintf("failed to open %s database", opts.Driver), err)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	t, err := newTransport(ctx, db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	t.ownsDB = true
	return t, nil
}

// New wraps an existing pool. Close releases the pinned connection but leaves db open.
func New(ctx context.Context, db *sql.DB, opts Options) (*Transport, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return newTransport(ctx, db, opts.withDefaults())
}

// NewFactory returns a transport.Factory that opens a fresh Transport per call.
func NewFactory(opts Options) transport.Factory {
	return func(ctx context.Context) (transport.Transport, error) {
		return Open(ctx, opts)
	}
}

func newTransport(ctx context.Context, db *sql.DB, opts Options) (*Transport, error) {
	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	conn, err := db.Conn(connectCtx)
	if err != nil {
		return nil, connectionError("E_CONNECT", "failed to acquire connection", err)
	}
	if err := conn.PingContext(connectCtx); err != nil {
		conn.Close()
		return nil, connectionError("E_CONNECT", "database did not answer ping", err)
	}

	opts.Logger.Debug("connection established",
		client.String("driver", opts.Driver),
		client.String("dialect", string(opts.Dialect)),
		client.String("dsn", opts.DSN))

	return &Transport{
		opts:   opts,
		db:     db,
		conn:   conn,
		mapper: mapper.NewResponseMapper(opts.Location),
		logger: opts.Logger,
	}, nil
}

// Dialect returns the configured dialect
func (t *Transport) Dialect() Dialect {
	return t.opts.Dialect
}

// ExecuteQuery implements client.Connection
func (t *Transport) ExecuteQuery(ctx context.Context, query string) (client.ResultHandle, error) {
	start := time.Now()
	t.metrics.totalQueries.Add(1)

	conn, err := t.active("ExecuteQuery")
	if err != nil {
		t.recordError(err)
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		err = serverError(query, err)
		t.recordError(err)
		return nil, err
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		err = serverError(query, err)
		t.recordError(err)
		return nil, err
	}

	t.recordLatency(time.Since(start))
	return &resultHandle{
		rows:    rows,
		columns: columns,
		owner:   t,
		values:  make([]interface{}, len(columns)),
	}, nil
}

// ExecuteStatement implements client.Connection
func (t *Transport) ExecuteStatement(ctx context.Context, statement string) (int64, error) {
	start := time.Now()
	t.metrics.totalStatements.Add(1)

	conn, err := t.active("ExecuteStatement")
	if err != nil {
		t.recordError(err)
		return 0, err
	}

	res, err := conn.ExecContext(ctx, statement)
	if err != nil {
		err = serverError(statement, err)
		t.recordError(err)
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	t.metrics.rowsAffected.Add(affected)
	t.recordLatency(time.Since(start))
	return affected, nil
}

// LastInsertID implements client.Connection. It asks the server for the
// session's last generated id on the pinned connection, so the answer follows
// the database's rules: MySQL reports the first id of a multi-row INSERT and
// SQLite the last.
func (t *Transport) LastInsertID(ctx context.Context) (uint64, error) {
	conn, err := t.active("LastInsertID")
	if err != nil {
		return 0, err
	}

	query := t.opts.Dialect.lastInsertIDQuery()
	var id sql.NullInt64
	if err := conn.QueryRowContext(ctx, query).Scan(&id); err != nil {
		err = serverError(query, err)
		t.recordError(err)
		return 0, err
	}
	if !id.Valid || id.Int64 < 0 {
		return 0, nil
	}
	return uint64(id.Int64), nil
}

// Escape implements client.Connection
func (t *Transport) Escape(text string) string {
	return t.opts.Dialect.escape(text)
}

// Tables implements client.TableLister
func (t *Transport) Tables(ctx context.Context) ([]string, error) {
	handle, err := t.ExecuteQuery(ctx, t.opts.Dialect.tablesQuery())
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	var tables []string
	for {
		rec, ok, err := handle.NextRecord()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if len(rec) > 0 && rec[0].Valid {
			tables = append(tables, rec[0].String)
		}
	}
	return tables, nil
}

// Close implements transport.Transport
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	err := t.conn.Close()
	if t.ownsDB {
		if dbErr := t.db.Close(); err == nil {
			err = dbErr
		}
	}
	t.logger.Debug("connection closed", client.String("driver", t.opts.Driver))
	return err
}

// IsHealthy implements transport.Transport
func (t *Transport) IsHealthy(ctx context.Context) bool {
	conn, err := t.active("IsHealthy")
	if err == nil {
		err = conn.PingContext(ctx)
	}
	if err != nil {
		t.metrics.healthChecksFailed.Add(1)
		return false
	}
	t.metrics.healthChecksPassed.Add(1)
	return true
}

// GetMetrics implements transport.Transport
func (t *Transport) GetMetrics() transport.Metrics {
	t.metrics.mu.RLock()
	lastErr := t.metrics.lastError
	lastErrTime := t.metrics.lastErrorTime
	t.metrics.mu.RUnlock()

	queries := t.metrics.totalQueries.Load()
	statements := t.metrics.totalStatements.Load()
	avgLatency := time.Duration(0)
	if total := queries + statements; total > 0 {
		avgLatency = time.Duration(t.metrics.latencySum.Load() / total)
	}

	return transport.Metrics{
		TotalQueries:       queries,
		TotalStatements:    statements,
		TotalErrors:        t.metrics.totalErrors.Load(),
		AverageLatency:     avgLatency,
		LastError:          lastErr,
		LastErrorTime:      lastErrTime,
		RowsRead:           t.metrics.rowsRead.Load(),
		RowsAffected:       t.metrics.rowsAffected.Load(),
		HealthChecksPassed: t.metrics.healthChecksPassed.Load(),
		HealthChecksFailed: t.metrics.healthChecksFailed.Load(),
	}
}

func (t *Transport) active(operation string) (*sql.Conn, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, client.ErrNotConnected(operation)
	}
	return t.conn, nil
}

// recordError records an error in metrics
func (t *Transport) recordError(err error) {
	t.metrics.totalErrors.Add(1)
	t.metrics.mu.Lock()
	t.metrics.lastError = err
	t.metrics.lastErrorTime = time.Now()
	t.metrics.mu.Unlock()
}

// recordLatency records latency in metrics
func (t *Transport) recordLatency(latency time.Duration) {
	t.metrics.latencySum.Add(int64(latency))
}

// resultHandle streams *sql.Rows as text records.
type resultHandle struct {
	rows    *sql.Rows
	columns []string
	values  []interface{}
	owner   *Transport
	closed  bool
}

func (h *resultHandle) FieldCount() int        { return len(h.columns) }
func (h *resultHandle) FieldName(i int) string { return h.columns[i] }

func (h *resultHandle) NextRecord() (client.Record, bool, error) {
	if h.closed {
		return nil, false, client.ErrQueryClosed("NextRecord")
	}
	if !h.rows.Next() {
		if err := h.rows.Err(); err != nil {
			h.owner.recordError(err)
			return nil, false, err
		}
		return nil, false, nil
	}

	dest := make([]interface{}, len(h.values))
	for i := range h.values {
		dest[i] = &h.values[i]
	}
	if err := h.rows.Scan(dest...); err != nil {
		h.owner.recordError(err)
		return nil, false, err
	}

	rec := make(client.Record, len(h.values))
	for i, v := range h.values {
		text, ok := h.owner.mapper.ToText(v)
		rec[i] = sql.NullString{String: text, Valid: ok}
	}
	h.owner.metrics.rowsRead.Add(1)
	return rec, true, nil
}

func (h *resultHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.rows.Close()
}

// serverError converts a driver error into a QueryError, keeping the
// driver's numeric code when it exposes one.
func serverError(query string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	qerr := &client.QueryError{
		Code:          "E_SERVER",
		Type:          "QUERY_ERROR",
		Message:       "statement rejected by the database",
		Query:         query,
		ServerMessage: err.Error(),
		Cause:         err,
		Timestamp:     time.Now(),
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		qerr.ServerErrno = coded.Code()
	}
	return qerr
}

func connectionError(code, message string, err error) error {
	return &client.ConnectionError{
		Code:      code,
		Type:      "CONNECTION_ERROR",
		Message:   message,
		Details:   map[string]interface{}{},
		Cause:     err,
		Timestamp: time.Now(),
	}
}

var _ transport.Transport = (*Transport)(nil)
var _ client.TableLister = (*Transport)(nil)
