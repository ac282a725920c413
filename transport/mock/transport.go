// Package mock provides a scripted transport.Transport for tests.
package mock

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport"
)

// Result is a scripted query result.
type Result struct {
	Fields  []string
	Records []client.Record
	// ReadErr is returned by NextRecord once Records are exhausted.
	ReadErr error
}

var textMapper = mapper.NewResponseMapper(time.UTC)

// NewResult creates an empty result with the given column names.
func NewResult(fields ...string) *Result {
	return &Result{Fields: fields}
}

// AddRow appends a record. nil becomes SQL NULL; other values are rendered
// the way a database returns them as text.
func (r *Result) AddRow(values ...interface{}) *Result {
	rec := make(client.Record, len(values))
	for i, v := range values {
		text, ok := textMapper.ToText(v)
		rec[i] = sql.NullString{String: text, Valid: ok}
	}
	r.Records = append(r.Records, rec)
	return r
}

// WithReadError makes the handle fail after the last record.
func (r *Result) WithReadError(err error) *Result {
	r.ReadErr = err
	return r
}

// MockTransport implements transport.Transport for testing
type MockTransport struct {
	// Behavior configuration
	results        map[string]*Result
	defaultResult  *Result
	queryErr       error
	statementErr   error
	statementErrs  []error
	rowsAffected   int64
	lastInsertID   uint64
	tables         []string
	escape         func(string) string
	healthy        bool
	delay          time.Duration
	affectedByText func(string) int64

	// Call tracking
	queryCalls     atomic.Int32
	statementCalls atomic.Int32
	closeCalls     atomic.Int32
	openHandles    atomic.Int32

	// Metrics
	metrics          mockMetrics
	mu               sync.RWMutex
	closed           bool
	queryHistory     []string
	statementHistory []string
}

type mockMetrics struct {
	totalErrors        atomic.Int64
	rowsRead           atomic.Int64
	rowsAffected       atomic.Int64
	healthChecksPassed atomic.Int64
	healthChecksFailed atomic.Int64
	latencySum         atomic.Int64
}

// NewMockTransport creates a new mock transport. Unknown queries return an
// empty result and strings are escaped MySQL style.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		results: make(map[string]*Result),
		escape:  mapper.EscapeString,
		healthy: true,
	}
}

// WithResult registers the result returned for an exact query text
func (m *MockTransport) WithResult(query string, result *Result) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = result
	return m
}

// WithDefaultResult sets the result returned for unregistered query texts
func (m *MockTransport) WithDefaultResult(result *Result) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResult = result
	return m
}

// WithQueryError configures ExecuteQuery to fail
func (m *MockTransport) WithQueryError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
	return m
}

// WithStatementError configures every ExecuteStatement call to fail
func (m *MockTransport) WithStatementError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statementErr = err
	return m
}

// WithStatementErrors scripts the outcome of successive ExecuteStatement
// calls; a nil entry succeeds. Calls past the script succeed.
func (m *MockTransport) WithStatementErrors(errs ...error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statementErrs = errs
	return m
}

// WithRowsAffected sets the count every successful statement reports
func (m *MockTransport) WithRowsAffected(n int64) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsAffected = n
	m.affectedByText = nil
	return m
}

// WithRowsAffectedFunc derives the reported count from the statement text
func (m *MockTransport) WithRowsAffectedFunc(fn func(statement string) int64) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.affectedByText = fn
	return m
}

// WithLastInsertID sets the value LastInsertID returns
func (m *MockTransport) WithLastInsertID(id uint64) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastInsertID = id
	return m
}

// WithTables sets the names Tables returns
func (m *MockTransport) WithTables(tables ...string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = tables
	return m
}

// WithEscaper replaces the string escaping function
func (m *MockTransport) WithEscaper(escape func(string) string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escape = escape
	return m
}

// WithHealthy configures the health status
func (m *MockTransport) WithHealthy(healthy bool) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// WithDelay adds a delay to queries and statements
func (m *MockTransport) WithDelay(delay time.Duration) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
	return m
}

// ExecuteQuery implements client.Connection
func (m *MockTransport) ExecuteQuery(ctx context.Context, query string) (client.ResultHandle, error) {
	m.queryCalls.Add(1)
	start := time.Now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errClosed("ExecuteQuery")
	}
	m.queryHistory = append(m.queryHistory, query)
	delay := m.delay
	queryErr := m.queryErr
	result, ok := m.results[query]
	if !ok {
		result = m.defaultResult
	}
	m.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		m.metrics.totalErrors.Add(1)
		return nil, err
	}
	defer m.observe(start)

	if queryErr != nil {
		m.metrics.totalErrors.Add(1)
		return nil, queryErr
	}
	if result == nil {
		result = &Result{}
	}

	m.openHandles.Add(1)
	return &resultHandle{result: result, owner: m}, nil
}

// ExecuteStatement implements client.Connection
func (m *MockTransport) ExecuteStatement(ctx context.Context, statement string) (int64, error) {
	call := int(m.statementCalls.Add(1)) - 1
	start := time.Now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errClosed("ExecuteStatement")
	}
	m.statementHistory = append(m.statementHistory, statement)
	delay := m.delay
	err := m.statementErr
	if err == nil && call < len(m.statementErrs) {
		err = m.statementErrs[call]
	}
	affected := m.rowsAffected
	if m.affectedByText != nil {
		affected = m.affectedByText(statement)
	}
	m.mu.Unlock()

	if waitErr := wait(ctx, delay); waitErr != nil {
		m.metrics.totalErrors.Add(1)
		return 0, waitErr
	}
	defer m.observe(start)

	if err != nil {
		m.metrics.totalErrors.Add(1)
		return 0, err
	}

	m.metrics.rowsAffected.Add(affected)
	return affected, nil
}

// LastInsertID implements client.Connection
func (m *MockTransport) LastInsertID(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, errClosed("LastInsertID")
	}
	return m.lastInsertID, nil
}

// Escape implements client.Connection
func (m *MockTransport) Escape(text string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.escape(text)
}

// Tables implements client.TableLister
func (m *MockTransport) Tables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed("Tables")
	}
	return append([]string(nil), m.tables...), nil
}

// Close implements transport.Transport
func (m *MockTransport) Close() error {
	m.closeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsHealthy implements transport.Transport
func (m *MockTransport) IsHealthy(ctx context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	healthy := m.healthy && !m.closed
	if healthy {
		m.metrics.healthChecksPassed.Add(1)
	} else {
		m.metrics.healthChecksFailed.Add(1)
	}
	return healthy
}

// GetMetrics implements transport.Transport
func (m *MockTransport) GetMetrics() transport.Metrics {
	queries := int64(m.queryCalls.Load())
	statements := int64(m.statementCalls.Load())
	avgLatency := time.Duration(0)
	if total := queries + statements; total > 0 {
		avgLatency = time.Duration(m.metrics.latencySum.Load() / total)
	}

	return transport.Metrics{
		TotalQueries:       queries,
		TotalStatements:    statements,
		TotalErrors:        m.metrics.totalErrors.Load(),
		AverageLatency:     avgLatency,
		RowsRead:           m.metrics.rowsRead.Load(),
		RowsAffected:       m.metrics.rowsAffected.Load(),
		HealthChecksPassed: m.metrics.healthChecksPassed.Load(),
		HealthChecksFailed: m.metrics.healthChecksFailed.Load(),
	}
}

// GetQueryCallCount returns the number of times ExecuteQuery was called
func (m *MockTransport) GetQueryCallCount() int {
	return int(m.queryCalls.Load())
}

// GetStatementCallCount returns the number of times ExecuteStatement was called
func (m *MockTransport) GetStatementCallCount() int {
	return int(m.statementCalls.Load())
}

// GetCloseCallCount returns the number of times Close was called
func (m *MockTransport) GetCloseCallCount() int {
	return int(m.closeCalls.Load())
}

// OpenHandles returns the number of result handles not yet closed
func (m *MockTransport) OpenHandles() int {
	return int(m.openHandles.Load())
}

// GetQueryHistory returns every query text received
func (m *MockTransport) GetQueryHistory() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queryHistory...)
}

// GetStatementHistory returns every statement text received
func (m *MockTransport) GetStatementHistory() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.statementHistory...)
}

// Reset clears all state and call counts
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = make(map[string]*Result)
	m.defaultResult = nil
	m.queryErr = nil
	m.statementErr = nil
	m.statementErrs = nil
	m.rowsAffected = 0
	m.affectedByText = nil
	m.lastInsertID = 0
	m.tables = nil
	m.escape = mapper.EscapeString
	m.healthy = true
	m.delay = 0
	m.closed = false

	m.queryCalls.Store(0)
	m.statementCalls.Store(0)
	m.closeCalls.Store(0)
	m.openHandles.Store(0)

	m.metrics.totalErrors.Store(0)
	m.metrics.rowsRead.Store(0)
	m.metrics.rowsAffected.Store(0)
	m.metrics.healthChecksPassed.Store(0)
	m.metrics.healthChecksFailed.Store(0)
	m.metrics.latencySum.Store(0)

	m.queryHistory = nil
	m.statementHistory = nil
}

// IsClosed returns whether the transport has been closed
func (m *MockTransport) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *MockTransport) observe(start time.Time) {
	m.metrics.latencySum.Add(int64(time.Since(start)))
}

type resultHandle struct {
	result *Result
	pos    int
	closed bool
	owner  *MockTransport
}

func (h *resultHandle) FieldCount() int        { return len(h.result.Fields) }
func (h *resultHandle) FieldName(i int) string { return h.result.Fields[i] }

func (h *resultHandle) NextRecord() (client.Record, bool, error) {
	if h.closed {
		return nil, false, errClosed("NextRecord")
	}
	if h.pos >= len(h.result.Records) {
		return nil, false, h.result.ReadErr
	}
	rec := h.result.Records[h.pos]
	h.pos++
	h.owner.metrics.rowsRead.Add(1)
	return append(client.Record(nil), rec...), true, nil
}

func (h *resultHandle) Close() error {
	if !h.closed {
		h.closed = true
		h.owner.openHandles.Add(-1)
	}
	return nil
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func errClosed(operation string) error {
	return &client.ConnectionError{
		Code:    "E_CLOSED",
		Type:    "CONNECTION_ERROR",
		Message: fmt.Sprintf("%s on a closed mock transport", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Timestamp: time.Now(),
	}
}

var _ transport.Transport = (*MockTransport)(nil)
var _ client.TableLister = (*MockTransport)(nil)
