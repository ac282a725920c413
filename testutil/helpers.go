package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/mock"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/sqldb"
)

var tableCounter uint64

// TableName generates a unique table name for testing.
// Format: <prefix>_<counter>
func TableName(prefix string) string {
	if prefix == "" {
		prefix = "test"
	}
	n := atomic.AddUint64(&tableCounter, 1)
	return fmt.Sprintf("%s_%d", prefix, n)
}

// NewCounters returns allocation counters that fail the test at cleanup if
// any query or batch created with them was left open.
func NewCounters(t testing.TB) *client.Counters {
	t.Helper()
	counters := client.NewCounters()
	t.Cleanup(func() {
		if n := counters.Remainder(); n != 0 {
			t.Errorf("%d queries or batches were not closed (queries %d/%d, batches %d/%d)",
				n,
				counters.QueriesClosed(), counters.QueriesOpened(),
				counters.BatchesClosed(), counters.BatchesOpened())
		}
	})
	return counters
}

// NewMockTransport returns a mock transport closed at test cleanup.
func NewMockTransport(t testing.TB) *mock.MockTransport {
	t.Helper()
	m := mock.NewMockTransport()
	t.Cleanup(func() { m.Close() })
	return m
}

// NewSQLite opens a private in-memory SQLite transport and runs setup
// statements on it. The transport is closed at test cleanup.
func NewSQLite(t testing.TB, setup ...string) *sqldb.Transport {
	t.Helper()

	opts := sqldb.DefaultOptions()

	ctx, cancel := WithTimeout(t)
	defer cancel()

	tr, err := sqldb.Open(ctx, opts)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if err := tr.Close(); err != nil {
			t.Logf("warning: failed to close sqlite: %v", err)
		}
	})

	for _, stmt := range setup {
		if _, err := tr.ExecuteStatement(ctx, stmt); err != nil {
			t.Fatalf("setup %q failed: %v", stmt, err)
		}
	}
	return tr
}

// WithTimeout creates a context with timeout for testing.
// Default timeout is 5 seconds if not specified.
func WithTimeout(t testing.TB, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	d := 5 * time.Second
	if len(timeout) > 0 {
		d = timeout[0]
	}

	return context.WithTimeout(context.Background(), d)
}

// SkipIf skips the test if the condition is true.
func SkipIf(t testing.TB, condition bool, reason string) {
	t.Helper()
	if condition {
		t.Skip(reason)
	}
}

// BenchmarkHelper provides utilities for benchmark tests.
type BenchmarkHelper struct {
	b    *testing.B
	conn *mock.MockTransport
	ctx  context.Context
}

// NewBenchmarkHelper creates a helper backed by a mock transport that returns
// result for every query.
func NewBenchmarkHelper(b *testing.B, result *mock.Result) *BenchmarkHelper {
	b.Helper()
	return &BenchmarkHelper{
		b:    b,
		conn: mock.NewMockTransport().WithDefaultResult(result),
		ctx:  context.Background(),
	}
}

// Conn returns the mock connection.
func (h *BenchmarkHelper) Conn() *mock.MockTransport {
	return h.conn
}

// Context returns the benchmark context.
func (h *BenchmarkHelper) Context() context.Context {
	return h.ctx
}

// ResetTimer resets the benchmark timer and enables allocation reporting.
func (h *BenchmarkHelper) ResetTimer() {
	h.b.ReportAllocs()
	h.b.ResetTimer()
}
