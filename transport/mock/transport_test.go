package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
)

func TestMockTransport_ExecuteQuery(t *testing.T) {
	mock := NewMockTransport().WithResult("SELECT id, name FROM users",
		NewResult("id", "name").AddRow(1, "alice").AddRow(2, nil))
	ctx := context.Background()

	handle, err := mock.ExecuteQuery(ctx, "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer handle.Close()

	if handle.FieldCount() != 2 {
		t.Fatalf("expected 2 fields, got %d", handle.FieldCount())
	}
	if handle.FieldName(1) != "name" {
		t.Errorf("expected field 'name', got %q", handle.FieldName(1))
	}

	rec, ok, err := handle.NextRecord()
	if err != nil || !ok {
		t.Fatalf("expected first record, got ok=%v err=%v", ok, err)
	}
	if rec[0].String != "1" || rec[1].String != "alice" {
		t.Errorf("unexpected first record %v", rec)
	}

	rec, ok, _ = handle.NextRecord()
	if !ok {
		t.Fatal("expected second record")
	}
	if rec[1].Valid {
		t.Errorf("expected NULL name, got %q", rec[1].String)
	}

	if _, ok, err = handle.NextRecord(); ok || err != nil {
		t.Errorf("expected end of result, got ok=%v err=%v", ok, err)
	}

	if mock.GetQueryCallCount() != 1 {
		t.Errorf("expected 1 query call, got %d", mock.GetQueryCallCount())
	}
	if mock.GetMetrics().RowsRead != 2 {
		t.Errorf("expected 2 rows read, got %d", mock.GetMetrics().RowsRead)
	}
}

func TestMockTransport_DefaultResult(t *testing.T) {
	mock := NewMockTransport()
	ctx := context.Background()

	handle, err := mock.ExecuteQuery(ctx, "SELECT 1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if handle.FieldCount() != 0 {
		t.Errorf("expected empty result, got %d fields", handle.FieldCount())
	}
	handle.Close()

	mock.WithDefaultResult(NewResult("one").AddRow(1))
	handle, _ = mock.ExecuteQuery(ctx, "SELECT 1")
	if handle.FieldCount() != 1 {
		t.Errorf("expected default result, got %d fields", handle.FieldCount())
	}
	handle.Close()
}

func TestMockTransport_QueryError(t *testing.T) {
	mock := NewMockTransport().WithQueryError(errors.New("syntax error"))
	ctx := context.Background()

	_, err := mock.ExecuteQuery(ctx, "SELEC 1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	metrics := mock.GetMetrics()
	if metrics.TotalErrors != 1 {
		t.Errorf("expected 1 error, got %d", metrics.TotalErrors)
	}
	if mock.OpenHandles() != 0 {
		t.Errorf("expected no open handles, got %d", mock.OpenHandles())
	}
}

func TestMockTransport_ReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	mock := NewMockTransport().WithDefaultResult(NewResult("a").AddRow("x").WithReadError(readErr))

	handle, err := mock.ExecuteQuery(context.Background(), "SELECT a FROM t")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer handle.Close()

	if _, ok, _ := handle.NextRecord(); !ok {
		t.Fatal("expected a record before the read error")
	}
	if _, _, err := handle.NextRecord(); !errors.Is(err, readErr) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestMockTransport_ExecuteStatement(t *testing.T) {
	mock := NewMockTransport().WithRowsAffected(3)
	ctx := context.Background()

	n, err := mock.ExecuteStatement(ctx, "DELETE FROM t")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows affected, got %d", n)
	}

	history := mock.GetStatementHistory()
	if len(history) != 1 || history[0] != "DELETE FROM t" {
		t.Errorf("unexpected statement history %v", history)
	}
}

func TestMockTransport_StatementErrorScript(t *testing.T) {
	boom := errors.New("duplicate key")
	mock := NewMockTransport().WithStatementErrors(nil, boom)
	ctx := context.Background()

	if _, err := mock.ExecuteStatement(ctx, "INSERT 1"); err != nil {
		t.Errorf("call 1: expected success, got %v", err)
	}
	if _, err := mock.ExecuteStatement(ctx, "INSERT 2"); !errors.Is(err, boom) {
		t.Errorf("call 2: expected scripted error, got %v", err)
	}
	if _, err := mock.ExecuteStatement(ctx, "INSERT 3"); err != nil {
		t.Errorf("call 3: expected success past the script, got %v", err)
	}
}

func TestMockTransport_RowsAffectedFunc(t *testing.T) {
	mock := NewMockTransport().WithRowsAffectedFunc(func(statement string) int64 {
		return int64(len(statement))
	})

	n, err := mock.ExecuteStatement(context.Background(), "abcd")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}

func TestMockTransport_ContextCancellation(t *testing.T) {
	mock := NewMockTransport().WithDelay(100 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mock.ExecuteStatement(ctx, "UPDATE t SET a = 1")
	if err == nil {
		t.Fatal("expected context deadline exceeded error")
	}
}

func TestMockTransport_WithDelay(t *testing.T) {
	mock := NewMockTransport().WithDelay(50 * time.Millisecond)

	start := time.Now()
	handle, err := mock.ExecuteQuery(context.Background(), "SELECT 1")
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	handle.Close()

	if duration < 50*time.Millisecond {
		t.Errorf("expected delay of at least 50ms, got %v", duration)
	}
}

func TestMockTransport_Escape(t *testing.T) {
	mock := NewMockTransport()
	if got := mock.Escape("O'Brien"); got != `O\'Brien` {
		t.Errorf("expected MySQL escaping, got %q", got)
	}

	mock.WithEscaper(func(s string) string { return "<" + s + ">" })
	if got := mock.Escape("x"); got != "<x>" {
		t.Errorf("expected custom escaping, got %q", got)
	}
}

func TestMockTransport_LastInsertIDAndTables(t *testing.T) {
	mock := NewMockTransport().WithLastInsertID(42).WithTables("a", "b")
	ctx := context.Background()

	id, err := mock.LastInsertID(ctx)
	if err != nil || id != 42 {
		t.Errorf("expected 42, got %d (err %v)", id, err)
	}

	tables, err := mock.Tables(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tables) != 2 || tables[0] != "a" {
		t.Errorf("unexpected tables %v", tables)
	}
}

func TestMockTransport_Close(t *testing.T) {
	mock := NewMockTransport()

	if err := mock.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !mock.IsClosed() {
		t.Error("expected transport to be closed")
	}
	if mock.GetCloseCallCount() != 1 {
		t.Errorf("expected 1 close call, got %d", mock.GetCloseCallCount())
	}

	_, err := mock.ExecuteQuery(context.Background(), "SELECT 1")
	if !client.IsConnectionError(err) {
		t.Errorf("expected ConnectionError after close, got %v", err)
	}
	if mock.IsHealthy(context.Background()) {
		t.Error("expected closed transport to be unhealthy")
	}
}

func TestMockTransport_OpenHandles(t *testing.T) {
	mock := NewMockTransport()
	ctx := context.Background()

	h1, _ := mock.ExecuteQuery(ctx, "SELECT 1")
	h2, _ := mock.ExecuteQuery(ctx, "SELECT 2")
	if mock.OpenHandles() != 2 {
		t.Errorf("expected 2 open handles, got %d", mock.OpenHandles())
	}

	h1.Close()
	h1.Close()
	h2.Close()
	if mock.OpenHandles() != 0 {
		t.Errorf("expected 0 open handles, got %d", mock.OpenHandles())
	}
}

func TestMockTransport_Reset(t *testing.T) {
	mock := NewMockTransport().
		WithQueryError(errors.New("fail")).
		WithHealthy(false)

	mock.ExecuteQuery(context.Background(), "SELECT 1")
	mock.Close()
	mock.Reset()

	if mock.IsClosed() {
		t.Error("expected transport to be open after reset")
	}
	if mock.GetQueryCallCount() != 0 {
		t.Errorf("expected call count reset, got %d", mock.GetQueryCallCount())
	}
	if len(mock.GetQueryHistory()) != 0 {
		t.Error("expected history to be cleared")
	}
	if !mock.IsHealthy(context.Background()) {
		t.Error("expected healthy after reset")
	}
}
