package testutil_test

import (
	"context"
	"testing"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/testutil"
)

func TestTableName(t *testing.T) {
	name1 := testutil.TableName("test")
	name2 := testutil.TableName("test")
	if name1 == name2 {
		t.Error("expected unique names")
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t, 100*time.Millisecond)
	defer cancel()
	select {
	case <-ctx.Done():
		t.Fatal("context canceled too early")
	default:
	}
}

func TestNewCounters_Balanced(t *testing.T) {
	counters := testutil.NewCounters(t)
	conn := testutil.NewMockTransport(t)

	q, err := client.Execute(context.Background(), conn, "SELECT 1", client.WithCounters(counters))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q.Close()

	if counters.Remainder() != 0 {
		t.Errorf("expected no open queries, got %d", counters.Remainder())
	}
}

func TestNewSQLite(t *testing.T) {
	tr := testutil.NewSQLite(t, "CREATE TABLE kv (k TEXT, v TEXT)")

	tables, err := client.TableList(context.Background(), tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables) != 1 || tables[0] != "kv" {
		t.Errorf("expected [kv], got %v", tables)
	}
}
