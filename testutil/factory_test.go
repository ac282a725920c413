package testutil_test

import (
	"testing"

	"github.com/kinslayermud/kinslayer-sqlDatabase/testutil"
)

func TestPlayerFactory_Build(t *testing.T) {
	factory := testutil.NewPlayerFactory()
	player := factory.Build()

	for _, field := range testutil.PlayerFields {
		if _, ok := player[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}

	if _, ok := player["id"].(int64); !ok {
		t.Errorf("expected lazy id to resolve to int64, got %T", player["id"])
	}
}

func TestPlayerFactory_BuildWithOptions(t *testing.T) {
	factory := testutil.NewPlayerFactory()
	player := factory.Build(
		testutil.WithField("name", "Rand"),
		testutil.WithNull("gold"),
	)

	if player["name"] != "Rand" {
		t.Errorf("expected name='Rand', got %v", player["name"])
	}
	if player["gold"] != nil {
		t.Errorf("expected gold=nil, got %v", player["gold"])
	}
}

func TestPlayerFactory_BuildList(t *testing.T) {
	players := testutil.NewPlayerFactory().BuildList(5)
	if len(players) != 5 {
		t.Fatalf("expected 5 players, got %d", len(players))
	}

	ids := make(map[int64]bool)
	for _, p := range players {
		id := p["id"].(int64)
		if ids[id] {
			t.Errorf("duplicate id %d", id)
		}
		ids[id] = true
	}
}

func TestToResult(t *testing.T) {
	players := testutil.NewPlayerFactory().BuildList(3, testutil.WithNull("gold"))
	result := testutil.ToResult(testutil.PlayerFields, players)

	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Records))
	}
	rec := result.Records[0]
	if rec[3].Valid {
		t.Errorf("expected NULL gold, got %q", rec[3].String)
	}
	if rec[4].String != "2024-01-02 03:04:05" {
		t.Errorf("expected rendered timestamp, got %q", rec[4].String)
	}
}

func TestGrid(t *testing.T) {
	result := testutil.Grid(3, 2)

	if len(result.Fields) != 2 || result.Fields[1] != "c1" {
		t.Errorf("unexpected fields %v", result.Fields)
	}
	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Records))
	}
	if got := result.Records[2][1].String; got != "r2c1" {
		t.Errorf("expected r2c1, got %q", got)
	}
}

func TestRandomInt(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := testutil.RandomInt(3, 5)
		if n < 3 || n > 5 {
			t.Fatalf("RandomInt out of range: %d", n)
		}
	}
	if len(testutil.RandomString(12)) != 12 {
		t.Error("RandomString length mismatch")
	}
}
