package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/testutil"
)

const playersCSV = `id,name,level
1,alice,10
2,\N,20
3,o'brien,30
`

func compress(t *testing.T, c Compression, data string) []byte {
	t.Helper()
	var buf bytes.Buffer

	var w io.WriteCloser
	var err error
	switch c {
	case CompressionGZ:
		w = gzip.NewWriter(&buf)
	case CompressionZSTD:
		w, err = zstd.NewWriter(&buf)
	case CompressionXZ:
		w, err = xz.NewWriter(&buf)
	default:
		return []byte(data)
	}
	require.NoError(t, err)

	_, err = io.WriteString(w, data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDetectCompression(t *testing.T) {
	tests := map[string]Compression{
		"players.csv":      CompressionNone,
		"players.csv.gz":   CompressionGZ,
		"players.csv.GZ":   CompressionGZ,
		"players.csv.zst":  CompressionZSTD,
		"players.csv.zstd": CompressionZSTD,
		"players.csv.xz":   CompressionXZ,
		"-":                CompressionNone,
	}
	for path, want := range tests {
		assert.Equal(t, want, DetectCompression(path), path)
	}
}

func TestParseCompression(t *testing.T) {
	c, err := parseCompression("auto", "a.csv.xz")
	require.NoError(t, err)
	assert.Equal(t, CompressionXZ, c)

	c, err = parseCompression("none", "a.csv.xz")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	_, err = parseCompression("bzip2", "a.csv")
	assert.ErrorContains(t, err, "unsupported compression")
}

func TestNewDecompressReader(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGZ, CompressionZSTD, CompressionXZ} {
		t.Run(c.String(), func(t *testing.T) {
			r, closeFn, err := NewDecompressReader(bytes.NewReader(compress(t, c, playersCSV)), c)
			require.NoError(t, err)
			defer closeFn()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, playersCSV, string(got))
		})
	}
}

func TestNewDecompressReader_Corrupt(t *testing.T) {
	_, _, err := NewDecompressReader(strings.NewReader("not gzip"), CompressionGZ)
	assert.Error(t, err)

	_, _, err = NewDecompressReader(strings.NewReader("not xz"), CompressionXZ)
	assert.Error(t, err)
}

func TestLoadCSV_SQLite(t *testing.T) {
	tr := testutil.NewSQLite(t, "CREATE TABLE players (id INTEGER, name TEXT, level INTEGER)")
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	res, err := loadCSV(ctx, tr, "players", strings.NewReader(playersCSV), loadOptions{
		BatchSize: 2,
		NullToken: `\N`,
	})
	require.NoError(t, err)
	assert.Equal(t, client.BatchResult{Entries: 3, Flushes: 2, RowsSent: 3, RowsAffected: 3}, res)

	q, err := client.Execute(ctx, tr, "SELECT id, name, level FROM players ORDER BY id")
	require.NoError(t, err)
	defer q.Close()

	rows, err := collectRows(q, false, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "alice", "10"},
		{"2", nullCell, "20"},
		{"3", "o'brien", "30"},
	}, rows)
}

func TestLoadCSV_ExplicitColumns(t *testing.T) {
	conn := testutil.NewMockTransport(t).WithRowsAffectedFunc(func(string) int64 { return 2 })

	res, err := loadCSV(context.Background(), conn, "t", strings.NewReader("1;a\n2;b\n"), loadOptions{
		Columns:   []string{"id", "name"},
		Delimiter: ';',
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 1, res.Flushes)
	assert.Equal(t, []string{"INSERT INTO t (id,name) VALUES ('1','a'),('2','b')"}, conn.GetStatementHistory())
}

func TestLoadCSV_ContinuesAfterRejectedBatch(t *testing.T) {
	conn := testutil.NewMockTransport(t).
		WithStatementErrors(nil, errors.New("duplicate key")).
		WithRowsAffectedFunc(func(stmt string) int64 { return int64(strings.Count(stmt, "),(") + 1) })

	input := "id\n1\n2\n3\n4\n5\n"
	res, err := loadCSV(context.Background(), conn, "t", strings.NewReader(input), loadOptions{BatchSize: 2})
	require.Error(t, err)
	assert.ErrorContains(t, err, "2 of 5 rows were rejected")
	assert.ErrorContains(t, err, "duplicate key")

	assert.Equal(t, 5, res.Entries)
	assert.Equal(t, 3, res.Flushes)
	assert.Equal(t, 3, res.RowsSent)
	assert.Equal(t, 2, res.RowsFailed)
	assert.Len(t, conn.GetStatementHistory(), 3)
}

func TestLoadCSV_MalformedRecord(t *testing.T) {
	conn := testutil.NewMockTransport(t)

	res, err := loadCSV(context.Background(), conn, "t", strings.NewReader("a,b\n1,2\n3\n"), loadOptions{BatchSize: 10})
	require.Error(t, err)
	assert.ErrorContains(t, err, "record 2")
	assert.Equal(t, 1, res.RowsSent, "complete records before the bad one are still sent")
}

func TestLoadCSV_EmptyInput(t *testing.T) {
	_, err := loadCSV(context.Background(), testutil.NewMockTransport(t), "t", strings.NewReader(""), loadOptions{})
	assert.ErrorContains(t, err, "input is empty")
}

func TestLoadCSV_InsertIgnore(t *testing.T) {
	conn := testutil.NewMockTransport(t)

	_, err := loadCSV(context.Background(), conn, "t", strings.NewReader("id\n1\n"), loadOptions{Ignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"INSERT IGNORE INTO t (id) VALUES ('1')"}, conn.GetStatementHistory())
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_LoadAndQuery(t *testing.T) {
	t.Setenv(envConfig, "")
	t.Setenv(envDSN, "")

	dir := t.TempDir()
	dsn := filepath.Join(dir, "world.db")
	input := filepath.Join(dir, "players.csv.gz")
	require.NoError(t, os.WriteFile(input, compress(t, CompressionGZ, playersCSV), 0o600))

	_, err := runCLI(t, "query", "--dsn", dsn, "--exec", "CREATE TABLE players (id INTEGER, name TEXT, level INTEGER)")
	require.NoError(t, err)

	out, err := runCLI(t, "load", "--dsn", dsn, "--batch-size", "2", "players", input)
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 3 of 3 rows into players in 2 statements")

	out, err = runCLI(t, "query", "--dsn", dsn, "-o", "csv", "SELECT id, name, level FROM players ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, "id,name,level\n1,alice,10\n2,NULL,20\n3,o'brien,30\n", out)

	out, err = runCLI(t, "query", "--dsn", dsn, "--reverse", "--limit", "1", "-o", "csv", "SELECT id FROM players ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, "id\n3\n", out)

	out, err = runCLI(t, "tables", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "players\n", out)
}

func TestCLI_TableOutput(t *testing.T) {
	t.Setenv(envConfig, "")
	prev := colorsEnabled
	colorsEnabled = false
	t.Cleanup(func() { colorsEnabled = prev })

	out, err := runCLI(t, "query", "SELECT 1 AS one, NULL AS missing")
	require.NoError(t, err)
	assert.Contains(t, out, "one  missing")
	assert.Contains(t, out, "1    NULL")
	assert.Contains(t, out, "(1 of 1 rows)")
}

func TestCLI_ConfigFile(t *testing.T) {
	path := writeConfig(t, "dialect: oracle\n")

	_, err := runCLI(t, "tables", "--config", path)
	assert.ErrorContains(t, err, "unknown dialect")

	_, err = runCLI(t, "tables", "--config", path, "--dialect", "sqlite")
	assert.NoError(t, err)
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "version", "--config", "/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "sqlcursor "+client.Version+"\n", out)
}

func TestCLI_UnknownFormat(t *testing.T) {
	_, err := runCLI(t, "query", "-o", "xml", "SELECT 1")
	assert.ErrorContains(t, err, "unsupported format")
}
