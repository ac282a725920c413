package client

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash"

	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
)

// resultSet is the immutable, fully materialized result of one query.
// Query and every Row derived from it share the same *resultSet, so rows stay
// valid for as long as anything references them.
type resultSet struct {
	fields  []string
	index   map[string]int
	records []Record
	mapper  *mapper.ResponseMapper
}

func (rs *resultSet) indexOf(name string) (int, error) {
	if rs == nil {
		return -1, ErrUnknownField(name)
	}
	i, ok := rs.index[name]
	if !ok {
		return -1, ErrUnknownField(name)
	}
	return i, nil
}

func (rs *resultSet) fieldName(index int) (string, error) {
	if rs == nil || index < 0 || index >= len(rs.fields) {
		count := 0
		if rs != nil {
			count = len(rs.fields)
		}
		return "", ErrFieldIndexOutOfRange(index, count)
	}
	return rs.fields[index], nil
}

// Query is a buffered cursor over the result of one executed statement.
// A Query is not safe for concurrent use.
type Query struct {
	text     string
	result   *resultSet
	position int
	closed   bool
	logger   Logger
	counters *Counters
}

// Execute runs text on conn and materializes the entire result before returning.
// The returned Query owns the buffered records; conn is not used again.
func Execute(ctx context.Context, conn Connection, text string, opts ...QueryOption) (*Query, error) {
	cfg := newQueryConfig(opts)
	if conn == nil {
		return nil, ErrNotConnected("Execute")
	}

	logger := cfg.logger.WithFields(Uint64("fingerprint", Fingerprint(text)))

	var handle ResultHandle
	hookCtx, err := cfg.hooks.run(ctx, logger, SourceQuery, text, func(command string) (int64, error) {
		h, err := conn.ExecuteQuery(ctx, command)
		if err != nil {
			return 0, err
		}
		handle = h
		return 0, nil
	})
	if err != nil {
		if handle != nil {
			handle.Close()
		}
		err = wrapQueryError("E_QUERY_FAILED", "query execution failed", hookCtx.Command, err)
		logger.Error("query failed", String("trace_id", hookCtx.TraceID), Error("error", err))
		return nil, err
	}

	result, err := materialize(handle, mapper.NewResponseMapper(cfg.location))
	if closeErr := handle.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		err = wrapQueryError("E_RESULT_READ", "failed to read query result", hookCtx.Command, err)
		logger.Error("reading result failed", String("trace_id", hookCtx.TraceID), Error("error", err))
		return nil, err
	}

	logger.Debug("query executed",
		String("trace_id", hookCtx.TraceID),
		Int("rows", len(result.records)),
		Int("fields", len(result.fields)),
		Duration("duration", time.Since(hookCtx.StartTime)))

	cfg.counters.queryOpened()
	return &Query{
		text:     hookCtx.Command,
		result:   result,
		logger:   logger,
		counters: cfg.counters,
	}, nil
}

// materialize drains handle into a resultSet and builds the field index.
// When a column name repeats, name lookup resolves to its first position.
func materialize(handle ResultHandle, m *mapper.ResponseMapper) (*resultSet, error) {
	count := handle.FieldCount()
	rs := &resultSet{
		fields: make([]string, count),
		index:  make(map[string]int, count),
		mapper: m,
	}

	for i := 0; i < count; i++ {
		name := handle.FieldName(i)
		rs.fields[i] = name
		if _, dup := rs.index[name]; !dup {
			rs.index[name] = i
		}
	}

	for {
		rec, ok, err := handle.NextRecord()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if len(rec) != count {
			return nil, &QueryError{
				Code:    "E_RESULT_WIDTH",
				Type:    "QUERY_ERROR",
				Message: fmt.Sprintf("record %d has %d values, expected %d", len(rs.records), len(rec), count),
				Details: map[string]interface{}{
					"record":   len(rs.records),
					"width":    len(rec),
					"expected": count,
				},
				Timestamp: time.Now(),
			}
		}
		rs.records = append(rs.records, rec)
	}

	return rs, nil
}

// Exec runs a statement that returns no rows and reports the affected row count.
func Exec(ctx context.Context, conn Connection, text string, opts ...QueryOption) (int64, error) {
	cfg := newQueryConfig(opts)
	if conn == nil {
		return 0, ErrNotConnected("Exec")
	}

	logger := cfg.logger.WithFields(Uint64("fingerprint", Fingerprint(text)))
	hookCtx, err := cfg.hooks.run(ctx, logger, SourceExec, text, func(command string) (int64, error) {
		return conn.ExecuteStatement(ctx, command)
	})
	if err != nil {
		err = wrapQueryError("E_STATEMENT_FAILED", "statement execution failed", hookCtx.Command, err)
		logger.Error("statement failed", String("trace_id", hookCtx.TraceID), Error("error", err))
		return 0, err
	}

	logger.Debug("statement executed",
		String("trace_id", hookCtx.TraceID),
		Int64("rows_affected", hookCtx.RowsAffected))
	return hookCtx.RowsAffected, nil
}

// LastInsertID returns the identifier generated by the last insert on conn.
func LastInsertID(ctx context.Context, conn Connection) (uint64, error) {
	if conn == nil {
		return 0, ErrNotConnected("LastInsertID")
	}
	id, err := conn.LastInsertID(ctx)
	if err != nil {
		return 0, wrapQueryError("E_LAST_INSERT_ID", "failed to read last insert id", "", err)
	}
	return id, nil
}

// TableList returns the tables of the current database when conn supports listing.
func TableList(ctx context.Context, conn Connection) ([]string, error) {
	if conn == nil {
		return nil, ErrNotConnected("TableList")
	}
	lister, ok := conn.(TableLister)
	if !ok {
		return nil, &ConnectionError{
			Code:    "E_NOT_SUPPORTED",
			Type:    "CONNECTION_ERROR",
			Message: fmt.Sprintf("%T cannot list tables", conn),
		}
	}
	tables, err := lister.Tables(ctx)
	if err != nil {
		return nil, wrapQueryError("E_TABLE_LIST", "failed to list tables", "", err)
	}
	return tables, nil
}

// Fingerprint returns a stable hash of SQL text for log correlation.
func Fingerprint(text string) uint64 {
	return xxhash.Sum64String(text)
}

// NumRows returns the number of buffered records. Zero after Close.
func (q *Query) NumRows() int {
	if q.result == nil {
		return 0
	}
	return len(q.result.records)
}

// NumFields returns the number of columns. Zero after Close.
func (q *Query) NumFields() int {
	if q.result == nil {
		return 0
	}
	return len(q.result.fields)
}

// Fields returns the column names in result order.
func (q *Query) Fields() []string {
	if q.result == nil {
		return nil
	}
	return slices.Clone(q.result.fields)
}

// QueryText returns the SQL that produced this result.
func (q *Query) QueryText() string {
	return q.text
}

// Fingerprint returns the hash of the query text.
func (q *Query) Fingerprint() uint64 {
	return Fingerprint(q.text)
}

// GetIndexByField resolves a column name to its position.
func (q *Query) GetIndexByField(name string) (int, error) {
	return q.result.indexOf(name)
}

// GetFieldByIndex returns the column name at index.
func (q *Query) GetFieldByIndex(index int) (string, error) {
	return q.result.fieldName(index)
}

// HasNextRow reports whether GetRow would return a row.
func (q *Query) HasNextRow() bool {
	return !q.closed && q.position < len(q.result.records)
}

// GetRow returns the row at the cursor and advances.
func (q *Query) GetRow() (Row, error) {
	row, err := q.current("GetRow")
	if err != nil {
		return Row{}, err
	}
	q.position++
	return row, nil
}

// PeekRow returns the row at the cursor without advancing.
func (q *Query) PeekRow() (Row, error) {
	return q.current("PeekRow")
}

// SkipRow advances the cursor without producing a row.
func (q *Query) SkipRow() error {
	if q.closed {
		return ErrQueryClosed("SkipRow")
	}
	if q.position >= len(q.result.records) {
		return ErrNoMoreRows(q.position, len(q.result.records))
	}
	q.position++
	return nil
}

// ResetRowQueue rewinds the cursor to the first row.
func (q *Query) ResetRowQueue() {
	q.position = 0
}

// ReverseRows reverses the buffered row order and rewinds the cursor, so the
// next GetRow returns what was previously the last row. Rows already handed
// out are unaffected.
func (q *Query) ReverseRows() {
	if q.result == nil {
		return
	}
	slices.Reverse(q.result.records)
	q.position = 0
}

// Close releases the query's reference to the buffered result. It is
// idempotent. Rows obtained earlier remain usable.
func (q *Query) Close() error {
	if q.closed {
		return nil
	}
	q.logger.Debug("query closed", Int("rows", len(q.result.records)))
	q.closed = true
	q.result = nil
	q.position = 0
	q.counters.queryClosed()
	return nil
}

func (q *Query) current(operation string) (Row, error) {
	if q.closed {
		return Row{}, ErrQueryClosed(operation)
	}
	if q.position >= len(q.result.records) {
		return Row{}, ErrNoMoreRows(q.position, len(q.result.records))
	}
	q.counters.rowIssued()
	return Row{result: q.result, record: q.result.records[q.position]}, nil
}
