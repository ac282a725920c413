package client

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
)

// BatchResult summarizes what a batch has transmitted.
type BatchResult struct {
	// Entries is the number of completed entries.
	Entries int
	// Flushes is the number of statements sent to the connection, failed ones included.
	Flushes int
	// RowsSent is the number of entries in statements the connection accepted.
	RowsSent int
	// RowsFailed is the number of entries in statements the connection rejected.
	RowsFailed int
	// RowsAffected is the sum of affected row counts reported by the connection.
	RowsAffected int64
}

// BatchInsertStatement accumulates row tuples into one multi-row INSERT and
// sends it to the connection every insertsPerFlush entries:
//
//	INSERT [IGNORE] INTO table (c1,c2) VALUES (v1,v2),(v1,v2)
//
// Usage is AddField... → Start → (BeginEntry → Put... → EndEntry)* → Finish.
// A BatchInsertStatement is not safe for concurrent use.
type BatchInsertStatement struct {
	id              string
	conn            Connection
	tableName       string
	insertsPerFlush int
	insertIgnore    bool

	fields []string
	header string
	sql    strings.Builder

	pending        int // completed entries not yet flushed
	valuesInEntry  int
	entryStart     int // sql length before the open entry, for discarding it
	result         BatchResult
	lastFlushError error

	sm       *batchStateMachine
	logger   Logger
	hooks    *HookChain
	counters *Counters
}

// NewBatchInsertStatement creates a batch for tableName that flushes after
// every insertsPerFlush completed entries. insertsPerFlush <= 0 disables
// automatic flushing; entries are then sent by Flush or Finish.
func NewBatchInsertStatement(conn Connection, tableName string, insertsPerFlush int, opts ...BatchOption) *BatchInsertStatement {
	cfg := newBatchConfig(opts)
	id := uuid.New().String()

	b := &BatchInsertStatement{
		id:              id,
		conn:            conn,
		tableName:       tableName,
		insertsPerFlush: insertsPerFlush,
		insertIgnore:    cfg.insertIgnore,
		hooks:           cfg.hooks,
		counters:        cfg.counters,
		logger: cfg.logger.WithFields(
			String("batch_id", id),
			String("table", tableName)),
	}
	b.sm = newBatchStateMachine(func(t BatchTransition) {
		b.logger.Debug("batch state changed",
			String("from", t.From.String()),
			String("to", t.To.String()),
			Duration("held", t.Duration))
	})

	cfg.counters.batchOpened()
	return b
}

// ID returns the batch identifier used in log fields.
func (b *BatchInsertStatement) ID() string {
	return b.id
}

// State returns the current phase of the batch.
func (b *BatchInsertStatement) State() BatchState {
	return b.sm.state()
}

// Fields returns the declared column list.
func (b *BatchInsertStatement) Fields() []string {
	return append([]string(nil), b.fields...)
}

// AddField declares the next column. Only legal before Start.
func (b *BatchInsertStatement) AddField(name string) error {
	if err := b.sm.require(UNINITIALIZED, "AddField"); err != nil {
		return err
	}
	b.fields = append(b.fields, name)
	return nil
}

// Start freezes the column list and builds the statement header. Calling it
// again after a successful start is a no-op.
func (b *BatchInsertStatement) Start() error {
	switch b.sm.state() {
	case STARTED, IN_ENTRY:
		return nil
	}
	if len(b.fields) == 0 {
		if b.sm.state() == CLOSED {
			return ErrBatchClosed("Start")
		}
		return &StateError{
			Code:    "E_NO_FIELDS",
			Type:    "STATE_ERROR",
			Message: "a batch insert needs at least one field before Start",
			Details: map[string]interface{}{
				"table": b.tableName,
			},
			StackTrace: captureStackTrace(),
		}
	}
	if err := b.sm.transitionTo(STARTED, "Start"); err != nil {
		return err
	}

	var h strings.Builder
	h.WriteString("INSERT ")
	if b.insertIgnore {
		h.WriteString("IGNORE ")
	}
	h.WriteString("INTO ")
	h.WriteString(b.tableName)
	h.WriteString(" (")
	h.WriteString(strings.Join(b.fields, ","))
	h.WriteString(") VALUES ")
	b.header = h.String()
	return nil
}

// BeginEntry opens a new row tuple, starting the batch if needed.
func (b *BatchInsertStatement) BeginEntry() error {
	if b.sm.state() == UNINITIALIZED {
		if err := b.Start(); err != nil {
			return err
		}
	}
	if err := b.sm.transitionTo(IN_ENTRY, "BeginEntry"); err != nil {
		return err
	}

	b.entryStart = b.sql.Len()
	if b.pending > 0 {
		b.sql.WriteByte(',')
	}
	b.sql.WriteByte('(')
	b.valuesInEntry = 0
	return nil
}

// EndEntry closes the open tuple. The entry must carry exactly one value per
// declared field; otherwise it is discarded and a StateError is returned.
// Reaching insertsPerFlush pending entries triggers Flush, whose error is
// returned.
func (b *BatchInsertStatement) EndEntry(ctx context.Context) error {
	if err := b.sm.require(IN_ENTRY, "EndEntry"); err != nil {
		return err
	}
	if b.valuesInEntry != len(b.fields) {
		err := ErrValueCountMismatch(len(b.fields), b.valuesInEntry)
		b.discardEntry()
		b.logger.Warn("entry discarded", Error("error", err))
		return err
	}
	if err := b.sm.transitionTo(STARTED, "EndEntry"); err != nil {
		return err
	}

	b.sql.WriteByte(')')
	b.pending++
	b.result.Entries++

	if b.insertsPerFlush > 0 && b.pending >= b.insertsPerFlush {
		return b.Flush(ctx)
	}
	return nil
}

// discardEntry drops the open tuple's text and returns to STARTED.
func (b *BatchInsertStatement) discardEntry() {
	kept := b.sql.String()[:b.entryStart]
	b.sql.Reset()
	b.sql.WriteString(kept)
	b.valuesInEntry = 0
	b.sm.transitionTo(STARTED, "EndEntry")
}

// PutString appends a quoted, escaped string literal.
func (b *BatchInsertStatement) PutString(value string) error {
	return b.putQuoted("PutString", value)
}

// PutInt appends an integer literal.
func (b *BatchInsertStatement) PutInt(value int) error {
	return b.putLiteral("PutInt", strconv.Itoa(value))
}

// PutLong appends a 64-bit integer literal.
func (b *BatchInsertStatement) PutLong(value int64) error {
	return b.putLiteral("PutLong", strconv.FormatInt(value, 10))
}

// PutUint64 appends an unsigned 64-bit integer literal.
func (b *BatchInsertStatement) PutUint64(value uint64) error {
	return b.putLiteral("PutUint64", strconv.FormatUint(value, 10))
}

// PutChar appends a one-character string literal.
func (b *BatchInsertStatement) PutChar(value byte) error {
	return b.putQuoted("PutChar", string([]byte{value}))
}

// PutBool appends 1 or 0.
func (b *BatchInsertStatement) PutBool(value bool) error {
	return b.putLiteral("PutBool", strconv.Itoa(mapper.EncodeBooleanInt(value)))
}

// PutDouble appends a floating-point literal. NaN and infinities have no SQL
// literal and are written as NULL.
func (b *BatchInsertStatement) PutDouble(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return b.putLiteral("PutDouble", "NULL")
	}
	return b.putLiteral("PutDouble", strconv.FormatFloat(value, 'g', -1, 64))
}

// PutTimestamp appends a quoted "YYYY-MM-DD HH:MM:SS" literal.
func (b *BatchInsertStatement) PutTimestamp(value time.Time) error {
	return b.putLiteral("PutTimestamp", mapper.EncodeQuoteDate(value))
}

// PutNull appends NULL.
func (b *BatchInsertStatement) PutNull() error {
	return b.putLiteral("PutNull", "NULL")
}

// AddFieldValue appends value verbatim. The caller is responsible for
// quoting and escaping; use it for expressions such as NOW().
func (b *BatchInsertStatement) AddFieldValue(value string) error {
	return b.putLiteral("AddFieldValue", value)
}

// putQuoted escapes value with the connection's rules and appends it quoted.
func (b *BatchInsertStatement) putQuoted(operation, value string) error {
	if err := b.sm.require(IN_ENTRY, operation); err != nil {
		return err
	}
	if b.conn == nil {
		return ErrNotConnected(operation)
	}
	return b.putLiteral(operation, "'"+b.conn.Escape(value)+"'")
}

func (b *BatchInsertStatement) putLiteral(operation, literal string) error {
	if err := b.sm.require(IN_ENTRY, operation); err != nil {
		return err
	}
	if b.valuesInEntry >= len(b.fields) {
		return ErrValueCountMismatch(len(b.fields), b.valuesInEntry+1)
	}
	if b.valuesInEntry > 0 {
		b.sql.WriteByte(',')
	}
	b.sql.WriteString(literal)
	b.valuesInEntry++
	return nil
}

// Flush sends the pending entries as one statement and clears them. The
// header and column list persist so later entries continue the same stream.
// With nothing pending it does nothing. Entries of a rejected statement are
// counted as failed and are not sent again.
func (b *BatchInsertStatement) Flush(ctx context.Context) error {
	switch b.sm.state() {
	case CLOSED:
		return ErrBatchClosed("Flush")
	case IN_ENTRY:
		return ErrInvalidBatchState("Flush", IN_ENTRY)
	}
	if b.pending == 0 {
		return nil
	}
	if b.conn == nil {
		return ErrNotConnected("Flush")
	}

	statement := b.header + b.sql.String()
	count := b.pending
	b.sql.Reset()
	b.pending = 0
	b.result.Flushes++

	hookCtx, err := b.hooks.run(ctx, b.logger, SourceBatchFlush, statement, func(command string) (int64, error) {
		return b.conn.ExecuteStatement(ctx, command)
	})
	if err != nil {
		b.result.RowsFailed += count
		flushErr := &QueryError{
			Code:    "E_FLUSH_FAILED",
			Type:    "QUERY_ERROR",
			Message: "batch insert flush was rejected",
			Details: map[string]interface{}{
				"batch_id": b.id,
				"table":    b.tableName,
				"entries":  count,
			},
			Query:      hookCtx.Command,
			Cause:      err,
			StackTrace: captureStackTrace(),
			Timestamp:  time.Now(),
		}
		var serverErr *QueryError
		if errors.As(err, &serverErr) {
			flushErr.ServerErrno = serverErr.ServerErrno
			flushErr.ServerMessage = serverErr.ServerMessage
		}
		err = flushErr
		b.lastFlushError = err
		b.logger.Error("batch flush failed",
			String("trace_id", hookCtx.TraceID),
			Int("entries", count),
			Error("error", err))
		return err
	}

	b.result.RowsSent += count
	b.result.RowsAffected += hookCtx.RowsAffected
	b.logger.Debug("batch flushed",
		String("trace_id", hookCtx.TraceID),
		Int("entries", count),
		Int64("rows_affected", hookCtx.RowsAffected),
		Duration("duration", hookCtx.Duration))
	return nil
}

// Finish flushes any remaining entries and closes the batch. It may be called
// after a failed flush: the result reports how many entries were sent and how
// many were rejected, and rejected entries are not retried. The returned error
// only concerns the final flush.
func (b *BatchInsertStatement) Finish(ctx context.Context) (BatchResult, error) {
	switch b.sm.state() {
	case CLOSED:
		return b.result, ErrBatchClosed("Finish")
	case IN_ENTRY:
		return b.result, ErrInvalidBatchState("Finish", IN_ENTRY)
	}

	err := b.Flush(ctx)
	b.sm.transitionTo(CLOSED, "Finish")
	b.counters.batchClosed()

	b.logger.Info("batch finished",
		Int("entries", b.result.Entries),
		Int("flushes", b.result.Flushes),
		Int("rows_sent", b.result.RowsSent),
		Int("rows_failed", b.result.RowsFailed))
	return b.result, err
}

// Stats returns the counters accumulated so far.
func (b *BatchInsertStatement) Stats() BatchResult {
	return b.result
}

// PendingEntries returns the number of completed entries not yet flushed.
func (b *BatchInsertStatement) PendingEntries() int {
	return b.pending
}

// LastFlushError returns the error of the most recent failed flush, if any.
func (b *BatchInsertStatement) LastFlushError() error {
	return b.lastFlushError
}

// Statement returns the text the next flush would send, or "" when nothing is pending.
func (b *BatchInsertStatement) Statement() string {
	if b.pending == 0 {
		return ""
	}
	return b.header + b.sql.String()
}
