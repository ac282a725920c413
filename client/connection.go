package client

import (
	"context"
	"database/sql"
)

// Record is one raw result record: an ordered sequence of nullable text
// values whose width equals the result's field count.
type Record []sql.NullString

// ResultHandle is the raw result produced by a Connection for one executed query.
// Query drains it completely and closes it before returning.
type ResultHandle interface {
	// FieldCount returns the number of columns in the result.
	FieldCount() int

	// FieldName returns the name of the column at index.
	FieldName(index int) string

	// NextRecord returns the next record. ok is false once the result is exhausted.
	NextRecord() (rec Record, ok bool, err error)

	// Close releases the handle.
	Close() error
}

// Connection defines the contract this layer consumes from a database session.
// A Connection is one stateful session and must not be shared between goroutines.
type Connection interface {
	// ExecuteQuery runs a statement that produces a result set.
	// Rejected SQL is reported as a *QueryError.
	ExecuteQuery(ctx context.Context, text string) (ResultHandle, error)

	// ExecuteStatement runs a statement that produces no result set and
	// returns the number of affected rows.
	ExecuteStatement(ctx context.Context, text string) (int64, error)

	// LastInsertID returns the identifier generated by the most recent insert on this session.
	LastInsertID(ctx context.Context) (uint64, error)

	// Escape returns text escaped for use inside a single-quoted string literal.
	Escape(text string) string
}

// TableLister is implemented by connections that can enumerate the tables of
// the current database.
type TableLister interface {
	Tables(ctx context.Context) ([]string, error)
}
