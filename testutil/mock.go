package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/mock"
)

// MockConnection is a client.Connection driven by ordered expectations.
// Unlike mock.MockTransport it fails the test on unexpected SQL.
//
// Example usage:
//
//	conn := testutil.NewMockConnection(t)
//	conn.ExpectStatement("INSERT INTO t (a) VALUES (1)").WillReturnRowsAffected(1)
//
//	client.Exec(ctx, conn, "INSERT INTO t (a) VALUES (1)")
//	conn.VerifyExpectations()
type MockConnection struct {
	t            *testing.T
	expectations []*Expectation
	calls        []Call
	mu           sync.Mutex
}

// Expectation represents an expected call and its response.
type Expectation struct {
	method       string // "query" or "statement"
	command      string
	result       *mock.Result
	rowsAffected int64
	err          error
	matched      bool
}

// Call represents an actual call that was made.
type Call struct {
	Method  string
	Command string
}

// NewMockConnection creates a mock connection reporting failures to t.
func NewMockConnection(t *testing.T) *MockConnection {
	return &MockConnection{t: t}
}

// ExpectQuery adds an expectation for ExecuteQuery with the exact text.
func (m *MockConnection) ExpectQuery(command string) *Expectation {
	return m.expect("query", command)
}

// ExpectStatement adds an expectation for ExecuteStatement with the exact text.
func (m *MockConnection) ExpectStatement(command string) *Expectation {
	return m.expect("statement", command)
}

func (m *MockConnection) expect(method, command string) *Expectation {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := &Expectation{method: method, command: command}
	m.expectations = append(m.expectations, exp)
	return exp
}

// WillReturn sets the query result.
func (e *Expectation) WillReturn(result *mock.Result) *Expectation {
	e.result = result
	return e
}

// WillReturnRowsAffected sets the statement's affected row count.
func (e *Expectation) WillReturnRowsAffected(n int64) *Expectation {
	e.rowsAffected = n
	return e
}

// WillReturnError makes the call fail with err.
func (e *Expectation) WillReturnError(err error) *Expectation {
	e.err = err
	return e
}

// ExecuteQuery implements client.Connection.
func (m *MockConnection) ExecuteQuery(ctx context.Context, command string) (client.ResultHandle, error) {
	exp, err := m.next("query", command)
	if err != nil {
		return nil, err
	}
	if exp.err != nil {
		return nil, exp.err
	}

	result := exp.result
	if result == nil {
		result = mock.NewResult()
	}
	return &handle{result: result}, nil
}

// ExecuteStatement implements client.Connection.
func (m *MockConnection) ExecuteStatement(ctx context.Context, command string) (int64, error) {
	exp, err := m.next("statement", command)
	if err != nil {
		return 0, err
	}
	return exp.rowsAffected, exp.err
}

// LastInsertID implements client.Connection.
func (m *MockConnection) LastInsertID(ctx context.Context) (uint64, error) {
	return 0, nil
}

// Escape implements client.Connection with MySQL escaping.
func (m *MockConnection) Escape(text string) string {
	return mapper.EscapeString(text)
}

// next matches the first unmatched expectation in order.
func (m *MockConnection) next(method, command string) (*Expectation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Command: command})

	for _, exp := range m.expectations {
		if exp.matched {
			continue
		}
		if exp.method != method || exp.command != command {
			m.t.Errorf("unexpected %s %q, next expectation is %s %q", method, command, exp.method, exp.command)
			return nil, fmt.Errorf("unexpected %s: %s", method, command)
		}
		exp.matched = true
		return exp, nil
	}

	m.t.Errorf("unexpected %s %q, no expectations remain", method, command)
	return nil, fmt.Errorf("unexpected %s: %s", method, command)
}

// VerifyExpectations checks that all expectations were met.
func (m *MockConnection) VerifyExpectations() {
	m.t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, exp := range m.expectations {
		if !exp.matched {
			m.t.Errorf("expectation %d (%s %q) was not met", i, exp.method, exp.command)
		}
	}
}

// GetCalls returns all recorded calls.
func (m *MockConnection) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call{}, m.calls...)
}

type handle struct {
	result *mock.Result
	pos    int
}

func (h *handle) FieldCount() int        { return len(h.result.Fields) }
func (h *handle) FieldName(i int) string { return h.result.Fields[i] }
func (h *handle) Close() error           { return nil }

func (h *handle) NextRecord() (client.Record, bool, error) {
	if h.pos >= len(h.result.Records) {
		return nil, false, h.result.ReadErr
	}
	rec := h.result.Records[h.pos]
	h.pos++
	return rec, true, nil
}

var _ client.Connection = (*MockConnection)(nil)
