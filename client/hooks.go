package client

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies which client operation sent a command.
type Source string

const (
	// SourceQuery is Execute, which expects a result set.
	SourceQuery Source = "query"
	// SourceExec is Exec, a statement without rows.
	SourceExec Source = "exec"
	// SourceBatchFlush is a multi-row INSERT sent by BatchInsertStatement.
	SourceBatchFlush Source = "batch_flush"
)

// StatementKind classifies SQL text by its leading keyword.
type StatementKind string

const (
	KindRead        StatementKind = "read"
	KindWrite       StatementKind = "write"
	KindDDL         StatementKind = "ddl"
	KindTransaction StatementKind = "transaction"
	KindOther       StatementKind = "other"
)

// HookContext describes one command on its way to a Connection.
type HookContext struct {
	// Command is the SQL text. Before hooks may rewrite it.
	Command string

	// Source is the client operation that issued the command.
	Source Source

	// Kind is derived from the original text and is not updated on rewrite.
	Kind StatementKind

	// Fingerprint is the xxhash of the original text, matching log fields.
	Fingerprint uint64

	StartTime time.Time

	// Metadata carries values from a hook's Before to its After.
	Metadata map[string]interface{}

	TraceID string

	// Set before After runs.
	RowsAffected int64
	Error        error
	Duration     time.Duration
}

// Hook can inspect, modify, or abort statements sent to a Connection.
type Hook interface {
	// Name returns the unique name of this hook
	Name() string

	// Before is called before execution.
	// Returning an error aborts the statement and returns the error.
	Before(ctx context.Context, hookCtx *HookContext) error

	// After is called after execution (even if it failed).
	// Returning an error replaces a nil execution error.
	After(ctx context.Context, hookCtx *HookContext) error
}

// HookChain is an ordered set of hooks. The zero value is an empty chain.
type HookChain struct {
	hooks []Hook
}

// NewHookChain creates a chain from hooks in FIFO execution order.
func NewHookChain(hooks ...Hook) *HookChain {
	c := &HookChain{}
	for _, h := range hooks {
		c.Register(h)
	}
	return c
}

// Register adds a hook to the chain.
// If a hook with the same name already exists, it is replaced in place.
func (c *HookChain) Register(hook Hook) {
	for i, existing := range c.hooks {
		if existing.Name() == hook.Name() {
			c.hooks[i] = hook
			return
		}
	}
	c.hooks = append(c.hooks, hook)
}

// Unregister removes a hook by name and reports whether it was present.
func (c *HookChain) Unregister(name string) bool {
	for i, existing := range c.hooks {
		if existing.Name() == name {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns the names of all registered hooks in execution order.
func (c *HookChain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.hooks))
	for i, h := range c.hooks {
		names[i] = h.Name()
	}
	return names
}

// run wraps fn with the Before/After hooks. fn receives the (possibly
// rewritten) command and returns the affected row count for statements.
func (c *HookChain) run(ctx context.Context, logger Logger, source Source, command string, fn func(command string) (int64, error)) (*HookContext, error) {
	hookCtx := &HookContext{
		Command:     command,
		Source:      source,
		Kind:        classifyStatement(command),
		Fingerprint: Fingerprint(command),
		StartTime:   time.Now(),
		Metadata:    make(map[string]interface{}),
		TraceID:     uuid.New().String(),
	}

	var hooks []Hook
	if c != nil {
		hooks = c.hooks
	}

	for _, hook := range hooks {
		if err := hook.Before(ctx, hookCtx); err != nil {
			logger.Debug("hook aborted command",
				String("hook", hook.Name()),
				String("trace_id", hookCtx.TraceID),
				Error("error", err))
			return hookCtx, err
		}
	}

	hookCtx.RowsAffected, hookCtx.Error = fn(hookCtx.Command)
	hookCtx.Duration = time.Since(hookCtx.StartTime)

	err := hookCtx.Error
	for _, hook := range hooks {
		if hookErr := hook.After(ctx, hookCtx); hookErr != nil {
			logger.Debug("hook returned error in After",
				String("hook", hook.Name()),
				String("trace_id", hookCtx.TraceID),
				Error("error", hookErr))
			if err == nil {
				err = hookErr
			}
		}
	}

	return hookCtx, err
}

// classifyStatement maps the leading keyword of command to a StatementKind.
func classifyStatement(command string) StatementKind {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return KindOther
	}

	switch strings.ToUpper(strings.TrimLeft(fields[0], "(")) {
	case "SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH", "PRAGMA", "VALUES":
		return KindRead
	case "INSERT", "UPDATE", "DELETE", "REPLACE", "UPSERT", "MERGE":
		return KindWrite
	case "CREATE", "DROP", "ALTER", "TRUNCATE", "RENAME":
		return KindDDL
	case "BEGIN", "COMMIT", "ROLLBACK", "START", "SAVEPOINT", "RELEASE":
		return KindTransaction
	default:
		return KindOther
	}
}
