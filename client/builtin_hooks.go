package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// maxLoggedCommand caps the SQL text a LoggingHook writes per entry. Batch
// flushes can carry thousands of tuples.
const maxLoggedCommand = 200

// LoggingHook reports each command to a Logger.
type LoggingHook struct {
	logger        Logger
	logCommands   bool
	logDurations  bool
	slowThreshold time.Duration
}

// NewLoggingHook creates a logging hook. logCommands adds the (truncated) SQL
// text at debug level; logDurations adds the elapsed time to completion logs.
func NewLoggingHook(logger Logger, logCommands, logDurations bool) *LoggingHook {
	return &LoggingHook{
		logger:       logger,
		logCommands:  logCommands,
		logDurations: logDurations,
	}
}

// WithSlowThreshold makes successful commands that take at least d log at
// warn level. Zero disables it.
func (h *LoggingHook) WithSlowThreshold(d time.Duration) *LoggingHook {
	h.slowThreshold = d
	return h
}

func (h *LoggingHook) Name() string {
	return "logging"
}

func (h *LoggingHook) Before(ctx context.Context, hookCtx *HookContext) error {
	if h.logCommands {
		h.logger.Debug("sending command",
			String("source", string(hookCtx.Source)),
			String("kind", string(hookCtx.Kind)),
			String("command", truncateCommand(hookCtx.Command)),
			String("trace_id", hookCtx.TraceID))
	}
	return nil
}

func (h *LoggingHook) After(ctx context.Context, hookCtx *HookContext) error {
	fields := []Field{
		String("source", string(hookCtx.Source)),
		String("kind", string(hookCtx.Kind)),
		Uint64("fingerprint", hookCtx.Fingerprint),
		String("trace_id", hookCtx.TraceID),
	}
	if h.logDurations {
		fields = append(fields, Duration("duration", hookCtx.Duration))
	}

	switch {
	case hookCtx.Error != nil:
		fields = append(fields, Error("error", hookCtx.Error))
		h.logger.Error("command failed", fields...)
	case h.slowThreshold > 0 && hookCtx.Duration >= h.slowThreshold:
		fields = append(fields,
			Int64("rows_affected", hookCtx.RowsAffected),
			Duration("threshold", h.slowThreshold),
			String("command", truncateCommand(hookCtx.Command)))
		h.logger.Warn("slow command", fields...)
	default:
		fields = append(fields, Int64("rows_affected", hookCtx.RowsAffected))
		h.logger.Debug("command completed", fields...)
	}
	return nil
}

func truncateCommand(command string) string {
	if len(command) <= maxLoggedCommand {
		return command
	}
	return fmt.Sprintf("%s... (%d bytes)", command[:maxLoggedCommand], len(command))
}

// MetricsHook counts commands by Source using atomic counters.
type MetricsHook struct {
	queries         atomic.Uint64
	statements      atomic.Uint64
	batchFlushes    atomic.Uint64
	errors          atomic.Uint64
	rowsAffected    atomic.Int64
	totalDurationNs atomic.Int64
	maxDurationNs   atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of a MetricsHook.
type MetricsSnapshot struct {
	Queries       uint64
	Statements    uint64
	BatchFlushes  uint64
	Errors        uint64
	RowsAffected  int64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// Commands is the number of commands seen from every source.
func (s MetricsSnapshot) Commands() uint64 {
	return s.Queries + s.Statements + s.BatchFlushes
}

// AverageDuration is TotalDuration over Commands, or zero before any command.
func (s MetricsSnapshot) AverageDuration() time.Duration {
	n := s.Commands()
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

// NewMetricsHook creates a new metrics collection hook.
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

func (h *MetricsHook) Name() string {
	return "metrics"
}

func (h *MetricsHook) Before(ctx context.Context, hookCtx *HookContext) error {
	return nil
}

func (h *MetricsHook) After(ctx context.Context, hookCtx *HookContext) error {
	switch hookCtx.Source {
	case SourceQuery:
		h.queries.Add(1)
	case SourceBatchFlush:
		h.batchFlushes.Add(1)
	default:
		h.statements.Add(1)
	}

	if hookCtx.Error != nil {
		h.errors.Add(1)
	} else if hookCtx.RowsAffected > 0 {
		h.rowsAffected.Add(hookCtx.RowsAffected)
	}

	d := hookCtx.Duration.Nanoseconds()
	h.totalDurationNs.Add(d)
	for {
		cur := h.maxDurationNs.Load()
		if d <= cur || h.maxDurationNs.CompareAndSwap(cur, d) {
			break
		}
	}
	return nil
}

// Snapshot returns the current counters. Counters are read one at a time, so
// a snapshot taken during traffic may be off by the commands in flight.
func (h *MetricsHook) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Queries:       h.queries.Load(),
		Statements:    h.statements.Load(),
		BatchFlushes:  h.batchFlushes.Load(),
		Errors:        h.errors.Load(),
		RowsAffected:  h.rowsAffected.Load(),
		TotalDuration: time.Duration(h.totalDurationNs.Load()),
		MaxDuration:   time.Duration(h.maxDurationNs.Load()),
	}
}

// Reset clears all metrics.
func (h *MetricsHook) Reset() {
	h.queries.Store(0)
	h.statements.Store(0)
	h.batchFlushes.Store(0)
	h.errors.Store(0)
	h.rowsAffected.Store(0)
	h.totalDurationNs.Store(0)
	h.maxDurationNs.Store(0)
}
