package client

import "time"

// queryConfig configures Execute and Exec.
type queryConfig struct {
	logger   Logger
	counters *Counters
	hooks    *HookChain
	location *time.Location
}

// QueryOption configures how a query is executed and how its rows are decoded.
type QueryOption func(*queryConfig)

// WithLogger sets the logger for query execution. Default: no-op logger.
func WithLogger(logger Logger) QueryOption {
	return func(c *queryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCounters attaches allocation counters for leak auditing.
func WithCounters(counters *Counters) QueryOption {
	return func(c *queryConfig) {
		c.counters = counters
	}
}

// WithHooks runs hooks around the Connection call.
func WithHooks(hooks *HookChain) QueryOption {
	return func(c *queryConfig) {
		c.hooks = hooks
	}
}

// WithLocation sets the location timestamp text is interpreted in.
// Default: UTC.
func WithLocation(loc *time.Location) QueryOption {
	return func(c *queryConfig) {
		if loc != nil {
			c.location = loc
		}
	}
}

func newQueryConfig(opts []QueryOption) queryConfig {
	cfg := queryConfig{
		logger:   NewNoopLogger(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// batchConfig configures a BatchInsertStatement.
type batchConfig struct {
	logger       Logger
	counters     *Counters
	hooks        *HookChain
	insertIgnore bool
}

// BatchOption configures a BatchInsertStatement.
type BatchOption func(*batchConfig)

// WithInsertIgnore makes the batch emit INSERT IGNORE.
func WithInsertIgnore() BatchOption {
	return func(c *batchConfig) {
		c.insertIgnore = true
	}
}

// WithBatchLogger sets the logger for flushes and state changes. Default: no-op logger.
func WithBatchLogger(logger Logger) BatchOption {
	return func(c *batchConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBatchHooks runs hooks around every flush.
func WithBatchHooks(hooks *HookChain) BatchOption {
	return func(c *batchConfig) {
		c.hooks = hooks
	}
}

// WithBatchCounters attaches allocation counters for leak auditing.
func WithBatchCounters(counters *Counters) BatchOption {
	return func(c *batchConfig) {
		c.counters = counters
	}
}

func newBatchConfig(opts []BatchOption) batchConfig {
	cfg := batchConfig{logger: NewNoopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
