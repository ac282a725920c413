// Package transport defines the connection layer shared by client.Connection
// implementations.
package transport

import (
	"context"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
)

// Transport is a client.Connection with a managed lifetime.
type Transport interface {
	client.Connection

	// Close releases the underlying connection
	Close() error

	// IsHealthy returns whether the connection is usable
	IsHealthy(ctx context.Context) bool

	// GetMetrics returns transport performance metrics
	GetMetrics() Metrics
}

// Metrics contains performance and health metrics
type Metrics struct {
	// TotalQueries is the number of ExecuteQuery calls
	TotalQueries int64

	// TotalStatements is the number of ExecuteStatement calls
	TotalStatements int64

	// TotalErrors is the total number of errors encountered
	TotalErrors int64

	// AverageLatency is the average latency of queries and statements
	AverageLatency time.Duration

	// LastError is the most recent error encountered
	LastError error

	// LastErrorTime is when the last error occurred
	LastErrorTime time.Time

	// RowsRead is the number of records handed out through result handles
	RowsRead int64

	// RowsAffected is the sum of affected row counts reported by statements
	RowsAffected int64

	// HealthChecksPassed is the number of successful health checks
	HealthChecksPassed int64

	// HealthChecksFailed is the number of failed health checks
	HealthChecksFailed int64
}

// Factory creates new transport instances
type Factory func(ctx context.Context) (Transport, error)
