package client

import "sync/atomic"

// Counters tracks query and row allocations for leak auditing. A nil
// *Counters disables tracking. Each test run supplies its own instance.
type Counters struct {
	queriesOpened atomic.Int64
	queriesClosed atomic.Int64
	rowsIssued    atomic.Int64
	batchesOpened atomic.Int64
	batchesClosed atomic.Int64
}

// NewCounters creates an empty counter set.
func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) queryOpened() {
	if c != nil {
		c.queriesOpened.Add(1)
	}
}

func (c *Counters) queryClosed() {
	if c != nil {
		c.queriesClosed.Add(1)
	}
}

func (c *Counters) rowIssued() {
	if c != nil {
		c.rowsIssued.Add(1)
	}
}

func (c *Counters) batchOpened() {
	if c != nil {
		c.batchesOpened.Add(1)
	}
}

func (c *Counters) batchClosed() {
	if c != nil {
		c.batchesClosed.Add(1)
	}
}

// QueriesOpened returns the number of queries executed.
func (c *Counters) QueriesOpened() int64 { return c.queriesOpened.Load() }

// QueriesClosed returns the number of queries closed.
func (c *Counters) QueriesClosed() int64 { return c.queriesClosed.Load() }

// RowsIssued returns the number of Row views handed out by GetRow and PeekRow.
func (c *Counters) RowsIssued() int64 { return c.rowsIssued.Load() }

// BatchesOpened returns the number of batch statements created.
func (c *Counters) BatchesOpened() int64 { return c.batchesOpened.Load() }

// BatchesClosed returns the number of batch statements finished.
func (c *Counters) BatchesClosed() int64 { return c.batchesClosed.Load() }

// Remainder returns queries and batches still open.
func (c *Counters) Remainder() int64 {
	return c.QueriesOpened() - c.QueriesClosed() + c.BatchesOpened() - c.BatchesClosed()
}
