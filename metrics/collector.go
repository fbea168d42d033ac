// Package metrics provides per-run metrics collection for the export
// pipeline.
//
// The Collector accumulates counters during a single export run. It is
// a leaf package with no internal dependencies. The exporter records
// record and rotation counts; sink-level success/failure counters are
// recorded by the instrumented opener.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Pipeline
	RecordsSubmitted int64
	Rotations        int64

	// Sink operations (per-call, not per-record)
	SinkOpenSuccess  int64
	SinkOpenFailure  int64
	SinkWriteFailure int64
	ChunksClosed     int64
	ItemsClosed      int64

	// Dimensions (informational, set at construction)
	Format  string
	Backend string
	JobID   string
}

// Collector accumulates metrics during a single export run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver
// safe so uninstrumented call sites need no guards.
type Collector struct {
	mu sync.Mutex

	recordsSubmitted int64
	rotations        int64

	sinkOpenSuccess  int64
	sinkOpenFailure  int64
	sinkWriteFailure int64
	chunksClosed     int64
	itemsClosed      int64

	format  string
	backend string
	jobID   string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(format, backend, jobID string) *Collector {
	return &Collector{
		format:  format,
		backend: backend,
		jobID:   jobID,
	}
}

// IncRecordSubmitted records one record handed to the exporter.
func (c *Collector) IncRecordSubmitted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsSubmitted++
	c.mu.Unlock()
}

// IncRotation records one chunk rotation.
func (c *Collector) IncRotation() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rotations++
	c.mu.Unlock()
}

// IncSinkOpenSuccess records a successful sink open (per-call).
func (c *Collector) IncSinkOpenSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sinkOpenSuccess++
	c.mu.Unlock()
}

// IncSinkOpenFailure records a failed sink open (per-call).
func (c *Collector) IncSinkOpenFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sinkOpenFailure++
	c.mu.Unlock()
}

// IncSinkWriteFailure records a failed sink write (per-call).
func (c *Collector) IncSinkWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sinkWriteFailure++
	c.mu.Unlock()
}

// AddChunkClosed records a finalized chunk and the items it received.
func (c *Collector) AddChunkClosed(items int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksClosed++
	c.itemsClosed += items
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RecordsSubmitted: c.recordsSubmitted,
		Rotations:        c.rotations,
		SinkOpenSuccess:  c.sinkOpenSuccess,
		SinkOpenFailure:  c.sinkOpenFailure,
		SinkWriteFailure: c.sinkWriteFailure,
		ChunksClosed:     c.chunksClosed,
		ItemsClosed:      c.itemsClosed,
		Format:           c.format,
		Backend:          c.backend,
		JobID:            c.jobID,
	}
}
