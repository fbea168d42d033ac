// Package rotation tracks the per-run identity values that parameterize
// chunk addresses: the chunk ordinal, job and project identity, and the
// timestamp rendering layout.
package rotation

import (
	"time"

	"github.com/justapithecus/strata/types"
)

// DefaultTimestampLayout renders the timestamp parameter down to the
// hour, matching the default chunk cadence.
const DefaultTimestampLayout = "2006-01-02-15"

// Parameter names recognized in address templates.
const (
	ParamChunkNumber = "chunk_number"
	ParamJobID       = "job_id"
	ParamProjectID   = "project_id"
	ParamTimestamp   = "timestamp"
)

// ParamNames returns the full set of recognized template parameters.
func ParamNames() []string {
	return []string{ParamChunkNumber, ParamJobID, ParamProjectID, ParamTimestamp}
}

// Clock supplies the current time. Injectable for deterministic tests.
type Clock func() time.Time

// Context holds the mutable per-run address parameters. The chunk
// number starts at 1 and only ever advances by one; identity values are
// immutable for the lifetime of the run.
type Context struct {
	meta        types.Meta
	layout      string
	clock       Clock
	chunkNumber int
}

// Option configures a Context.
type Option func(*Context)

// WithTimestampLayout overrides the Go time layout used to render the
// timestamp parameter.
func WithTimestampLayout(layout string) Option {
	return func(c *Context) {
		if layout != "" {
			c.layout = layout
		}
	}
}

// WithClock overrides the time source. Use in tests to freeze the
// timestamp parameter.
func WithClock(clock Clock) Option {
	return func(c *Context) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContext creates a rotation context for one run. Missing identity
// fields in meta are filled with the sentinel defaults.
func NewContext(meta types.Meta, opts ...Option) *Context {
	c := &Context{
		meta:        meta.WithDefaults(),
		layout:      DefaultTimestampLayout,
		clock:       time.Now,
		chunkNumber: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkNumber returns the current chunk ordinal.
func (c *Context) ChunkNumber() int { return c.chunkNumber }

// Advance increments the chunk ordinal by exactly one. This is the only
// mutation a Context supports.
func (c *Context) Advance() { c.chunkNumber++ }

// Params returns a fresh parameter map for address resolution. The
// timestamp is re-rendered from the clock in UTC on every call, never
// cached.
func (c *Context) Params() map[string]any {
	return map[string]any{
		ParamChunkNumber: c.chunkNumber,
		ParamJobID:       c.meta.JobID,
		ParamProjectID:   c.meta.ProjectID,
		ParamTimestamp:   c.clock().UTC().Format(c.layout),
	}
}
