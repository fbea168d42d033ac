// Package export implements the chunk rotation state machine: it owns
// the currently open sink, counts the records handed to it, and rotates
// to a freshly addressed sink whenever the configured per-chunk record
// threshold is reached.
package export

import (
	"context"

	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/rotation"
	"github.com/justapithecus/strata/sink"
	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/uritemplate"
)

// State is the exporter lifecycle state.
type State int

// Lifecycle states. StateClosed is terminal for the run.
const (
	StateIdle State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds the exporter's immutable run configuration.
type Config struct {
	// AddressTemplate parameterizes each chunk's destination address.
	AddressTemplate string
	// Format is the sink serialization format passed to the opener.
	Format string
	// ItemsPerChunk is the rotation threshold. Must be > 0.
	ItemsPerChunk int
}

func (c Config) validate() error {
	if c.AddressTemplate == "" {
		return &ConfigError{Key: "address_template", Reason: "must not be empty"}
	}
	if c.Format == "" {
		return &ConfigError{Key: "format", Reason: "must not be empty"}
	}
	if c.ItemsPerChunk <= 0 {
		return &ConfigError{Key: "items_per_chunk", Reason: "must be a positive integer"}
	}
	return nil
}

// Summary reports what a finished run produced.
type Summary struct {
	// Chunks is the number of chunk artifacts written.
	Chunks int `json:"chunks"`
	// Records is the total number of records submitted.
	Records int64 `json:"records"`
}

// Exporter drives the chunk lifecycle for one run.
//
// The contract is single-threaded and synchronous: the producer calls
// Submit once per record on one goroutine; sink open/write/close calls
// run to completion before control returns. Rotation is triggered only
// by the count comparison on Submit, never by a timer.
//
// Every sink handle is scoped to one rotation interval. A run that is
// started must be finished: an external shutdown signal has to be
// translated into a Finish call or the final chunk is left unflushed.
type Exporter struct {
	cfg       Config
	format    sink.Format
	opener    sink.Opener
	rctx      *rotation.Context
	logger    *log.Logger
	collector *metrics.Collector

	tmpl *uritemplate.Template

	state          State
	current        sink.Sink
	currentAddress string
	itemsInChunk   int
	recordsTotal   int64
	chunksWritten  int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCollector sets the metrics collector for record and rotation
// counts. Sink-level counters belong to sink.NewInstrumentedOpener.
func WithCollector(collector *metrics.Collector) Option {
	return func(e *Exporter) {
		e.collector = collector
	}
}

// New creates an exporter. Configuration is validated at Start, not
// here, so a misconfigured exporter fails before its first sink opens
// rather than at construction deep inside caller wiring.
func New(cfg Config, opener sink.Opener, rctx *rotation.Context, opts ...Option) *Exporter {
	e := &Exporter{
		cfg:    cfg,
		opener: opener,
		rctx:   rctx,
		logger: log.NewNop(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Exporter) State() State { return e.state }

// Summary returns what the run has produced so far.
func (e *Exporter) Summary() Summary {
	return Summary{Chunks: e.chunksWritten, Records: e.recordsTotal}
}

// Start validates configuration, compiles the address template, and
// opens the first chunk's sink. Valid only from the idle state.
func (e *Exporter) Start(ctx context.Context) error {
	if e.state != StateIdle {
		return &StateError{Op: "start", State: e.state}
	}

	if err := e.cfg.validate(); err != nil {
		return err
	}

	format, err := sink.ParseFormat(e.cfg.Format)
	if err != nil {
		return &ConfigError{Key: "format", Reason: err.Error()}
	}
	e.format = format

	tmpl, err := uritemplate.Compile(e.cfg.AddressTemplate, rotation.ParamNames())
	if err != nil {
		return err
	}
	e.tmpl = tmpl

	if err := e.openChunk(ctx); err != nil {
		e.state = StateClosed
		return err
	}
	e.state = StateOpen
	return nil
}

// Submit hands one record to the current chunk, rotating first if the
// chunk is full. Rotation happens strictly before the triggering record
// is written, so chunk boundaries fall exactly on record count
// boundaries. Valid only from the open state.
func (e *Exporter) Submit(ctx context.Context, rec *types.Record) error {
	if e.state != StateOpen {
		return &StateError{Op: "submit", State: e.state}
	}

	if e.itemsInChunk >= e.cfg.ItemsPerChunk {
		if err := e.rotate(ctx); err != nil {
			return err
		}
	}

	if err := e.current.Write(ctx, rec); err != nil {
		return err
	}
	e.itemsInChunk++
	e.recordsTotal++
	e.collector.IncRecordSubmitted()
	return nil
}

// Finish closes the final chunk's sink and ends the run. Valid only
// from the open state. A run with zero submitted records still produces
// exactly one (empty) chunk artifact.
func (e *Exporter) Finish(ctx context.Context) (Summary, error) {
	if e.state != StateOpen {
		return e.Summary(), &StateError{Op: "finish", State: e.state}
	}
	e.state = StateClosed

	if err := e.closeCurrent(ctx); err != nil {
		return e.Summary(), err
	}
	return e.Summary(), nil
}

// rotate closes the current sink, advances the chunk number, and opens
// the next sink. The close fully completes before the open begins. If
// either step fails the run is terminal: the sink handle has been
// released (or never existed) and the error propagates to the caller.
func (e *Exporter) rotate(ctx context.Context) error {
	if err := e.closeCurrent(ctx); err != nil {
		e.state = StateClosed
		return err
	}

	e.rctx.Advance()
	e.collector.IncRotation()

	if err := e.openChunk(ctx); err != nil {
		e.state = StateClosed
		return err
	}
	return nil
}

// openChunk resolves the next chunk address and opens its sink.
func (e *Exporter) openChunk(ctx context.Context) error {
	address, err := e.tmpl.Resolve(e.rctx.Params())
	if err != nil {
		return err
	}

	s, err := e.opener.Open(ctx, address, e.format)
	if err != nil {
		return err
	}

	e.current = s
	e.currentAddress = address
	e.itemsInChunk = 0

	e.logger.Debug("chunk opened", map[string]any{
		"chunk_number": e.rctx.ChunkNumber(),
		"address":      address,
	})
	return nil
}

// closeCurrent releases the current sink handle. Safe to call when no
// sink is open (after a failed rotation open).
func (e *Exporter) closeCurrent(ctx context.Context) error {
	if e.current == nil {
		return nil
	}
	s := e.current
	address := e.currentAddress
	chunk := e.rctx.ChunkNumber()
	e.current = nil
	e.currentAddress = ""

	items, err := s.Close(ctx)
	if err != nil {
		return err
	}
	e.chunksWritten++

	e.logger.Info("chunk closed", map[string]any{
		"chunk_number": chunk,
		"address":      address,
		"items":        items,
	})
	return nil
}
