package sink

import (
	"context"

	"github.com/justapithecus/strata/types"
)

// Opener opens one sink per chunk at a resolved address.
// Implementations may write to local files, a Lode store, or stub for
// testing.
type Opener interface {
	// Open creates a sink for a new chunk at address, serializing
	// records in the given format. Fails with an ErrOpen-classified
	// error on an invalid format or unwritable destination.
	Open(ctx context.Context, address string, format Format) (Sink, error)
}

// Sink accepts records for exactly one chunk and produces a finalized
// artifact on Close. A sink's lifetime is bounded by one rotation
// interval; the exporter owns it exclusively.
type Sink interface {
	// Write appends one record to the chunk.
	Write(ctx context.Context, rec *types.Record) error

	// Close finalizes the artifact and returns the number of records
	// written. A second Close fails with ErrClosed, never silently
	// succeeds.
	Close(ctx context.Context) (int64, error)
}

// StubOpen is a recorded Open call for testing.
type StubOpen struct {
	Address string
	Format  Format
}

// StubOpener is a test opener that hands out in-memory stub sinks.
type StubOpener struct {
	// Opened records every Open call in order.
	Opened []StubOpen
	// Sinks holds the created sinks in open order.
	Sinks []*StubSink

	// OpenErr, if non-nil, is returned by Open.
	OpenErr error
	// FailOpenAt, if > 0, makes the Nth Open call fail (1-based).
	FailOpenAt int
	// WriteErr, if non-nil, is installed on every created sink.
	WriteErr error
}

// NewStubOpener creates a stub opener for testing.
func NewStubOpener() *StubOpener {
	return &StubOpener{}
}

// Open implements Opener by recording the call and returning a StubSink.
func (o *StubOpener) Open(_ context.Context, address string, format Format) (Sink, error) {
	if o.OpenErr != nil {
		return nil, openErr(address, o.OpenErr)
	}
	if o.FailOpenAt > 0 && len(o.Opened)+1 == o.FailOpenAt {
		return nil, openErr(address, ErrOpen)
	}

	o.Opened = append(o.Opened, StubOpen{Address: address, Format: format})
	s := &StubSink{Address: address, Format: format, WriteErr: o.WriteErr}
	o.Sinks = append(o.Sinks, s)
	return s, nil
}

// StubSink records writes without persisting.
type StubSink struct {
	Address string
	Format  Format
	Records []*types.Record
	Closed  bool

	// WriteErr, if non-nil, is returned by Write.
	WriteErr error
	// CloseErr, if non-nil, is returned by the first Close.
	CloseErr error
}

// Write records the record without persisting.
func (s *StubSink) Write(_ context.Context, rec *types.Record) error {
	if s.Closed {
		return closedErr("write", s.Address)
	}
	if s.WriteErr != nil {
		return writeErr(s.Address, s.WriteErr)
	}
	s.Records = append(s.Records, rec)
	return nil
}

// Close marks the sink closed and returns the record count.
func (s *StubSink) Close(_ context.Context) (int64, error) {
	if s.Closed {
		return 0, closedErr("close", s.Address)
	}
	s.Closed = true
	if s.CloseErr != nil {
		return 0, s.CloseErr
	}
	return int64(len(s.Records)), nil
}

// Verify stub implementations satisfy the contracts.
var (
	_ Opener = (*StubOpener)(nil)
	_ Sink   = (*StubSink)(nil)
)
