package sink

import (
	"context"

	"github.com/justapithecus/strata/metrics"

	"github.com/justapithecus/strata/types"
)

// InstrumentedOpener wraps an Opener and records sink operation metrics.
// Opens increment open success/failure; the returned sinks record write
// failures and closed-chunk counts on the same collector.
type InstrumentedOpener struct {
	inner     Opener
	collector *metrics.Collector
}

// NewInstrumentedOpener wraps an opener with metrics instrumentation.
func NewInstrumentedOpener(inner Opener, collector *metrics.Collector) *InstrumentedOpener {
	return &InstrumentedOpener{inner: inner, collector: collector}
}

// Open delegates to the inner opener and records success or failure.
func (o *InstrumentedOpener) Open(ctx context.Context, address string, format Format) (Sink, error) {
	s, err := o.inner.Open(ctx, address, format)
	if err != nil {
		o.collector.IncSinkOpenFailure()
		return nil, err
	}
	o.collector.IncSinkOpenSuccess()
	return &instrumentedSink{inner: s, collector: o.collector}, nil
}

type instrumentedSink struct {
	inner     Sink
	collector *metrics.Collector
}

// Write delegates to the inner sink and records failures.
func (s *instrumentedSink) Write(ctx context.Context, rec *types.Record) error {
	err := s.inner.Write(ctx, rec)
	if err != nil {
		s.collector.IncSinkWriteFailure()
	}
	return err
}

// Close delegates to the inner sink and records the finalized chunk.
func (s *instrumentedSink) Close(ctx context.Context) (int64, error) {
	items, err := s.inner.Close(ctx)
	if err != nil {
		return items, err
	}
	s.collector.AddChunkClosed(items)
	return items, nil
}

// Verify instrumented wrappers implement the contracts.
var (
	_ Opener = (*InstrumentedOpener)(nil)
	_ Sink   = (*instrumentedSink)(nil)
)
