package cmd

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/justapithecus/strata/export"
	"github.com/justapithecus/strata/rotation"
	"github.com/justapithecus/strata/sink"
	"github.com/justapithecus/strata/types"
)

// sliceReader yields a fixed record slice, then io.EOF.
type sliceReader struct {
	recs []*types.Record
	i    int
}

func (r *sliceReader) Next() (*types.Record, error) {
	if r.i >= len(r.recs) {
		return nil, io.EOF
	}
	rec := r.recs[r.i]
	r.i++
	return rec, nil
}

// endlessReader never runs out of records; only cancellation ends a run
// driven by it.
type endlessReader struct {
	n int
}

func (r *endlessReader) Next() (*types.Record, error) {
	r.n++
	return types.NewRecord(map[string]any{"id": r.n}), nil
}

func newTestExporter(itemsPerChunk int) (*sink.StubOpener, *export.Exporter) {
	opener := sink.NewStubOpener()
	rctx := rotation.NewContext(types.Meta{JobID: "job-1", ProjectID: "proj-1"})
	exp := export.New(export.Config{
		AddressTemplate: "out_%(chunk_number)02d.jl",
		Format:          "jsonlines",
		ItemsPerChunk:   itemsPerChunk,
	}, opener, rctx)
	return opener, exp
}

func feedRecords(n int) *sliceReader {
	recs := make([]*types.Record, n)
	for i := range recs {
		recs[i] = types.NewRecord(map[string]any{"id": i + 1})
	}
	return &sliceReader{recs: recs}
}

func TestRunExport_CanceledContextStopsAndFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener, exp := newTestExporter(2)
	reader := feedRecords(5)

	summary, err := runExport(ctx, exp, reader)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if summary.Records != 0 {
		t.Errorf("records = %d, want 0: no record may be exported after cancellation", summary.Records)
	}
	if reader.i != 0 {
		t.Errorf("reader consumed %d records after cancellation", reader.i)
	}

	// The chunk opened at Start must still be flushed.
	if exp.State() != export.StateClosed {
		t.Errorf("state = %v, want closed", exp.State())
	}
	if len(opener.Sinks) != 1 {
		t.Fatalf("opened %d sinks, want 1", len(opener.Sinks))
	}
	if !opener.Sinks[0].Closed {
		t.Error("final chunk sink was not closed")
	}
}

func TestRunExport_CancellationMidRunFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opener, exp := newTestExporter(2)
	reader := &endlessReader{}

	var summary export.Summary
	var runErr error
	done := startExport(ctx, exp, reader, func(s export.Summary, err error) {
		summary, runErr = s, err
	})

	cancel()
	<-done

	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", runErr)
	}
	if exp.State() != export.StateClosed {
		t.Errorf("state = %v, want closed", exp.State())
	}
	if len(opener.Sinks) == 0 {
		t.Fatal("no sink was opened")
	}
	for i, s := range opener.Sinks {
		if !s.Closed {
			t.Errorf("sink %d (%s) left open after cancellation", i, s.Address)
		}
	}
	if summary.Chunks != len(opener.Sinks) {
		t.Errorf("summary chunks = %d, opened sinks = %d", summary.Chunks, len(opener.Sinks))
	}
}

func TestMetricFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jl", "jsonlines"},
		{"jsonlines", "jsonlines"},
		{"json", "json"},
		{"csv", "csv"},
		{"xml", "xml"}, // unknown values pass through untouched
	}

	for _, tt := range tests {
		if got := metricFormat(tt.in); got != tt.want {
			t.Errorf("metricFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
