package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/rotation"
	"github.com/justapithecus/strata/sink"
	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/uritemplate"
)

func testContext() *rotation.Context {
	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	return rotation.NewContext(
		types.Meta{JobID: "job-1", ProjectID: "proj-1"},
		rotation.WithClock(func() time.Time { return at }),
	)
}

func testConfig(itemsPerChunk int) Config {
	return Config{
		AddressTemplate: "export_%(chunk_number)02d.json",
		Format:          "jsonlines",
		ItemsPerChunk:   itemsPerChunk,
	}
}

func makeRecord(id int) *types.Record {
	return types.NewRecord(map[string]any{"id": id})
}

func runExport(t *testing.T, itemsPerChunk, n int) (*sink.StubOpener, Summary) {
	t.Helper()

	opener := sink.NewStubOpener()
	e := New(testConfig(itemsPerChunk), opener, testContext())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 1; i <= n; i++ {
		if err := e.Submit(ctx, makeRecord(i)); err != nil {
			t.Fatalf("Submit(%d) failed: %v", i, err)
		}
	}
	summary, err := e.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return opener, summary
}

func TestExporter_Partition(t *testing.T) {
	tests := []struct {
		itemsPerChunk int
		n             int
		wantChunks    []int
	}{
		{1, 1, []int{1}},
		{1, 2, []int{1, 1}},
		{2, 1, []int{1}},
		{2, 2, []int{2}},
		{3, 2, []int{2}},
		{1, 5, []int{1, 1, 1, 1, 1}},
		{2, 5, []int{2, 2, 1}},
		{3, 5, []int{3, 2}},
		{4, 5, []int{4, 1}},
		{5, 5, []int{5}},
		{6, 5, []int{5}},
		{25, 100, []int{25, 25, 25, 25}},
		{24, 100, []int{24, 24, 24, 24, 4}},
		{26, 100, []int{26, 26, 26, 22}},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("items_%d_chunksize_%d", tt.n, tt.itemsPerChunk)
		t.Run(name, func(t *testing.T) {
			opener, summary := runExport(t, tt.itemsPerChunk, tt.n)

			if len(opener.Sinks) != len(tt.wantChunks) {
				t.Fatalf("chunks = %d, want %d", len(opener.Sinks), len(tt.wantChunks))
			}
			for i, want := range tt.wantChunks {
				if got := len(opener.Sinks[i].Records); got != want {
					t.Errorf("chunk %d received %d records, want %d", i+1, got, want)
				}
				if !opener.Sinks[i].Closed {
					t.Errorf("chunk %d sink not closed", i+1)
				}
			}
			if summary.Chunks != len(tt.wantChunks) {
				t.Errorf("summary.Chunks = %d, want %d", summary.Chunks, len(tt.wantChunks))
			}
			if summary.Records != int64(tt.n) {
				t.Errorf("summary.Records = %d, want %d", summary.Records, tt.n)
			}
		})
	}
}

func TestExporter_MonotonicChunkNumbers(t *testing.T) {
	opener, _ := runExport(t, 3, 10) // 4 chunks

	want := []string{"export_01.json", "export_02.json", "export_03.json", "export_04.json"}
	if len(opener.Opened) != len(want) {
		t.Fatalf("opened %d sinks, want %d", len(opener.Opened), len(want))
	}
	for i, open := range opener.Opened {
		if open.Address != want[i] {
			t.Errorf("chunk %d address = %q, want %q", i+1, open.Address, want[i])
		}
		if open.Format != sink.FormatJSONLines {
			t.Errorf("chunk %d format = %q, want jsonlines", i+1, open.Format)
		}
	}
}

func TestExporter_NoCrossChunkLeakage(t *testing.T) {
	opener, _ := runExport(t, 7, 23)

	next := 1
	for i, s := range opener.Sinks {
		for _, rec := range s.Records {
			if got := rec.Data["id"]; got != next {
				t.Fatalf("chunk %d: record id = %v, want %d", i+1, got, next)
			}
			next++
		}
	}
	if next != 24 {
		t.Errorf("saw %d records across chunks, want 23", next-1)
	}
}

func TestExporter_ConfigurationGate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero items per chunk", Config{AddressTemplate: "a_%(chunk_number)d", Format: "json", ItemsPerChunk: 0}},
		{"negative items per chunk", Config{AddressTemplate: "a_%(chunk_number)d", Format: "json", ItemsPerChunk: -5}},
		{"empty template", Config{Format: "json", ItemsPerChunk: 1}},
		{"empty format", Config{AddressTemplate: "a_%(chunk_number)d", ItemsPerChunk: 1}},
		{"unknown format", Config{AddressTemplate: "a_%(chunk_number)d", Format: "xml", ItemsPerChunk: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := sink.NewStubOpener()
			e := New(tt.cfg, opener, testContext())

			err := e.Start(context.Background())
			if !errors.Is(err, ErrNotConfigured) {
				t.Errorf("Start error = %v, want ErrNotConfigured", err)
			}
			if len(opener.Opened) != 0 {
				t.Errorf("a sink was opened despite invalid configuration")
			}
		})
	}
}

func TestExporter_BadTemplateFatalAtStart(t *testing.T) {
	cfg := Config{
		AddressTemplate: "export_%(chunk)02d.json", // unrecognized placeholder
		Format:          "json",
		ItemsPerChunk:   10,
	}
	opener := sink.NewStubOpener()
	e := New(cfg, opener, testContext())

	err := e.Start(context.Background())
	if !errors.Is(err, uritemplate.ErrUnknownPlaceholder) {
		t.Errorf("Start error = %v, want ErrUnknownPlaceholder", err)
	}
	if len(opener.Opened) != 0 {
		t.Errorf("a sink was opened despite a bad template")
	}
}

func TestExporter_ZeroRecordRun(t *testing.T) {
	opener, summary := runExport(t, 5, 0)

	// A started run always produces its first chunk, even when empty.
	if len(opener.Sinks) != 1 {
		t.Fatalf("chunks = %d, want exactly 1", len(opener.Sinks))
	}
	if len(opener.Sinks[0].Records) != 0 {
		t.Errorf("empty run chunk received %d records", len(opener.Sinks[0].Records))
	}
	if !opener.Sinks[0].Closed {
		t.Errorf("empty chunk sink not closed")
	}
	if summary.Chunks != 1 || summary.Records != 0 {
		t.Errorf("summary = %+v, want 1 chunk, 0 records", summary)
	}
}

func TestExporter_AddressParameters(t *testing.T) {
	cfg := Config{
		AddressTemplate: "%(project_id)s/%(job_id)s/%(timestamp)s/chunk_%(chunk_number)03d.jl",
		Format:          "jl",
		ItemsPerChunk:   1,
	}
	opener := sink.NewStubOpener()
	e := New(cfg, opener, testContext())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := e.Submit(ctx, makeRecord(i)); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if _, err := e.Finish(ctx); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	want := []string{
		"proj-1/job-1/2026-08-31-12/chunk_001.jl",
		"proj-1/job-1/2026-08-31-12/chunk_002.jl",
	}
	for i, w := range want {
		if opener.Opened[i].Address != w {
			t.Errorf("address[%d] = %q, want %q", i, opener.Opened[i].Address, w)
		}
	}
}

func TestExporter_InvalidStateTransitions(t *testing.T) {
	ctx := context.Background()
	rec := makeRecord(1)

	t.Run("submit before start", func(t *testing.T) {
		e := New(testConfig(1), sink.NewStubOpener(), testContext())
		if err := e.Submit(ctx, rec); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Submit error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("finish before start", func(t *testing.T) {
		e := New(testConfig(1), sink.NewStubOpener(), testContext())
		if _, err := e.Finish(ctx); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Finish error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("start twice", func(t *testing.T) {
		e := New(testConfig(1), sink.NewStubOpener(), testContext())
		if err := e.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := e.Start(ctx); !errors.Is(err, ErrInvalidState) {
			t.Errorf("second Start error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("submit after finish", func(t *testing.T) {
		e := New(testConfig(1), sink.NewStubOpener(), testContext())
		if err := e.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if _, err := e.Finish(ctx); err != nil {
			t.Fatalf("Finish failed: %v", err)
		}
		if err := e.Submit(ctx, rec); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Submit error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("finish twice", func(t *testing.T) {
		e := New(testConfig(1), sink.NewStubOpener(), testContext())
		if err := e.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if _, err := e.Finish(ctx); err != nil {
			t.Fatalf("Finish failed: %v", err)
		}
		if _, err := e.Finish(ctx); !errors.Is(err, ErrInvalidState) {
			t.Errorf("second Finish error = %v, want ErrInvalidState", err)
		}
	})
}

func TestExporter_OpenFailurePropagates(t *testing.T) {
	opener := sink.NewStubOpener()
	opener.OpenErr = errors.New("permission denied")
	e := New(testConfig(1), opener, testContext())

	err := e.Start(context.Background())
	if !errors.Is(err, sink.ErrOpen) {
		t.Errorf("Start error = %v, want ErrOpen", err)
	}
	if e.State() != StateClosed {
		t.Errorf("state after failed Start = %v, want closed", e.State())
	}
}

func TestExporter_RotationOpenFailureTerminal(t *testing.T) {
	opener := sink.NewStubOpener()
	opener.FailOpenAt = 2 // first rotation's open fails
	e := New(testConfig(1), opener, testContext())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Submit(ctx, makeRecord(1)); err != nil {
		t.Fatalf("Submit(1) failed: %v", err)
	}

	// Second submit triggers rotation: chunk 1 must be closed even
	// though the new open fails.
	err := e.Submit(ctx, makeRecord(2))
	if !errors.Is(err, sink.ErrOpen) {
		t.Fatalf("Submit(2) error = %v, want ErrOpen", err)
	}
	if !opener.Sinks[0].Closed {
		t.Errorf("chunk 1 sink leaked across failed rotation")
	}
	if e.State() != StateClosed {
		t.Errorf("state after failed rotation = %v, want closed", e.State())
	}
	if err := e.Submit(ctx, makeRecord(3)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Submit after failed rotation = %v, want ErrInvalidState", err)
	}
}

func TestExporter_WriteFailurePropagates(t *testing.T) {
	opener := sink.NewStubOpener()
	opener.WriteErr = errors.New("disk full")
	e := New(testConfig(10), opener, testContext())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := e.Submit(ctx, makeRecord(1))
	if !errors.Is(err, sink.ErrWrite) {
		t.Fatalf("Submit error = %v, want ErrWrite", err)
	}

	// A write failure does not terminate the run; the caller decides.
	// Finish still releases the sink.
	if e.State() != StateOpen {
		t.Errorf("state after write failure = %v, want open", e.State())
	}
	if _, err := e.Finish(ctx); err != nil {
		t.Fatalf("Finish after write failure: %v", err)
	}
	if !opener.Sinks[0].Closed {
		t.Errorf("sink leaked after write failure")
	}
}

func TestExporter_ChunkCloseLogAttribution(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewNop().WithOutput(&buf)

	opener := sink.NewStubOpener()
	e := New(testConfig(1), opener, testContext(), WithLogger(logger))

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if err := e.Submit(ctx, makeRecord(i)); err != nil {
			t.Fatalf("Submit(%d) failed: %v", i, err)
		}
	}
	if _, err := e.Finish(ctx); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	var closed []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "chunk closed") {
			closed = append(closed, line)
		}
	}
	if len(closed) != 2 {
		t.Fatalf("logged %d close entries, want 2", len(closed))
	}

	// Each close entry must name the chunk it closed, not the one that
	// replaced it.
	for i, line := range closed {
		addr := fmt.Sprintf("export_%02d.json", i+1)
		if !strings.Contains(line, addr) {
			t.Errorf("close entry %d missing address %q: %s", i+1, addr, line)
		}
		if !strings.Contains(line, fmt.Sprintf(`"chunk_number":%d`, i+1)) {
			t.Errorf("close entry %d missing chunk number %d: %s", i+1, i+1, line)
		}
	}
}

func TestExporter_CollectorCounts(t *testing.T) {
	collector := metrics.NewCollector("jsonlines", "stub", "job-1")
	opener := sink.NewInstrumentedOpener(sink.NewStubOpener(), collector)
	e := New(testConfig(3), opener, testContext(), WithCollector(collector))

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 1; i <= 8; i++ {
		if err := e.Submit(ctx, makeRecord(i)); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if _, err := e.Finish(ctx); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	snap := collector.Snapshot()
	if snap.RecordsSubmitted != 8 {
		t.Errorf("RecordsSubmitted = %d, want 8", snap.RecordsSubmitted)
	}
	if snap.Rotations != 2 {
		t.Errorf("Rotations = %d, want 2", snap.Rotations)
	}
	if snap.SinkOpenSuccess != 3 {
		t.Errorf("SinkOpenSuccess = %d, want 3", snap.SinkOpenSuccess)
	}
	if snap.ChunksClosed != 3 {
		t.Errorf("ChunksClosed = %d, want 3", snap.ChunksClosed)
	}
	if snap.ItemsClosed != 8 {
		t.Errorf("ItemsClosed = %d, want 8", snap.ItemsClosed)
	}
}
