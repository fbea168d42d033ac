package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/justapithecus/strata/types"
)

// Format identifies a chunk serialization format.
type Format string

// Supported sink formats.
const (
	FormatJSON      Format = "json"
	FormatJSONLines Format = "jsonlines"
	FormatCSV       Format = "csv"
)

// ParseFormat normalizes a format string. "jl" is accepted as an alias
// for jsonlines.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "jsonlines", "jl":
		return FormatJSONLines, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Encoder serializes records into one chunk artifact.
// Finish writes any trailer and must be called exactly once.
type Encoder interface {
	Encode(rec *types.Record) error
	Finish() error
}

// NewEncoder creates an encoder for the given format writing to w.
func NewEncoder(format Format, w io.Writer) (Encoder, error) {
	switch format {
	case FormatJSON:
		return &jsonArrayEncoder{w: w}, nil
	case FormatJSONLines:
		return &jsonLinesEncoder{enc: json.NewEncoder(w)}, nil
	case FormatCSV:
		return &csvEncoder{w: csv.NewWriter(w)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// jsonArrayEncoder produces a single JSON array artifact.
// An empty chunk finishes as "[]".
type jsonArrayEncoder struct {
	w       io.Writer
	started bool
}

func (e *jsonArrayEncoder) Encode(rec *types.Record) error {
	prefix := ",\n"
	if !e.started {
		prefix = "[\n"
		e.started = true
	}

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, prefix); err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

func (e *jsonArrayEncoder) Finish() error {
	trailer := "\n]\n"
	if !e.started {
		trailer = "[]\n"
	}
	_, err := io.WriteString(e.w, trailer)
	return err
}

// jsonLinesEncoder produces one JSON object per line.
type jsonLinesEncoder struct {
	enc *json.Encoder
}

func (e *jsonLinesEncoder) Encode(rec *types.Record) error {
	return e.enc.Encode(rec.Data)
}

func (e *jsonLinesEncoder) Finish() error { return nil }

// csvEncoder produces a CSV artifact. The header is derived from the
// first record's keys in sorted order; later records are projected onto
// that header, with missing fields left empty.
type csvEncoder struct {
	w      *csv.Writer
	header []string
}

func (e *csvEncoder) Encode(rec *types.Record) error {
	if e.header == nil {
		e.header = make([]string, 0, len(rec.Data))
		for k := range rec.Data {
			e.header = append(e.header, k)
		}
		sort.Strings(e.header)
		if err := e.w.Write(e.header); err != nil {
			return err
		}
	}

	row := make([]string, len(e.header))
	for i, k := range e.header {
		if v, ok := rec.Data[k]; ok && v != nil {
			row[i] = fmt.Sprintf("%v", v)
		}
	}
	return e.w.Write(row)
}

func (e *csvEncoder) Finish() error {
	e.w.Flush()
	return e.w.Error()
}
