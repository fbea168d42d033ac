package feed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/justapithecus/strata/types"
)

// JSONLReader reads one JSON object per line and yields each as a
// record payload. Blank lines are skipped.
type JSONLReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLReader creates a JSON lines reader over r. Lines up to
// MaxFrameSize are accepted.
func NewJSONLReader(r io.Reader) *JSONLReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxFrameSize)
	return &JSONLReader{scanner: scanner}
}

// Next reads the next non-blank line and decodes it as a record
// payload. Returns io.EOF at end of stream and an ErrorDecode-kind
// *Error for lines that are not JSON objects.
func (r *JSONLReader) Next() (*types.Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var data map[string]any
		if err := json.Unmarshal(line, &data); err != nil {
			return nil, &Error{
				Kind: ErrorDecode,
				Msg:  fmt.Sprintf("line %d is not a JSON object", r.line),
				Err:  err,
			}
		}
		return types.NewRecord(data), nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, &Error{
			Kind: ErrorPartial,
			Msg:  "failed to read line",
			Err:  err,
		}
	}
	return nil, io.EOF
}

// Verify JSONLReader implements Reader.
var _ Reader = (*JSONLReader)(nil)
