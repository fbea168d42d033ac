package feed

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/strata/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameReader decodes length-prefixed msgpack record frames from a
// stream. Each frame is a 4-byte big-endian payload length followed by
// one msgpack-encoded record.
type FrameReader struct {
	reader io.Reader
}

// NewFrameReader creates a frame reader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{reader: r}
}

// Next reads and decodes a single record frame.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *Error with Kind=ErrorPartial: incomplete frame (fatal)
//   - *Error with Kind=ErrorTooLarge: frame exceeds limit (fatal)
//   - *Error with Kind=ErrorDecode: payload is not a valid record
func (r *FrameReader) Next() (*types.Record, error) {
	payload, err := r.readFrame()
	if err != nil {
		return nil, err
	}

	var rec types.Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, &Error{
			Kind: ErrorDecode,
			Msg:  "failed to decode record frame",
			Err:  err,
		}
	}
	return &rec, nil
}

func (r *FrameReader) readFrame() ([]byte, error) {
	// 4-byte big-endian length prefix
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(r.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &Error{
			Kind: ErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &Error{
			Kind: ErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r.reader, payload); err != nil {
		return nil, &Error{
			Kind: ErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// Verify FrameReader implements Reader.
var _ Reader = (*FrameReader)(nil)
