package feed

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/strata/types"
)

// encodeFrame encodes a payload with length prefix (matches producer output).
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

// encodeRecordFrame encodes a record as a framed msgpack payload.
func encodeRecordFrame(t *testing.T, rec *types.Record) []byte {
	t.Helper()
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		t.Fatalf("msgpack.Marshal failed: %v", err)
	}
	return encodeFrame(payload)
}

func TestFrameReader_SingleRecord(t *testing.T) {
	rec := &types.Record{
		ItemType: "product",
		Data:     map[string]any{"name": "test"},
	}

	reader := NewFrameReader(bytes.NewReader(encodeRecordFrame(t, rec)))
	decoded, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if decoded.ItemType != rec.ItemType {
		t.Errorf("ItemType = %q, want %q", decoded.ItemType, rec.ItemType)
	}
	if decoded.Data["name"] != "test" {
		t.Errorf("Data = %v", decoded.Data)
	}
}

func TestFrameReader_MultipleRecords(t *testing.T) {
	var buf bytes.Buffer
	for _, id := range []string{"rec-1", "rec-2", "rec-3"} {
		buf.Write(encodeRecordFrame(t, &types.Record{
			Data: map[string]any{"id": id},
		}))
	}

	reader := NewFrameReader(&buf)
	var decoded []*types.Record
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		decoded = append(decoded, rec)
	}

	if len(decoded) != 3 {
		t.Fatalf("decoded %d records, want 3", len(decoded))
	}
	for i, rec := range decoded {
		want := "rec-" + string(rune('1'+i))
		if rec.Data["id"] != want {
			t.Errorf("records[%d].Data[id] = %v, want %s", i, rec.Data["id"], want)
		}
	}
}

func TestFrameReader_EmptyStream(t *testing.T) {
	reader := NewFrameReader(bytes.NewReader(nil))
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got: %v", err)
	}
}

func TestFrameReader_PartialFrame(t *testing.T) {
	frame := encodeRecordFrame(t, &types.Record{Data: map[string]any{"id": "rec-1"}})

	// Keep the length prefix plus half the payload.
	truncated := frame[:LengthPrefixSize+len(frame[LengthPrefixSize:])/2]

	reader := NewFrameReader(bytes.NewReader(truncated))
	_, err := reader.Next()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}

	var feedErr *Error
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if feedErr.Kind != ErrorPartial {
		t.Errorf("Kind = %v, want ErrorPartial", feedErr.Kind)
	}
	if !IsFatalError(err) {
		t.Error("partial frame should be fatal")
	}
}

func TestFrameReader_TruncatedLengthPrefix(t *testing.T) {
	reader := NewFrameReader(bytes.NewReader([]byte{0x00, 0x00}))
	_, err := reader.Next()
	if err == nil {
		t.Fatal("expected error for truncated length prefix")
	}

	var feedErr *Error
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if feedErr.Kind != ErrorPartial {
		t.Errorf("Kind = %v, want ErrorPartial", feedErr.Kind)
	}
}

func TestFrameReader_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(MaxPayloadSize+1))

	reader := NewFrameReader(&buf)
	_, err := reader.Next()
	if err == nil {
		t.Fatal("expected error for oversized frame")
	}

	var feedErr *Error
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if feedErr.Kind != ErrorTooLarge {
		t.Errorf("Kind = %v, want ErrorTooLarge", feedErr.Kind)
	}
	if !IsFatalError(err) {
		t.Error("oversized frame should be fatal")
	}
}

func TestFrameReader_MalformedMsgpack(t *testing.T) {
	// Valid frame, garbage payload.
	frame := encodeFrame([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	reader := NewFrameReader(bytes.NewReader(frame))
	_, err := reader.Next()
	if err == nil {
		t.Fatal("expected decode error for malformed msgpack")
	}

	var feedErr *Error
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if feedErr.Kind != ErrorDecode {
		t.Errorf("Kind = %v, want ErrorDecode", feedErr.Kind)
	}

	// Decode errors are not fatal, the frame itself was valid.
	if IsFatalError(err) {
		t.Error("decode errors should not be fatal")
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := io.ErrUnexpectedEOF
	err := &Error{Kind: ErrorPartial, Msg: "test", Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("Unwrap should allow errors.Is to find underlying error")
	}
}

func TestIsFatalError_NonFeedError(t *testing.T) {
	if IsFatalError(errors.New("regular error")) {
		t.Error("regular errors should not be fatal feed errors")
	}
	if IsFatalError(nil) {
		t.Error("nil should not be a fatal feed error")
	}
	if IsFatalError(io.EOF) {
		t.Error("io.EOF should not be a fatal feed error")
	}
}
