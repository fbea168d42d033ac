package sink

import (
	"context"
	"os"
	"path/filepath"

	"github.com/justapithecus/strata/types"
)

// FileOpener writes chunk artifacts to the local filesystem.
// Chunk addresses are interpreted as file paths; parent directories are
// created as needed.
type FileOpener struct{}

// NewFileOpener creates a filesystem opener.
func NewFileOpener() *FileOpener {
	return &FileOpener{}
}

// Open implements Opener.
func (o *FileOpener) Open(_ context.Context, address string, format Format) (Sink, error) {
	if dir := filepath.Dir(address); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, openErr(address, err)
		}
	}

	f, err := os.Create(address)
	if err != nil {
		return nil, openErr(address, err)
	}

	enc, err := NewEncoder(format, f)
	if err != nil {
		_ = f.Close()
		return nil, openErr(address, err)
	}

	return &fileSink{address: address, file: f, enc: enc}, nil
}

type fileSink struct {
	address string
	file    *os.File
	enc     Encoder
	items   int64
	closed  bool
}

func (s *fileSink) Write(_ context.Context, rec *types.Record) error {
	if s.closed {
		return closedErr("write", s.address)
	}
	if err := s.enc.Encode(rec); err != nil {
		return writeErr(s.address, err)
	}
	s.items++
	return nil
}

func (s *fileSink) Close(_ context.Context) (int64, error) {
	if s.closed {
		return 0, closedErr("close", s.address)
	}
	s.closed = true

	if err := s.enc.Finish(); err != nil {
		_ = s.file.Close()
		return s.items, &OpError{Kind: ErrWrite, Op: "close", Address: s.address, Err: err}
	}
	if err := s.file.Close(); err != nil {
		return s.items, &OpError{Kind: ErrWrite, Op: "close", Address: s.address, Err: err}
	}
	return s.items, nil
}

// Verify FileOpener implements Opener.
var _ Opener = (*FileOpener)(nil)
