package sink

import (
	"bytes"
	"context"
	"io"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/strata/types"
)

// Putter is the narrow store surface a StoreOpener needs: one blob put
// per finalized chunk. lode.Store satisfies it.
type Putter interface {
	Put(ctx context.Context, path string, r io.Reader) error
}

// StoreOpener writes chunk artifacts to a blob store. Records are
// encoded into an in-memory buffer and the complete artifact is put to
// the store at the chunk address on Close, so a chunk only becomes
// visible once it is finalized.
type StoreOpener struct {
	store Putter
}

// NewStoreOpener creates an opener backed by the given store.
func NewStoreOpener(store Putter) *StoreOpener {
	return &StoreOpener{store: store}
}

// NewFSStoreOpener creates an opener backed by a Lode filesystem store
// rooted at root. Chunk addresses become paths under the root.
func NewFSStoreOpener(root string) (*StoreOpener, error) {
	store, err := lode.NewFSFactory(root)()
	if err != nil {
		return nil, err
	}
	return NewStoreOpener(store), nil
}

// Open implements Opener.
func (o *StoreOpener) Open(_ context.Context, address string, format Format) (Sink, error) {
	s := &storeSink{address: address, store: o.store}
	enc, err := NewEncoder(format, &s.buf)
	if err != nil {
		return nil, openErr(address, err)
	}
	s.enc = enc
	return s, nil
}

type storeSink struct {
	address string
	store   Putter
	buf     bytes.Buffer
	enc     Encoder
	items   int64
	closed  bool
}

func (s *storeSink) Write(_ context.Context, rec *types.Record) error {
	if s.closed {
		return closedErr("write", s.address)
	}
	if err := s.enc.Encode(rec); err != nil {
		return writeErr(s.address, err)
	}
	s.items++
	return nil
}

func (s *storeSink) Close(ctx context.Context) (int64, error) {
	if s.closed {
		return 0, closedErr("close", s.address)
	}
	s.closed = true

	if err := s.enc.Finish(); err != nil {
		return s.items, &OpError{Kind: ErrWrite, Op: "close", Address: s.address, Err: err}
	}
	if err := s.store.Put(ctx, s.address, bytes.NewReader(s.buf.Bytes())); err != nil {
		return s.items, &OpError{Kind: ErrWrite, Op: "close", Address: s.address, Err: err}
	}
	return s.items, nil
}

// Verify StoreOpener implements Opener.
var _ Opener = (*StoreOpener)(nil)
