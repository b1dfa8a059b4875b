// Package blob holds the read-only byte buffers a model slot owns: its
// weights and its tokenizer data. Buffers come from memory or from files
// mapped read-only.
package blob

import (
	"errors"
	"io"
	"sync"
)

// ErrTooLarge is returned for files that cannot be indexed as a byte slice.
var ErrTooLarge = errors.New("blob: file too large to map")

// Blob is an owned, read-only byte buffer. Bytes must not be used after
// Close. Close is idempotent.
type Blob interface {
	Bytes() []byte
	Len() int
	Mapped() bool
	Close() error
}

type memBlob struct {
	mu   sync.Mutex
	data []byte
}

// FromBytes copies b into a new in-memory blob.
func FromBytes(b []byte) Blob {
	return &memBlob{data: append([]byte(nil), b...)}
}

func (m *memBlob) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

func (m *memBlob) Len() int     { return len(m.Bytes()) }
func (m *memBlob) Mapped() bool { return false }

func (m *memBlob) Close() error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// FromReaderAt reads size bytes from r into an in-memory blob.
func FromReaderAt(r io.ReaderAt, size int64) (Blob, error) {
	if size < 0 || size > int64(maxInt) {
		return nil, ErrTooLarge
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return &memBlob{data: data}, nil
}

const maxInt = int(^uint(0) >> 1)

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
