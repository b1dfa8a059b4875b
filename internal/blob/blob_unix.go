//go:build unix

package blob

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

type mappedBlob struct {
	mu   sync.Mutex
	data []byte
}

func (m *mappedBlob) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

func (m *mappedBlob) Len() int     { return len(m.Bytes()) }
func (m *mappedBlob) Mapped() bool { return true }

func (m *mappedBlob) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// Open maps path read-only. If mmap is unavailable it falls back to reading
// the file into memory. Empty files are never mapped.
func Open(path string) (Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 > int64(maxInt) {
		return nil, ErrTooLarge
	}
	size := int(size64)
	if size == 0 {
		return &memBlob{data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &mappedBlob{data: data}, nil
	}

	return FromReaderAt(f, size64)
}
