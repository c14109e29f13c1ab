package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrNegativeLength = errors.New("negative length")
	ErrNegativeOffset = errors.New("negative offset")
)

// FileBuffer holds the whole image of a remote file while it is open.
type FileBuffer struct {
	mu    sync.RWMutex
	data  []byte
	dirty bool
}

// New returns a buffer holding a copy of data.
func New(data []byte) *FileBuffer {
	return &FileBuffer{data: append([]byte(nil), data...)}
}

// ReadAt follows io.ReaderAt: a short read at the end returns io.EOF.
func (fb *FileBuffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	if off >= int64(len(fb.data)) {
		return 0, io.EOF
	}
	n := copy(p, fb.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes p at off, growing the buffer with zeroes if needed.
func (fb *FileBuffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	end := off + int64(len(p))
	if end > int64(len(fb.data)) {
		grown := make([]byte, end)
		copy(grown, fb.data)
		fb.data = grown
	}
	copy(fb.data[off:end], p)
	fb.dirty = true
	return len(p), nil
}

// Truncate cuts or zero-extends the buffer to size.
func (fb *FileBuffer) Truncate(size int64) error {
	if size < 0 {
		return ErrNegativeLength
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	switch {
	case size < int64(len(fb.data)):
		fb.data = fb.data[:size]
	case size > int64(len(fb.data)):
		grown := make([]byte, size)
		copy(grown, fb.data)
		fb.data = grown
	default:
		return nil
	}
	fb.dirty = true
	return nil
}

// Bytes returns a copy of the current image.
func (fb *FileBuffer) Bytes() []byte {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return append([]byte{}, fb.data...)
}

func (fb *FileBuffer) Size() int64 {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return int64(len(fb.data))
}

func (fb *FileBuffer) Dirty() bool {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.dirty
}

func (fb *FileBuffer) MarkClean() {
	fb.mu.Lock()
	fb.dirty = false
	fb.mu.Unlock()
}

// Clear drops the image.
func (fb *FileBuffer) Clear() {
	fb.mu.Lock()
	fb.data = nil
	fb.dirty = false
	fb.mu.Unlock()
}

func (fb *FileBuffer) String() string {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fmt.Sprintf("Buffer: dirty=%v len=%d", fb.dirty, len(fb.data))
}
