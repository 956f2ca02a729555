package runner

import "sync"

// TailBuffer is an io.Writer that keeps only the most recent size bytes, so
// a runaway print loop cannot exhaust memory.
type TailBuffer struct {
	mu      sync.Mutex
	buf     []byte
	size    int
	head    int // next write position
	full    bool
	written int64
}

// NewTailBuffer creates a buffer holding at most size bytes.
func NewTailBuffer(size int) *TailBuffer {
	if size <= 0 {
		size = defaultMaxOutput
	}
	return &TailBuffer{buf: make([]byte, size), size: size}
}

// Write implements io.Writer. It never fails; older bytes are overwritten.
func (b *TailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	b.written += int64(n)
	if n >= b.size {
		copy(b.buf, p[n-b.size:])
		b.head = 0
		b.full = true
		return n, nil
	}

	first := copy(b.buf[b.head:], p)
	if first < n {
		copy(b.buf, p[first:])
		b.full = true
	}
	next := b.head + n
	if next >= b.size {
		b.full = true
	}
	b.head = next % b.size
	return n, nil
}

// String returns the retained bytes in write order.
func (b *TailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return string(b.buf[:b.head])
	}
	return string(b.buf[b.head:]) + string(b.buf[:b.head])
}

// Truncated reports whether older output was dropped.
func (b *TailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written > int64(b.size)
}
