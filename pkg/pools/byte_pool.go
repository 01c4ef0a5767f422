package pools

import (
	"sync"
)

// Buffer size classes, sized for encoded frames
const (
	SmallSize  = 4 << 10   // a handful of nodes
	MediumSize = 16 << 10  // typical incident graphs
	LargeSize  = 64 << 10  // hundreds of nodes
	HugeSize   = 256 << 10 // thousands of nodes
	MaxPool    = 1 << 20   // Don't pool buffers larger than this
)

// BytePool provides size-class based pooling for byte slices.
type BytePool struct {
	small  sync.Pool // <= 4 KiB
	medium sync.Pool // <= 16 KiB
	large  sync.Pool // <= 64 KiB
	huge   sync.Pool // <= 256 KiB
	max    sync.Pool // <= 1 MiB
}

func newClass(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			b := make([]byte, 0, size)
			return &b
		},
	}
}

// NewBytePool creates an empty byte pool
func NewBytePool() *BytePool {
	return &BytePool{
		small:  newClass(SmallSize),
		medium: newClass(MediumSize),
		large:  newClass(LargeSize),
		huge:   newClass(HugeSize),
		max:    newClass(MaxPool),
	}
}

func (p *BytePool) class(size int) *sync.Pool {
	switch {
	case size <= SmallSize:
		return &p.small
	case size <= MediumSize:
		return &p.medium
	case size <= LargeSize:
		return &p.large
	case size <= HugeSize:
		return &p.huge
	case size <= MaxPool:
		return &p.max
	default:
		return nil
	}
}

// Get returns a byte slice with length 0 and at least the requested capacity
func (p *BytePool) Get(size int) []byte {
	pool := p.class(size)
	if pool == nil {
		return make([]byte, 0, size)
	}

	bp, ok := pool.Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// Put returns a byte slice to the pool for reuse. A slice lands in the
// largest class its capacity fully covers, so Get never sees a short buffer.
// Slices larger than MaxPool or smaller than SmallSize are dropped.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < SmallSize || c > MaxPool {
		return
	}
	b = b[:0]

	var pool *sync.Pool
	switch {
	case c >= MaxPool:
		pool = &p.max
	case c >= HugeSize:
		pool = &p.huge
	case c >= LargeSize:
		pool = &p.large
	case c >= MediumSize:
		pool = &p.medium
	default:
		pool = &p.small
	}
	pool.Put(&b)
}

// Default global byte pool
var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
