package pools

import (
	"sync"
	"testing"
)

func TestBytePool_Get(t *testing.T) {
	pool := NewBytePool()

	tests := []struct {
		name   string
		size   int
		minCap int
	}{
		{"small", 512, 512},
		{"small_exact", SmallSize, SmallSize},
		{"medium", 8 << 10, 8 << 10},
		{"medium_exact", MediumSize, MediumSize},
		{"large", 40 << 10, 40 << 10},
		{"huge", 200 << 10, 200 << 10},
		{"max_exact", MaxPool, MaxPool},
		{"oversized", MaxPool + 1, MaxPool + 1}, // Allocated directly
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pool.Get(tt.size)
			if len(b) != 0 {
				t.Errorf("Get(%d) length = %d, want 0", tt.size, len(b))
			}
			if cap(b) < tt.minCap {
				t.Errorf("Get(%d) capacity = %d, want >= %d", tt.size, cap(b), tt.minCap)
			}
		})
	}
}

func TestBytePool_PutAndReuse(t *testing.T) {
	pool := NewBytePool()

	for i := 0; i < 10; i++ {
		b := pool.Get(MediumSize)
		b = append(b, "frame"...)
		pool.Put(b)
	}

	b := pool.Get(MediumSize)
	if len(b) != 0 {
		t.Errorf("reused buffer length = %d, want 0", len(b))
	}
	if cap(b) < MediumSize {
		t.Errorf("reused buffer capacity = %d, want >= %d", cap(b), MediumSize)
	}
}

func TestBytePool_PutGrownBuffer(t *testing.T) {
	pool := NewBytePool()

	// a small buffer that grew while encoding is filed under the class it covers
	b := pool.Get(SmallSize)
	b = append(b, make([]byte, 20<<10)...)
	pool.Put(b)

	for _, size := range []int{SmallSize, MediumSize, LargeSize} {
		got := pool.Get(size)
		if cap(got) < size {
			t.Errorf("Get(%d) capacity = %d after grown Put", size, cap(got))
		}
	}
}

func TestBytePool_PutIgnoresOutOfRange(t *testing.T) {
	pool := NewBytePool()

	// neither panics nor pollutes a class
	pool.Put(make([]byte, 0, 16))
	pool.Put(make([]byte, 0, MaxPool*2))
	pool.Put(nil)

	if b := pool.Get(SmallSize); cap(b) < SmallSize {
		t.Errorf("Get(%d) capacity = %d", SmallSize, cap(b))
	}
}

func TestDefaultPool(t *testing.T) {
	b := GetBytes(1000)
	if len(b) != 0 || cap(b) < 1000 {
		t.Errorf("GetBytes(1000) len=%d cap=%d", len(b), cap(b))
	}
	PutBytes(b)
}

func TestBytePool_Concurrent(t *testing.T) {
	pool := NewBytePool()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				size := (n + 1) * (j + 1) * 100
				b := pool.Get(size)
				if cap(b) < size {
					t.Errorf("Get(%d) capacity = %d", size, cap(b))
					return
				}
				b = append(b, byte(j))
				pool.Put(b)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkBytePool_GetPut(b *testing.B) {
	pool := NewBytePool()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := pool.Get(MediumSize)
		buf = append(buf, "frame"...)
		pool.Put(buf)
	}
}
