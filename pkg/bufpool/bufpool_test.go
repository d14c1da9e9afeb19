package bufpool

import (
	"sync"
	"testing"
)

func TestGetLengthAndClass(t *testing.T) {
	tests := []struct {
		size    int
		wantCap int
	}{
		{0, DefaultSmallSize},
		{1, DefaultSmallSize},
		{DefaultSmallSize, DefaultSmallSize},
		{DefaultSmallSize + 1, DefaultMediumSize},
		{DefaultMediumSize, DefaultMediumSize},
		{DefaultMediumSize + 1, DefaultLargeSize},
		{DefaultLargeSize, DefaultLargeSize},
		{DefaultLargeSize + 1, DefaultLargeSize + 1},
	}
	for _, tt := range tests {
		buf := Get(tt.size)
		if len(buf) != tt.size {
			t.Errorf("Get(%d): len = %d", tt.size, len(buf))
		}
		if cap(buf) != tt.wantCap {
			t.Errorf("Get(%d): cap = %d, want %d", tt.size, cap(buf), tt.wantCap)
		}
		Put(buf)
	}
}

func TestPutIgnoresForeignSlices(t *testing.T) {
	p := NewPool(nil)
	p.Put(nil)
	p.Put(make([]byte, 100))
	p.Put(make([]byte, DefaultLargeSize*2))

	buf := p.Get(10)
	if cap(buf) != DefaultSmallSize {
		t.Fatalf("cap = %d, want %d", cap(buf), DefaultSmallSize)
	}
}

func TestPutRestoresFullLength(t *testing.T) {
	p := NewPool(&Config{SmallSize: 64, MediumSize: 128, LargeSize: 256})
	buf := p.Get(8)
	buf[0] = 0xAA
	p.Put(buf)

	again := p.Get(64)
	if len(again) != 64 || cap(again) != 64 {
		t.Fatalf("len/cap = %d/%d, want 64/64", len(again), cap(again))
	}
}

func TestCustomClasses(t *testing.T) {
	p := NewPool(&Config{SmallSize: 32, LargeSize: 4096})
	if got := cap(p.Get(33)); got != DefaultMediumSize {
		t.Errorf("medium class cap = %d, want default %d", got, DefaultMediumSize)
	}
	if got := cap(p.Get(20)); got != 32 {
		t.Errorf("small class cap = %d, want 32", got)
	}
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				size := (seed*131 + i*17) % (DefaultMediumSize + 10)
				buf := Get(size)
				for j := range buf {
					buf[j] = byte(seed)
				}
				Put(buf)
			}
		}(g)
	}
	wg.Wait()
}

func BenchmarkGetPut(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Put(Get(DefaultMediumSize))
	}
}
