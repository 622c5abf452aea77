package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

// =============================================================================
// ExecuteAll Tests
// =============================================================================

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAll_Empty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	// Should not panic or block
	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
}

func TestWorkerPool_ExecuteAll_AfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var counter atomic.Int64
	pool.ExecuteAll([]func(){
		func() { counter.Add(1) },
		func() { counter.Add(1) },
	})
	if counter.Load() != 2 {
		t.Errorf("counter = %d, want 2", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("closed pool reports running")
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Close()
	pool.Close()
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			work := make([]func(), 50)
			for i := range work {
				work[i] = func() { counter.Add(1) }
			}
			pool.ExecuteAll(work)
		}()
	}
	wg.Wait()

	if counter.Load() != 400 {
		t.Errorf("counter = %d, want 400", counter.Load())
	}
}

// =============================================================================
// Range Tests
// =============================================================================

func TestWorkerPool_RangeCoversEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name        string
		workers     int
		n, minChunk int
	}{
		{"single worker", 1, 100, 1},
		{"uneven split", 4, 1001, 1},
		{"large min chunk", 4, 100, 64},
		{"chunk larger than n", 4, 10, 1000},
		{"one invocation", 8, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()

			hits := make([]atomic.Int32, tt.n)
			pool.Range(tt.n, tt.minChunk, func(lo, hi int) {
				if hi-lo < min(tt.minChunk, tt.n) && hi != tt.n {
					t.Errorf("chunk [%d,%d) smaller than %d", lo, hi, tt.minChunk)
				}
				for i := lo; i < hi; i++ {
					hits[i].Add(1)
				}
			})
			for i := range hits {
				if got := hits[i].Load(); got != 1 {
					t.Errorf("index %d visited %d times", i, got)
				}
			}
		})
	}
}

func TestWorkerPool_RangeEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	pool.Range(0, 1, func(lo, hi int) {
		t.Errorf("unexpected call [%d,%d)", lo, hi)
	})
}

func BenchmarkWorkerPool_Range(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	data := make([]float32, 1<<20)
	b.ResetTimer()
	for range b.N {
		pool.Range(len(data), 1024, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				data[i] += 1
			}
		})
	}
}
