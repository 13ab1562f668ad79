package testutil

import (
	"sync"
	"testing"
)

// RunConcurrent starts one goroutine per worker and blocks until fn has
// returned in all of them. A panicking worker fails t instead of the binary.
func RunConcurrent(t testing.TB, workers int, fn func(worker int)) {
	t.Helper()

	var wg sync.WaitGroup

	for worker := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer recoverWorker(t, worker)

			fn(worker)
		}()
	}

	wg.Wait()
}

// Contend runs fn from the given number of goroutines at once against shared
// state such as a workspace or a cache. It only finds data races under -race
// and is skipped with -short.
func Contend(t *testing.T, goroutines int, fn func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("contention test skipped in short mode")
	}

	RunConcurrent(t, goroutines, func(int) { fn() })
}

func recoverWorker(t testing.TB, worker int) {
	if r := recover(); r != nil {
		t.Errorf("worker %d panicked: %v", worker, r)
	}
}
