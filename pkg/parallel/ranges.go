// Package parallel provides worker pooling and deterministic range
// sharding for CPU-bound passes over node arrays.
package parallel

import "sync"

// RunRanges splits [0, n) into one contiguous chunk per shard and runs
// fn(start, end) for each on the pool, blocking until every chunk finishes.
// Chunk boundaries depend only on n and shards, never on scheduling, so a
// caller that accumulates per-index results in fixed inner order gets
// identical floating-point sums on every run.
func RunRanges(pool *WorkerPool, n, shards int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if shards <= 0 {
		shards = 1
	}
	if shards > n {
		shards = n
	}

	// Ceiling division in int64 to prevent overflow on large n.
	chunkSize := int((int64(n) + int64(shards) - 1) / int64(shards))
	if chunkSize < 1 {
		chunkSize = 1
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		wg.Add(1)
		submitted := pool != nil && pool.Submit(func() {
			defer wg.Done()
			fn(s, e)
		})
		if !submitted {
			// Pool closed or absent: run inline so no shard is dropped.
			fn(s, e)
			wg.Done()
		}
	}
	wg.Wait()
}
