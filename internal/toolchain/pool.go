package toolchain

import "sync"

// runOrdered runs fn over items with at most concurrency goroutines in
// flight, preserving input order in the results. All blocking happens at
// external-process boundaries, so a plain semaphore is sufficient.
func runOrdered[T, R any](items []T, concurrency int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	sem := make(chan struct{}, concurrency)
	results := make([]R, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = fn(item)
		}(i, item)
	}
	wg.Wait()
	return results
}
