package buildservice

import (
	"context"
	"sync"
)

// Result pairs the outcome of one RunOrdered item with its error.
type Result[R any] struct {
	Value R
	Err   error
}

// RunOrdered applies fn to every item with at most concurrency calls in
// flight and returns the results in input order. Items not started before
// ctx is done get ctx.Err() as their error.
func RunOrdered[T any, R any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) (R, error)) []Result[R] {
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
	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = Result[R]{Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results[i] = Result[R]{Err: err}
				return
			}
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
		}(i, item)
	}
	wg.Wait()
	return results
}
