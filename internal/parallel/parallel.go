// Package parallel provides an order-preserving concurrent map.
package parallel

import (
	"context"
	"sync"
)

// Map applies fn to every item concurrently and returns the results in input
// order. At most limit calls run at once; limit <= 0 means unbounded. The
// first failure cancels the context passed to the remaining calls and is
// returned.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, item := range items {
		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
		}
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			r, err := fn(ctx, item)
			if err != nil {
				fail(err)
				return
			}
			results[i] = r
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
