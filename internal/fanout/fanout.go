// Package fanout provides concurrent processing utilities for the
// analysis pipeline.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing one
// item.
type ProcessingError struct {
	Label string
	Err   error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

// ProcessingErrors collects multiple item processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(label string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Label: label, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d items failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Map processes items in parallel with at most workers goroutines,
// preserving input order in the result slice. A per-item failure lands in
// the returned ProcessingErrors and leaves the zero value at that index;
// context cancellation stops unstarted items.
func Map[In any, Out any](ctx context.Context, items []In, workers int, label func(In) string, fn func(context.Context, In) (Out, error)) ([]Out, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Out, len(items))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(label(item), ctx.Err())
				return ctx.Err()
			default:
			}

			result, err := fn(ctx, item)
			if err != nil {
				errs.Add(label(item), err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ForEach runs fn over items in parallel with at most workers goroutines.
// Unlike Map it collects nothing; fn is responsible for its own effects.
func ForEach[In any](ctx context.Context, items []In, workers int, fn func(context.Context, In)) {
	if len(items) == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for _, item := range items {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			fn(ctx, item)
			return nil
		})
	}
	_ = p.Wait()
}
