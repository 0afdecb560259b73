package flashkv

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DurabilityHandle is an awaitable handle to the background append+flush
// that makes a mutation durable. The in-memory mutation it's paired with
// has already taken effect by the time the handle is returned; Await
// resolves once the corresponding record has been written and flushed (or
// reports the failure that prevented that).
//
// Dropping a handle without awaiting it does not cancel the underlying
// append — once scheduled, it runs to completion. This avoids a torn state
// where memory says "done" but the disk never saw the write.
type DurabilityHandle[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newDurabilityHandle[T any]() (*DurabilityHandle[T], func(T, error)) {
	h := &DurabilityHandle[T]{done: make(chan struct{})}
	resolve := func(v T, err error) {
		h.value = v
		h.err = err
		close(h.done)
	}
	return h, resolve
}

// Await blocks until the durability task completes, or ctx is done first.
// Calling Await more than once, including concurrently, is safe and always
// returns the same result.
func (h *DurabilityHandle[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		var zero T
		return zero, wrapAwaitFailed(ctx.Err())
	}
}

// AwaitAll awaits many durability handles concurrently, returning their
// results in the same order as handles, or the first error encountered
// (which cancels waiting on the rest via ctx).
func AwaitAll[T any](ctx context.Context, handles ...*DurabilityHandle[T]) ([]T, error) {
	results := make([]T, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			v, err := h.Await(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
