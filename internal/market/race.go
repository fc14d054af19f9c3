package market

import (
	"context"
	"errors"
)

type raceResult[T any] struct {
	val    T
	source string
	err    error
}

// race runs fetch for every source concurrently and returns the first success.
// Losers are cancelled; their results are dropped into a buffered channel.
func race[T any](ctx context.Context, sources []string, fetch func(ctx context.Context, i int) (T, error)) (T, string, error) {
	var zero T
	if len(sources) == 0 {
		return zero, "", errors.New("no providers configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult[T], len(sources))
	for i, name := range sources {
		go func() {
			v, err := fetch(ctx, i)
			results <- raceResult[T]{val: v, source: name, err: err}
		}()
	}

	errs := make([]error, 0, len(sources))
	for range sources {
		r := <-results
		if r.err == nil {
			return r.val, r.source, nil
		}
		errs = append(errs, r.err)
	}
	return zero, "", errors.Join(errs...)
}
