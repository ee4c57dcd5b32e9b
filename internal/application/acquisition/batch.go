package acquisition

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the final session of one batch target.
type BatchResult struct {
	Query   string  `json:"query"`
	Session Session `json:"session"`
	Error   string  `json:"error,omitempty"`
}

// MachineFactory builds a fresh Machine for one batch target.
type MachineFactory func() (*Machine, error)

// RunBatch drives each query through its own Machine, at most concurrency at a time, and
// returns the results in input order. Individual failures are reported in the results;
// only cancellation of ctx or a factory error aborts the batch.
func RunBatch(ctx context.Context, queries []string, concurrency int, factory MachineFactory) ([]BatchResult, error) {
	if factory == nil {
		return nil, errors.New("machine factory cannot be nil")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]BatchResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, query := range queries {
		g.Go(func() error {
			machine, err := factory()
			if err != nil {
				return err
			}
			defer machine.Close()

			machine.Submit(gctx, query)
			session, err := machine.Wait(gctx)
			results[i] = BatchResult{Query: query, Session: session}
			if err != nil {
				return err
			}
			if session.ErrorMessage != "" {
				results[i].Error = session.ErrorMessage
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
