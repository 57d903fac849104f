package worker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunPool runs every worker concurrently and folds their summaries. When one
// worker fails the others are cancelled, which returns their current items
// to pending; the first error is returned.
func RunPool(ctx context.Context, workers []*Worker) (Summary, error) {
	if len(workers) == 0 {
		return Summary{}, errors.New("no workers to run")
	}
	group, groupCtx := errgroup.WithContext(ctx)

	var (
		mu    sync.Mutex
		total = Summary{Drained: true}
	)
	for _, w := range workers {
		group.Go(func() error {
			summary, err := w.Run(groupCtx)
			mu.Lock()
			total = total.Add(summary)
			mu.Unlock()
			return err
		})
	}
	err := group.Wait()
	return total, err
}
