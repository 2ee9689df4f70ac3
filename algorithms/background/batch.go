package background

import (
	"context"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-baseline/logging"
)

// BatchResult pairs the result and error of one spectrum in a batch
type BatchResult struct {
	Result *Result
	Err    error
}

// EstimateBatch estimates every spectrum independently on up to workers
// goroutines (runtime.NumCPU() when workers <= 0). Results keep input order.
// Each spectrum runs its own sequential clipping loop.
func (e *Estimator) EstimateBatch(ctx context.Context, spectra [][]float64, workers int) []BatchResult {
	results := make([]BatchResult, len(spectra))
	if len(spectra) == 0 {
		return results
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(spectra))

	jobs := make(chan int, len(spectra))
	for i := range spectra {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := e.EstimateContext(ctx, spectra[idx])
				results[idx] = BatchResult{Result: res, Err: err}
			}
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Debug("batch finished", logging.Fields{
		"spectra": len(spectra),
		"workers": workers,
		"failed":  failed,
	})

	return results
}
