package matching

import (
	"context"
	"runtime"
	"sync"

	"github.com/savegress/remitmatch/pkg/models"
)

// BatchRequest is one remittance line of a multi-line EOB.
type BatchRequest struct {
	Criteria *models.SearchCriteria
	Cached   []models.Claim
}

// BatchResult holds the outcome for the request at the same index.
type BatchResult struct {
	Matches []models.ClaimMatch
	Err     error
}

// MatchBatch runs Match over every request with a bounded worker pool.
// Results line up with requests by index. A failed line does not stop the
// rest of the batch.
func (m *Matcher) MatchBatch(ctx context.Context, requests []BatchRequest, opts Options, workers int) []BatchResult {
	results := make([]BatchResult, len(requests))
	if len(requests) == 0 {
		return results
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(requests) {
		workers = len(requests)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				matches, err := m.Match(ctx, requests[idx].Criteria, requests[idx].Cached, opts)
				results[idx] = BatchResult{Matches: matches, Err: err}
			}
		}()
	}

	for idx := range requests {
		select {
		case <-ctx.Done():
			results[idx] = BatchResult{Err: ctx.Err()}
			continue
		case indexes <- idx:
		}
	}
	close(indexes)
	wg.Wait()

	return results
}
