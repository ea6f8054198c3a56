// Package batch forecasts many shops with a bounded worker pool.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/rs/zerolog/log"
)

// Forecaster computes one shop's forecast.
type Forecaster interface {
	GetForecast(ctx context.Context, shopID string, days int) (*forecast.Output, error)
}

// Result is the outcome for one shop. Exactly one of Output and Error is set.
type Result struct {
	ShopID string           `json:"shopId"`
	Output *forecast.Output `json:"forecast,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type Runner struct {
	forecaster  Forecaster
	workerCount int
}

func NewRunner(forecaster Forecaster, workerCount int) *Runner {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Runner{forecaster: forecaster, workerCount: workerCount}
}

// Run forecasts every shop and returns results in the order of shopIDs. A
// failing shop does not stop the others; Run returns an error only when ctx
// is cancelled before all shops were queued.
func (r *Runner) Run(ctx context.Context, shopIDs []string, days int) ([]Result, error) {
	results := make([]Result, len(shopIDs))
	jobChan := make(chan int, len(shopIDs))
	var wg sync.WaitGroup

	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = r.forecastShop(ctx, workerID, shopIDs[idx], days)
			}
		}(i)
	}

	var err error
enqueue:
	for idx := range shopIDs {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break enqueue
		case jobChan <- idx:
		}
	}
	close(jobChan)
	wg.Wait()

	if err != nil {
		for i := range results {
			if results[i].ShopID == "" {
				results[i] = Result{ShopID: shopIDs[i], Error: err.Error()}
			}
		}
	}
	return results, err
}

func (r *Runner) forecastShop(ctx context.Context, workerID int, shopID string, days int) Result {
	start := time.Now()
	out, err := r.forecaster.GetForecast(ctx, shopID, days)
	if err != nil {
		log.Warn().Err(err).Int("worker", workerID).Str("shop_id", shopID).Msg("batch: forecast failed")
		return Result{ShopID: shopID, Error: err.Error()}
	}

	log.Debug().
		Int("worker", workerID).
		Str("shop_id", shopID).
		Dur("took", time.Since(start)).
		Msg("batch: forecast completed")
	return Result{ShopID: shopID, Output: out}
}
