/**
 * @description
 * Evaluation engine: drives the scoring function across all outstanding
 * predictions on a recurring cadence, without double-evaluating and without
 * letting overlapping passes run concurrently.
 *
 * Per pass:
 * 1. Acquire a non-blocking run guard; skip entirely if a pass is running.
 * 2. List outstanding predictions from the store.
 * 3. Fetch latest prices for the distinct symbols with due horizons
 *    (bounded worker pool; quote calls are independent and I/O-bound).
 * 4. For each due horizon, score and write the verdict via the store's
 *    conditional update (only succeeds while evaluation fields are null).
 * 5. Touch the prediction's last_evaluated_at if anything was written.
 *
 * Quote failures are per-symbol and non-fatal: the horizon stays pending and
 * the next tick retries naturally. No retry-backoff state is persisted.
 *
 * @dependencies
 * - backend/internal/calendar
 * - backend/internal/models
 * - backend/internal/store (via the PredictionStore interface)
 */

package evaluation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stockpulse-project/backend/internal/calendar"
	"github.com/stockpulse-project/backend/internal/logger"
	"github.com/stockpulse-project/backend/internal/models"
)

// ErrPassInProgress is returned when a pass is requested while another is running
var ErrPassInProgress = errors.New("evaluation pass already in progress")

// PredictionStore is the persistence surface the engine needs
type PredictionStore interface {
	// ListOutstanding returns predictions with at least one unevaluated horizon
	ListOutstanding(ctx context.Context) ([]models.Prediction, error)
	// TryEvaluateHorizon writes the verdict only if the horizon's evaluation
	// fields are still null. Returns true if this call performed the write.
	TryEvaluateHorizon(ctx context.Context, id uuid.UUID, horizon models.Horizon, verdict models.Verdict) (bool, error)
	// Touch updates the prediction-level last_evaluated_at timestamp
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PriceOracle supplies the latest tradable price for a symbol
type PriceOracle interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// PassSummary reports what one evaluation pass did
type PassSummary struct {
	Predictions int           `json:"predictions"`
	DueHorizons int           `json:"due_horizons"`
	Evaluated   int           `json:"evaluated"`
	Skipped     int           `json:"skipped"` // due but no price or write lost
	Refused     int           `json:"refused"` // scorer rejected forecast inputs
	Elapsed     time.Duration `json:"elapsed"`
}

// Engine orchestrates evaluation passes
type Engine struct {
	store       PredictionStore
	oracle      PriceOracle
	concurrency int

	running atomic.Bool

	// now and sessionStatus are swappable for tests
	now           func() time.Time
	sessionStatus func(time.Time) calendar.SessionState
}

// NewEngine creates an evaluation engine. concurrency bounds the worker pool
// used for price fetches within one pass.
func NewEngine(store PredictionStore, oracle PriceOracle, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		store:         store,
		oracle:        oracle,
		concurrency:   concurrency,
		now:           time.Now,
		sessionStatus: calendar.SessionStatus,
	}
}

// Running reports whether a pass is currently executing
func (e *Engine) Running() bool {
	return e.running.Load()
}

// RunPass executes one synchronous evaluation pass. Returns ErrPassInProgress
// without doing any work if another pass holds the run guard.
func (e *Engine) RunPass(ctx context.Context) (*PassSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrPassInProgress
	}
	defer e.running.Store(false)
	return e.runLocked(ctx)
}

// StartPass acquires the run guard and executes the pass in the background.
// Used by the manual API trigger so the caller gets an immediate answer.
func (e *Engine) StartPass(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrPassInProgress
	}
	go func() {
		defer e.running.Store(false)
		if _, err := e.runLocked(ctx); err != nil {
			logger.Error("Evaluation pass failed: %v", err)
		}
	}()
	return nil
}

func (e *Engine) runLocked(ctx context.Context) (*PassSummary, error) {
	started := e.now()
	status := e.sessionStatus(started)

	predictions, err := e.store.ListOutstanding(ctx)
	if err != nil {
		return nil, err
	}

	summary := &PassSummary{Predictions: len(predictions)}

	// Collect the distinct symbols that have at least one due horizon so each
	// symbol is quoted once per pass
	due := make(map[uuid.UUID][]models.Horizon)
	symbols := make(map[string]struct{})
	for i := range predictions {
		p := &predictions[i]
		for _, h := range models.AllHorizons() {
			f := p.Forecast(h)
			if f.Evaluated() {
				continue
			}
			if IsDue(h, p.CreatedAt, started, status) {
				due[p.ID] = append(due[p.ID], h)
				symbols[p.Symbol] = struct{}{}
				summary.DueHorizons++
			}
		}
	}

	if summary.DueHorizons == 0 {
		summary.Elapsed = e.now().Sub(started)
		return summary, nil
	}

	prices := e.fetchPrices(ctx, symbols)

	for i := range predictions {
		p := &predictions[i]
		horizons, ok := due[p.ID]
		if !ok {
			continue
		}

		price, ok := prices[p.Symbol]
		if !ok {
			// Quote failed or unusable; leave the horizons pending, next tick retries
			summary.Skipped += len(horizons)
			continue
		}

		touched := false
		for _, h := range horizons {
			verdict, err := Score(p.Forecast(h), p.PriceAtCreation, price, e.now())
			if err != nil {
				// Upstream forecast-generation bug; refuse loudly, never persist garbage
				logger.Error("Refusing to score %s %s/%s: %v", p.ID, p.Symbol, h, err)
				summary.Refused++
				continue
			}

			wrote, err := e.store.TryEvaluateHorizon(ctx, p.ID, h, verdict)
			if err != nil {
				logger.Error("Failed to persist verdict for %s %s/%s: %v", p.ID, p.Symbol, h, err)
				summary.Skipped++
				continue
			}
			if !wrote {
				// Another pass won the write; the null→set invariant held
				summary.Skipped++
				continue
			}
			summary.Evaluated++
			touched = true
		}

		if touched {
			if err := e.store.Touch(ctx, p.ID, e.now()); err != nil {
				logger.Error("Failed to touch prediction %s: %v", p.ID, err)
			}
		}
	}

	summary.Elapsed = e.now().Sub(started)
	logger.Info("Evaluation pass: %d predictions, %d due, %d evaluated, %d skipped, %d refused in %s",
		summary.Predictions, summary.DueHorizons, summary.Evaluated, summary.Skipped, summary.Refused, summary.Elapsed)
	return summary, nil
}

// fetchPrices quotes each symbol once using a bounded worker pool.
// Failed symbols are logged and omitted from the result.
func (e *Engine) fetchPrices(ctx context.Context, symbols map[string]struct{}) map[string]float64 {
	jobs := make(chan string)
	var mu sync.Mutex
	prices := make(map[string]float64, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				price, err := e.oracle.LatestPrice(ctx, symbol)
				if err != nil {
					logger.Error("No usable price for %s: %v", symbol, err)
					continue
				}
				mu.Lock()
				prices[symbol] = price
				mu.Unlock()
			}
		}()
	}

	for symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()

	return prices
}
