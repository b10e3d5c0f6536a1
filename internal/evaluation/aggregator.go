/**
 * @description
 * Accuracy aggregator: read-only statistics over evaluated predictions.
 * Computes per-horizon hit rates, pooled overall accuracy, average weighted
 * score, confidence calibration buckets, and top-performing symbols.
 * Reports are cached in Redis (cache-aside, short TTL) for the API read path.
 *
 * @dependencies
 * - backend/internal/models
 * - github.com/redis/go-redis/v9
 */

package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockpulse-project/backend/internal/logger"
	"github.com/stockpulse-project/backend/internal/models"
)

const (
	cacheKeyAccuracyPrefix = "accuracy:report:"
	accuracyCacheTTL       = 60 * time.Second

	calibrationBucketWidth = 10
)

// ReadStore is the read surface the aggregator needs
type ReadStore interface {
	// ListAll returns all predictions, optionally filtered by symbol ("" for all)
	ListAll(ctx context.Context, symbol string) ([]models.Prediction, error)
}

// HorizonStats holds hit-rate counters for one horizon
type HorizonStats struct {
	Horizon     models.Horizon `json:"horizon"`
	Evaluated   int            `json:"evaluated"`
	Accurate    int            `json:"accurate"`
	AccuracyPct float64        `json:"accuracy_pct"`
}

// AccuracyReport is the full statistics payload for a scope (all or one symbol)
type AccuracyReport struct {
	Symbol             string         `json:"symbol,omitempty"`
	Horizons           []HorizonStats `json:"horizons"`
	TotalEvaluated     int            `json:"total_evaluated"`
	TotalAccurate      int            `json:"total_accurate"`
	OverallAccuracyPct float64        `json:"overall_accuracy_pct"`
	AvgWeightedScore   float64        `json:"avg_weighted_score"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// CalibrationBucket answers "are forecasts issued at X% confidence right ~X% of the time"
type CalibrationBucket struct {
	Confidence  int     `json:"confidence"`
	AccuracyPct float64 `json:"accuracy_pct"`
	Samples     int     `json:"samples"`
}

// SymbolPerformance ranks a symbol by pooled accuracy across horizons
type SymbolPerformance struct {
	Symbol      string  `json:"symbol"`
	Evaluated   int     `json:"evaluated"`
	Accurate    int     `json:"accurate"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

// Aggregator computes accuracy statistics from the prediction store
type Aggregator struct {
	store ReadStore
	redis *redis.Client // optional; nil disables report caching
	now   func() time.Time
}

// NewAggregator creates an aggregator. redis may be nil (no caching).
func NewAggregator(store ReadStore, rdb *redis.Client) *Aggregator {
	return &Aggregator{store: store, redis: rdb, now: time.Now}
}

// Report computes the accuracy report for the scope, preferring Cache -> Store.
// Always computable: with zero evaluated predictions it returns a zero-valued
// report, never an error.
func (a *Aggregator) Report(ctx context.Context, symbol string) (*AccuracyReport, error) {
	cacheKey := cacheKeyAccuracyPrefix + "all"
	if symbol != "" {
		cacheKey = cacheKeyAccuracyPrefix + symbol
	}

	if a.redis != nil {
		if val, err := a.redis.Get(ctx, cacheKey).Result(); err == nil {
			var report AccuracyReport
			if err := json.Unmarshal([]byte(val), &report); err == nil {
				return &report, nil
			}
			// Corrupt cache entry; fall through to recompute
		}
	}

	predictions, err := a.store.ListAll(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	report := buildReport(symbol, predictions, a.now())

	if a.redis != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := a.redis.Set(ctx, cacheKey, data, accuracyCacheTTL).Err(); err != nil {
				logger.Error("Failed to cache accuracy report: %v", err)
			}
		}
	}

	return report, nil
}

func buildReport(symbol string, predictions []models.Prediction, now time.Time) *AccuracyReport {
	report := &AccuracyReport{Symbol: symbol, GeneratedAt: now}

	var scoreSum float64
	var scoreCount int

	for _, h := range models.AllHorizons() {
		stats := HorizonStats{Horizon: h}
		for i := range predictions {
			f := predictions[i].Forecast(h)
			if !f.Evaluated() {
				continue
			}
			stats.Evaluated++
			if f.OverallAccurate != nil && *f.OverallAccurate {
				stats.Accurate++
			}
			if f.WeightedScore != nil {
				scoreSum += *f.WeightedScore
				scoreCount++
			}
		}
		if stats.Evaluated > 0 {
			stats.AccuracyPct = float64(stats.Accurate) / float64(stats.Evaluated) * 100
		}
		report.Horizons = append(report.Horizons, stats)
		report.TotalEvaluated += stats.Evaluated
		report.TotalAccurate += stats.Accurate
	}

	// Pooled, not averaged-of-averages: a horizon with more evaluated samples
	// contributes proportionally more
	if report.TotalEvaluated > 0 {
		report.OverallAccuracyPct = float64(report.TotalAccurate) / float64(report.TotalEvaluated) * 100
	}
	if scoreCount > 0 {
		report.AvgWeightedScore = scoreSum / float64(scoreCount)
	}

	return report
}

// Calibration buckets one-day forecasts by stated confidence (width-10 buckets
// centered on multiples of 10) and reports the realized accuracy per bucket
func (a *Aggregator) Calibration(ctx context.Context) ([]CalibrationBucket, error) {
	predictions, err := a.store.ListAll(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	type counter struct{ total, accurate int }
	buckets := make(map[int]*counter)

	for i := range predictions {
		f := &predictions[i].OneDay
		if !f.Evaluated() {
			continue
		}
		bucket := int(math.Round(f.Confidence/calibrationBucketWidth)) * calibrationBucketWidth
		c, ok := buckets[bucket]
		if !ok {
			c = &counter{}
			buckets[bucket] = c
		}
		c.total++
		if f.OverallAccurate != nil && *f.OverallAccurate {
			c.accurate++
		}
	}

	result := make([]CalibrationBucket, 0, len(buckets))
	for confidence, c := range buckets {
		result = append(result, CalibrationBucket{
			Confidence:  confidence,
			AccuracyPct: float64(c.accurate) / float64(c.total) * 100,
			Samples:     c.total,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Confidence < result[j].Confidence })

	return result, nil
}

// TopSymbols ranks symbols by pooled accuracy across all horizons, restricted
// to symbols with at least one evaluated prediction
func (a *Aggregator) TopSymbols(ctx context.Context, limit int) ([]SymbolPerformance, error) {
	predictions, err := a.store.ListAll(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	bySymbol := make(map[string]*SymbolPerformance)
	for i := range predictions {
		p := &predictions[i]
		perf, ok := bySymbol[p.Symbol]
		if !ok {
			perf = &SymbolPerformance{Symbol: p.Symbol}
			bySymbol[p.Symbol] = perf
		}
		for _, h := range models.AllHorizons() {
			f := p.Forecast(h)
			if !f.Evaluated() {
				continue
			}
			perf.Evaluated++
			if f.OverallAccurate != nil && *f.OverallAccurate {
				perf.Accurate++
			}
		}
	}

	ranked := make([]SymbolPerformance, 0, len(bySymbol))
	for _, perf := range bySymbol {
		if perf.Evaluated == 0 {
			continue
		}
		perf.AccuracyPct = float64(perf.Accurate) / float64(perf.Evaluated) * 100
		ranked = append(ranked, *perf)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AccuracyPct != ranked[j].AccuracyPct {
			return ranked[i].AccuracyPct > ranked[j].AccuracyPct
		}
		if ranked[i].Evaluated != ranked[j].Evaluated {
			return ranked[i].Evaluated > ranked[j].Evaluated
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
