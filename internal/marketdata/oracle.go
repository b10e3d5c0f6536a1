/**
 * @description
 * Price oracle consumed by the evaluation engine.
 * Prefers the Redis latest-price cache (kept warm by the quote stream and by
 * previous lookups), falling back to the quote REST API.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 * - backend/internal/marketdata (REST client)
 */

package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockpulse-project/backend/internal/logger"
)

const (
	priceCacheKeyPrefix = "quotes:latest:"
	priceCacheTTL       = 2 * time.Minute
)

// QuoteSource is the REST surface the oracle falls back to
type QuoteSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// Oracle serves latest prices, cache first
type Oracle struct {
	redis  *redis.Client
	source QuoteSource
}

// NewOracle creates a price oracle. redis may be nil (no cache fast path).
func NewOracle(rdb *redis.Client, source QuoteSource) *Oracle {
	return &Oracle{redis: rdb, source: source}
}

// PriceCacheKey returns the Redis key holding the latest price for a symbol
func PriceCacheKey(symbol string) string {
	return priceCacheKeyPrefix + symbol
}

// LatestPrice returns the latest tradable price for a symbol.
// Any non-positive or malformed value is a failure, never a price.
func (o *Oracle) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	// 1. Try Redis
	if o.redis != nil {
		if val, err := o.redis.Get(ctx, PriceCacheKey(symbol)).Result(); err == nil {
			if price, err := strconv.ParseFloat(val, 64); err == nil && price > 0 {
				return price, nil
			}
			// Corrupt cache entry; fall through to the REST client
		}
	}

	// 2. Fallback to the quote API
	price, err := o.source.LatestPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("quote lookup for %s failed: %w", symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %.4f for %s", ErrNoPrice, price, symbol)
	}

	if o.redis != nil {
		if err := o.redis.Set(ctx, PriceCacheKey(symbol), strconv.FormatFloat(price, 'f', -1, 64), priceCacheTTL).Err(); err != nil {
			logger.Error("Failed to cache price for %s: %v", symbol, err)
		}
	}

	return price, nil
}
