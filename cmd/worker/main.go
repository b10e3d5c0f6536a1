/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background tasks:
 * 1. Running the prediction evaluation engine on an adaptive cadence.
 * 2. Keeping the quote stream subscribed to symbols with pending horizons
 *    so the latest-price cache stays warm.
 *
 * The engine ticks every 30 minutes while the session is closed post-close
 * (the window when most horizons become due) and every 2 hours otherwise,
 * bounding quote-API call volume without missing due evaluations by more
 * than one short interval.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/evaluation
 * - backend/internal/marketdata
 * - backend/internal/store
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockpulse-project/backend/internal/calendar"
	"github.com/stockpulse-project/backend/internal/config"
	"github.com/stockpulse-project/backend/internal/db"
	"github.com/stockpulse-project/backend/internal/evaluation"
	"github.com/stockpulse-project/backend/internal/logger"
	"github.com/stockpulse-project/backend/internal/marketdata"
	"github.com/stockpulse-project/backend/internal/store"
)

func main() {
	logger.Info("🔥 Starting StockPulse Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	predictionStore := store.NewPredictionStore(pgDB)
	quoteClient := marketdata.NewClient(cfg)
	oracle := marketdata.NewOracle(redisClient, quoteClient)
	engine := evaluation.NewEngine(predictionStore, oracle, cfg.Evaluation.Concurrency)
	stream := marketdata.NewStream(cfg, redisClient)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Quote Stream (optional)
	if stream != nil {
		go func() {
			if err := stream.Connect(ctx); err != nil {
				logger.Error("❌ Quote stream failed: %v", err)
				// The oracle falls back to the REST client; evaluation still works
			}
		}()

		// Keep stream subscriptions in sync with outstanding predictions
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()

			syncSubscriptions(ctx, predictionStore, stream)

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					syncSubscriptions(ctx, predictionStore, stream)
				}
			}
		}()
	}

	// 6. Evaluation Loop (adaptive cadence)
	go func() {
		for {
			if _, err := engine.RunPass(ctx); err != nil {
				logger.Error("Evaluation pass failed: %v", err)
			}

			interval := evaluation.TickInterval(calendar.SessionStatus(time.Now()))
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	if stream != nil {
		if err := stream.Close(); err != nil {
			logger.Error("Error closing quote stream: %v", err)
		}
	}

	time.Sleep(1 * time.Second) // Give connections time to close
	logger.Info("Worker exited.")
}

// syncSubscriptions points the quote stream at the symbols that still have
// pending horizons
func syncSubscriptions(ctx context.Context, ps *store.PredictionStore, stream *marketdata.Stream) {
	symbols, err := ps.DistinctOutstandingSymbols(ctx)
	if err != nil {
		logger.Error("Failed to list outstanding symbols: %v", err)
		return
	}

	if len(symbols) == 0 {
		logger.Info("No symbols to subscribe to.")
		return
	}

	logger.Info("Subscribing to %d symbols...", len(symbols))
	if err := stream.Subscribe(symbols); err != nil {
		logger.Error("Failed to subscribe: %v", err)
	}
}
