/**
 * @description
 * GORM-backed prediction store.
 * Owns the conditional-update primitive that makes horizon evaluation
 * append-once: the verdict UPDATE carries `WHERE <horizon>_evaluated_at IS
 * NULL`, so only one writer can ever transition a horizon from null to set.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn (retry on serialization failures)
 * - backend/internal/models
 */

package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/stockpulse-project/backend/internal/models"
	"gorm.io/gorm"
)

// PredictionStore persists predictions in PostgreSQL
type PredictionStore struct {
	db *gorm.DB
}

// NewPredictionStore creates a new PredictionStore
func NewPredictionStore(db *gorm.DB) *PredictionStore {
	return &PredictionStore{db: db}
}

// Create inserts a new prediction with all evaluation fields null
func (s *PredictionStore) Create(ctx context.Context, p *models.Prediction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

// Get fetches a prediction by id
func (s *PredictionStore) Get(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	var p models.Prediction
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListOutstanding returns predictions with at least one unevaluated horizon
func (s *PredictionStore) ListOutstanding(ctx context.Context) ([]models.Prediction, error) {
	var predictions []models.Prediction
	err := s.db.WithContext(ctx).
		Where("one_day_evaluated_at IS NULL OR one_week_evaluated_at IS NULL OR one_month_evaluated_at IS NULL").
		Order("created_at ASC").
		Find(&predictions).Error
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

// ListAll returns all predictions, optionally filtered by symbol ("" for all)
func (s *PredictionStore) ListAll(ctx context.Context, symbol string) ([]models.Prediction, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}
	var predictions []models.Prediction
	if err := query.Find(&predictions).Error; err != nil {
		return nil, err
	}
	return predictions, nil
}

// TryEvaluateHorizon writes the verdict for one horizon, but only if its
// evaluation fields are still null. Returns true if this call performed the
// write; false means another pass already evaluated the horizon and nothing
// was altered.
func (s *PredictionStore) TryEvaluateHorizon(ctx context.Context, id uuid.UUID, horizon models.Horizon, verdict models.Verdict) (bool, error) {
	prefix := string(horizon) + "_"
	updates := map[string]interface{}{
		prefix + "actual_price":       verdict.ActualPrice,
		prefix + "price_accurate":     verdict.PriceAccurate,
		prefix + "direction_accurate": verdict.DirectionAccurate,
		prefix + "overall_accurate":   verdict.OverallAccurate,
		prefix + "weighted_score":     verdict.WeightedScore,
		prefix + "evaluated_at":       verdict.EvaluatedAt,
	}

	const maxRetries = 5
	var result *gorm.DB
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result = s.db.WithContext(ctx).
			Model(&models.Prediction{}).
			Where("id = ? AND "+prefix+"evaluated_at IS NULL", id).
			Updates(updates)
		if result.Error == nil {
			break
		}

		if pgErr, ok := result.Error.(*pgconn.PgError); ok && (pgErr.Code == "40P01" || pgErr.Code == "40001") {
			backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		break
	}
	if result.Error != nil {
		return false, fmt.Errorf("failed to write verdict for %s/%s: %w", id, horizon, result.Error)
	}

	return result.RowsAffected == 1, nil
}

// Touch updates the prediction-level last_evaluated_at timestamp.
// Administrative metadata only, not used for correctness.
func (s *PredictionStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("id = ?", id).
		Update("last_evaluated_at", at).Error
}

// Delete removes a prediction and all its horizons atomically
func (s *PredictionStore) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Prediction{}).Error
}

// DistinctOutstandingSymbols returns the symbols that still have pending horizons
func (s *PredictionStore) DistinctOutstandingSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("one_day_evaluated_at IS NULL OR one_week_evaluated_at IS NULL OR one_month_evaluated_at IS NULL").
		Distinct().
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, err
	}
	return symbols, nil
}
