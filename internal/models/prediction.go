/**
 * @description
 * Prediction database model.
 * Maps to the 'predictions' table in PostgreSQL.
 * One row holds one forecast snapshot for a symbol with three independent
 * horizons (1-day, 1-week, 1-month), each carrying its own forecast and
 * evaluation fields.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the predicted (or realized) movement of a symbol over a horizon
type Direction string

const (
	DirectionUp       Direction = "up"
	DirectionDown     Direction = "down"
	DirectionSideways Direction = "sideways"
)

// Horizon identifies one of the three forecast windows tracked per prediction.
// The values double as column prefixes in the predictions table.
type Horizon string

const (
	HorizonOneDay   Horizon = "one_day"
	HorizonOneWeek  Horizon = "one_week"
	HorizonOneMonth Horizon = "one_month"
)

// AllHorizons returns the horizons in evaluation order
func AllHorizons() []Horizon {
	return []Horizon{HorizonOneDay, HorizonOneWeek, HorizonOneMonth}
}

// DefaultPriceThreshold is the percent tolerance for price accuracy
const DefaultPriceThreshold = 5.0

// HorizonForecast holds the immutable forecast and the append-once evaluation
// fields for a single horizon. Evaluation fields are either all nil (pending)
// or all set (evaluated); they are never modified once set.
type HorizonForecast struct {
	PredictedPrice     float64   `gorm:"column:predicted_price" json:"predicted_price"`
	PredictedDirection Direction `gorm:"column:predicted_direction" json:"predicted_direction"`
	Confidence         float64   `gorm:"column:confidence" json:"confidence"`
	PriceThreshold     float64   `gorm:"column:price_threshold;default:5.0" json:"price_threshold"`

	ActualPrice       *float64   `gorm:"column:actual_price" json:"actual_price"`
	PriceAccurate     *bool      `gorm:"column:price_accurate" json:"price_accurate"`
	DirectionAccurate *bool      `gorm:"column:direction_accurate" json:"direction_accurate"`
	OverallAccurate   *bool      `gorm:"column:overall_accurate" json:"overall_accurate"`
	WeightedScore     *float64   `gorm:"column:weighted_score" json:"weighted_score"`
	EvaluatedAt       *time.Time `gorm:"column:evaluated_at" json:"evaluated_at"`
}

// Evaluated reports whether this horizon has been scored
func (f *HorizonForecast) Evaluated() bool {
	return f.EvaluatedAt != nil
}

// Verdict is the full set of evaluation outputs for one horizon,
// written together atomically by the evaluation engine.
type Verdict struct {
	ActualPrice       float64   `json:"actual_price"`
	PriceAccurate     bool      `json:"price_accurate"`
	DirectionAccurate bool      `json:"direction_accurate"`
	OverallAccurate   bool      `json:"overall_accurate"`
	WeightedScore     float64   `json:"weighted_score"`
	EvaluatedAt       time.Time `json:"evaluated_at"`
}

// Prediction represents a multi-horizon price forecast for a symbol
// Maps to the 'predictions' table
type Prediction struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Symbol          string    `gorm:"column:symbol;index" json:"symbol"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	PriceAtCreation float64   `gorm:"column:price_at_creation" json:"price_at_creation"`

	OneDay   HorizonForecast `gorm:"embedded;embeddedPrefix:one_day_" json:"one_day"`
	OneWeek  HorizonForecast `gorm:"embedded;embeddedPrefix:one_week_" json:"one_week"`
	OneMonth HorizonForecast `gorm:"embedded;embeddedPrefix:one_month_" json:"one_month"`

	// LastEvaluatedAt is administrative metadata only, not used for correctness
	LastEvaluatedAt *time.Time `gorm:"column:last_evaluated_at" json:"last_evaluated_at"`
}

// TableName overrides the table name used by Prediction to `predictions`
func (Prediction) TableName() string {
	return "predictions"
}

// Forecast returns the embedded forecast for the given horizon
func (p *Prediction) Forecast(h Horizon) *HorizonForecast {
	switch h {
	case HorizonOneDay:
		return &p.OneDay
	case HorizonOneWeek:
		return &p.OneWeek
	case HorizonOneMonth:
		return &p.OneMonth
	}
	return nil
}

// FullyEvaluated reports whether all three horizons have verdicts
func (p *Prediction) FullyEvaluated() bool {
	return p.OneDay.Evaluated() && p.OneWeek.Evaluated() && p.OneMonth.Evaluated()
}
