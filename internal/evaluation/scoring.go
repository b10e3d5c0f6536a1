/**
 * @description
 * Scoring function for evaluated forecast horizons.
 * Pure computation: given the immutable forecast, the price observed at
 * creation time and the realized price, produces the full Verdict.
 *
 * @dependencies
 * - backend/internal/models
 */

package evaluation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/stockpulse-project/backend/internal/models"
)

// ErrInvalidForecast marks forecast records the scorer refuses to judge.
// These indicate an upstream forecast-generation bug; producing a verdict
// anyway would corrupt the accuracy statistics.
var ErrInvalidForecast = errors.New("invalid forecast input")

// directionDeadBandPct is the ±1% band around zero within which a realized
// move classifies as sideways regardless of sign. Load-bearing for
// direction-accuracy scoring; the boundary itself (exactly ±1%) is sideways.
const directionDeadBandPct = 1.0

// Score computes the verdict for one horizon.
//
//   - priceAccurate:     |predicted − actual| / actual × 100 ≤ threshold
//   - directionAccurate: predicted direction matches the realized direction,
//     with moves within ±1% classified as sideways
//   - overallAccurate:   both, no partial credit
//   - weightedScore:     confidence/100 if overall accurate, else 0
func Score(forecast *models.HorizonForecast, priceAtCreation, actualPrice float64, now time.Time) (models.Verdict, error) {
	if err := validateInputs(forecast, priceAtCreation, actualPrice); err != nil {
		return models.Verdict{}, err
	}

	priceErrorPct := math.Abs(forecast.PredictedPrice-actualPrice) / actualPrice * 100
	priceAccurate := priceErrorPct <= forecast.PriceThreshold

	actualChangePct := (actualPrice - priceAtCreation) / priceAtCreation * 100
	actualDirection := DirectionOf(actualChangePct)
	directionAccurate := forecast.PredictedDirection == actualDirection

	overallAccurate := priceAccurate && directionAccurate

	weightedScore := 0.0
	if overallAccurate {
		weightedScore = forecast.Confidence / 100
	}

	return models.Verdict{
		ActualPrice:       actualPrice,
		PriceAccurate:     priceAccurate,
		DirectionAccurate: directionAccurate,
		OverallAccurate:   overallAccurate,
		WeightedScore:     weightedScore,
		EvaluatedAt:       now,
	}, nil
}

// DirectionOf classifies a percent change into a direction
func DirectionOf(changePct float64) models.Direction {
	if changePct > directionDeadBandPct {
		return models.DirectionUp
	}
	if changePct < -directionDeadBandPct {
		return models.DirectionDown
	}
	return models.DirectionSideways
}

func validateInputs(forecast *models.HorizonForecast, priceAtCreation, actualPrice float64) error {
	if forecast == nil {
		return fmt.Errorf("%w: nil forecast", ErrInvalidForecast)
	}
	if forecast.Confidence < 0 || forecast.Confidence > 100 {
		return fmt.Errorf("%w: confidence %.2f outside [0,100]", ErrInvalidForecast, forecast.Confidence)
	}
	if forecast.PredictedPrice <= 0 {
		return fmt.Errorf("%w: non-positive predicted price %.4f", ErrInvalidForecast, forecast.PredictedPrice)
	}
	if forecast.PriceThreshold <= 0 {
		return fmt.Errorf("%w: non-positive price threshold %.2f", ErrInvalidForecast, forecast.PriceThreshold)
	}
	switch forecast.PredictedDirection {
	case models.DirectionUp, models.DirectionDown, models.DirectionSideways:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidForecast, forecast.PredictedDirection)
	}
	if priceAtCreation <= 0 {
		return fmt.Errorf("%w: non-positive price at creation %.4f", ErrInvalidForecast, priceAtCreation)
	}
	if actualPrice <= 0 {
		return fmt.Errorf("%w: non-positive actual price %.4f", ErrInvalidForecast, actualPrice)
	}
	return nil
}
