package evaluation

import (
	"context"
	"math"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stockpulse-project/backend/internal/models"
)

type fakeReadStore struct {
	predictions []models.Prediction
	calls       int
}

func (s *fakeReadStore) ListAll(ctx context.Context, symbol string) ([]models.Prediction, error) {
	s.calls++
	if symbol == "" {
		return s.predictions, nil
	}
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func evaluatedForecast(confidence float64, accurate bool) models.HorizonForecast {
	actual := 104.0
	score := 0.0
	if accurate {
		score = confidence / 100
	}
	at := time.Date(2025, time.March, 6, 17, 0, 0, 0, time.UTC)
	acc := accurate
	return models.HorizonForecast{
		PredictedPrice:     103,
		PredictedDirection: models.DirectionUp,
		Confidence:         confidence,
		PriceThreshold:     models.DefaultPriceThreshold,
		ActualPrice:        &actual,
		PriceAccurate:      &acc,
		DirectionAccurate:  &acc,
		OverallAccurate:    &acc,
		WeightedScore:      &score,
		EvaluatedAt:        &at,
	}
}

func pendingForecast() models.HorizonForecast {
	return models.HorizonForecast{
		PredictedPrice:     103,
		PredictedDirection: models.DirectionUp,
		Confidence:         70,
		PriceThreshold:     models.DefaultPriceThreshold,
	}
}

func prediction(symbol string, oneDay, oneWeek, oneMonth models.HorizonForecast) models.Prediction {
	return models.Prediction{
		ID:              uuid.New(),
		Symbol:          symbol,
		CreatedAt:       time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC),
		PriceAtCreation: 100,
		OneDay:          oneDay,
		OneWeek:         oneWeek,
		OneMonth:        oneMonth,
	}
}

// Overall accuracy pools samples across horizons. With 1/1 accurate one-day
// and 0/3 accurate one-week samples the pooled rate is 25%, not the 50% an
// average-of-averages would report.
func TestReportPoolsAccuracyAcrossHorizons(t *testing.T) {
	preds := []models.Prediction{
		prediction("AAPL", evaluatedForecast(80, true), evaluatedForecast(80, false), pendingForecast()),
		prediction("AAPL", pendingForecast(), evaluatedForecast(60, false), pendingForecast()),
		prediction("AAPL", pendingForecast(), evaluatedForecast(60, false), pendingForecast()),
	}
	agg := NewAggregator(&fakeReadStore{predictions: preds}, nil)

	report, err := agg.Report(context.Background(), "")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	if report.TotalEvaluated != 4 || report.TotalAccurate != 1 {
		t.Errorf("pooled counts = %d/%d, want 1/4", report.TotalAccurate, report.TotalEvaluated)
	}
	if math.Abs(report.OverallAccuracyPct-25) > 1e-9 {
		t.Errorf("OverallAccuracyPct = %v, want 25 (pooled, not averaged)", report.OverallAccuracyPct)
	}

	// Per-horizon breakdown
	if report.Horizons[0].Horizon != models.HorizonOneDay || report.Horizons[0].AccuracyPct != 100 {
		t.Errorf("one-day stats = %+v, want 100%%", report.Horizons[0])
	}
	if report.Horizons[1].Evaluated != 3 || report.Horizons[1].Accurate != 0 {
		t.Errorf("one-week stats = %+v, want 0/3", report.Horizons[1])
	}

	// Mean of 0.8, 0, 0, 0
	if math.Abs(report.AvgWeightedScore-0.2) > 1e-9 {
		t.Errorf("AvgWeightedScore = %v, want 0.2", report.AvgWeightedScore)
	}
}

func TestReportWithNoEvaluationsIsZeroNotError(t *testing.T) {
	agg := NewAggregator(&fakeReadStore{}, nil)

	report, err := agg.Report(context.Background(), "")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if report.TotalEvaluated != 0 || report.OverallAccuracyPct != 0 || report.AvgWeightedScore != 0 {
		t.Errorf("empty report not zero-valued: %+v", report)
	}
	if len(report.Horizons) != 3 {
		t.Errorf("expected all three horizons present, got %d", len(report.Horizons))
	}
}

func TestReportSymbolScope(t *testing.T) {
	preds := []models.Prediction{
		prediction("AAPL", evaluatedForecast(80, true), pendingForecast(), pendingForecast()),
		prediction("TSLA", evaluatedForecast(80, false), pendingForecast(), pendingForecast()),
	}
	agg := NewAggregator(&fakeReadStore{predictions: preds}, nil)

	report, err := agg.Report(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if report.TotalEvaluated != 1 || report.TotalAccurate != 1 {
		t.Errorf("scoped counts = %d/%d, want 1/1", report.TotalAccurate, report.TotalEvaluated)
	}
}

func TestReportUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := &fakeReadStore{predictions: []models.Prediction{
		prediction("AAPL", evaluatedForecast(80, true), pendingForecast(), pendingForecast()),
	}}
	agg := NewAggregator(store, rdb)

	if _, err := agg.Report(context.Background(), ""); err != nil {
		t.Fatalf("first Report returned error: %v", err)
	}
	if _, err := agg.Report(context.Background(), ""); err != nil {
		t.Fatalf("second Report returned error: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store hit %d times, want 1 (second read served from cache)", store.calls)
	}
}

func TestCalibrationBucketsOneDaySamples(t *testing.T) {
	preds := []models.Prediction{
		prediction("AAPL", evaluatedForecast(82, true), pendingForecast(), pendingForecast()),
		prediction("AAPL", evaluatedForecast(78, true), pendingForecast(), pendingForecast()),
		prediction("AAPL", evaluatedForecast(80, false), pendingForecast(), pendingForecast()),
		prediction("AAPL", evaluatedForecast(52, false), pendingForecast(), pendingForecast()),
		// One-week-only evaluations never feed calibration
		prediction("AAPL", pendingForecast(), evaluatedForecast(90, true), pendingForecast()),
	}
	agg := NewAggregator(&fakeReadStore{predictions: preds}, nil)

	buckets, err := agg.Calibration(context.Background())
	if err != nil {
		t.Fatalf("Calibration returned error: %v", err)
	}

	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2: %+v", len(buckets), buckets)
	}
	if buckets[0].Confidence != 50 || buckets[0].Samples != 1 || buckets[0].AccuracyPct != 0 {
		t.Errorf("50 bucket = %+v", buckets[0])
	}
	if buckets[1].Confidence != 80 || buckets[1].Samples != 3 {
		t.Errorf("80 bucket = %+v, want 3 samples", buckets[1])
	}
	if math.Abs(buckets[1].AccuracyPct-200.0/3.0) > 1e-9 {
		t.Errorf("80 bucket accuracy = %v, want 66.67", buckets[1].AccuracyPct)
	}
}

func TestTopSymbolsRankedByPooledAccuracy(t *testing.T) {
	preds := []models.Prediction{
		prediction("AAPL", evaluatedForecast(80, true), evaluatedForecast(80, true), pendingForecast()),
		prediction("TSLA", evaluatedForecast(80, true), evaluatedForecast(80, false), pendingForecast()),
		// No evaluated horizons: excluded from the ranking entirely
		prediction("NVDA", pendingForecast(), pendingForecast(), pendingForecast()),
	}
	agg := NewAggregator(&fakeReadStore{predictions: preds}, nil)

	ranked, err := agg.TopSymbols(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopSymbols returned error: %v", err)
	}

	if len(ranked) != 2 {
		t.Fatalf("got %d symbols, want 2: %+v", len(ranked), ranked)
	}
	if ranked[0].Symbol != "AAPL" || ranked[0].AccuracyPct != 100 {
		t.Errorf("top symbol = %+v, want AAPL at 100%%", ranked[0])
	}
	if ranked[1].Symbol != "TSLA" || ranked[1].AccuracyPct != 50 {
		t.Errorf("second symbol = %+v, want TSLA at 50%%", ranked[1])
	}

	ranked, err = agg.TopSymbols(context.Background(), 1)
	if err != nil {
		t.Fatalf("TopSymbols returned error: %v", err)
	}
	if len(ranked) != 1 {
		t.Errorf("limit not applied: got %d symbols", len(ranked))
	}
}
