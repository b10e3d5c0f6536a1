package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stockpulse-project/backend/internal/evaluation"
	"github.com/stockpulse-project/backend/internal/models"
)

type blockingStore struct {
	gate chan struct{} // ListOutstanding blocks until closed
}

func (s *blockingStore) ListOutstanding(ctx context.Context) ([]models.Prediction, error) {
	<-s.gate
	return nil, nil
}

func (s *blockingStore) TryEvaluateHorizon(ctx context.Context, id uuid.UUID, horizon models.Horizon, verdict models.Verdict) (bool, error) {
	return false, nil
}

func (s *blockingStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type noopOracle struct{}

func (noopOracle) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, context.Canceled
}

func TestTriggerPassRejectsOverlap(t *testing.T) {
	store := &blockingStore{gate: make(chan struct{})}
	engine := evaluation.NewEngine(store, noopOracle{}, 1)

	handler := NewEvaluationHandler(engine)
	app := fiber.New()
	app.Post("/api/v1/evaluation/trigger", handler.TriggerPass)
	app.Get("/api/v1/evaluation/status", handler.GetStatus)

	// First trigger starts a pass that blocks inside the store
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluation/trigger", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first trigger status = %d, want 202", resp.StatusCode)
	}

	// Second trigger finds the engine running: "already in progress", not an error
	req = httptest.NewRequest(http.MethodPost, "/api/v1/evaluation/trigger", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("second trigger failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second trigger status = %d, want 409", resp.StatusCode)
	}

	// Status endpoint reflects the running pass
	req = httptest.NewRequest(http.MethodGet, "/api/v1/evaluation/status", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	// Let the background pass finish and the guard release
	close(store.gate)
	deadline := time.After(2 * time.Second)
	for engine.Running() {
		select {
		case <-deadline:
			t.Fatal("engine guard never released")
		case <-time.After(time.Millisecond):
		}
	}

	// A fresh trigger is accepted again
	store.gate = make(chan struct{})
	close(store.gate)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/evaluation/trigger", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("third trigger failed: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("third trigger status = %d, want 202", resp.StatusCode)
	}
}
