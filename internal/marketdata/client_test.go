package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stockpulse-project/backend/internal/config"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.MarketData.QuoteAPIURL = baseURL
	cfg.MarketData.QuoteAPIKey = "test-key"
	return NewClient(cfg)
}

func TestLatestPriceParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("unexpected symbol %q", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("missing apikey query param")
		}
		w.Write([]byte(`{"price":"188.4200"}`))
	}))
	defer srv.Close()

	price, err := testClient(srv.URL).LatestPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestPrice returned error: %v", err)
	}
	if price != 188.42 {
		t.Errorf("price = %v, want 188.42", price)
	}
}

func TestLatestPriceRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"price":"99.5"}`))
	}))
	defer srv.Close()

	price, err := testClient(srv.URL).LatestPrice(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("LatestPrice returned error: %v", err)
	}
	if price != 99.5 {
		t.Errorf("price = %v, want 99.5", price)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("server hit %d times, want 2 (one retry)", hits)
	}
}

func TestLatestPriceProviderErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":404,"message":"symbol not found"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).LatestPrice(context.Background(), "NOPE"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("error = %v, want ErrNoPrice", err)
	}
}

func TestLatestPriceRejectsMalformedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"n/a"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).LatestPrice(context.Background(), "AAPL"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("error = %v, want ErrNoPrice", err)
	}
}

func TestLatestPriceRejectsNonPositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"-3.5"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).LatestPrice(context.Background(), "AAPL"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("error = %v, want ErrNoPrice", err)
	}
}

func TestLatestPriceRequiresSymbol(t *testing.T) {
	if _, err := testClient("http://localhost:1").LatestPrice(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}
