/**
 * @description
 * WebSocket client for the quote provider's streaming feed.
 * Keeps the Redis latest-price cache warm so evaluation passes mostly hit
 * the cache instead of the REST API.
 *
 * Key features:
 * - Handles automatic reconnection with exponential backoff.
 * - Manages symbol subscriptions (resubscribes after reconnect).
 * - Thread-safe writing.
 *
 * @dependencies
 * - github.com/gorilla/websocket
 * - github.com/redis/go-redis/v9
 * - backend/internal/config
 */

package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stockpulse-project/backend/internal/config"
	"github.com/stockpulse-project/backend/internal/logger"
)

const (
	WriteWait         = 10 * time.Second
	PongWait          = 60 * time.Second
	PingPeriod        = (PongWait * 9) / 10
	MaxConnectRetries = 5
)

// SubscribeMessage asks the feed to start streaming the given symbols
type SubscribeMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Params struct {
		Symbols string `json:"symbols"` // comma-separated
	} `json:"params"`
}

// priceEvent is a single tick on the stream
type priceEvent struct {
	Event  string  `json:"event"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Stream maintains the websocket connection to the quote feed
type Stream struct {
	url   string
	redis *redis.Client
	conn  *websocket.Conn
	mu    sync.Mutex
	done  chan struct{}

	// subscriptions holds the current list of symbols to track
	subscriptions []string
	subMu         sync.Mutex
}

// NewStream creates a quote stream client. Returns nil if no stream URL is
// configured; the oracle then relies on the REST client alone.
func NewStream(cfg *config.Config, rdb *redis.Client) *Stream {
	if cfg.MarketData.StreamURL == "" {
		return nil
	}
	url := cfg.MarketData.StreamURL
	if cfg.MarketData.QuoteAPIKey != "" {
		url = fmt.Sprintf("%s?apikey=%s", url, cfg.MarketData.QuoteAPIKey)
	}
	return &Stream{
		url:   url,
		redis: rdb,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read loop
func (s *Stream) Connect(ctx context.Context) error {
	return s.connectWithRetry(ctx)
}

func (s *Stream) connectWithRetry(ctx context.Context) error {
	var err error
	backoff := 1 * time.Second

	for i := 0; i < MaxConnectRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return fmt.Errorf("stream closed")
		default:
		}

		logger.Info("Connecting to quote stream (attempt %d)", i+1)
		s.conn, _, err = websocket.DefaultDialer.Dial(s.url, nil)
		if err == nil {
			logger.Info("✅ Connected to quote stream")

			// Resubscribe if we have existing subscriptions (reconnection scenario)
			s.subMu.Lock()
			if len(s.subscriptions) > 0 {
				go s.sendSubscribe(s.subscriptions)
			}
			s.subMu.Unlock()

			go s.readLoop(ctx)
			go s.pingLoop(ctx)
			return nil
		}

		logger.Error("Failed to connect to quote stream: %v. Retrying in %v...", err, backoff)
		time.Sleep(backoff)
		backoff *= 2
	}

	return fmt.Errorf("failed to connect after %d attempts: %w", MaxConnectRetries, err)
}

// Subscribe replaces the tracked symbol set and sends the subscription message
func (s *Stream) Subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	s.subMu.Lock()
	s.subscriptions = symbols
	s.subMu.Unlock()

	return s.sendSubscribe(symbols)
}

func (s *Stream) sendSubscribe(symbols []string) error {
	msg := SubscribeMessage{Action: "subscribe"}
	msg.Params.Symbols = strings.Join(symbols, ",")
	return s.writeJSON(msg)
}

// writeJSON sends a JSON message to the websocket thread-safely
func (s *Stream) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("connection is nil")
	}

	s.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return s.conn.WriteJSON(v)
}

// Close gracefully closes the connection
func (s *Stream) Close() error {
	close(s.done)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) readLoop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()

		// Reconnect unless we're shutting down
		select {
		case <-ctx.Done():
		case <-s.done:
		default:
			logger.Info("Quote stream disconnected, reconnecting...")
			if err := s.connectWithRetry(ctx); err != nil {
				logger.Error("Quote stream reconnection failed: %v", err)
			}
		}
	}()

	s.conn.SetReadDeadline(time.Now().Add(PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			logger.Error("Quote stream read error: %v", err)
			return
		}

		s.handleMessage(ctx, message)
	}
}

// handleMessage parses a tick and refreshes the latest-price cache
func (s *Stream) handleMessage(ctx context.Context, message []byte) {
	var event priceEvent
	if err := json.Unmarshal(message, &event); err != nil {
		logger.Error("Malformed quote stream message: %v", err)
		return
	}

	if event.Event != "price" || event.Symbol == "" {
		// Heartbeats, subscription acks, etc.
		return
	}
	if event.Price <= 0 {
		return
	}

	key := PriceCacheKey(event.Symbol)
	val := strconv.FormatFloat(event.Price, 'f', -1, 64)
	if err := s.redis.Set(ctx, key, val, priceCacheTTL).Err(); err != nil {
		logger.Error("Failed to cache streamed price for %s: %v", event.Symbol, err)
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(WriteWait))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.mu.Unlock()
					return
				}
			}
			s.mu.Unlock()
		}
	}
}
