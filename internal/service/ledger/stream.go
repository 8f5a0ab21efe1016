package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/logger"
)

// Stream implements a LedgerStream over the settlement layer's WebSocket
// event feed.
type Stream struct {
	streamURL      string
	authority      string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a new settlement event stream.
func NewStream(streamURL, authority string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.LedgerStream {
	return &Stream{
		streamURL:      streamURL,
		authority:      authority,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection and subscribes to the
// configured program authority.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return fmt.Errorf("ledger connect: %w", err)
	}
	s.conn = conn
	s.connected = true

	sub := map[string]string{"type": "subscribe", "authority": s.authority}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("ledger subscribe: %w", err)
	}
	s.log.Info("ledger stream connected", logger.String("url", s.streamURL))
	return nil
}

// wireEvent is the raw frame shape. Decoding happens here and only here;
// frames that do not match a known kind are logged and dropped.
type wireEvent struct {
	Type string `json:"type"`
	Data struct {
		Kind      string `json:"kind"`
		ItemID    string `json:"itemId"`
		Wallet    string `json:"wallet"`
		Amount    int64  `json:"amount"`
		Price     int64  `json:"price"`
		Timestamp int64  `json:"timestamp"` // ms
	} `json:"data"`
}

var knownKinds = map[string]bool{
	models.EventPurchase: true,
	models.EventSale:     true,
	models.EventStake:    true,
	models.EventUnstake:  true,
	models.EventFeeClaim: true,
}

// Read streams decoded ledger events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.LedgerEvent, <-chan error) {
	events := make(chan *models.LedgerEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("ledger conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("ledger read: %w", err)
					return
				}
				var w wireEvent
				if err := json.Unmarshal(b, &w); err != nil {
					// ignore non-event frames
					continue
				}
				if w.Type != "event" {
					continue
				}
				if !knownKinds[w.Data.Kind] {
					s.log.Debug("dropping unknown event kind", logger.String("kind", w.Data.Kind))
					continue
				}
				ev := &models.LedgerEvent{
					Kind:      w.Data.Kind,
					ItemID:    w.Data.ItemID,
					Wallet:    w.Data.Wallet,
					Amount:    w.Data.Amount,
					Price:     w.Data.Price,
					Timestamp: time.UnixMilli(w.Data.Timestamp),
				}
				select {
				case events <- ev:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return events, errs
}

// Reconnect closes and reconnects after the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	return s.Connect(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
