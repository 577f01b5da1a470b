package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"hftish_go/internal/domain"
	"hftish_go/internal/event"
	"hftish_go/internal/infra"
)

// OrderStream is the websocket OrderUpdateFeed carrying trade_updates for
// this account.
type OrderStream struct {
	worker *Worker
	url    string
	keyID  string
	secret string
	sink   event.OrderSink

	mu        sync.Mutex
	listening bool
}

// NewOrderStream creates the order update stream for the given sink.
func NewOrderStream(cfg *infra.Config, sink event.OrderSink) *OrderStream {
	s := &OrderStream{
		url:    cfg.Broker.OrderStreamURL,
		keyID:  cfg.Broker.KeyID,
		secret: cfg.Broker.SecretKey,
		sink:   sink,
	}
	s.worker = NewWorker(s)
	return s
}

// Start launches the underlying connection loop.
func (s *OrderStream) Start(ctx context.Context) { s.worker.Start(ctx) }

// Stop tears down the connection.
func (s *OrderStream) Stop() { s.worker.Stop() }

// Subscribe implements OrderUpdateFeed.
func (s *OrderStream) Subscribe() error {
	s.mu.Lock()
	s.listening = true
	s.mu.Unlock()
	return s.worker.Send(listenFrame(true))
}

// Unsubscribe implements OrderUpdateFeed.
func (s *OrderStream) Unsubscribe() error {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
	return s.worker.Send(listenFrame(false))
}

func listenFrame(on bool) map[string]any {
	streams := []string{}
	if on {
		streams = []string{"trade_updates"}
	}
	return map[string]any{
		"action": "listen",
		"data":   map[string]any{"streams": streams},
	}
}

// URL implements StreamHandler.
func (s *OrderStream) URL() string { return s.url }

// ID implements StreamHandler.
func (s *OrderStream) ID() string { return "order-updates" }

// OnConnect implements StreamHandler.
func (s *OrderStream) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	auth := map[string]any{
		"action": "authenticate",
		"data":   map[string]string{"key_id": s.keyID, "secret_key": s.secret},
	}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}

	s.mu.Lock()
	listening := s.listening
	s.mu.Unlock()
	if listening {
		return conn.WriteJSON(listenFrame(true))
	}
	return nil
}

type orderUpdateFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Event string `json:"event"`
		Order struct {
			ID        string `json:"id"`
			Side      string `json:"side"`
			Qty       string `json:"qty"`
			FilledQty string `json:"filled_qty"`
		} `json:"order"`
	} `json:"data"`
}

// OnMessage implements StreamHandler.
func (s *OrderStream) OnMessage(ctx context.Context, msg []byte) {
	var frame orderUpdateFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		slog.Debug("Unparseable order frame", "err", err)
		return
	}
	if frame.Stream != "trade_updates" {
		return
	}

	update, ok := decodeOrderUpdate(frame)
	if !ok {
		return
	}
	s.sink.OnOrderUpdate(update)
}

func decodeOrderUpdate(frame orderUpdateFrame) (event.OrderUpdate, bool) {
	var kind domain.OrderEventKind
	switch frame.Data.Event {
	case "fill":
		kind = domain.OrderEventFill
	case "partial_fill":
		kind = domain.OrderEventPartialFill
	case "canceled":
		kind = domain.OrderEventCanceled
	case "rejected":
		kind = domain.OrderEventRejected
	default:
		kind = domain.OrderEventOther
	}

	order := frame.Data.Order
	if order.ID == "" {
		return event.OrderUpdate{}, false
	}
	return event.OrderUpdate{
		Kind:      kind,
		OrderID:   order.ID,
		Side:      domain.ParseSide(order.Side),
		FilledQty: parseQty(order.FilledQty),
		TotalQty:  parseQty(order.Qty),
	}, true
}

func parseQty(s string) int64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.IntPart()
}
