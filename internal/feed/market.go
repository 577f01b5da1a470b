package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"hftish_go/internal/event"
	"hftish_go/internal/infra"
)

// MarketStream is the websocket MarketDataFeed. Frames are arrays of events
// discriminated by "ev": "Q" for quotes, "T" for trades.
type MarketStream struct {
	worker *Worker
	url    string
	keyID  string
	sink   event.MarketSink

	mu         sync.Mutex
	subscribed map[string]bool
}

// NewMarketStream creates the market data stream for the given sink.
func NewMarketStream(cfg *infra.Config, sink event.MarketSink) *MarketStream {
	s := &MarketStream{
		url:        cfg.Broker.MarketStreamURL,
		keyID:      cfg.Broker.KeyID,
		sink:       sink,
		subscribed: make(map[string]bool),
	}
	s.worker = NewWorker(s)
	return s
}

// Start launches the underlying connection loop.
func (s *MarketStream) Start(ctx context.Context) { s.worker.Start(ctx) }

// Stop tears down the connection.
func (s *MarketStream) Stop() { s.worker.Stop() }

// Subscribe implements MarketDataFeed. The subscription is recorded first so
// a reconnect replays it even if this send fails.
func (s *MarketStream) Subscribe(symbol string) error {
	s.mu.Lock()
	s.subscribed[symbol] = true
	s.mu.Unlock()
	return s.worker.Send(subscribeFrame("subscribe", symbol))
}

// Unsubscribe implements MarketDataFeed.
func (s *MarketStream) Unsubscribe(symbol string) error {
	s.mu.Lock()
	delete(s.subscribed, symbol)
	s.mu.Unlock()
	return s.worker.Send(subscribeFrame("unsubscribe", symbol))
}

func subscribeFrame(action, symbol string) map[string]string {
	return map[string]string{
		"action": action,
		"params": "Q." + symbol + ",T." + symbol,
	}
}

// URL implements StreamHandler.
func (s *MarketStream) URL() string { return s.url }

// ID implements StreamHandler.
func (s *MarketStream) ID() string { return "market-data" }

// OnConnect implements StreamHandler: authenticate, then replay
// subscriptions.
func (s *MarketStream) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	if err := conn.WriteJSON(map[string]string{"action": "auth", "params": s.keyID}); err != nil {
		return err
	}

	s.mu.Lock()
	symbols := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		symbols = append(symbols, sym)
	}
	s.mu.Unlock()

	for _, sym := range symbols {
		if err := conn.WriteJSON(subscribeFrame("subscribe", sym)); err != nil {
			return err
		}
	}
	return nil
}

type marketEvent struct {
	Ev      string  `json:"ev"`
	Symbol  string  `json:"sym"`
	Bid     float64 `json:"bp"`
	Ask     float64 `json:"ap"`
	BidSize int64   `json:"bs"`
	AskSize int64   `json:"as"`
	Price   float64 `json:"p"`
	Size    int64   `json:"s"`
	Ts      int64   `json:"t"`
}

// OnMessage implements StreamHandler.
func (s *MarketStream) OnMessage(ctx context.Context, msg []byte) {
	events, err := decodeMarketEvents(msg)
	if err != nil {
		slog.Debug("Unparseable market frame", "err", err)
		return
	}
	for _, ev := range events {
		switch ev.Ev {
		case "Q":
			s.sink.OnQuote(event.Quote{
				Bid:       ev.Bid,
				Ask:       ev.Ask,
				BidSize:   ev.BidSize,
				AskSize:   ev.AskSize,
				Timestamp: ev.Ts,
			})
		case "T":
			s.sink.OnTrade(event.Trade{
				Price:     ev.Price,
				Size:      ev.Size,
				Timestamp: ev.Ts,
			})
		}
		// Status and subscription acks fall through silently.
	}
}

func decodeMarketEvents(msg []byte) ([]marketEvent, error) {
	var events []marketEvent
	if err := json.Unmarshal(msg, &events); err == nil {
		return events, nil
	}
	// Some gateways send single objects instead of batches.
	var single marketEvent
	if err := json.Unmarshal(msg, &single); err != nil {
		return nil, err
	}
	return []marketEvent{single}, nil
}
