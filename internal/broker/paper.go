package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hftish_go/internal/domain"
	"hftish_go/internal/event"
)

// Paper is an in-process Gateway used for paper trading and tests. Orders
// are accepted instantly and never fill on their own; cancellation emits a
// canceled lifecycle event through the optional sink, mimicking the broker
// stream. State knobs are settable so tests can stage scenarios.
type Paper struct {
	mu          sync.Mutex
	clock       domain.Clock
	buyingPower float64
	positions   map[string]int64
	orders      map[string]domain.Order
	submitted   []domain.Order
	sink        event.OrderSink

	// Failure injection for tests.
	SubmitErr error
	CancelErr error
	ClockErr  error
}

// NewPaper creates a paper gateway with an open market and ample buying
// power.
func NewPaper() *Paper {
	now := time.Now()
	return &Paper{
		clock: domain.Clock{
			IsOpen:    true,
			NextOpen:  now.Add(18 * time.Hour),
			NextClose: now.Add(6 * time.Hour),
		},
		buyingPower: 1_000_000,
		positions:   make(map[string]int64),
		orders:      make(map[string]domain.Order),
	}
}

// SetOrderSink attaches the stream sink canceled events are delivered to.
func (p *Paper) SetOrderSink(sink event.OrderSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

// SetClock stages the market calendar.
func (p *Paper) SetClock(c domain.Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = c
}

// SetBuyingPower stages the account's buying power.
func (p *Paper) SetBuyingPower(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buyingPower = v
}

// SetPosition stages an open position.
func (p *Paper) SetPosition(symbol string, qty int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[symbol] = qty
}

// Submitted returns a copy of all orders submitted so far.
func (p *Paper) Submitted() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Order, len(p.submitted))
	copy(out, p.submitted)
	return out
}

// GetClock implements Gateway.
func (p *Paper) GetClock(ctx context.Context) (domain.Clock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ClockErr != nil {
		return domain.Clock{}, transient("clock", p.ClockErr)
	}
	return p.clock, nil
}

// GetAccount implements Gateway.
func (p *Paper) GetAccount(ctx context.Context) (domain.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.Account{BuyingPower: p.buyingPower}, nil
}

// GetOpenPosition implements Gateway.
func (p *Paper) GetOpenPosition(ctx context.Context, symbol string) (int64, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	qty, ok := p.positions[symbol]
	return qty, ok, nil
}

// ListOpenOrders implements Gateway.
func (p *Paper) ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var open []domain.Order
	for _, o := range p.orders {
		if o.Symbol == symbol && o.Status == "new" {
			open = append(open, o)
		}
	}
	return open, nil
}

// SubmitLimitOrder implements Gateway.
func (p *Paper) SubmitLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SubmitErr != nil {
		return domain.Order{}, transient("submit", p.SubmitErr)
	}
	order := domain.Order{
		ID:         uuid.New().String(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Qty:        req.Qty,
		LimitPrice: req.LimitPrice,
		Status:     "new",
	}
	p.orders[order.ID] = order
	p.submitted = append(p.submitted, order)
	slog.Info("PAPER: order accepted",
		slog.String("id", order.ID),
		slog.String("side", order.Side.String()),
		slog.Int64("qty", order.Qty),
		slog.Float64("limit", order.LimitPrice))
	return order, nil
}

// CancelOrder implements Gateway. The canceled event is delivered
// asynchronously, as a real order stream would.
func (p *Paper) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	p.mu.Lock()
	if p.CancelErr != nil {
		p.mu.Unlock()
		return false, transient("cancel", p.CancelErr)
	}
	order, ok := p.orders[orderID]
	if !ok {
		p.mu.Unlock()
		return false, transient("cancel", fmt.Errorf("order not found: %s", orderID))
	}
	order.Status = "canceled"
	p.orders[orderID] = order
	sink := p.sink
	p.mu.Unlock()

	if sink != nil {
		go sink.OnOrderUpdate(event.OrderUpdate{
			Kind:     domain.OrderEventCanceled,
			OrderID:  order.ID,
			Side:     order.Side,
			TotalQty: order.Qty,
		})
	}
	return true, nil
}
