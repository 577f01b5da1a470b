// Package engine contains the decision core: it follows one-cent level
// changes on a single symbol and, when a confirming trade print and the
// order-book imbalance line up, submits one bracketed limit order per level
// through the broker gateway.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"hftish_go/internal/broker"
	"hftish_go/internal/domain"
	"hftish_go/internal/event"
	"hftish_go/internal/feed"
	"hftish_go/internal/obs"
	"hftish_go/pkg/quant"
)

const (
	// tradeGuardMillis skips prints that land too close to the level change;
	// they may belong to the previous level.
	tradeGuardMillis = 50
	// minTradeSize is the smallest print considered worth following.
	minTradeSize = 100
	// clipSize is the fixed order size.
	clipSize = 100
	// imbalanceRatio is how lopsided the book must be before following.
	imbalanceRatio = 1.8
)

// Config holds the engine's trading parameters.
type Config struct {
	Symbol      string
	MaxQuantity int64
}

// Engine consumes quote, trade, and order-lifecycle events for one symbol
// and issues order intents. Three independent sources may call into it
// concurrently (market data, order updates, session timers); one mutex
// serializes all state mutation. Broker round-trips happen outside the lock
// with an in-flight latch preventing a second concurrent decision.
type Engine struct {
	ctx    context.Context
	cfg    Config
	broker broker.Gateway
	market feed.MarketDataFeed
	orders feed.OrderUpdateFeed

	mu       sync.Mutex
	book     *domain.QuoteBook
	ledger   *domain.Ledger
	inFlight bool
}

// New creates an engine for one symbol. ctx bounds the engine's broker
// calls made from event handlers.
func New(ctx context.Context, cfg Config, gw broker.Gateway, market feed.MarketDataFeed, orders feed.OrderUpdateFeed) *Engine {
	return &Engine{
		ctx:    ctx,
		cfg:    cfg,
		broker: gw,
		market: market,
		orders: orders,
		book:   domain.NewQuoteBook(),
		ledger: domain.NewLedger(),
	}
}

// OnQuote implements event.MarketSink. Quotes only move the book; they
// never trigger an order.
func (e *Engine) OnQuote(q event.Quote) {
	e.mu.Lock()
	before := e.book.LevelCount()
	e.book.Update(q.Bid, q.Ask, q.BidSize, q.AskSize, q.Timestamp)
	if e.book.LevelCount() != before {
		obs.LevelChanges.Inc()
	}
	e.mu.Unlock()
}

// decision is a trade intent captured under the lock.
type decision struct {
	side  domain.Side
	qty   int64
	limit float64
}

// OnTrade implements event.MarketSink. A qualifying print is evaluated
// against the book and ledger snapshot under the lock; the broker
// round-trip then runs unlocked, and the ledger is only mutated after the
// submission is confirmed.
func (e *Engine) OnTrade(t event.Trade) {
	e.mu.Lock()
	d, ok := e.evaluateLocked(t)
	if ok {
		e.inFlight = true
	}
	e.mu.Unlock()

	if !ok {
		return
	}
	e.execute(d)
}

func (e *Engine) evaluateLocked(t event.Trade) (decision, bool) {
	if e.book.Traded() || e.inFlight {
		// This level has been attempted (or an attempt is in the air).
		return decision{}, false
	}
	if t.Timestamp <= e.book.Time()+tradeGuardMillis {
		// The print came too close to the quote update and may have been
		// for the previous level.
		return decision{}, false
	}
	if t.Size < minTradeSize {
		return decision{}, false
	}

	total, pendingBuy, pendingSell := e.ledger.Snapshot()

	// The print was large enough to follow; check that the bid vs ask
	// quantities indicate a move in that direction and that we would not
	// buy or sell more than we should.
	if quant.SamePrice(t.Price, e.book.Ask()) &&
		float64(e.book.BidSize()) > imbalanceRatio*float64(e.book.AskSize()) &&
		total+pendingBuy < e.cfg.MaxQuantity-clipSize {
		return decision{side: domain.SideBuy, qty: clipSize, limit: e.book.Ask()}, true
	}

	if quant.SamePrice(t.Price, e.book.Bid()) &&
		float64(e.book.AskSize()) > imbalanceRatio*float64(e.book.BidSize()) &&
		total-pendingSell >= clipSize && total > 0 {
		qty := int64(clipSize)
		if qty > total {
			qty = total
		}
		return decision{side: domain.SideSell, qty: qty, limit: e.book.Bid()}, true
	}

	return decision{}, false
}

// execute performs the broker round-trip for a decision and applies the
// ledger update on success. Runs without the lock held.
func (e *Engine) execute(d decision) {
	if d.side == domain.SideBuy {
		acct, err := e.broker.GetAccount(e.ctx)
		if err != nil {
			slog.Error("Account query failed; abandoning buy", "err", err)
			obs.BrokerErrors.WithLabelValues("account").Inc()
			obs.Decisions.WithLabelValues(d.side.String(), "failed").Inc()
			e.abort()
			return
		}
		if acct.BuyingPower <= d.limit*float64(d.qty) {
			slog.Info("Ignoring buy; not enough buying power",
				slog.String("buying_power", fmt.Sprintf("$%.2f", acct.BuyingPower)))
			obs.Decisions.WithLabelValues(d.side.String(), "skipped").Inc()
			e.abort()
			return
		}
	}

	slog.Info("Following imbalance",
		slog.String("side", d.side.String()),
		slog.Int64("qty", d.qty),
		slog.String("symbol", e.cfg.Symbol),
		slog.String("limit", fmt.Sprintf("$%.2f", d.limit)),
		slog.Int64("current_shares", e.ledger.TotalShares()))

	order, err := e.broker.SubmitLimitOrder(e.ctx, domain.OrderRequest{
		Symbol:      e.cfg.Symbol,
		Side:        d.side,
		Qty:         d.qty,
		LimitPrice:  d.limit,
		TimeInForce: "day",
	})
	if err != nil {
		slog.Error("Order submission failed",
			"err", err, "side", d.side.String(), "qty", d.qty, "limit", d.limit)
		obs.BrokerErrors.WithLabelValues("submit").Inc()
		obs.Decisions.WithLabelValues(d.side.String(), "failed").Inc()
		e.abort()
		return
	}

	// The order is live at the broker from this point. Commit it before
	// requesting the IOC cancel: a lifecycle event delivered while the
	// cancel is in flight must find the order tracked, or its quantity
	// would stay pending forever.
	e.commit(d, order.ID)
	obs.Orders.WithLabelValues(d.side.String()).Inc()
	obs.Decisions.WithLabelValues(d.side.String(), "submitted").Inc()

	// Approximate an IOC order by immediately cancelling.
	if _, err := e.broker.CancelOrder(e.ctx, order.ID); err != nil {
		slog.Error("IOC cancel failed; order left to the update stream",
			"err", err, "order_id", order.ID, "side", d.side.String(), "qty", d.qty, "limit", d.limit)
		obs.BrokerErrors.WithLabelValues("cancel").Inc()
	}
}

// abort releases the in-flight latch after a decision that never reached
// the broker's book.
func (e *Engine) abort() {
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

// commit records the pending shares of a confirmed submission, tracks the
// order, latches the level as traded, and releases the in-flight latch.
func (e *Engine) commit(d decision, orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inFlight = false
	e.ledger.RecordIntent(d.side, d.qty)
	e.ledger.TrackOrder(orderID)
	e.book.MarkTraded()
	e.publishSharesLocked()
}

// OnOrderUpdate implements event.OrderSink, reconciling broker fill reports
// into the ledger. Events for unknown orders are tolerated no-ops; the
// broker is the system of record.
func (e *Engine) OnOrderUpdate(u event.OrderUpdate) {
	obs.OrderEvents.WithLabelValues(u.Kind.String()).Inc()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch u.Kind {
	case domain.OrderEventFill:
		e.ledger.ApplyFill(u.OrderID, u.FilledQty, u.Side)
		e.ledger.CloseOrder(u.OrderID, u.Side, 0)
	case domain.OrderEventPartialFill:
		e.ledger.ApplyFill(u.OrderID, u.FilledQty, u.Side)
	case domain.OrderEventCanceled, domain.OrderEventRejected:
		e.ledger.CloseOrder(u.OrderID, u.Side, u.TotalQty-u.FilledQty)
	default:
		return
	}
	e.publishSharesLocked()
}

// OpenSession brings the engine up for a trading session: cancel any
// broker-resident open orders for the symbol, reset the ledger, seed the
// position from the broker, subscribe both feeds.
func (e *Engine) OpenSession(ctx context.Context) {
	e.cancelOpenOrders(ctx)

	var seed int64
	if qty, ok, err := e.broker.GetOpenPosition(ctx, e.cfg.Symbol); err != nil {
		slog.Error("Open position query failed; seeding zero", "err", err)
		obs.BrokerErrors.WithLabelValues("position").Inc()
	} else if ok {
		slog.Info("Currently own shares", slog.Int64("qty", qty), slog.String("symbol", e.cfg.Symbol))
		seed = qty
	}

	e.mu.Lock()
	e.ledger.Reset()
	e.ledger.SeedTotalShares(seed)
	e.book.ResetSession()
	e.inFlight = false
	e.publishSharesLocked()
	e.mu.Unlock()

	if err := e.market.Subscribe(e.cfg.Symbol); err != nil {
		slog.Warn("Market data subscribe failed; will replay on reconnect", "err", err)
	}
	if err := e.orders.Subscribe(); err != nil {
		slog.Warn("Order update subscribe failed; will replay on reconnect", "err", err)
	}
}

// CloseSession tears the session down: unsubscribe both feeds, cancel open
// orders, reset the ledger. Unresolved orders are abandoned by the reset;
// the broker-side cancellation covers them.
func (e *Engine) CloseSession(ctx context.Context) {
	if err := e.market.Unsubscribe(e.cfg.Symbol); err != nil {
		slog.Warn("Market data unsubscribe failed", "err", err)
	}
	if err := e.orders.Unsubscribe(); err != nil {
		slog.Warn("Order update unsubscribe failed", "err", err)
	}

	e.cancelOpenOrders(ctx)

	e.mu.Lock()
	e.ledger.Reset()
	e.book.ResetSession()
	e.inFlight = false
	e.publishSharesLocked()
	e.mu.Unlock()
}

// cancelOpenOrders cancels broker-resident open orders for the tracked
// symbol only.
func (e *Engine) cancelOpenOrders(ctx context.Context) {
	orders, err := e.broker.ListOpenOrders(ctx, e.cfg.Symbol)
	if err != nil {
		slog.Error("Open orders query failed", "err", err)
		obs.BrokerErrors.WithLabelValues("orders").Inc()
		return
	}
	for _, o := range orders {
		ok, err := e.broker.CancelOrder(ctx, o.ID)
		if err != nil {
			slog.Error("Cancel failed", "order_id", o.ID, "err", err)
			obs.BrokerErrors.WithLabelValues("cancel").Inc()
			continue
		}
		slog.Info("Cancelling order", slog.String("order_id", o.ID), slog.Bool("accepted", ok))
	}
}

// Ledger exposes the position ledger for status reporting.
func (e *Engine) Ledger() *domain.Ledger { return e.ledger }

func (e *Engine) publishSharesLocked() {
	total, pendingBuy, pendingSell := e.ledger.Snapshot()
	obs.TotalShares.Set(float64(total))
	obs.PendingShares.WithLabelValues(domain.SideBuy.String()).Set(float64(pendingBuy))
	obs.PendingShares.WithLabelValues(domain.SideSell.String()).Set(float64(pendingSell))
}
