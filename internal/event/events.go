package event

import "hftish_go/internal/domain"

// Quote is a top-of-book update from the market data feed.
type Quote struct {
	Bid       float64
	Ask       float64
	BidSize   int64
	AskSize   int64
	Timestamp int64 // epoch millis
}

// Trade is a trade print from the market data feed.
type Trade struct {
	Price     float64
	Size      int64
	Timestamp int64 // epoch millis
}

// OrderUpdate is an order-lifecycle event from the broker stream.
// FilledQty is cumulative; TotalQty is the original order quantity.
type OrderUpdate struct {
	Kind      domain.OrderEventKind
	OrderID   string
	Side      domain.Side
	FilledQty int64
	TotalQty  int64
}

// MarketSink consumes quote and trade events.
type MarketSink interface {
	OnQuote(Quote)
	OnTrade(Trade)
}

// OrderSink consumes order-lifecycle events.
type OrderSink interface {
	OnOrderUpdate(OrderUpdate)
}
