package feed

// MarketDataFeed delivers quotes and trades for subscribed symbols.
type MarketDataFeed interface {
	Subscribe(symbol string) error
	Unsubscribe(symbol string) error
}

// OrderUpdateFeed delivers order-lifecycle events for this account.
type OrderUpdateFeed interface {
	Subscribe() error
	Unsubscribe() error
}
