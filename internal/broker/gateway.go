// Package broker abstracts the brokerage used for order execution and
// account state.
package broker

import (
	"context"

	"hftish_go/internal/domain"
)

// Gateway is the brokerage contract the engine consumes. Calls block for the
// duration of the network round-trip; callers must not hold shared locks
// across them.
type Gateway interface {
	// GetClock returns the market calendar snapshot.
	GetClock(ctx context.Context) (domain.Clock, error)

	// GetAccount returns the account's financial snapshot.
	GetAccount(ctx context.Context) (domain.Account, error)

	// GetOpenPosition returns the open position for symbol, with ok=false
	// when none exists.
	GetOpenPosition(ctx context.Context, symbol string) (qty int64, ok bool, err error)

	// ListOpenOrders returns open orders for symbol.
	ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)

	// SubmitLimitOrder sends a limit order and returns the broker's view of it.
	SubmitLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)

	// CancelOrder requests cancellation of an open order by ID.
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}
