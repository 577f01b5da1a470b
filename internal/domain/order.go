package domain

import "time"

// Side is the direction of an order.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide maps a broker-reported side string to a Side.
func ParseSide(s string) Side {
	switch s {
	case "buy", "BUY", "Buy":
		return SideBuy
	case "sell", "SELL", "Sell":
		return SideSell
	default:
		return SideUnknown
	}
}

// OrderEventKind classifies order-lifecycle stream events.
type OrderEventKind uint8

const (
	OrderEventOther OrderEventKind = iota
	OrderEventFill
	OrderEventPartialFill
	OrderEventCanceled
	OrderEventRejected
)

func (k OrderEventKind) String() string {
	switch k {
	case OrderEventFill:
		return "fill"
	case OrderEventPartialFill:
		return "partial_fill"
	case OrderEventCanceled:
		return "canceled"
	case OrderEventRejected:
		return "rejected"
	default:
		return "other"
	}
}

// Terminal reports whether the event ends an order's lifecycle.
func (k OrderEventKind) Terminal() bool {
	return k == OrderEventFill || k == OrderEventCanceled || k == OrderEventRejected
}

// Order is the broker's view of an order.
type Order struct {
	ID         string
	Symbol     string
	Side       Side
	Qty        int64
	LimitPrice float64
	Status     string
}

// OrderRequest describes a limit order to submit.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Qty         int64
	LimitPrice  float64
	TimeInForce string // "day"
}

// Clock is the broker's market calendar snapshot.
type Clock struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

// Account is the subset of account state the engine consults.
type Account struct {
	BuyingPower float64
}
