package domain

import "sync"

// Ledger tracks how many shares we hold so position size cannot inflate past
// the level we are willing to trade. Orders may be partially filled, so it
// keeps "pending" buy/sell shares alongside the filled total, plus the last
// cumulative filled quantity seen per tracked order. The broker remains the
// system of record; the ledger is best-effort local reconciliation.
//
// A single mutex guards every counter and the fill map so that composite
// checks such as total+pendingBuy observe one consistent snapshot.
type Ledger struct {
	mu          sync.Mutex
	totalShares int64
	pendingBuy  int64
	pendingSell int64
	fills       map[string]int64 // order id -> last cumulative filled qty
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{fills: make(map[string]int64)}
}

// Reset clears the fill map and zeroes both pending counters. totalShares is
// untouched; it is seeded separately from the broker's reported position at
// session start.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.fills)
	l.pendingBuy = 0
	l.pendingSell = 0
}

// SeedTotalShares overwrites the filled total with the broker's reported
// open position.
func (l *Ledger) SeedTotalShares(qty int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalShares = qty
}

// RecordIntent commits qty shares to the pending counter for side. Called
// only after a confirmed successful submission.
func (l *Ledger) RecordIntent(side Side, qty int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch side {
	case SideBuy:
		l.pendingBuy += qty
	case SideSell:
		l.pendingSell += qty
	}
}

// TrackOrder registers a submitted order with zero filled quantity.
func (l *Ledger) TrackOrder(orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills[orderID] = 0
}

// ApplyFill reconciles a cumulative fill report. Unknown orders are a
// tolerated no-op, as are reports that do not increase the recorded filled
// quantity, which makes duplicated or reordered fill events idempotent.
// The delta moves from the pending counter into totalShares.
func (l *Ledger) ApplyFill(orderID string, newFilledQty int64, side Side) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old, ok := l.fills[orderID]
	if !ok || newFilledQty <= old {
		return
	}
	delta := newFilledQty - old

	switch side {
	case SideBuy:
		l.pendingBuy -= delta
		l.totalShares += delta
	case SideSell:
		l.pendingSell -= delta
		l.totalShares -= delta
	default:
		return
	}
	l.fills[orderID] = newFilledQty
}

// CloseOrder resolves a tracked order on any terminal event, releasing the
// never-filled outstanding quantity from the pending counter and dropping
// the order. Unknown orders are a tolerated no-op.
func (l *Ledger) CloseOrder(orderID string, side Side, outstandingQty int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.fills[orderID]; !ok {
		return
	}
	switch side {
	case SideBuy:
		l.pendingBuy -= outstandingQty
	case SideSell:
		l.pendingSell -= outstandingQty
	}
	delete(l.fills, orderID)
}

// Snapshot returns a consistent view of total, pending buy, and pending sell
// shares.
func (l *Ledger) Snapshot() (total, pendingBuy, pendingSell int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalShares, l.pendingBuy, l.pendingSell
}

// TotalShares returns the filled share total.
func (l *Ledger) TotalShares() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalShares
}

// Tracked reports whether an order is still tracked.
func (l *Ledger) Tracked(orderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.fills[orderID]
	return ok
}
