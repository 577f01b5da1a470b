package domain

import (
	"log/slog"

	"hftish_go/pkg/quant"
)

// QuoteBook tracks the bid/ask spread for one symbol. A "level change" is a
// move of exactly one penny: both bid and ask differ from the stored values
// and the new spread rounds to $0.01. Larger moves could indicate some
// newsworthy event the algorithm is not tuned to trade, so they never update
// the level. Whether or not a trade attempt at a level succeeds, the traded
// flag is only cleared on the next penny-to-penny transition, so each level
// is attempted at most once.
//
// QuoteBook is not internally synchronized; the engine serializes access.
type QuoteBook struct {
	prevBid    float64
	prevAsk    float64
	prevSpread float64
	bid        float64
	ask        float64
	bidSize    int64
	askSize    int64
	spread     float64
	traded     bool
	levelCount int64
	time       int64 // epoch millis of the last level change
}

// NewQuoteBook returns an empty book at level 1.
func NewQuoteBook() *QuoteBook {
	return &QuoteBook{levelCount: 1}
}

// Update applies a quote. Sizes are always overwritten. Price fields move
// only on a qualifying level change; an update identical to the current
// bid/ask never qualifies.
func (b *QuoteBook) Update(bid, ask float64, bidSize, askSize int64, ts int64) {
	b.bidSize = bidSize
	b.askSize = askSize

	if quant.SamePrice(bid, b.bid) || quant.SamePrice(ask, b.ask) || !quant.IsPennySpread(bid, ask) {
		return
	}

	b.prevBid = b.bid
	b.prevAsk = b.ask
	b.bid = bid
	b.ask = ask
	b.time = ts

	b.prevSpread = quant.Round(b.prevAsk-b.prevBid, 3)
	b.spread = quant.Round(b.ask-b.bid, 3)

	slog.Info("Level change",
		slog.Float64("prev_bid", b.prevBid),
		slog.Float64("prev_ask", b.prevAsk),
		slog.Float64("prev_spread", b.prevSpread),
		slog.Float64("bid", b.bid),
		slog.Float64("ask", b.ask),
		slog.Float64("spread", b.spread))

	// Only a move from one penny level to another starts a fresh level;
	// the first penny spread after startup keeps any stale traded state.
	if quant.SamePrice(b.prevSpread, 0.01) {
		b.nextLevel()
	}
}

// nextLevel starts a new one-cent level: the traded latch clears and the
// monotonic level counter advances.
func (b *QuoteBook) nextLevel() {
	b.traded = false
	b.levelCount++
}

// ResetSession clears per-session quote state at a session boundary.
// levelCount survives; it is monotonic for the life of the book.
func (b *QuoteBook) ResetSession() {
	b.prevBid = 0
	b.prevAsk = 0
	b.prevSpread = 0
	b.bid = 0
	b.ask = 0
	b.bidSize = 0
	b.askSize = 0
	b.spread = 0
	b.traded = false
	b.time = 0
}

// MarkTraded latches the current level as traded.
func (b *QuoteBook) MarkTraded() { b.traded = true }

func (b *QuoteBook) Bid() float64      { return b.bid }
func (b *QuoteBook) Ask() float64      { return b.ask }
func (b *QuoteBook) BidSize() int64    { return b.bidSize }
func (b *QuoteBook) AskSize() int64    { return b.askSize }
func (b *QuoteBook) Spread() float64   { return b.spread }
func (b *QuoteBook) Traded() bool      { return b.traded }
func (b *QuoteBook) LevelCount() int64 { return b.levelCount }

// Time returns the epoch millis of the last level change.
func (b *QuoteBook) Time() int64 { return b.time }
