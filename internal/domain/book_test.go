package domain

import "testing"

func TestQuoteBook_LevelChange(t *testing.T) {
	b := NewQuoteBook()

	// First penny spread from the empty book: prices move, but the previous
	// spread was not a penny, so no new level starts.
	b.Update(10.00, 10.01, 200, 200, 1000)
	if b.Bid() != 10.00 || b.Ask() != 10.01 {
		t.Fatalf("bid/ask = %v/%v, want 10.00/10.01", b.Bid(), b.Ask())
	}
	if b.Time() != 1000 {
		t.Errorf("time = %d, want 1000", b.Time())
	}
	if b.Traded() {
		t.Error("fresh level should not be marked traded")
	}
	if b.LevelCount() != 1 {
		t.Errorf("levelCount = %d, want 1", b.LevelCount())
	}

	// Penny-to-penny move: a new level starts and the traded latch clears.
	b.MarkTraded()
	b.Update(10.01, 10.02, 300, 150, 2000)
	if b.LevelCount() != 2 {
		t.Errorf("levelCount = %d, want 2", b.LevelCount())
	}
	if b.Traded() {
		t.Error("traded latch should clear on a new level")
	}
	if b.Time() != 2000 {
		t.Errorf("time = %d, want 2000", b.Time())
	}
}

func TestQuoteBook_NonQualifyingUpdates(t *testing.T) {
	tests := []struct {
		name    string
		bid     float64
		ask     float64
		bidSize int64
		askSize int64
	}{
		{"WideSpread", 10.02, 10.05, 500, 500},
		{"SameBid", 10.00, 10.03, 500, 500},
		{"SameAsk", 10.02, 10.01, 500, 500},
		{"Identical", 10.00, 10.01, 500, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewQuoteBook()
			b.Update(10.00, 10.01, 200, 200, 1000)
			b.MarkTraded()

			b.Update(tt.bid, tt.ask, tt.bidSize, tt.askSize, 2000)
			if b.Bid() != 10.00 || b.Ask() != 10.01 {
				t.Errorf("prices moved on non-qualifying update: %v/%v", b.Bid(), b.Ask())
			}
			if b.Time() != 1000 {
				t.Errorf("time moved on non-qualifying update: %d", b.Time())
			}
			if !b.Traded() {
				t.Error("traded latch cleared on non-qualifying update")
			}
			// Sizes always refresh.
			if b.BidSize() != tt.bidSize || b.AskSize() != tt.askSize {
				t.Errorf("sizes = %d/%d, want %d/%d", b.BidSize(), b.AskSize(), tt.bidSize, tt.askSize)
			}
		})
	}
}

func TestQuoteBook_PennyDetectionWithFloatResidue(t *testing.T) {
	b := NewQuoteBook()
	// 21.35 - 21.34 does not land exactly on 0.01 in float64.
	b.Update(21.34, 21.35, 100, 100, 1000)
	if b.Bid() != 21.34 {
		t.Fatalf("float residue broke the penny test: bid = %v", b.Bid())
	}
	if b.Spread() != 0.01 {
		t.Errorf("spread = %v, want 0.01", b.Spread())
	}
}

func TestQuoteBook_ResetSessionKeepsLevelCount(t *testing.T) {
	b := NewQuoteBook()
	b.Update(10.00, 10.01, 200, 200, 1000)
	b.Update(10.01, 10.02, 200, 200, 2000)
	b.MarkTraded()

	count := b.LevelCount()
	b.ResetSession()

	if b.Bid() != 0 || b.Ask() != 0 || b.BidSize() != 0 || b.AskSize() != 0 || b.Time() != 0 {
		t.Error("session reset should zero quote state")
	}
	if b.Traded() {
		t.Error("session reset should clear traded latch")
	}
	if b.LevelCount() != count {
		t.Errorf("levelCount = %d, want %d (monotonic across resets)", b.LevelCount(), count)
	}
}
