package quant

import "math"

// PriceEpsilon is the tolerance for comparing float64 dollar prices.
// Quotes arrive as decimal strings with at most four places, so anything
// closer than this is the same price.
const PriceEpsilon = 0.0001

// Round rounds value to the given number of decimal places.
func Round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

// SamePrice reports whether two prices are equal within PriceEpsilon.
func SamePrice(a, b float64) bool {
	return math.Abs(a-b) < PriceEpsilon
}

// IsPennySpread reports whether the bid/ask spread, rounded to cents,
// is exactly one cent.
func IsPennySpread(bid, ask float64) bool {
	return SamePrice(Round(ask-bid, 2), 0.01)
}
