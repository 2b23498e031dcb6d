package lightsengine

import "math"

const DefaultPricePerPoint = 50

// AmountTracker turns a running donation total into point requests.
type AmountTracker struct {
	PricePerPoint float64

	previous float64
	current  float64
}

func NewAmountTracker(price float64) *AmountTracker {
	if price <= 0 {
		price = DefaultPricePerPoint
	}
	return &AmountTracker{PricePerPoint: price}
}

func (t *AmountTracker) Current() float64 { return t.current }

// Observe records a new total. existing is the number of points already
// placed or pending. The first positive total seeds the baseline, so it
// yields no highlighted points.
func (t *AmountTracker) Observe(total float64, existing int) (regular, highlighted int) {
	t.previous, t.current = t.current, total

	target := int(math.Floor(total / t.PricePerPoint))
	delta := total - t.previous
	if t.previous > 0 && delta > 0 {
		highlighted = int(math.Floor(delta / t.PricePerPoint))
	}
	highlighted = min(highlighted, max(0, target-existing))
	regular = max(0, target-existing-highlighted)
	return regular, highlighted
}
