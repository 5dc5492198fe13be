package mining

import "sync/atomic"

// SupplyCounter is a lock free saturating counter for mined coins. The
// ceiling always wins: no sequence of concurrent Add calls can push the
// total past the cap.
type SupplyCounter struct {
	capSatoshis int64
	total       atomic.Int64
}

// NewSupplyCounter constructs a counter capped at the specified number of
// whole coins.
func NewSupplyCounter(capCoins float64) *SupplyCounter {
	return &SupplyCounter{capSatoshis: int64(capCoins * satoshisPerCoin)}
}

// Add credits whole coins to the counter, saturating at the cap. It
// reports whether the cap was reached by this call.
func (c *SupplyCounter) Add(coins float64) bool {
	add := int64(coins * satoshisPerCoin)

	for {
		current := c.total.Load()
		if current >= c.capSatoshis {
			return false
		}

		next := current + add
		capped := next >= c.capSatoshis
		if capped {
			next = c.capSatoshis
		}

		if c.total.CompareAndSwap(current, next) {
			return capped
		}
	}
}

// Total returns the counted supply in whole coins. It can never exceed
// the cap.
func (c *SupplyCounter) Total() float64 {
	return float64(c.total.Load()) / satoshisPerCoin
}

// Exhausted reports whether the cap has been reached.
func (c *SupplyCounter) Exhausted() bool {
	return c.total.Load() >= c.capSatoshis
}
