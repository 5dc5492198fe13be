package ledger

import "math"

// AdjustCoinPrice computes the next coin price from a compounding growth
// factor and a bounded oracle perturbation restricted to non-negative
// bias. Overflow saturates instead of wrapping, and the floor clamp is
// the unconditional last step: no path returns below the minimum price.
func (l *Ledger) AdjustCoinPrice(currentPrice float64, blockHeight uint64, shardID int) float64 {
	const growthFactor = 1.0005

	newPrice := currentPrice * math.Pow(growthFactor, float64(blockHeight%1_000_000))

	oracle := 1.0 + math.Sin(float64(blockHeight)*0.01)*0.001
	if oracle < 1.0 {
		oracle = 1.0
	}
	newPrice *= oracle

	if math.IsNaN(newPrice) || math.IsInf(newPrice, 0) || newPrice > math.MaxFloat64/2 {
		newPrice = math.MaxFloat64 / 2
	}

	if newPrice < l.genesis.MinimumPrice {
		newPrice = l.genesis.MinimumPrice
	}

	l.ev("ledger: AdjustCoinPrice: height[%d] shard[%d] price[%.2f]", blockHeight, shardID, newPrice)

	return newPrice
}
