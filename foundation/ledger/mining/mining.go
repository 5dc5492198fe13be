// Package mining implements the proof of work search, the difficulty
// adjustment rules and the supply accounting for mined coins.
package mining

import (
	"encoding/hex"
	"math"
	"strconv"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/genesis"
)

// satoshisPerCoin is the fixed point scale used for supply accounting so
// the cap can be enforced with integer atomics.
const satoshisPerCoin = 100_000_000

// Engine performs the nonce search and owns the mined coin counter. The
// counter is a lock free saturating atomic; the search itself is
// serialized by the engine's own mutex.
type Engine struct {
	mu sync.Mutex

	initialReward   float64
	minReward       float64
	halvingInterval uint64
	maxNonceTries   int
	minDifficulty   int
	maxDifficulty   int

	difficulty int
	supply     *SupplyCounter

	ev func(v string, args ...any)
}

// New constructs an Engine from the chain parameters. The event handler
// may be nil.
func New(g genesis.Genesis, ev func(v string, args ...any)) *Engine {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	return &Engine{
		initialReward:   g.InitialReward,
		minReward:       g.MinReward,
		halvingInterval: g.HalvingInterval,
		maxNonceTries:   g.MaxNonceTries,
		minDifficulty:   g.MinDifficulty,
		maxDifficulty:   g.MaxDifficulty,
		difficulty:      g.Difficulty,
		supply:          NewSupplyCounter(g.MaxMinableCoins),
		ev:              ev,
	}
}

// MineBlock performs a bounded brute force nonce search over the block
// data. Not finding a solution inside the attempt budget is a normal
// outcome reported with ok set to false.
func (e *Engine) MineBlock(data string, difficulty int, shardID int) (nonce int, hash string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.CheckMiningLimit() {
		e.ev("mining: MineBlock: supply cap reached, mining stopped")
		return 0, "", false
	}

	shard := strconv.Itoa(shardID)
	for nonce = 0; nonce < e.maxNonceTries; nonce++ {
		hash = workHash(data + strconv.Itoa(nonce) + shard)
		if IsHashSolved(difficulty, hash) {
			e.ev("mining: MineBlock: solved: nonce[%d] difficulty[%d]", nonce, difficulty)
			return nonce, hash, true
		}
	}

	e.ev("mining: MineBlock: attempt budget exhausted: difficulty[%d]", difficulty)
	return 0, "", false
}

// CheckMiningLimit reports whether coins can still be mined.
func (e *Engine) CheckMiningLimit() bool {
	return !e.supply.Exhausted()
}

// AddMinedCoins credits mined coins to the supply counter, saturating at
// the cap. Concurrent callers can never push the counter past the ceiling.
func (e *Engine) AddMinedCoins(amount float64) {
	if e.supply.Add(amount) {
		e.ev("mining: AddMinedCoins: supply cap reached")
	}
}

// TotalMinedCoins returns the mined supply in whole coins.
func (e *Engine) TotalMinedCoins() float64 {
	return e.supply.Total()
}

// BlockReward returns the reward for mining a block at the specified
// height, halving on the configured interval and never dropping below the
// minimum reward.
func (e *Engine) BlockReward(height uint64) float64 {
	halvings := height / e.halvingInterval
	reward := e.initialReward / math.Pow(2, float64(halvings))

	if reward < e.minReward {
		reward = e.minReward
	}

	return reward
}

// AdjustDifficulty applies the stepped retarget rule based on the ratio of
// actual to target block time, clamped to the configured range.
func (e *Engine) AdjustDifficulty(actualBlockTime float64, targetBlockTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if targetBlockTime <= 0 {
		return
	}

	ratio := actualBlockTime / targetBlockTime

	switch {
	case ratio < 0.5:
		e.difficulty += 2
	case ratio < 0.8:
		e.difficulty++
	case ratio > 2.0:
		e.difficulty -= 2
	case ratio > 1.5:
		e.difficulty--
	}

	if e.difficulty > e.maxDifficulty {
		e.difficulty = e.maxDifficulty
	}
	if e.difficulty < e.minDifficulty {
		e.difficulty = e.minDifficulty
	}

	e.ev("mining: AdjustDifficulty: difficulty[%d]", e.difficulty)
}

// Difficulty returns the current difficulty target.
func (e *Engine) Difficulty() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.difficulty
}

// IsHashSolved checks the hash complies with the POW rules. The prefix of
// length difficulty must be all zero characters.
func IsHashSolved(difficulty int, hash string) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}

	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// workHash produces the digest used by the nonce search.
func workHash(data string) string {
	digest := sha3.Sum512([]byte(data))
	return hex.EncodeToString(digest[:])
}
