// Package shard provides deterministic assignment of entity ids to shard
// indexes. Assignment is local bookkeeping only; no cross-shard state
// movement happens here.
package shard

import (
	"hash/fnv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// assignmentCacheSize bounds the recorded assignments. Evicted ids fall
// back to the hash-modulo rule, which recomputes the same value the
// recording produced for any id that was assigned deterministically.
const assignmentCacheSize = 100_000

// Router maps entity ids to shard indexes.
type Router struct {
	mu          sync.Mutex
	shardCount  int
	maxShards   int
	assignments *lru.Cache
	syncs       uint64
	rebalances  uint64

	ev func(v string, args ...any)
}

// New constructs a Router for the specified number of active shards.
func New(shardCount int, maxShards int, ev func(v string, args ...any)) (*Router, error) {
	cache, err := lru.New(assignmentCacheSize)
	if err != nil {
		return nil, err
	}

	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	return &Router{
		shardCount:  shardCount,
		maxShards:   maxShards,
		assignments: cache,
		ev:          ev,
	}, nil
}

// Assign records a shard for the id. A requested shard outside the active
// range falls back to the hash-modulo rule. The effective shard is
// returned.
func (r *Router) Assign(id string, requested int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	effective := requested
	if requested < 0 || requested >= r.shardCount {
		effective = r.calculate(id)
	}

	r.assignments.Add(id, effective)

	return effective
}

// ShardFor returns the recorded assignment for the id, or recomputes it
// with the hash-modulo rule if none was recorded.
func (r *Router) ShardFor(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shardID, exists := r.assignments.Get(id); exists {
		return shardID.(int)
	}

	return r.calculate(id)
}

// Validate reports whether the shard id is inside the active range.
func (r *Router) Validate(shardID int) bool {
	return shardID >= 0 && shardID < r.shardCount
}

// ShardCount returns the number of active shards.
func (r *Router) ShardCount() int {
	return r.shardCount
}

// MaxShards returns the upper bound on shard identifiers.
func (r *Router) MaxShards() int {
	return r.maxShards
}

// AssignmentCount returns the number of recorded assignments.
func (r *Router) AssignmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.assignments.Len()
}

// Sync counts a shard sync request. No state moves between shards in this
// design.
func (r *Router) Sync() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.syncs++
	r.ev("shard: Sync: syncing %d shards", r.shardCount)
}

// Rebalance counts a rebalance request. No state moves between shards in
// this design.
func (r *Router) Rebalance() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rebalances++
	r.ev("shard: Rebalance: rebalance requested")
}

// calculate applies the hash-modulo rule.
func (r *Router) calculate(id string) int {
	h := fnv.New64a()
	h.Write([]byte(id))

	return int(h.Sum64() % uint64(r.shardCount))
}
