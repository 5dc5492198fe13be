// Package mempool maintains the fee prioritized pool of transactions
// waiting to be mined.
package mempool

import (
	"sort"
	"sync"
	"time"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/database"
)

// Entry wraps a pending transaction with its pool bookkeeping.
type Entry struct {
	Tx          database.Tx
	EntryTime   time.Time
	FeeRate     float64
	Ancestors   int
	Descendants int
	Height      int

	size int
	seq  uint64
}

// Mempool admits pending transactions, evicts by fee rate under capacity
// pressure and builds fee ordered block templates. All operations are
// guarded by the pool's own lock.
type Mempool struct {
	mu       sync.Mutex
	pool     map[string]Entry
	maxBytes int
	curBytes int
	height   int
	seq      uint64

	ev func(v string, args ...any)
}

// New constructs a mempool with the specified byte capacity. The event
// handler may be nil.
func New(maxBytes int, ev func(v string, args ...any)) *Mempool {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	return &Mempool{
		pool:     make(map[string]Entry),
		maxBytes: maxBytes,
		ev:       ev,
	}
}

// Add admits a transaction to the pool. Duplicates are rejected. If the
// pool would exceed its byte cap the lowest fee rate entries are evicted
// first; a transaction bigger than the whole pool is rejected outright so
// the cap always holds.
func (mp *Mempool) Add(tx database.Tx) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID]; exists {
		return false
	}

	size := tx.Size()
	if size > mp.maxBytes {
		mp.ev("mempool: Add: transaction exceeds pool capacity: tx[%.16s] size[%d]", tx.ID, size)
		return false
	}

	if mp.curBytes+size > mp.maxBytes {
		mp.evictLowFeeRate(mp.curBytes + size - mp.maxBytes)
	}

	mp.seq++
	mp.pool[tx.ID] = Entry{
		Tx:        tx,
		EntryTime: time.Now().UTC(),
		FeeRate:   tx.FeeRate(),
		Height:    mp.height,
		size:      size,
		seq:       mp.seq,
	}
	mp.curBytes += size

	mp.ev("mempool: Add: admitted: tx[%.16s] feeRate[%f]", tx.ID, tx.FeeRate())

	return true
}

// Remove drops a transaction from the pool, typically once it has been
// mined into a block.
func (mp *Mempool) Remove(txID string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	entry, exists := mp.pool[txID]
	if !exists {
		return false
	}

	mp.curBytes -= entry.size
	delete(mp.pool, txID)

	return true
}

// Has reports whether the transaction is pending.
func (mp *Mempool) Has(txID string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	_, exists := mp.pool[txID]
	return exists
}

// Get returns the pending transaction for the id.
func (mp *Mempool) Get(txID string) (database.Tx, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	entry, exists := mp.pool[txID]
	return entry.Tx, exists
}

// BlockTemplate selects transactions for the next block: fee rate
// descending, ties broken by insertion order, greedily packing while the
// cumulative weight stays inside maxWeight.
func (mp *Mempool) BlockTemplate(maxWeight int) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	entries := make([]Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FeeRate != entries[j].FeeRate {
			return entries[i].FeeRate > entries[j].FeeRate
		}
		return entries[i].seq < entries[j].seq
	})

	var result []database.Tx
	var weight int
	for _, entry := range entries {
		if weight+entry.size <= maxWeight {
			result = append(result, entry.Tx)
			weight += entry.size
		}
	}

	return result
}

// Count returns the number of pending transactions.
func (mp *Mempool) Count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.pool)
}

// Bytes returns the current pool byte size.
func (mp *Mempool) Bytes() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.curBytes
}

// TotalFee sums the fees of every pending transaction.
func (mp *Mempool) TotalFee() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var total float64
	for _, entry := range mp.pool {
		total += entry.Tx.Fee
	}

	return total
}

// Stats returns pool usage numbers for operational visibility.
func (mp *Mempool) Stats() map[string]float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return map[string]float64{
		"size":       float64(len(mp.pool)),
		"bytes":      float64(mp.curBytes),
		"usage":      float64(mp.curBytes) / float64(mp.maxBytes) * 100,
		"maxmempool": float64(mp.maxBytes),
	}
}

// SetHeight records the chain height new entries are tagged with.
func (mp *Mempool) SetHeight(height int) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.height = height
}

// evictLowFeeRate drops the lowest fee rate entries until the requested
// number of bytes has been freed. Caller must hold the lock.
func (mp *Mempool) evictLowFeeRate(needed int) {
	entries := make([]Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FeeRate != entries[j].FeeRate {
			return entries[i].FeeRate < entries[j].FeeRate
		}
		return entries[i].seq < entries[j].seq
	})

	var freed int
	for _, entry := range entries {
		if freed >= needed {
			break
		}

		freed += entry.size
		mp.curBytes -= entry.size
		delete(mp.pool, entry.Tx.ID)
		mp.ev("mempool: evict: tx[%.16s] feeRate[%f]", entry.Tx.ID, entry.FeeRate)
	}
}
