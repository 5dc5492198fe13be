// Package ledger is the core API for the chain and implements all the
// business rules and processing: block admission, balance accounting
// across the public and hidden stores, mining orchestration and the
// economic invariants.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/anomaly"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/crypto"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/database"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/genesis"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/mempool"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/mining"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/shard"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/storage"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/utxo"
)

// EventHandler defines a function that is called when events occur in the
// processing of ledger operations.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct the ledger.
type Config struct {
	Genesis   genesis.Genesis
	Provider  crypto.Provider
	Detector  anomaly.Detector
	Log       *zap.SugaredLogger
	BackupDir string
	EvHandler EventHandler
}

// Ledger owns the canonical chain state: the ordered sequence of blocks,
// the public and hidden balance stores and the capped mined-coin counter.
// Reads take the shared lock; every mutating operation takes the exclusive
// lock plus a named reentrancy guard.
type Ledger struct {
	mu    sync.RWMutex
	chain []database.Block

	balances       map[string]float64
	hiddenBalances map[string]float64
	founderStealth string
	founderKeys    crypto.KeyPair

	genesis  genesis.Genesis
	provider crypto.Provider
	detector anomaly.Detector
	engine   *mining.Engine
	mempool  *mempool.Mempool
	utxos    *utxo.Set
	router   *shard.Router
	archive  *storage.Archive

	minedCoins *mining.SupplyCounter
	guards     *guardSet
	ev         EventHandler
}

// New constructs the ledger with one genesis block per active shard and
// the hidden premined founder allocation.
func New(cfg Config) (*Ledger, error) {
	ev := func(v string, args ...any) {
		switch {
		case cfg.EvHandler != nil:
			cfg.EvHandler(v, args...)
		case cfg.Log != nil:
			cfg.Log.Infof(v, args...)
		}
	}

	g := cfg.Genesis
	if g.ActiveShards == 0 {
		g = genesis.Default()
	}

	provider := cfg.Provider
	if provider == nil {
		var err error
		if provider, err = crypto.New(); err != nil {
			return nil, fmt.Errorf("constructing crypto provider: %w", err)
		}
	}

	detector := cfg.Detector
	if detector == nil {
		log := cfg.Log
		if log == nil {
			log = zap.NewNop().Sugar()
		}
		detector = anomaly.NewHeuristic(log)
	}

	router, err := shard.New(g.ActiveShards, g.MaxShards, ev)
	if err != nil {
		return nil, fmt.Errorf("constructing shard router: %w", err)
	}

	var archive *storage.Archive
	if cfg.BackupDir != "" {
		if archive, err = storage.New(cfg.BackupDir, provider); err != nil {
			return nil, fmt.Errorf("constructing block archive: %w", err)
		}
	}

	l := Ledger{
		balances:       make(map[string]float64),
		hiddenBalances: make(map[string]float64),
		genesis:        g,
		provider:       provider,
		detector:       detector,
		engine:         mining.New(g, ev),
		mempool:        mempool.New(g.MempoolMaxBytes, ev),
		router:         router,
		archive:        archive,
		minedCoins:     mining.NewSupplyCounter(g.MaxMinableCoins),
		guards:         newGuardSet(ev, opAddBlock, opTransfer),
		ev:             ev,
	}

	for i := 0; i < g.ActiveShards; i++ {
		l.chain = append(l.chain, database.NewGenesisBlock(i, g.Difficulty, g.InitialReward, provider))
	}

	if err := l.initPreminedAccounts(); err != nil {
		return nil, err
	}

	l.utxos = utxo.NewWithPremine(l.founderStealth, g.PreminedCoins)

	ev("ledger: New: initialized with %d genesis blocks and %.0f premined coins", len(l.chain), g.PreminedCoins)

	return &l, nil
}

// initPreminedAccounts derives the founder stealth address and seeds the
// hidden balance store. The address never appears in public queries.
func (l *Ledger) initPreminedAccounts() error {
	keys, err := l.provider.GenerateKeyPair(0)
	if err != nil {
		return fmt.Errorf("generating founder keys: %w", err)
	}

	stealth := l.provider.Hash(keys.PublicKey+"_stealth_founder", 0)
	if stealth == "" {
		return fmt.Errorf("deriving founder stealth address")
	}

	l.founderKeys = keys
	l.founderStealth = stealth
	l.hiddenBalances[stealth] = l.genesis.PreminedCoins

	l.ev("ledger: stealth founder account initialized (hidden)")

	return nil
}

// AddBlock validates the block and appends it to the chain, crediting the
// reward to the capped mined-coin counter. Validation failure is a soft
// false; a detected re-entry aborts with ErrReentrancy and no state
// change.
func (l *Ledger) AddBlock(block database.Block) (bool, error) {
	release, err := l.guards.enter(opAddBlock, block.ShardID)
	if err != nil {
		return false, err
	}
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !block.Validate(l.provider) {
		l.ev("ledger: AddBlock: block validation failed: shard[%d]", block.ShardID)
		return false, nil
	}

	height := int64(len(l.chain))
	for i := range block.Trans {
		block.Trans[i].Status = database.StatusConfirmed
		block.Trans[i].Confirmations = 1

		l.utxos.Add(utxo.UTXO{
			TxID:          block.Trans[i].ID,
			Vout:          0,
			Address:       block.Trans[i].Receiver,
			Amount:        block.Trans[i].Amount,
			BlockHeight:   height,
			Confirmations: 1,
		})
	}

	l.chain = append(l.chain, block)
	l.minedCoins.Add(block.Reward)

	if l.archive != nil {
		if err := l.archive.WriteBlock(block); err != nil {
			l.ev("ledger: AddBlock: backup write failed: %v", err)
		}
	}

	l.ev("ledger: AddBlock: added block: blk[%.16s] shard[%d]", block.Hash, block.ShardID)

	return true, nil
}

// ValidateChain validates every block from index 1 onward. It never
// mutates state and reports the first failure.
func (l *Ledger) ValidateChain() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 1; i < len(l.chain); i++ {
		if !l.chain[i].Validate(l.provider) {
			l.ev("ledger: ValidateChain: validation failed at block %d", i)
			return false
		}
	}

	l.ev("ledger: ValidateChain: passed for %d blocks", len(l.chain))

	return true
}

// CreateTransaction builds and validates a transaction, assigns it to a
// shard and returns it ready for mempool submission.
func (l *Ledger) CreateTransaction(sender string, receiver string, amount float64, fee float64, keys crypto.KeyPair, shardID int) (database.Tx, error) {
	info := database.TxInfo{
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
		Fee:      fee,
		Keys:     keys,
		ShardID:  shardID,
		TTL:      time.Duration(l.genesis.TxTTL) * time.Second,
	}

	tx, err := database.NewTx(info, l.provider, l.detector, l.ev)
	if err != nil {
		return database.Tx{}, err
	}

	l.router.Assign(tx.ID, shardID)
	l.ev("ledger: CreateTransaction: created: tx[%.16s]", tx.ID)

	return tx, nil
}

// SubmitTransaction verifies a transaction and admits it to the mempool.
func (l *Ledger) SubmitTransaction(tx database.Tx) bool {
	if !tx.Verify(l.provider) {
		l.ev("ledger: SubmitTransaction: verification failed: tx[%.16s]", tx.ID)
		return false
	}

	return l.mempool.Add(tx)
}

// MineBlock selects a fee ordered batch from the mempool, mines a block
// over it and appends it to the chain. The nonce search runs without any
// ledger lock held; only the final append takes the exclusive lock.
func (l *Ledger) MineBlock(shardID int, maxWeight int) (database.Block, bool, error) {
	if !l.engine.CheckMiningLimit() {
		return database.Block{}, false, nil
	}

	trans := l.mempool.BlockTemplate(maxWeight)

	l.mu.RLock()
	height := uint64(len(l.chain))
	prevHash := l.chain[len(l.chain)-1].Hash
	l.mu.RUnlock()

	block, err := database.NewBlock(prevHash, trans, l.engine.Difficulty(), l.engine.BlockReward(height), shardID, l.genesis.TransPerBlock, l.provider)
	if err != nil {
		return database.Block{}, false, err
	}

	if !block.Mine(l.engine, func(v string, args ...any) { l.ev(v, args...) }) {
		return database.Block{}, false, nil
	}

	added, err := l.AddBlock(block)
	if err != nil || !added {
		return database.Block{}, added, err
	}

	for _, tx := range block.Trans {
		l.mempool.Remove(tx.ID)
	}
	l.mempool.SetHeight(int(height))

	return block, true, nil
}

// CheckMiningLimit reports whether coins can still be mined.
func (l *Ledger) CheckMiningLimit() bool {
	if l.minedCoins.Exhausted() {
		l.ev("ledger: CheckMiningLimit: all minable coins have been mined")
		return false
	}

	return true
}

// CalculateBlockReward returns the halving based reward for a height.
func (l *Ledger) CalculateBlockReward(height uint64) float64 {
	return l.engine.BlockReward(height)
}

// TotalMinedCoins returns the mined supply in whole coins, capped at the
// configured maximum.
func (l *Ledger) TotalMinedCoins() float64 {
	return l.minedCoins.Total()
}

// ChainLength returns the number of blocks in the chain.
func (l *Ledger) ChainLength() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.chain)
}

// Audit logs the circulating supply under the shared lock.
func (l *Ledger) Audit() {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := l.minedCoins.Total() + l.genesis.PreminedCoins
	l.ev("ledger: Audit: total coins in circulation: %.4f QP", total)
}

// FounderAddress returns the founder stealth address. Consumers of this
// value are expected to guard it; the address never shows up in public
// balance queries without a token.
func (l *Ledger) FounderAddress() string {
	return l.founderStealth
}

// FounderKeys returns the founder key material.
func (l *Ledger) FounderKeys() crypto.KeyPair {
	return l.founderKeys
}

// Genesis returns a copy of the chain parameters.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// Engine returns the mining engine.
func (l *Ledger) Engine() *mining.Engine {
	return l.engine
}

// Mempool returns the pending transaction pool.
func (l *Ledger) Mempool() *mempool.Mempool {
	return l.mempool
}

// UTXOs returns the unspent output set.
func (l *Ledger) UTXOs() *utxo.Set {
	return l.utxos
}

// Router returns the shard router.
func (l *Ledger) Router() *shard.Router {
	return l.router
}
