package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/crypto"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/mining"
)

// GenesisPrefix identifies the previous-hash a genesis block is
// constructed with. Blocks carrying it are exempt from the POW check.
const GenesisPrefix = "genesis_"

// ErrBlockSize is returned when a block would exceed the transaction cap.
var ErrBlockSize = errors.New("block transaction limit exceeded")

// Miner is the subset of the mining engine a block needs to mine itself.
type Miner interface {
	CheckMiningLimit() bool
	MineBlock(data string, difficulty int, shardID int) (nonce int, hash string, ok bool)
	AddMinedCoins(amount float64)
}

// Block represents a group of transactions batched together with the
// proof of work metadata.
type Block struct {
	PrevHash   string  `json:"prev_hash"`
	Hash       string  `json:"hash"`
	MerkleRoot string  `json:"merkle_root"`
	TimeStamp  int64   `json:"timestamp"`
	Nonce      int     `json:"nonce"`
	Difficulty int     `json:"difficulty"`
	Reward     float64 `json:"reward"`
	Trans      []Tx    `json:"trans"`
	ShardID    int     `json:"shard_id"`
	Orphaned   bool    `json:"orphaned"`
}

// NewBlock constructs a block over the specified transactions, computing
// the merkle root and enforcing the transaction cap.
func NewBlock(prevHash string, trans []Tx, difficulty int, reward float64, shardID int, maxTrans int, provider crypto.Provider) (Block, error) {
	if len(trans) > maxTrans {
		return Block{}, fmt.Errorf("%w: got %d, cap %d", ErrBlockSize, len(trans), maxTrans)
	}

	b := Block{
		PrevHash:   prevHash,
		MerkleRoot: merkleRoot(trans, shardID, provider),
		TimeStamp:  time.Now().UTC().Unix(),
		Difficulty: difficulty,
		Reward:     reward,
		Trans:      trans,
		ShardID:    shardID,
	}

	return b, nil
}

// NewGenesisBlock constructs the block a shard's chain starts with. Genesis
// blocks are valid by construction and never mined.
func NewGenesisBlock(shardID int, difficulty int, reward float64, provider crypto.Provider) Block {
	seed := GenesisPrefix + strconv.Itoa(shardID)

	return Block{
		PrevHash:   seed,
		Hash:       provider.Hash(seed, shardID),
		MerkleRoot: "genesis_merkle_" + strconv.Itoa(shardID),
		TimeStamp:  time.Now().UTC().Unix(),
		Difficulty: difficulty,
		Reward:     reward,
		ShardID:    shardID,
	}
}

// Mine performs the proof of work search for this block. A failed search
// is a normal outcome reported with false. On success the reward is
// credited to the engine's supply counter.
func (b *Block) Mine(engine Miner, ev func(v string, args ...any)) bool {
	if !engine.CheckMiningLimit() {
		return false
	}

	data := b.PrevHash + b.MerkleRoot + strconv.FormatInt(b.TimeStamp, 10)

	nonce, hash, ok := engine.MineBlock(data, b.Difficulty, b.ShardID)
	if !ok {
		return false
	}

	b.Nonce = nonce
	b.Hash = hash
	engine.AddMinedCoins(b.Reward)
	ev("database: Mine: block mined: blk[%.16s] shard[%d]", b.Hash, b.ShardID)

	return true
}

// Validate checks the block can be included in the chain. Genesis blocks
// are valid unless orphaned; every other block must carry a solved hash
// and only transactions that independently verify.
func (b Block) Validate(provider crypto.Provider) bool {
	if strings.HasPrefix(b.PrevHash, GenesisPrefix) {
		return !b.Orphaned
	}

	if !mining.IsHashSolved(b.Difficulty, b.Hash) {
		return false
	}

	for _, tx := range b.Trans {
		if !tx.Verify(provider) {
			return false
		}
	}

	return !b.Orphaned
}

// Serialize returns the JSON encoding of the block, used for the backup
// artifact.
func (b Block) Serialize() string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}

	return string(data)
}

// merkleRoot hashes the concatenated serialized transactions. An empty
// block still produces a root over the empty concatenation seed.
func merkleRoot(trans []Tx, shardID int, provider crypto.Provider) string {
	var sb strings.Builder
	for _, tx := range trans {
		sb.WriteString(tx.Serialize())
	}

	data := sb.String()
	if data == "" {
		data = "empty_" + strconv.Itoa(shardID)
	}

	return provider.Hash(data, shardID)
}
