// Package genesis maintains access to the chain parameters.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// Genesis represents the parameters the chain is created with. These values
// never change for the life of the chain.
type Genesis struct {
	Date            time.Time `json:"date"`
	ChainID         uint16    `json:"chain_id"`          // Unique id for this running instance.
	ActiveShards    int       `json:"active_shards"`     // Number of shards receiving a genesis block.
	MaxShards       int       `json:"max_shards"`        // Upper bound on shard identifiers.
	Difficulty      int       `json:"difficulty"`        // Number of leading 0's needed to solve the work problem.
	MinDifficulty   int       `json:"min_difficulty"`    // Floor for difficulty adjustment.
	MaxDifficulty   int       `json:"max_difficulty"`    // Ceiling for difficulty adjustment.
	InitialReward   float64   `json:"initial_reward"`    // Reward for mining a block before any halving.
	MinReward       float64   `json:"min_reward"`        // Reward never halves below this value.
	HalvingInterval uint64    `json:"halving_interval"`  // Blocks between reward halvings.
	MaxMinableCoins float64   `json:"max_minable_coins"` // Hard supply cap for mined coins.
	PreminedCoins   float64   `json:"premined_coins"`    // Hidden founder allocation.
	MinimumPrice    float64   `json:"minimum_price"`     // Coin price can never be computed below this.
	TransPerBlock   int       `json:"trans_per_block"`   // The maximum number of transactions in a block.
	MaxNonceTries   int       `json:"max_nonce_tries"`   // Attempt budget for the nonce search.
	RequiredSigs    int       `json:"required_sigs"`     // Co-signature threshold for a transaction.
	TxTTL           int64     `json:"tx_ttl"`            // Seconds a transaction stays valid.
	MempoolMaxBytes int       `json:"mempool_max_bytes"` // Byte cap for the pending pool.
	BackupPath      string    `json:"backup_path"`       // Directory for encrypted block backups.
}

// Default returns the parameters the chain ships with. These match the
// published economics: 3M supply cap, 2M premine, 210000-block halvings.
func Default() Genesis {
	return Genesis{
		Date:            time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:         7,
		ActiveShards:    16,
		MaxShards:       2048,
		Difficulty:      4,
		MinDifficulty:   1,
		MaxDifficulty:   512,
		InitialReward:   50.0,
		MinReward:       0.0005,
		HalvingInterval: 210_000,
		MaxMinableCoins: 3_000_000.0,
		PreminedCoins:   2_000_000.0,
		MinimumPrice:    600_000.0,
		TransPerBlock:   10_000,
		MaxNonceTries:   10_000_000,
		RequiredSigs:    10,
		TxTTL:           86_400,
		MempoolMaxBytes: 300 * 1_000_000,
		BackupPath:      "zblock/backups",
	}
}

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
