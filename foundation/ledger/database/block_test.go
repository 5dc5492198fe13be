package database_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/database"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/genesis"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/mining"
)

func TestGenesisBlock(t *testing.T) {
	t.Log("Given the need to start each shard chain with a genesis block.")
	{
		t.Log("\tTest 0:\tWhen constructing the block for shard 7.")
		{
			provider, _, _ := newDeps(t)

			block := database.NewGenesisBlock(7, 4, 50, provider)

			if block.PrevHash != "genesis_7" {
				t.Fatalf("\t%s\tTest 0:\tShould carry the genesis previous hash: got %q.", failed, block.PrevHash)
			}
			t.Logf("\t%s\tTest 0:\tShould carry the genesis previous hash.", success)

			if block.MerkleRoot != "genesis_merkle_7" {
				t.Fatalf("\t%s\tTest 0:\tShould carry the genesis merkle root: got %q.", failed, block.MerkleRoot)
			}
			t.Logf("\t%s\tTest 0:\tShould carry the genesis merkle root.", success)

			if !block.Validate(provider) {
				t.Fatalf("\t%s\tTest 0:\tShould validate without proof of work.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould validate without proof of work.", success)

			block.Orphaned = true
			if block.Validate(provider) {
				t.Fatalf("\t%s\tTest 0:\tShould not validate once orphaned.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not validate once orphaned.", success)
		}
	}
}

func TestBlockMine(t *testing.T) {
	t.Log("Given the need to mine and validate a block of transactions.")
	{
		t.Log("\tTest 0:\tWhen mining over a pending transaction.")
		{
			provider, detector, keys := newDeps(t)
			engine := mining.New(genesis.Default(), nil)

			info := database.TxInfo{
				Sender:   "alice",
				Receiver: "bob",
				Amount:   10,
				Fee:      0.1,
				Keys:     keys,
			}
			tx, err := database.NewTx(info, provider, detector, noop)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create a transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to create a transaction.", success)

			block, err := database.NewBlock("prevhash", []database.Tx{tx}, 2, 50, 0, 10_000, provider)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to construct the block.", success)

			if block.MerkleRoot == "" || !strings.Contains(block.MerkleRoot, "_v11_") {
				t.Fatalf("\t%s\tTest 0:\tShould compute a tagged merkle root: got %q.", failed, block.MerkleRoot)
			}
			t.Logf("\t%s\tTest 0:\tShould compute a tagged merkle root.", success)

			if !block.Mine(engine, noop) {
				t.Fatalf("\t%s\tTest 0:\tShould find a proof of work solution.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould find a proof of work solution.", success)

			if !mining.IsHashSolved(block.Difficulty, block.Hash) {
				t.Fatalf("\t%s\tTest 0:\tShould carry a solved hash: %q.", failed, block.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould carry a solved hash.", success)

			if !block.Validate(provider) {
				t.Fatalf("\t%s\tTest 0:\tShould validate after mining.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould validate after mining.", success)

			if got := engine.TotalMinedCoins(); got != 50 {
				t.Fatalf("\t%s\tTest 0:\tShould credit the reward to the supply: got %v.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould credit the reward to the supply.", success)
		}

		t.Log("\tTest 1:\tWhen an unmined block is validated.")
		{
			provider, _, _ := newDeps(t)

			block, err := database.NewBlock("prevhash", nil, 4, 50, 0, 10_000, provider)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct the block: %v", failed, err)
			}

			if block.Validate(provider) {
				t.Fatalf("\t%s\tTest 1:\tShould not validate without proof of work.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not validate without proof of work.", success)
		}
	}
}

func TestBlockTransCap(t *testing.T) {
	t.Log("Given the need to bound the transactions a block can carry.")
	{
		t.Log("\tTest 0:\tWhen constructing past the cap.")
		{
			provider, _, _ := newDeps(t)

			trans := make([]database.Tx, 3)
			if _, err := database.NewBlock("prevhash", trans, 4, 50, 0, 2, provider); !errors.Is(err, database.ErrBlockSize) {
				t.Fatalf("\t%s\tTest 0:\tShould reject an oversized block: got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject an oversized block.", success)
		}
	}
}
