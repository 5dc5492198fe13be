package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/genesis"
)

func TestDefault(t *testing.T) {
	g := genesis.Default()

	require.Equal(t, 16, g.ActiveShards)
	require.Equal(t, 2048, g.MaxShards)
	require.Equal(t, 4, g.Difficulty)
	require.Equal(t, 50.0, g.InitialReward)
	require.Equal(t, 0.0005, g.MinReward)
	require.Equal(t, uint64(210_000), g.HalvingInterval)
	require.Equal(t, 3_000_000.0, g.MaxMinableCoins)
	require.Equal(t, 2_000_000.0, g.PreminedCoins)
	require.Equal(t, 600_000.0, g.MinimumPrice)
	require.Equal(t, 10_000, g.TransPerBlock)
	require.Equal(t, 10_000_000, g.MaxNonceTries)
	require.Equal(t, 10, g.RequiredSigs)
	require.Equal(t, int64(86_400), g.TxTTL)
	require.Equal(t, 300*1_000_000, g.MempoolMaxBytes)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"difficulty": 2, "active_shards": 4}`), 0600))

	g, err := genesis.Load(path)
	require.NoError(t, err)

	// Overridden fields take effect, the rest keep their defaults.
	require.Equal(t, 2, g.Difficulty)
	require.Equal(t, 4, g.ActiveShards)
	require.Equal(t, 50.0, g.InitialReward)

	_, err = genesis.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
