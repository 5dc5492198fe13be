package utxo_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/utxo"
)

func TestAddSpend(t *testing.T) {
	set := utxo.New()

	set.Add(utxo.UTXO{TxID: "tx1", Vout: 0, Address: "alice", Amount: 10})
	set.Add(utxo.UTXO{TxID: "tx1", Vout: 1, Address: "bob", Amount: 5})

	require.Equal(t, 2, set.Count())
	require.Equal(t, 10.0, set.Balance("alice"))
	require.Equal(t, 5.0, set.Balance("bob"))

	u, ok := set.Get("tx1", 0)
	require.True(t, ok)
	require.Equal(t, "alice", u.Address)

	require.True(t, set.Spend("tx1", 0))
	require.Equal(t, 0.0, set.Balance("alice"))
	require.Equal(t, 1, set.Count())

	_, ok = set.Get("tx1", 0)
	require.False(t, ok)
}

func TestDoubleSpend(t *testing.T) {
	set := utxo.New()
	set.Add(utxo.UTXO{TxID: "tx1", Vout: 0, Address: "alice", Amount: 10})

	require.True(t, set.Spend("tx1", 0))
	require.False(t, set.Spend("tx1", 0), "an output must never be spendable twice")
	require.False(t, set.Spend("missing", 3))
}

func TestConcurrentSpend(t *testing.T) {
	set := utxo.New()
	set.Add(utxo.UTXO{TxID: "tx1", Vout: 0, Address: "alice", Amount: 10})

	const workers = 16

	var wg sync.WaitGroup
	var mu sync.Mutex
	var spent int

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.Spend("tx1", 0) {
				mu.Lock()
				spent++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, spent, "exactly one concurrent spend may win")
}

func TestAddressUTXOs(t *testing.T) {
	set := utxo.New()
	set.Add(utxo.UTXO{TxID: "tx1", Vout: 0, Address: "alice", Amount: 10})
	set.Add(utxo.UTXO{TxID: "tx2", Vout: 0, Address: "alice", Amount: 7})
	set.Add(utxo.UTXO{TxID: "tx3", Vout: 0, Address: "bob", Amount: 1})

	require.Len(t, set.AddressUTXOs("alice"), 2)
	require.Equal(t, 17.0, set.Balance("alice"))
	require.Nil(t, set.AddressUTXOs("nobody"))
}

func TestValidateInputs(t *testing.T) {
	set := utxo.New()
	set.Add(utxo.UTXO{TxID: "tx1", Vout: 0, Address: "alice", Amount: 10})

	spend := utxo.SpendTx{
		TxID: "tx2",
		Vin:  []utxo.TxInput{{TxID: "tx1", Vout: 0}},
		Vout: []utxo.TxOutput{{Amount: 8, Address: "bob"}},
	}
	require.True(t, set.ValidateInputs(spend), "inputs cover outputs, difference is the fee")

	spend.Vout[0].Amount = 12
	require.False(t, set.ValidateInputs(spend), "outputs exceed inputs")

	spend.Vin[0].TxID = "missing"
	require.False(t, set.ValidateInputs(spend), "missing input")
}

func TestPremine(t *testing.T) {
	set := utxo.NewWithPremine("stealth-addr", 2_000_000)

	require.Equal(t, 1, set.Count())
	require.Equal(t, 2_000_000.0, set.Balance("stealth-addr"))

	utxos := set.AddressUTXOs("stealth-addr")
	require.Len(t, utxos, 1)
	require.True(t, utxos[0].Coinbase)
}
