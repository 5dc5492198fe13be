// Package utxo maintains the set of unspent transaction outputs and the
// balance math derived from it.
package utxo

import (
	"strconv"
	"sync"
)

// UTXO is a single unspent output, keyed by its (txid, vout) outpoint.
type UTXO struct {
	TxID          string  `json:"txid"`
	Vout          int     `json:"vout"`
	Address       string  `json:"address"`
	Amount        float64 `json:"amount"`
	ScriptPubKey  string  `json:"script_pub_key"`
	BlockHeight   int64   `json:"block_height"`
	Coinbase      bool    `json:"coinbase"`
	Confirmations int     `json:"confirmations"`
}

// TxInput references an output being spent.
type TxInput struct {
	TxID     string `json:"txid"`
	Vout     int    `json:"vout"`
	Sig      string `json:"sig"`
	Sequence uint32 `json:"sequence"`
}

// TxOutput declares value being created.
type TxOutput struct {
	Amount  float64 `json:"amount"`
	Address string  `json:"address"`
}

// SpendTx is the input/output view of a transaction the set validates.
type SpendTx struct {
	TxID string     `json:"txid"`
	Vin  []TxInput  `json:"vin"`
	Vout []TxOutput `json:"vout"`
}

// Set tracks unspent outputs under a single lock. An output that has been
// spent is removed from both indexes in the same critical section and can
// never be observed or spent again.
type Set struct {
	mu        sync.Mutex
	utxos     map[string]UTXO
	byAddress map[string]map[string]struct{}
}

// New constructs an empty set.
func New() *Set {
	return &Set{
		utxos:     make(map[string]UTXO),
		byAddress: make(map[string]map[string]struct{}),
	}
}

// NewWithPremine constructs a set seeded with a premined coinbase
// outpoint for the specified address.
func NewWithPremine(address string, amount float64) *Set {
	s := New()

	s.Add(UTXO{
		TxID:          "genesis_coinbase_000000000000000000000000000000000000",
		Vout:          0,
		Address:       address,
		Amount:        amount,
		ScriptPubKey:  "OP_DUP OP_HASH160 <pubKeyHash> OP_EQUALVERIFY OP_CHECKSIG",
		BlockHeight:   0,
		Coinbase:      true,
		Confirmations: 999_999,
	})

	return s
}

// Add records a new unspent output.
func (s *Set) Add(u UTXO) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := outpoint(u.TxID, u.Vout)
	s.utxos[key] = u

	if s.byAddress[u.Address] == nil {
		s.byAddress[u.Address] = make(map[string]struct{})
	}
	s.byAddress[u.Address][key] = struct{}{}
}

// Spend removes the output from the set. Spending a missing or already
// spent output returns false and changes nothing.
func (s *Set) Spend(txID string, vout int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := outpoint(txID, vout)

	u, exists := s.utxos[key]
	if !exists {
		return false
	}

	delete(s.byAddress[u.Address], key)
	if len(s.byAddress[u.Address]) == 0 {
		delete(s.byAddress, u.Address)
	}
	delete(s.utxos, key)

	return true
}

// Get returns the output for the outpoint if it is unspent.
func (s *Set) Get(txID string, vout int) (UTXO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.utxos[outpoint(txID, vout)]
	return u, exists
}

// AddressUTXOs returns every unspent output owned by the address.
func (s *Set) AddressUTXOs(address string) []UTXO {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, exists := s.byAddress[address]
	if !exists {
		return nil
	}

	result := make([]UTXO, 0, len(keys))
	for key := range keys {
		if u, ok := s.utxos[key]; ok {
			result = append(result, u)
		}
	}

	return result
}

// Balance sums the unspent outputs owned by the address.
func (s *Set) Balance(address string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance float64
	for key := range s.byAddress[address] {
		if u, ok := s.utxos[key]; ok {
			balance += u.Amount
		}
	}

	return balance
}

// ValidateInputs checks that every input references an unspent output and
// that the input sum covers the declared outputs. The difference is the
// implicit fee.
func (s *Set) ValidateInputs(tx SpendTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inputSum float64
	for _, in := range tx.Vin {
		u, exists := s.utxos[outpoint(in.TxID, in.Vout)]
		if !exists {
			return false
		}
		inputSum += u.Amount
	}

	var outputSum float64
	for _, out := range tx.Vout {
		outputSum += out.Amount
	}

	return inputSum >= outputSum
}

// Count returns the number of unspent outputs in the set.
func (s *Set) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.utxos)
}

// outpoint builds the primary index key.
func outpoint(txID string, vout int) string {
	return txID + ":" + strconv.Itoa(vout)
}
