// Package database contains the transaction and block types that make up
// the chain.
package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/anomaly"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/crypto"
)

// Set of errors the transaction factory can return. Callers that admit user
// input must handle these before a transaction exists.
var (
	ErrMaliciousInput = errors.New("malicious characters detected")
	ErrOverflow       = errors.New("amount or fee overflow")
	ErrMultiSig       = errors.New("multi-signature validation failed")
	ErrDataLeak       = errors.New("data leak detected")
	ErrHashFailure    = errors.New("transaction id could not be computed")
)

// validate holds the settings and caches for validating transaction input.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Status represents the lifecycle state of a transaction.
type Status string

// Set of transaction lifecycle states.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// TxInfo is the input for constructing a transaction.
type TxInfo struct {
	Sender   string  `validate:"required"`
	Receiver string  `validate:"required"`
	Amount   float64 `validate:"required,gt=0"`
	Fee      float64 `validate:"gte=0"`
	Keys     crypto.KeyPair
	ShardID  int
	TTL      time.Duration
}

// Tx is the transactional information between two parties. Values are
// constructed through NewTx and are immutable apart from the lifecycle
// fields Status and Confirmations.
type Tx struct {
	Sender        string   `json:"sender"`
	Receiver      string   `json:"receiver"`
	Amount        float64  `json:"amount"`
	Fee           float64  `json:"fee"`
	TimeStamp     int64    `json:"timestamp"`
	ExpiresAt     int64    `json:"expires_at"`
	ID            string   `json:"tx_id"`
	Signature     string   `json:"signature"`
	Proof         string   `json:"zk_proof"`
	MultiSigs     []string `json:"multi_sigs"`
	ShardID       int      `json:"shard_id"`
	Status        Status   `json:"status"`
	Confirmations int      `json:"confirmations"`
}

// NewTx constructs a transaction from user input, deriving its id,
// signature and proof from the crypto provider. Construction never
// partially succeeds: any validation failure returns before a Tx exists.
func NewTx(info TxInfo, provider crypto.Provider, detector anomaly.Detector, ev func(v string, args ...any)) (Tx, error) {
	if err := validate.Struct(info); err != nil {
		return Tx{}, fmt.Errorf("validating transaction input: %w", err)
	}

	if strings.ContainsAny(info.Sender, ";<") || strings.ContainsAny(info.Receiver, ";<") {
		ev("database: NewTx: malicious characters in transaction input: shard[%d]", info.ShardID)
		return Tx{}, ErrMaliciousInput
	}

	if info.Amount > math.MaxFloat64/2 || info.Fee > math.MaxFloat64/2 {
		return Tx{}, ErrOverflow
	}

	now := time.Now().UTC().Unix()
	ttl := info.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	tx := Tx{
		Sender:    info.Sender,
		Receiver:  info.Receiver,
		Amount:    info.Amount,
		Fee:       info.Fee,
		TimeStamp: now,
		ExpiresAt: now + int64(ttl.Seconds()),
		MultiSigs: info.Keys.MultiSignatures,
		ShardID:   info.ShardID,
		Status:    StatusPending,
	}

	data := tx.hashData()

	tx.ID = provider.Hash(data, info.ShardID)
	if tx.ID == "" {
		return Tx{}, ErrHashFailure
	}

	tx.Signature = provider.Sign(tx.ID, info.Keys.PrivateKey, info.ShardID)
	tx.Proof = provider.GenerateProof(tx.ID, info.ShardID)

	if !provider.ValidateMultiSignature(tx.MultiSigs, info.ShardID) {
		ev("database: NewTx: multi-signature below threshold: tx[%.16s] shard[%d]", tx.ID, info.ShardID)
		return Tx{}, ErrMultiSig
	}

	if detector.PreventDataLeak(data, info.ShardID) {
		return Tx{}, ErrDataLeak
	}
	if detector.DetectAnomaly(data, info.ShardID) {
		ev("database: NewTx: anomaly detected in transaction: tx[%.16s]", tx.ID)
	}

	return tx, nil
}

// Verify re-checks the transaction against the crypto provider: not
// expired, signature valid, proof valid and the co-signature threshold
// still met.
func (tx Tx) Verify(provider crypto.Provider) bool {
	if time.Now().UTC().Unix() > tx.ExpiresAt {
		return false
	}

	if !provider.Verify(tx.ID, tx.Signature, tx.Sender, tx.ShardID) {
		return false
	}

	if !provider.VerifyProof(tx.Proof, tx.ShardID) {
		return false
	}

	return provider.ValidateMultiSignature(tx.MultiSigs, tx.ShardID)
}

// Serialize returns the canonical JSON encoding of the transaction. It is
// the unit the merkle root and the pool byte accounting are computed over.
func (tx Tx) Serialize() string {
	data, err := json.Marshal(tx)
	if err != nil {
		return ""
	}

	return string(data)
}

// Size returns the byte size of the serialized transaction.
func (tx Tx) Size() int {
	return len(tx.Serialize())
}

// VSize returns the virtual size used for fee rate math. Always at least 1
// so a fee rate is well defined.
func (tx Tx) VSize() int {
	if size := tx.Size(); size > 0 {
		return size
	}

	return 1
}

// FeeRate returns the fee per virtual byte.
func (tx Tx) FeeRate() float64 {
	return tx.Fee / float64(tx.VSize())
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%.16s:%s->%s", tx.ID, tx.Sender, tx.Receiver)
}

// hashData assembles the canonical fields the transaction id is derived
// from.
func (tx Tx) hashData() string {
	return tx.Sender + tx.Receiver +
		strconv.FormatFloat(tx.Amount, 'f', 6, 64) +
		strconv.FormatFloat(tx.Fee, 'f', 6, 64) +
		strconv.FormatInt(tx.TimeStamp, 10) +
		strconv.Itoa(tx.ShardID)
}
