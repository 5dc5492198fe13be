package crypto_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/crypto"
)

func TestHash(t *testing.T) {
	m, err := crypto.New()
	require.NoError(t, err)

	hash := m.Hash("some transaction data", 3)
	require.True(t, strings.HasSuffix(hash, crypto.TokenMarker+"3"))

	// 128 hex chars for the sha3-512 digest plus the tag.
	require.Len(t, hash, 128+len(crypto.TokenMarker)+1)

	// Deterministic for the same data and shard.
	require.Equal(t, hash, m.Hash("some transaction data", 3))
	require.NotEqual(t, hash, m.Hash("some transaction data", 4))

	require.Empty(t, m.Hash("", 0))
}

func TestSignVerify(t *testing.T) {
	m, err := crypto.New()
	require.NoError(t, err)

	sig := m.Sign("txid", "privkey", 0)
	require.True(t, strings.HasPrefix(sig, "hmac_v11_"))
	require.True(t, m.Verify("txid", sig, "sender", 0))

	require.Empty(t, m.Sign("", "privkey", 0))
	require.Empty(t, m.Sign("txid", "", 0))

	require.False(t, m.Verify("txid", "garbage", "sender", 0))
	require.False(t, m.Verify("", sig, "sender", 0))
	require.False(t, m.Verify("txid", sig, "", 0))
}

func TestProof(t *testing.T) {
	m, err := crypto.New()
	require.NoError(t, err)

	proof := m.GenerateProof("txid", 2)
	require.True(t, strings.HasPrefix(proof, "zk_proof_v11_"))
	require.True(t, m.VerifyProof(proof, 2))
	require.False(t, m.VerifyProof("not-a-proof", 2))
	require.Empty(t, m.GenerateProof("", 2))
}

func TestMultiSignature(t *testing.T) {
	m, err := crypto.New()
	require.NoError(t, err)

	sigs := make([]string, crypto.RequiredSignatures)
	for i := range sigs {
		sigs[i] = "multisig_0123456789abcdef"
	}
	require.True(t, m.ValidateMultiSignature(sigs, 0))

	require.False(t, m.ValidateMultiSignature(sigs[:crypto.RequiredSignatures-1], 0), "below threshold")

	sigs[3] = "xx"
	require.False(t, m.ValidateMultiSignature(sigs, 0), "malformed entry")
}

func TestEncryptDecrypt(t *testing.T) {
	m, err := crypto.New()
	require.NoError(t, err)

	sealed := m.Encrypt(`{"block":"data"}`, 0)
	require.True(t, strings.HasPrefix(sealed, "xchacha_v11_"))
	require.Equal(t, `{"block":"data"}`, m.Decrypt(sealed, 0))

	require.Empty(t, m.Encrypt("", 0))
	require.Empty(t, m.Decrypt("not-sealed", 0))

	// A different manager holds a different key and cannot open it.
	other, err := crypto.New()
	require.NoError(t, err)
	require.Empty(t, other.Decrypt(sealed, 0))
}

func TestGenerateKeyPair(t *testing.T) {
	m, err := crypto.New()
	require.NoError(t, err)

	keys, err := m.GenerateKeyPair(5)
	require.NoError(t, err)

	require.Contains(t, keys.PublicKey, crypto.TokenMarker)
	require.True(t, strings.HasSuffix(keys.PublicKey, "_shard5"))
	require.Contains(t, keys.PrivateKey, crypto.TokenMarker)
	require.Len(t, keys.MultiSignatures, crypto.RequiredSignatures)
	require.True(t, m.ValidateMultiSignature(keys.MultiSignatures, 5))

	// Fresh key material every call.
	again, err := m.GenerateKeyPair(5)
	require.NoError(t, err)
	require.NotEqual(t, keys.PublicKey, again.PublicKey)
}
