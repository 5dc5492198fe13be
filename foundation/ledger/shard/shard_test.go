package shard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumpulse/quantumpulse/foundation/ledger/shard"
)

func TestAssign(t *testing.T) {
	router, err := shard.New(16, 2048, nil)
	require.NoError(t, err)

	// An explicit in-range request is honored and recorded.
	require.Equal(t, 5, router.Assign("tx-abc", 5))
	require.Equal(t, 5, router.ShardFor("tx-abc"))

	// An out-of-range request falls back to the hash-modulo rule.
	effective := router.Assign("tx-def", 9_999)
	require.GreaterOrEqual(t, effective, 0)
	require.Less(t, effective, 16)
	require.Equal(t, effective, router.ShardFor("tx-def"))

	negative := router.Assign("tx-ghi", -1)
	require.GreaterOrEqual(t, negative, 0)
	require.Less(t, negative, 16)

	require.Equal(t, 3, router.AssignmentCount())
}

func TestShardForDeterministic(t *testing.T) {
	router, err := shard.New(16, 2048, nil)
	require.NoError(t, err)

	// Unrecorded ids always compute the same shard.
	first := router.ShardFor("never-assigned")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, router.ShardFor("never-assigned"))
	}

	// Recording an id with a fallback request matches the computed value.
	require.Equal(t, first, router.Assign("never-assigned", -1))
}

func TestValidate(t *testing.T) {
	router, err := shard.New(16, 2048, nil)
	require.NoError(t, err)

	require.True(t, router.Validate(0))
	require.True(t, router.Validate(15))
	require.False(t, router.Validate(16))
	require.False(t, router.Validate(-1))

	require.Equal(t, 16, router.ShardCount())
	require.Equal(t, 2048, router.MaxShards())
}
