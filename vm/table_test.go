package vm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTableSetThenGet(t *testing.T) {
	table := newHashTable()
	table.Set("hello_world", Bool(true))

	value, ok := table.Get("hello_world")
	require.True(t, ok)
	assert.Equal(t, true, value.AsBool())
}

func TestHashTableGetMissingKey(t *testing.T) {
	table := newHashTable()
	_, ok := table.Get("nothing")
	assert.False(t, ok)
}

func TestHashTableDeleteThenGetIsMissing(t *testing.T) {
	table := newHashTable()
	table.Set("a", Real(1))
	require.True(t, table.Delete("a"))

	_, ok := table.Get("a")
	assert.False(t, ok)
}

func TestHashTableDeleteUnknownKeyReturnsFalse(t *testing.T) {
	table := newHashTable()
	assert.False(t, table.Delete("ghost"))
}

func TestHashTableSetOverwritesExistingKey(t *testing.T) {
	table := newHashTable()
	isNew := table.Set("a", Real(1))
	assert.True(t, isNew)

	isNew = table.Set("a", Real(2))
	assert.False(t, isNew)

	value, ok := table.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, value.AsReal())
}

func TestHashTableTombstonePreservesProbeChain(t *testing.T) {
	table := newHashTable()
	// "a" and "i" both start in bucket 5 of the initial 8 slots, so "i"
	// is stored one slot past "a"; deleting "a" would break the chain to
	// "i" without a tombstone.
	table.Set("a", Real(1))
	table.Set("i", Real(2))

	require.True(t, table.Delete("a"))

	value, ok := table.Get("i")
	require.True(t, ok)
	assert.Equal(t, 2.0, value.AsReal())
}

func TestHashTableStressInsertManyUniqueKeys(t *testing.T) {
	table := newHashTable()
	const n = 10000
	for i := 0; i < n; i++ {
		table.Set(fmt.Sprintf("i%d", i), Bool(true))
	}
	for i := 0; i < n; i++ {
		_, ok := table.Get(fmt.Sprintf("i%d", i))
		require.True(t, ok, "key i%d should be retrievable", i)
	}
}

func TestHashTableLoadFactorNeverReachesOne(t *testing.T) {
	table := newHashTable()
	for i := 0; i < 100; i++ {
		table.Set(fmt.Sprintf("k%d", i), Real(float64(i)))
	}
	assert.Less(t, float64(table.count), float64(len(table.entries)))
}

func TestFindEntryDistinguishesHashCollisionByBytes(t *testing.T) {
	entries := make([]tableEntry, 8)
	// Two different keys sharing a hash must not be treated as equal:
	// the table must fall through to the next probe slot rather than
	// reporting a false match.
	const sharedHash = 3
	index := findEntry(entries, sharedHash, "first")
	entries[index] = tableEntry{hasKey: true, hash: sharedHash, key: "first", value: Real(1)}

	secondIndex := findEntry(entries, sharedHash, "second")
	assert.NotEqual(t, index, secondIndex)
}
