// Package persistencetest holds the behaviour every IListPersistence
// backend must share.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty backend. The suite closes it.
type Factory func(t *testing.T) persistence.IListPersistence

// Run executes the shared backend suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("LoadMissing", func(t *testing.T) { testLoadMissing(t, newStore(t)) })
	t.Run("ApplyAndLoad", func(t *testing.T) { testApplyAndLoad(t, newStore(t)) })
	t.Run("Deletions", func(t *testing.T) { testDeletions(t, newStore(t)) })
	t.Run("LoadValues", func(t *testing.T) { testLoadValues(t, newStore(t)) })
	t.Run("ListNamesAndDelete", func(t *testing.T) { testListNamesAndDelete(t, newStore(t)) })
	t.Run("Isolation", func(t *testing.T) { testIsolation(t, newStore(t)) })
	t.Run("Close", func(t *testing.T) { testClose(t, newStore(t)) })
	t.Run("ThreadSafety", func(t *testing.T) { testThreadSafety(t, newStore(t)) })
}

func testLoadMissing(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	meta, err := store.LoadMeta("missing")
	require.NoError(t, err)
	assert.Nil(t, meta)

	value, err := store.LoadValue("missing", 0)
	require.NoError(t, err)
	assert.Nil(t, value)

	hash, err := store.LoadNodeHash("missing", merkle.LeafKey(0))
	require.NoError(t, err)
	assert.Nil(t, hash)

	length, err := persistence.LoadLength(store, "missing")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), length)

	names, err := store.ListNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, store.DeleteList("missing"))
}

func testApplyAndLoad(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	h := merkle.NewSHA256Hasher()
	leaf0 := h.HashLeaf([]byte("a"))
	leaf1 := h.HashLeaf([]byte("b"))

	batch := persistence.NewBatch(persistence.ListMeta{Length: 2, Hasher: h.Name(), UpdatedAt: 10})
	batch.PutValue(0, []byte("a"))
	batch.PutValue(1, []byte("b"))
	batch.PutHash(merkle.LeafKey(0), leaf0)
	batch.PutHash(merkle.LeafKey(1), leaf1)
	batch.PutHash(merkle.RootKey(2), h.HashNode(leaf0, &leaf1))
	require.NoError(t, store.ApplyBatch("wallet", batch))

	meta, err := store.LoadMeta("wallet")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, uint64(2), meta.Length)
	assert.Equal(t, h.Name(), meta.Hasher)
	assert.Equal(t, int64(10), meta.UpdatedAt)

	value, err := store.LoadValue("wallet", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), value)

	hash, err := store.LoadNodeHash("wallet", merkle.RootKey(2))
	require.NoError(t, err)
	require.NotNil(t, hash)
	assert.Equal(t, h.HashNode(leaf0, &leaf1), *hash)

	// an empty element is stored, not confused with a missing one
	empty := persistence.NewBatch(persistence.ListMeta{Length: 3, Hasher: h.Name()})
	empty.PutValue(2, []byte{})
	require.NoError(t, store.ApplyBatch("wallet", empty))

	value, err = store.LoadValue("wallet", 2)
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Empty(t, value)

	// loaded values are copies
	value, err = store.LoadValue("wallet", 0)
	require.NoError(t, err)
	value[0] = 'z'
	again, err := store.LoadValue("wallet", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), again)
}

func testDeletions(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	batch := persistence.NewBatch(persistence.ListMeta{Length: 3})
	for i := uint64(0); i < 3; i++ {
		batch.PutValue(i, []byte{byte(i)})
		batch.PutHash(merkle.LeafKey(i), merkle.Hash{byte(i + 1)})
	}
	require.NoError(t, store.ApplyBatch("list", batch))

	shrink := persistence.NewBatch(persistence.ListMeta{Length: 1})
	shrink.DeleteValue(1)
	shrink.DeleteValue(2)
	shrink.DeleteHash(merkle.LeafKey(1))
	shrink.DeleteHash(merkle.LeafKey(2))
	// deleting what isn't there is fine
	shrink.DeleteHash(merkle.ProofListKey{Index: 9, Height: 9})
	require.NoError(t, store.ApplyBatch("list", shrink))

	length, err := persistence.LoadLength(store, "list")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), length)

	value, err := store.LoadValue("list", 2)
	require.NoError(t, err)
	assert.Nil(t, value)

	hash, err := store.LoadNodeHash("list", merkle.LeafKey(1))
	require.NoError(t, err)
	assert.Nil(t, hash)

	hash, err = store.LoadNodeHash("list", merkle.LeafKey(0))
	require.NoError(t, err)
	require.NotNil(t, hash)
	assert.Equal(t, merkle.Hash{1}, *hash)
}

func testLoadValues(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	batch := persistence.NewBatch(persistence.ListMeta{Length: 300})
	for i := uint64(0); i < 300; i++ {
		batch.PutValue(i, []byte(fmt.Sprintf("v%d", i)))
	}
	require.NoError(t, store.ApplyBatch("list", batch))

	values, err := store.LoadValues("list", 250, 260)
	require.NoError(t, err)
	require.Len(t, values, 10)
	for i, v := range values {
		assert.Equal(t, []byte(fmt.Sprintf("v%d", 250+i)), v)
	}

	values, err = store.LoadValues("list", 5, 5)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = store.LoadValues("list", 295, 301)
	require.Error(t, err)

	_, err = store.LoadValues("list", 10, 5)
	require.Error(t, err)
}

func testListNamesAndDelete(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	for _, name := range []string{"b", "a", "c"} {
		batch := persistence.NewBatch(persistence.ListMeta{Length: 1})
		batch.PutValue(0, []byte(name))
		batch.PutHash(merkle.LeafKey(0), merkle.Hash{1})
		require.NoError(t, store.ApplyBatch(name, batch))
	}

	names, err := store.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, store.DeleteList("b"))
	require.NoError(t, store.DeleteList("b"))

	names, err = store.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names)

	meta, err := store.LoadMeta("b")
	require.NoError(t, err)
	assert.Nil(t, meta)

	value, err := store.LoadValue("b", 0)
	require.NoError(t, err)
	assert.Nil(t, value)

	hash, err := store.LoadNodeHash("b", merkle.LeafKey(0))
	require.NoError(t, err)
	assert.Nil(t, hash)
}

// testIsolation checks that lists whose names share a prefix don't overlap
func testIsolation(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	for _, name := range []string{"acct", "acct.1", "acct_1"} {
		batch := persistence.NewBatch(persistence.ListMeta{Length: 1})
		batch.PutValue(0, []byte(name))
		require.NoError(t, store.ApplyBatch(name, batch))
	}

	require.NoError(t, store.DeleteList("acct"))

	for _, name := range []string{"acct.1", "acct_1"} {
		value, err := store.LoadValue(name, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte(name), value)
	}
}

func testClose(t *testing.T, store persistence.IListPersistence) {
	require.NoError(t, store.HealthCheck())

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	require.Error(t, store.HealthCheck())

	_, err := store.LoadMeta("list")
	require.Error(t, err)

	err = store.ApplyBatch("list", persistence.NewBatch(persistence.ListMeta{}))
	require.Error(t, err)
}

func testThreadSafety(t *testing.T, store persistence.IListPersistence) {
	defer func() { _ = store.Close() }()

	const numLists = 8
	const numWrites = 20

	var wg sync.WaitGroup
	for i := 0; i < numLists; i++ {
		wg.Add(1)
		go func(list string) {
			defer wg.Done()
			for j := uint64(0); j < numWrites; j++ {
				batch := persistence.NewBatch(persistence.ListMeta{Length: j + 1})
				batch.PutValue(j, []byte(fmt.Sprintf("%s-%d", list, j)))
				batch.PutHash(merkle.LeafKey(j), merkle.Hash{byte(j)})
				assert.NoError(t, store.ApplyBatch(list, batch))

				_, err := store.LoadNodeHash(list, merkle.LeafKey(j))
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("list%d", i))
	}
	wg.Wait()

	names, err := store.ListNames()
	require.NoError(t, err)
	assert.Len(t, names, numLists)

	for _, name := range names {
		values, err := store.LoadValues(name, 0, numWrites)
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("%s-%d", name, numWrites-1)), values[numWrites-1])
	}
}
