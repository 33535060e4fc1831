package prooflist

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testStores(t *testing.T) map[string]func(t *testing.T) persistence.IListPersistence {
	return map[string]func(t *testing.T) persistence.IListPersistence{
		"memory": func(t *testing.T) persistence.IListPersistence {
			return memory.NewMemoryPersistence()
		},
		"badger": func(t *testing.T) persistence.IListPersistence {
			testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
			bp, err := badger.NewBadgerPersistence(t.TempDir(), testLogger)
			require.NoError(t, err)
			return bp
		},
	}
}

func newStringList(t *testing.T, store persistence.IListPersistence) *ProofList[string] {
	t.Helper()
	l, err := New("history", store, codec.String(), merkle.NewSHA256Hasher(), zap.NewNop())
	require.NoError(t, err)
	return l
}

// requireMatchesTree compares the stored list with a tree built from scratch
// over the expected elements, node by node
func requireMatchesTree(t *testing.T, store persistence.IListPersistence, l *ProofList[string], expected []string, maxLength uint64) {
	t.Helper()

	values := make([][]byte, len(expected))
	for i, v := range expected {
		values[i] = []byte(v)
	}
	tree := merkle.NewTree(l.Hasher(), values)

	require.Equal(t, tree.Length(), l.Len())

	info, err := l.Info()
	require.NoError(t, err)
	require.Equal(t, tree.MerkleRoot(), info.MerkleRoot)
	require.Equal(t, tree.ListHash(), info.ListHash)
	require.Equal(t, tree.Height(), info.Height)

	for h := uint32(1); h <= merkle.TreeHeight(maxLength); h++ {
		for index := uint64(0); index < merkle.LevelWidth(maxLength, h); index++ {
			key := merkle.ProofListKey{Index: index, Height: h}
			stored, err := store.LoadNodeHash(l.Name(), key)
			require.NoError(t, err)

			if !key.Contains(tree.Length()) {
				require.Nil(t, stored, "stale node %s at length %d", key, tree.Length())
				continue
			}
			want, err := tree.NodeHash(key)
			require.NoError(t, err)
			require.NotNil(t, stored, "missing node %s", key)
			require.Equal(t, want, *stored, "node %s", key)
		}
	}

	got, err := l.Values()
	require.NoError(t, err)
	require.Equal(t, len(expected), len(got))
	for i := range expected {
		require.Equal(t, expected[i], got[i])
	}
}

func TestProofList_MatchesTree(t *testing.T) {
	for name, newStore := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer func() { _ = store.Close() }()
			l := newStringList(t, store)

			var expected []string
			var maxLength uint64
			track := func() {
				if uint64(len(expected)) > maxLength {
					maxLength = uint64(len(expected))
				}
			}

			requireMatchesTree(t, store, l, expected, 1)

			for i := 0; i < 17; i++ {
				v := fmt.Sprintf("tx-%d", i)
				index, err := l.Push(v)
				require.NoError(t, err)
				require.Equal(t, uint64(i), index)
				expected = append(expected, v)
				track()
				requireMatchesTree(t, store, l, expected, maxLength)
			}

			require.NoError(t, l.Set(0, "first"))
			require.NoError(t, l.Set(16, "last"))
			require.NoError(t, l.Set(7, "middle"))
			expected[0], expected[16], expected[7] = "first", "last", "middle"
			requireMatchesTree(t, store, l, expected, maxLength)

			for _, n := range []uint64{16, 9, 8, 5, 1} {
				require.NoError(t, l.Truncate(n))
				expected = expected[:n]
				requireMatchesTree(t, store, l, expected, maxLength)
			}

			first, err := l.Extend([]string{"a", "b", "c", "d", "e", "f", "g"})
			require.NoError(t, err)
			require.Equal(t, uint64(1), first)
			expected = append(expected, "a", "b", "c", "d", "e", "f", "g")
			track()
			requireMatchesTree(t, store, l, expected, maxLength)

			v, ok, err := l.Pop()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "g", v)
			expected = expected[:len(expected)-1]
			requireMatchesTree(t, store, l, expected, maxLength)

			require.NoError(t, l.Clear())
			expected = nil
			requireMatchesTree(t, store, l, expected, maxLength)

			root, err := l.MerkleRoot()
			require.NoError(t, err)
			require.True(t, root.IsZero())

			listHash, err := l.ListHash()
			require.NoError(t, err)
			require.Equal(t, merkle.EmptyListHash(l.Hasher()), listHash)
		})
	}
}

// TestProofList_RandomOperations cross-checks a random operation sequence
// against a plain slice
func TestProofList_RandomOperations(t *testing.T) {
	store := memory.NewMemoryPersistence()
	l := newStringList(t, store)
	rng := rand.New(rand.NewSource(7))

	var expected []string
	for step := 0; step < 200; step++ {
		switch op := rng.Intn(10); {
		case op < 5:
			v := fmt.Sprintf("push-%d", step)
			_, err := l.Push(v)
			require.NoError(t, err)
			expected = append(expected, v)
		case op < 7 && len(expected) > 0:
			i := rng.Intn(len(expected))
			v := fmt.Sprintf("set-%d", step)
			require.NoError(t, l.Set(uint64(i), v))
			expected[i] = v
		case op < 8:
			batch := []string{fmt.Sprintf("x-%d", step), fmt.Sprintf("y-%d", step)}
			_, err := l.Extend(batch)
			require.NoError(t, err)
			expected = append(expected, batch...)
		case len(expected) > 0:
			n := rng.Intn(len(expected))
			require.NoError(t, l.Truncate(uint64(n)))
			expected = expected[:n]
		}
		requireMatchesTree(t, store, l, expected, 64)
	}
}

func TestProofList_Proofs(t *testing.T) {
	store := memory.NewMemoryPersistence()
	l := newStringList(t, store)

	for i := 0; i < 11; i++ {
		_, err := l.Push(fmt.Sprintf("tx-%d", i))
		require.NoError(t, err)
	}

	listHash, err := l.ListHash()
	require.NoError(t, err)

	proof, err := l.GetProof(9, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 3, 9}, proof.Indices())

	values, err := VerifyAs(l.Hasher(), codec.String(), proof, listHash)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{2: "tx-2", 3: "tx-3", 9: "tx-9"}, values)

	rangeProof, err := l.GetRangeProof(4, 8)
	require.NoError(t, err)
	_, err = merkle.Verify(l.Hasher(), rangeProof, listHash)
	require.NoError(t, err)

	_, err = l.GetProof(11)
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)

	// a proof taken before a push no longer verifies against the new hash
	_, err = l.Push("tx-11")
	require.NoError(t, err)
	newHash, err := l.ListHash()
	require.NoError(t, err)
	_, err = merkle.Verify(l.Hasher(), proof, newHash)
	require.ErrorIs(t, err, merkle.ErrRootMismatch)
}

func TestProofList_Accessors(t *testing.T) {
	l := newStringList(t, memory.NewMemoryPersistence())

	require.True(t, l.IsEmpty())
	_, ok, err := l.Last()
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = l.Pop()
	require.NoError(t, err)
	require.False(t, ok)

	_, err = l.Get(0)
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)
	require.ErrorIs(t, l.Set(0, "x"), merkle.ErrIndexOutOfRange)

	_, err = l.Extend([]string{"a", "b", "c"})
	require.NoError(t, err)

	v, err := l.Get(1)
	require.NoError(t, err)
	require.Equal(t, "b", v)

	last, ok, err := l.Last()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c", last)

	r, err := l.Range(1, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, r)

	r, err = l.Range(5, 10)
	require.NoError(t, err)
	require.Empty(t, r)

	first, err := l.Extend(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3), first)

	// truncating to a longer length changes nothing
	require.NoError(t, l.Truncate(10))
	require.Equal(t, uint64(3), l.Len())
}

func TestProofList_Reopen(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	dir := t.TempDir()

	store, err := badger.NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)

	l, err := New("wallet", store, codec.Uint64(), merkle.NewKeccak256Hasher(), testLogger)
	require.NoError(t, err)
	_, err = l.Extend([]uint64{10, 20, 30})
	require.NoError(t, err)
	before, err := l.ListHash()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = badger.NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	reopened, err := New("wallet", store, codec.Uint64(), merkle.NewKeccak256Hasher(), testLogger)
	require.NoError(t, err)
	require.Equal(t, uint64(3), reopened.Len())

	after, err := reopened.ListHash()
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = New("wallet", store, codec.Uint64(), merkle.NewSHA256Hasher(), testLogger)
	require.ErrorIs(t, err, ErrHasherMismatch)
}

func TestProofList_CorruptedStore(t *testing.T) {
	store := memory.NewMemoryPersistence()
	l := newStringList(t, store)
	_, err := l.Extend([]string{"a", "b", "c"})
	require.NoError(t, err)

	broken := persistence.NewBatch(persistence.ListMeta{Length: 3, Hasher: merkle.HasherSHA256})
	broken.DeleteHash(merkle.RootKey(3))
	require.NoError(t, store.ApplyBatch("history", broken))

	_, err = l.ListHash()
	require.ErrorIs(t, err, ErrCorrupted)

	_, err = l.GetProof()
	require.ErrorIs(t, err, ErrCorrupted)
}

func TestProofList_ConcurrentReadersAndWriter(t *testing.T) {
	store := memory.NewMemoryPersistence()
	l := newStringList(t, store)
	_, err := l.Push("genesis")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, err := l.Push(fmt.Sprintf("tx-%d", i))
			assert.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				info, err := l.Info()
				if !assert.NoError(t, err) {
					return
				}
				proof, err := l.GetProof(0)
				if !assert.NoError(t, err) {
					return
				}
				// the proof and the info may come from different lengths;
				// only a matching snapshot must verify
				if proof.Length == info.Length {
					_, err = merkle.Verify(l.Hasher(), proof, info.ListHash)
					assert.NoError(t, err)
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(101), l.Len())
}

func TestNew_InvalidName(t *testing.T) {
	for _, name := range []string{"", "a:b", "has space", string(make([]byte, 129))} {
		_, err := New(name, memory.NewMemoryPersistence(), codec.String(), merkle.NewSHA256Hasher(), zap.NewNop())
		require.ErrorIs(t, err, ErrInvalidListName)
	}
}
