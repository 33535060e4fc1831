package testutil

import (
	"fmt"
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"github.com/stretchr/testify/require"
)

// CreateTestValues creates n distinct byte values shaped like transaction records
func CreateTestValues(n int) [][]byte {
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		values[i] = []byte(fmt.Sprintf("tx-%04d", i))
	}
	return values
}

// SeedList appends values to the named list of the test server's group
func SeedList(t *testing.T, group *prooflist.Group[[]byte], name string, values [][]byte) *prooflist.ProofList[[]byte] {
	t.Helper()

	l, err := group.Get(name)
	require.NoError(t, err)
	_, err = l.Extend(values)
	require.NoError(t, err)
	return l
}
