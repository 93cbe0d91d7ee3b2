package codec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := New(4, 2)
	require.NoError(t, err)

	data := make([]byte, 5000)
	rand.New(rand.NewSource(1)).Read(data)

	shards, err := c.Encode(data)
	require.NoError(t, err)
	require.Len(t, shards, 6)

	blocks := map[int][]byte{0: shards[0], 1: shards[1], 2: shards[2], 3: shards[3]}
	out, err := c.Decode(blocks)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, out))
}

func TestDecodeToleratesMParityLosses(t *testing.T) {
	c, err := New(4, 2)
	require.NoError(t, err)

	data := []byte("the quick brown fox jumps over the lazy dog")
	shards, err := c.Encode(data)
	require.NoError(t, err)

	// Use 2 data shards + 2 parity shards: still k=4 distinct shards.
	blocks := map[int][]byte{0: shards[0], 1: shards[1], 4: shards[4], 5: shards[5]}
	out, err := c.Decode(blocks)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestDecodeFailsBelowQuorum(t *testing.T) {
	c, err := New(4, 2)
	require.NoError(t, err)

	data := []byte("short")
	shards, err := c.Encode(data)
	require.NoError(t, err)

	blocks := map[int][]byte{0: shards[0], 1: shards[1], 2: shards[2]}
	_, err = c.Decode(blocks)
	require.Error(t, err)
}

func TestNewRejectsBadParameters(t *testing.T) {
	_, err := New(0, 2)
	require.Error(t, err)
	_, err = New(4, -1)
	require.Error(t, err)
}
