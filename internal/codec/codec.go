// Package codec implements the erasure-coding collaborator: a pure function
// pair that turns one object into k+m blocks and back, tolerating up to m
// missing blocks. The concrete implementation wraps klauspost/reedsolomon,
// the same systematic Reed-Solomon library used by the erasure-coding
// putjoggers in the retrieval pack's aistore reference files.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Codec is the interface consumed by the read engine and its tests.
// Decode succeeds iff blocks contains at least k valid, distinct shards.
type Codec interface {
	Encode(data []byte) ([][]byte, error)
	Decode(blocks map[int][]byte) ([]byte, error)
	K() int
	M() int
}

const lengthPrefixSize = 8

// reedSolomon is the shipped Codec implementation. Shards are padded to a
// multiple of k data shards; the true length is carried in an 8-byte
// big-endian prefix written ahead of the payload at the start of the data
// shards (spanning more than shard 0 when shards are shorter than 8 bytes) so Decode can
// trim padding without an out-of-band descriptor.
type reedSolomon struct {
	k, m int
	enc  reedsolomon.Encoder
}

// New constructs a Codec for a systematic (k, m) code. k must be > 0 and
// m must be >= 0; k+m must not exceed 256 per the block-index invariant.
func New(k, m int) (Codec, error) {
	if k <= 0 {
		return nil, fmt.Errorf("codec: k must be positive, got %d", k)
	}
	if m < 0 {
		return nil, fmt.Errorf("codec: m must be non-negative, got %d", m)
	}
	if k+m > 256 {
		return nil, fmt.Errorf("codec: k+m must be <= 256, got %d", k+m)
	}
	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, fmt.Errorf("codec: construct reed-solomon(%d,%d): %w", k, m, err)
	}
	return &reedSolomon{k: k, m: m, enc: enc}, nil
}

func (c *reedSolomon) K() int { return c.k }
func (c *reedSolomon) M() int { return c.m }

// Encode splits data into k data shards (prefixed with its true length) and
// computes m parity shards, returning k+m equally-sized shards in index order.
func (c *reedSolomon) Encode(data []byte) ([][]byte, error) {
	prefixed := make([]byte, lengthPrefixSize+len(data))
	binary.BigEndian.PutUint64(prefixed, uint64(len(data)))
	copy(prefixed[lengthPrefixSize:], data)

	shards, err := c.enc.Split(prefixed)
	if err != nil {
		return nil, fmt.Errorf("codec: split: %w", err)
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("codec: encode parity: %w", err)
	}
	return shards, nil
}

// Decode reconstructs the original bytes from a sparse set of shards keyed
// by index. At least k of the k+m shards must be present and the same size.
func (c *reedSolomon) Decode(blocks map[int][]byte) ([]byte, error) {
	present := 0
	var shardSize int
	shards := make([][]byte, c.k+c.m)
	for i, b := range blocks {
		if i < 0 || i >= c.k+c.m {
			return nil, fmt.Errorf("codec: shard index %d out of range", i)
		}
		if shardSize == 0 {
			shardSize = len(b)
		} else if len(b) != shardSize {
			return nil, fmt.Errorf("codec: shard %d has mismatched size %d, want %d", i, len(b), shardSize)
		}
		shards[i] = b
		present++
	}
	if present < c.k {
		return nil, fmt.Errorf("codec: only %d of %d required shards present", present, c.k)
	}

	if err := c.enc.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("codec: reconstruct: %w", err)
	}

	var buf bytes.Buffer
	if err := c.enc.Join(&buf, shards, shardSize*c.k); err != nil {
		return nil, fmt.Errorf("codec: join: %w", err)
	}
	joined := buf.Bytes()
	if len(joined) < lengthPrefixSize {
		return nil, fmt.Errorf("codec: joined output too short")
	}
	n := binary.BigEndian.Uint64(joined[:lengthPrefixSize])
	if lengthPrefixSize+n > uint64(len(joined)) {
		return nil, fmt.Errorf("codec: encoded length %d exceeds joined size", n)
	}
	return joined[lengthPrefixSize : lengthPrefixSize+n], nil
}
