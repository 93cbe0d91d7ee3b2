// Package store defines the cache-store and backend-store collaborators
// consumed by the read engine, plus reference and HTTP-backed
// implementations. Interfaces mirror the teacher's storage.Backend contract
// in shape (Get/Put over opaque byte slices) but are narrowed to the minimal
// read-path surface this system actually needs: no Pin/Unpin, no
// peer-awareness, no health reporting baked into the hot path.
package store

import (
	"context"
	"strconv"
)

// Cache is the single-node, colocated cache store. No size or TTL semantics
// are assumed by callers; eviction, if any, is the store's own business.
type Cache interface {
	// Get returns the bytes for key and true on a hit, or (nil, false) on a
	// miss. An error indicates a transient store failure, not a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Backend is a single region's object store. Only Get is needed: the write
// path is an explicit non-goal of this system.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// BlockKey concatenates the object key K with the decimal ASCII index i,
// with no delimiter, per the wire/store keying convention. K must not end
// in a digit; that invariant is the caller's configuration responsibility.
func BlockKey(key string, index int) string {
	return key + strconv.Itoa(index)
}
