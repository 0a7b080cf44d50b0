// Package db defines the narrow store interfaces the engine and loader
// consume. Implementations live in subpackages; consumers depend only on
// the sub-interface they need.
package db

import (
	"context"
	"time"
)

// Store is the full database facade. The adapter uses DocumentReader, the
// loader uses DocumentWriter; Store exists for the composition root.
type Store interface {
	Pinger
	DocumentReader
	DocumentWriter
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentReader reads raw JSON documents.
type DocumentReader interface {
	// Scan iterates keys matching a pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
	// GetMulti fetches values for keys in one round-trip. Missing keys
	// yield nil entries at their positions.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
}

// SetItem holds one key+value pair for pipelined writes.
type SetItem struct {
	Key   string
	Value []byte
}

// DocumentWriter writes raw JSON documents (dataset loading only; the
// engine itself never writes).
type DocumentWriter interface {
	Set(ctx context.Context, key string, value []byte) error
	SetMulti(ctx context.Context, items []SetItem) error
}
