package ports

import "context"

// Store is the key-value persistence the engine reads and writes opaque JSON records through.
type Store interface {
	// Get returns the value stored under key. found is false when no record exists.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous record (last write wins).
	Set(ctx context.Context, key string, value []byte) error

	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
