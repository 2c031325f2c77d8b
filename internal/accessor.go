package clusterspectator

//go:generate mockgen -destination=./mock_accessor_test.go -package clusterspectator -source=accessor.go Accessor

import "context"

// Accessor is the read contract this cache consumes from the coordination
// store client. Connection handling, serialization and watch registration
// live behind it; the cache only ever issues the three batched reads below.
type Accessor interface {

	// ChildValuesMap enumerates every record stored directly under path,
	// keyed by record ID. When includeStats is true each record carries its
	// current Stat.
	ChildValuesMap(ctx context.Context, path string, includeStats bool) (map[string]*Record, error)

	// Stats fetches the current stat of every key in one batched call. The
	// result preserves the input order; a nil entry means the key does not
	// currently exist.
	Stats(ctx context.Context, keys []string) ([]*Stat, error)

	// Records fetches the full record of every key in one batched call. The
	// result preserves the input order; a nil entry means the key was
	// removed concurrently.
	Records(ctx context.Context, keys []string, includeStats bool) ([]*Record, error)
}
