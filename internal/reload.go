package clusterspectator

import (
	"context"
	"reflect"
)

// PropertyAccessor is the slice of the store contract ReloadProperties needs,
// parametrized over the cached metadata type. Both batched calls preserve
// input order and signal missing keys with nil (zero) entries.
type PropertyAccessor[T Property] interface {

	// Stats fetches the current stat for every key; nil entries mean the key
	// does not exist.
	Stats(ctx context.Context, keys []string) ([]*Stat, error)

	// Properties fetches the full value for every key; zero entries mean the
	// key was removed concurrently.
	Properties(ctx context.Context, keys []string, includeStats bool) ([]T, error)
}

// ReloadProperties refreshes a key->value map with the minimum number of
// remote reads: one batched stat lookup over the cached candidates and one
// batched fetch of everything that must be reloaded, regardless of how many
// keys are unchanged.
//
// reloadKeys lists keys with no cached value; they are always fetched.
// cachedKeys lists keys present in cached. A cached value is reused only when
// its key still has a stat, it declares no internal sub-partitioning, and its
// stat equals the freshly fetched one. Bucketed values are always reloaded
// because a stat-equal parent can mask changed buckets.
//
// Keys that vanished between the stat check and the fetch are reported to the
// observer and omitted from the result; callers must treat absence as
// "unknown/removed", not as an error. Only remote call failures return an
// error, leaving the caller to retry with its previous map intact.
func ReloadProperties[T Property](ctx context.Context, accessor PropertyAccessor[T],
	reloadKeys, cachedKeys []string, cached map[string]T, obs Observer) (map[string]T, error) {

	refreshed := make(map[string]T, len(reloadKeys)+len(cachedKeys))

	stats, err := accessor.Stats(ctx, cachedKeys)
	if err != nil {
		return nil, err
	}

	for i, key := range cachedKeys {
		stat := stats[i]
		if stat == nil {
			obs.StatMissing(key)
			reloadKeys = append(reloadKeys, key)
			continue
		}

		property, ok := cached[key]
		if ok && property.GetBucketSize() == 0 && property.GetStat().Equal(*stat) {
			refreshed[key] = property
		} else {
			reloadKeys = append(reloadKeys, key)
		}
	}

	reloaded, err := accessor.Properties(ctx, reloadKeys, true)
	if err != nil {
		return nil, err
	}

	for i, key := range reloadKeys {
		property := reloaded[i]
		if isNilProperty(property) {
			obs.RecordMissing(key)
			continue
		}
		refreshed[key] = property
	}

	return refreshed, nil
}

// NewPropertyAccessor adapts a record-level Accessor into a typed
// PropertyAccessor by wrapping each fetched record, so ReloadProperties can
// be used for any partition type the store serves.
func NewPropertyAccessor[T Property](accessor Accessor, wrap func(*Record) T) PropertyAccessor[T] {
	return &propertyAccessor[T]{accessor: accessor, wrap: wrap}
}

type propertyAccessor[T Property] struct {
	accessor Accessor
	wrap     func(*Record) T
}

func (a *propertyAccessor[T]) Stats(ctx context.Context, keys []string) ([]*Stat, error) {
	return a.accessor.Stats(ctx, keys)
}

func (a *propertyAccessor[T]) Properties(ctx context.Context, keys []string, includeStats bool) ([]T, error) {
	records, err := a.accessor.Records(ctx, keys, includeStats)
	if err != nil {
		return nil, err
	}

	properties := make([]T, len(records))
	for i, record := range records {
		if record != nil {
			properties[i] = a.wrap(record)
		}
	}
	return properties, nil
}

// isNilProperty reports whether a generically typed property is a nil
// pointer. A plain comparison against nil does not catch typed nil values.
func isNilProperty[T Property](p T) bool {
	v := reflect.ValueOf(p)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return false
}
