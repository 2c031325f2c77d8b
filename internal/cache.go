package clusterspectator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ClusterDataCache mirrors the basic cluster topology - live instances,
// instance configs and external views - from the coordination store. Watch
// callbacks mark partitions dirty via NotifyDataChange; a single driver calls
// Refresh, which re-fetches only the dirty partitions and swaps each map in
// wholesale. Readers always see a complete map: getters load an atomic
// reference and never block.
//
// Refresh and ClearCache are serialized against each other with a mutex. Two
// concurrent Refresh calls are therefore safe, but the design assumes one
// refresh driver; see RefreshDriver.
type ClusterDataCache struct {
	clusterName string
	keys        KeyBuilder
	dirty       *DirtyFlagTracker
	observer    Observer

	// mu serializes Refresh and ClearCache, both of which replace map
	// references.
	mu sync.Mutex

	liveInstances   atomic.Pointer[map[string]*LiveInstance]
	instanceConfigs atomic.Pointer[map[string]*InstanceConfig]
	externalViews   atomic.Pointer[map[string]*ExternalView]
}

type CacheOption func(*ClusterDataCache)

// WithObserver routes the cache's diagnostics to the given observer instead
// of the default logrus-backed one.
func WithObserver(obs Observer) CacheOption {
	return func(c *ClusterDataCache) {
		c.observer = obs
	}
}

// NewClusterDataCache returns a cache for the named cluster with every
// partition marked dirty, so the first Refresh loads all of them.
func NewClusterDataCache(clusterName string, opts ...CacheOption) *ClusterDataCache {
	c := &ClusterDataCache{
		clusterName: clusterName,
		keys:        KeyBuilder{ClusterName: clusterName},
		dirty:       NewDirtyFlagTracker(),
		observer:    LogObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	storeMap(&c.liveInstances, map[string]*LiveInstance{})
	storeMap(&c.instanceConfigs, map[string]*InstanceConfig{})
	storeMap(&c.externalViews, map[string]*ExternalView{})

	return c
}

// Refresh re-fetches every dirty partition from the store and replaces the
// corresponding map. Partitions whose flag is clear are left untouched, so
// the cost of a refresh is proportional to what changed, not to cluster size.
//
// Each partition's dirty flag is consumed before its fetch: a notification
// arriving while the fetch is in flight re-marks the flag and is handled by
// the next refresh. If a fetch fails the flag is re-marked as well, the
// previously cached map stays visible, and the partition is retried on the
// next refresh; other partitions are unaffected. The returned error reports
// the failed partitions.
//
// Partitions are checked in a fixed order - external views, live instances,
// instance configs - for deterministic diagnostics only.
func (c *ClusterDataCache) Refresh(ctx context.Context, accessor Accessor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.observer.RefreshStart(c.clusterName)
	start := time.Now()
	defer func() {
		c.observer.RefreshEnd(c.clusterName, time.Since(start))
	}()

	var failed []string

	if c.dirty.consumeAndClear(ExternalViewChange) {
		views, err := fetchPartition(ctx, accessor, c.keys.ExternalViews(), NewExternalView)
		if err != nil {
			c.dirty.NotifyDataChange(ExternalViewChange)
			failed = append(failed, ExternalViewChange.String())
		} else {
			swapPartition(c, ExternalViewChange, &c.externalViews, views, start)
		}
	}

	if c.dirty.consumeAndClear(LiveInstanceChange) {
		instances, err := fetchPartition(ctx, accessor, c.keys.LiveInstances(), NewLiveInstance)
		if err != nil {
			c.dirty.NotifyDataChange(LiveInstanceChange)
			failed = append(failed, LiveInstanceChange.String())
		} else {
			swapPartition(c, LiveInstanceChange, &c.liveInstances, instances, start)
		}
	}

	if c.dirty.consumeAndClear(InstanceConfigChange) {
		configs, err := fetchPartition(ctx, accessor, c.keys.InstanceConfigs(), NewInstanceConfig)
		if err != nil {
			c.dirty.NotifyDataChange(InstanceConfigChange)
			failed = append(failed, InstanceConfigChange.String())
		} else {
			swapPartition(c, InstanceConfigChange, &c.instanceConfigs, configs, start)
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("failed to refresh partitions [%s] for cluster '%s'; they remain dirty and will be retried",
			strings.Join(failed, ", "), c.clusterName)
	}

	return nil
}

// ClearCache empties the given partition's map immediately, independent of
// dirty flags. It holds the same lock as Refresh, so the two never race on a
// map replacement.
func (c *ClusterDataCache) ClearCache(changeType ChangeType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch changeType {
	case LiveInstanceChange:
		storeMap(&c.liveInstances, map[string]*LiveInstance{})
	case InstanceConfigChange:
		storeMap(&c.instanceConfigs, map[string]*InstanceConfig{})
	case ExternalViewChange:
		storeMap(&c.externalViews, map[string]*ExternalView{})
	}
}

// NotifyDataChange marks the partition for the given change type dirty.
// Intended for watch callbacks; it performs no I/O and never blocks.
func (c *ClusterDataCache) NotifyDataChange(changeType ChangeType) {
	c.dirty.NotifyDataChange(changeType)
}

// NotifyDataChangeForPath marks the partition dirty for a change observed at
// a specific store path. The whole partition is reloaded either way; the
// path is accepted for symmetry with path-scoped watch callbacks.
func (c *ClusterDataCache) NotifyDataChangeForPath(changeType ChangeType, path string) {
	c.NotifyDataChange(changeType)
}

// RequireFullRefresh marks every partition dirty so the next Refresh reloads
// all of them.
func (c *ClusterDataCache) RequireFullRefresh() {
	c.dirty.RequireFullRefresh()
}

// LiveInstances returns the current live-instance snapshot. The returned map
// must not be modified; it may be stale by at most one refresh cycle plus any
// not-yet-processed notification.
func (c *ClusterDataCache) LiveInstances() map[string]*LiveInstance {
	return *c.liveInstances.Load()
}

// InstanceConfigs returns the current instance-config snapshot. The returned
// map must not be modified.
func (c *ClusterDataCache) InstanceConfigs() map[string]*InstanceConfig {
	return *c.instanceConfigs.Load()
}

// ExternalViews returns the current external-view snapshot. The returned map
// must not be modified.
func (c *ClusterDataCache) ExternalViews() map[string]*ExternalView {
	return *c.externalViews.Load()
}

// String renders the three maps in a deterministic, human-readable form for
// diagnostics.
func (c *ClusterDataCache) String() string {
	var sb strings.Builder

	sb.WriteString("liveInstances:\n")
	for _, name := range sortedKeys(c.LiveInstances()) {
		fmt.Fprintf(&sb, "  %s: %s\n", name, c.LiveInstances()[name].Record)
	}

	sb.WriteString("externalViews:\n")
	for _, name := range sortedKeys(c.ExternalViews()) {
		fmt.Fprintf(&sb, "  %s: %s\n", name, c.ExternalViews()[name].Record)
	}

	sb.WriteString("instanceConfigs:\n")
	for _, name := range sortedKeys(c.InstanceConfigs()) {
		fmt.Fprintf(&sb, "  %s: %s\n", name, c.InstanceConfigs()[name].Record)
	}

	return sb.String()
}

// swapPartition replaces one partition's map reference and reports the
// reload to the observer.
func swapPartition[T any](c *ClusterDataCache, changeType ChangeType,
	dst *atomic.Pointer[map[string]T], m map[string]T, start time.Time) {

	dst.Store(&m)
	c.observer.PartitionReloaded(changeType, sortedKeys(m), time.Since(start))
}

// fetchPartition enumerates one partition's records and wraps them into the
// partition's typed metadata.
func fetchPartition[T any](ctx context.Context, accessor Accessor, path string,
	wrap func(*Record) T) (map[string]T, error) {

	records, err := accessor.ChildValuesMap(ctx, path, true)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to enumerate records under '%s'", path)
	}

	result := make(map[string]T, len(records))
	for key, record := range records {
		result[key] = wrap(record)
	}

	return result, nil
}

func storeMap[T any](p *atomic.Pointer[map[string]T], m map[string]T) {
	p.Store(&m)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
