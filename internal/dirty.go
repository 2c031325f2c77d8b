package clusterspectator

import "sync/atomic"

// DirtyFlagTracker tracks, per ChangeType, whether a change notification has
// arrived since the partition was last reloaded. Writers are asynchronous
// watch callbacks; the single refresh driver consumes the flags.
//
// Flag writes are independent, commutative and idempotent, so the tracker is
// a fixed array of atomic booleans rather than a locked map.
type DirtyFlagTracker struct {
	flags [numChangeTypes]atomic.Bool
}

// NewDirtyFlagTracker returns a tracker with every change type marked dirty,
// which forces the first refresh to load all partitions.
func NewDirtyFlagTracker() *DirtyFlagTracker {
	t := &DirtyFlagTracker{}
	t.RequireFullRefresh()
	return t
}

// NotifyDataChange marks the partition for the given change type as needing a
// reload. It performs no I/O and is safe to call from any goroutine at any
// time, including while a refresh is executing.
func (t *DirtyFlagTracker) NotifyDataChange(changeType ChangeType) {
	t.flags[changeType].Store(true)
}

// RequireFullRefresh marks every partition dirty so the next refresh reloads
// all of them. Used at construction and after events that invalidate the
// whole cache, such as reconnecting to the store.
func (t *DirtyFlagTracker) RequireFullRefresh() {
	for _, ct := range ChangeTypes() {
		t.flags[ct].Store(true)
	}
}

// Dirty reports whether the given change type currently needs a reload.
func (t *DirtyFlagTracker) Dirty(changeType ChangeType) bool {
	return t.flags[changeType].Load()
}

// consumeAndClear atomically reads and resets the flag for the given change
// type. A notification that lands between the swap and the completion of the
// corresponding fetch simply re-marks the flag and is picked up by the next
// refresh; it is never lost.
func (t *DirtyFlagTracker) consumeAndClear(changeType ChangeType) bool {
	return t.flags[changeType].Swap(false)
}
