package clusterspectator

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Observer receives diagnostic callbacks from the cache and the selective
// reloader. All logging is routed through it so the refresh algorithm itself
// stays free of log output and testable without log assertions.
type Observer interface {

	// RefreshStart is invoked when a refresh pass begins.
	RefreshStart(cluster string)

	// RefreshEnd is invoked when a refresh pass finishes, successfully or not.
	RefreshEnd(cluster string, took time.Duration)

	// PartitionReloaded is invoked after one partition has been re-fetched
	// and swapped in. keys holds the partition's record keys, sorted.
	PartitionReloaded(changeType ChangeType, keys []string, took time.Duration)

	// StatMissing is invoked when a batched stat lookup returned no stat for
	// a candidate key. The key is degraded to a mandatory reload.
	StatMissing(key string)

	// RecordMissing is invoked when a batched record fetch returned nil for
	// a key, meaning it vanished between the stat check and the fetch.
	RecordMissing(key string)
}

// LogObserver is the default Observer. It mirrors the cache's activity to
// logrus.
type LogObserver struct{}

func (LogObserver) RefreshStart(cluster string) {
	log.Infof("START: ClusterDataCache refresh for cluster '%s'", cluster)
}

func (LogObserver) RefreshEnd(cluster string, took time.Duration) {
	log.Infof("END: ClusterDataCache refresh for cluster '%s', took %v", cluster, took)
}

func (LogObserver) PartitionReloaded(changeType ChangeType, keys []string, took time.Duration) {
	log.Infof("Reloaded %s: %v. Took %v", changeType, keys, took)
}

func (LogObserver) StatMissing(key string) {
	log.Warnf("Stat is missing for key '%s'; scheduling a reload", key)
}

func (LogObserver) RecordMissing(key string) {
	log.Warnf("Reloaded record is nil for key '%s'; treating it as removed", key)
}

// NopObserver discards every callback.
type NopObserver struct{}

func (NopObserver) RefreshStart(string)                                   {}
func (NopObserver) RefreshEnd(string, time.Duration)                      {}
func (NopObserver) PartitionReloaded(ChangeType, []string, time.Duration) {}
func (NopObserver) StatMissing(string)                                    {}
func (NopObserver) RecordMissing(string)                                  {}

var _ Observer = LogObserver{}
var _ Observer = NopObserver{}
