package clusterspectator

import (
	"sort"
	"strconv"
)

// Well-known record field names.
const (
	FieldSessionID     = "SESSION_ID"
	FieldHostName      = "HOST_NAME"
	FieldPort          = "PORT"
	FieldEnabled       = "ENABLED"
	FieldTagList       = "TAG_LIST"
	FieldStateModelDef = "STATE_MODEL_DEF"
	FieldNumPartitions = "NUM_PARTITIONS"
	FieldReplicaCount  = "REPLICAS"
)

// LiveInstance is the ephemeral record a node publishes while it is up. The
// cache's copy is a snapshot and never authoritative; the record disappears
// from the store when the node disconnects or is evicted.
type LiveInstance struct {
	*Record
}

func NewLiveInstance(record *Record) *LiveInstance {
	return &LiveInstance{Record: record}
}

// InstanceName returns the node identifier the record is keyed by.
func (li *LiveInstance) InstanceName() string { return li.ID }

// SessionID returns the store session under which the node registered its
// liveness. A new session means the node reconnected.
func (li *LiveInstance) SessionID() string { return li.SimpleFields[FieldSessionID] }

// InstanceConfig is the static or semi-static configuration of one node. It
// changes only on administrative action.
type InstanceConfig struct {
	*Record
}

func NewInstanceConfig(record *Record) *InstanceConfig {
	return &InstanceConfig{Record: record}
}

func (c *InstanceConfig) InstanceName() string { return c.ID }

func (c *InstanceConfig) HostName() string { return c.SimpleFields[FieldHostName] }

func (c *InstanceConfig) Port() int {
	port, err := strconv.Atoi(c.SimpleFields[FieldPort])
	if err != nil {
		return 0
	}
	return port
}

// Enabled reports whether the instance is administratively enabled. An
// absent field counts as enabled.
func (c *InstanceConfig) Enabled() bool {
	v, ok := c.SimpleFields[FieldEnabled]
	if !ok {
		return true
	}
	return v == "true"
}

// Tags returns the instance's placement tags.
func (c *InstanceConfig) Tags() []string { return c.ListFields[FieldTagList] }

// ExternalView is the published placement of one resource: for each of the
// resource's partitions, which instances host a replica and in what state.
// It is authored by the cluster controller and consumed read-only here.
type ExternalView struct {
	*Record
}

func NewExternalView(record *Record) *ExternalView {
	return &ExternalView{Record: record}
}

func (ev *ExternalView) ResourceName() string { return ev.ID }

// StateModelDef returns the name of the state model definition the resource's
// replicas follow.
func (ev *ExternalView) StateModelDef() string { return ev.SimpleFields[FieldStateModelDef] }

// Partitions returns the resource's partition names in sorted order.
func (ev *ExternalView) Partitions() []string {
	partitions := make([]string, 0, len(ev.MapFields))
	for partition := range ev.MapFields {
		partitions = append(partitions, partition)
	}
	sort.Strings(partitions)
	return partitions
}

// StateMap returns the instance -> state mapping for one partition, or nil if
// the partition is not present in the view.
func (ev *ExternalView) StateMap(partition string) map[string]string {
	return ev.MapFields[partition]
}

// State returns the replica state of the partition on the given instance, or
// the empty string if none is published.
func (ev *ExternalView) State(partition, instance string) string {
	return ev.MapFields[partition][instance]
}
