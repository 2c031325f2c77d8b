package clusterspectator

// KeyBuilder constructs the hierarchical store paths for one cluster's
// metadata. Each partition of the cache enumerates the children of one of
// these paths.
type KeyBuilder struct {
	ClusterName string
}

// ExternalViews returns the path under which the controller publishes one
// external view record per resource.
func (b KeyBuilder) ExternalViews() string {
	return "/" + b.ClusterName + "/EXTERNALVIEW"
}

// LiveInstances returns the path under which nodes publish their ephemeral
// liveness records.
func (b KeyBuilder) LiveInstances() string {
	return "/" + b.ClusterName + "/LIVEINSTANCES"
}

// InstanceConfigs returns the path under which per-node configuration
// records are stored.
func (b KeyBuilder) InstanceConfigs() string {
	return "/" + b.ClusterName + "/CONFIGS/PARTICIPANT"
}

// ExternalView returns the full key of one resource's external view record.
func (b KeyBuilder) ExternalView(resource string) string {
	return b.ExternalViews() + "/" + resource
}

// LiveInstance returns the full key of one node's liveness record.
func (b KeyBuilder) LiveInstance(instance string) string {
	return b.LiveInstances() + "/" + instance
}

// InstanceConfig returns the full key of one node's configuration record.
func (b KeyBuilder) InstanceConfig(instance string) string {
	return b.InstanceConfigs() + "/" + instance
}
