package clusterspectator

// ChangeType names one independently dirty-tracked partition of the cluster
// metadata cache.
type ChangeType int

const (
	ExternalViewChange ChangeType = iota
	LiveInstanceChange
	InstanceConfigChange

	numChangeTypes
)

// ChangeTypes returns every registered change type, in the fixed order the
// cache refreshes them. The order matters only for deterministic diagnostics.
func ChangeTypes() []ChangeType {
	return []ChangeType{ExternalViewChange, LiveInstanceChange, InstanceConfigChange}
}

func (t ChangeType) String() string {
	switch t {
	case ExternalViewChange:
		return "EXTERNAL_VIEW"
	case LiveInstanceChange:
		return "LIVE_INSTANCE"
	case InstanceConfigChange:
		return "INSTANCE_CONFIG"
	}
	return "UNKNOWN"
}
