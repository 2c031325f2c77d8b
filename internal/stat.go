package clusterspectator

import "fmt"

// Stat is the version stamp attached to every record held in the coordination
// store. It is used only to detect whether a record changed since it was last
// read; it carries no business meaning beyond that.
type Stat struct {
	// Version is incremented by the store on every write of the record.
	Version int64 `json:"version"`

	// ModifiedTime is the store-side modification time of the record, in
	// milliseconds since the Unix epoch.
	ModifiedTime int64 `json:"modifiedTime"`
}

// Equal reports whether two stats refer to the same version of a record.
func (s Stat) Equal(other Stat) bool {
	return s.Version == other.Version && s.ModifiedTime == other.ModifiedTime
}

func (s Stat) String() string {
	return fmt.Sprintf("v%d@%d", s.Version, s.ModifiedTime)
}
