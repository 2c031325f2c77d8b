package clusterspectator

import "encoding/json"

// Record is the unit of storage in the coordination store. Every piece of
// cluster metadata (a live instance announcement, an instance configuration,
// a published external view) is one Record under a well-known path.
//
// A Record with a nonzero BucketSize is internally sub-partitioned into
// buckets stored as separate child records; a stat match on the parent record
// alone does not guarantee the buckets are unchanged.
type Record struct {
	// ID is the record's key within its parent path (e.g. the instance name
	// or the resource name).
	ID string `json:"id"`

	SimpleFields map[string]string            `json:"simpleFields"`
	ListFields   map[string][]string          `json:"listFields"`
	MapFields    map[string]map[string]string `json:"mapFields"`

	BucketSize int `json:"bucketSize"`

	// Stat is attached by the accessor when records are fetched with stats
	// included. It is not part of the serialized record payload.
	Stat Stat `json:"-"`
}

// NewRecord returns an empty record with the given ID.
func NewRecord(id string) *Record {
	return &Record{
		ID:           id,
		SimpleFields: map[string]string{},
		ListFields:   map[string][]string{},
		MapFields:    map[string]map[string]string{},
	}
}

// GetStat returns the record's version stamp.
func (r *Record) GetStat() Stat { return r.Stat }

// GetBucketSize returns the record's bucket size. Zero means the record has
// no internal sub-partitioning.
func (r *Record) GetBucketSize() int { return r.BucketSize }

// SetSimpleField sets a scalar field on the record.
func (r *Record) SetSimpleField(key, value string) {
	if r.SimpleFields == nil {
		r.SimpleFields = map[string]string{}
	}
	r.SimpleFields[key] = value
}

// SetMapField sets a keyed map field on the record, replacing any previous
// value.
func (r *Record) SetMapField(key string, value map[string]string) {
	if r.MapFields == nil {
		r.MapFields = map[string]map[string]string{}
	}
	r.MapFields[key] = value
}

// SetListField sets a list field on the record, replacing any previous value.
func (r *Record) SetListField(key string, value []string) {
	if r.ListFields == nil {
		r.ListFields = map[string][]string{}
	}
	r.ListFields[key] = value
}

// String renders the record as JSON. encoding/json sorts map keys, so the
// output is deterministic for a given record.
func (r *Record) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return r.ID
	}
	return string(data)
}

// Property is the constraint satisfied by any cached metadata type that
// carries a version stamp. ReloadProperties uses it to decide whether a
// cached copy can be reused without a remote read.
type Property interface {
	GetStat() Stat
	GetBucketSize() int
}
