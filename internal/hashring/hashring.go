package hashring

import (
	"context"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/cespare/xxhash"
)

type ctxKey int

var ringChecksumKey ctxKey

type hasher struct{}

func (h hasher) Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Ring defines an interface to manage a consistent hashring of cluster
// instances, used to deterministically route keys to live nodes.
type Ring interface {

	// Add adds an instance to the ring.
	Add(instanceID string)

	// Remove removes an instance from the ring.
	Remove(instanceID string)

	// Sync reconciles the ring's membership with the given instance set,
	// adding missing instances and removing departed ones. Intended to be
	// called with the cache's live-instance snapshot after a refresh.
	Sync(instanceIDs []string)

	// LocateKey finds the instance responsible for the given key.
	LocateKey(key []byte) string

	// Members returns the instances currently on the ring, sorted.
	Members() []string

	// Checksum computes the CRC32 checksum of the ring membership.
	//
	// This can be used to compare the relative state of two rings on
	// remote servers. If the checksums are equal the two nodes agree on
	// the membership; if not, they will converge as gossip settles and
	// the checksums become identical.
	Checksum() uint32
}

// NewContextWithChecksum returns a new Context that carries the ring checksum.
func NewContextWithChecksum(ctx context.Context, ringChecksum uint32) context.Context {
	return context.WithValue(ctx, ringChecksumKey, ringChecksum)
}

// ChecksumFromContext extracts the ring checksum from the provided ctx or
// returns false if none was found in the ctx.
func ChecksumFromContext(ctx context.Context) (uint32, bool) {
	checksum, ok := ctx.Value(ringChecksumKey).(uint32)
	return checksum, ok
}

type member string

func (m member) String() string { return string(m) }

// ConsistentRing implements a Ring using consistent hashing with bounded
// loads.
type ConsistentRing struct {
	rw   sync.RWMutex
	ring *consistent.Consistent
}

// NewConsistentRing returns a Ring using consistent hashing with bounded
// loads. The distribution of the load in the ring is specified via the
// config provided. If the cfg is nil, defaults are used.
func NewConsistentRing(cfg *consistent.Config) Ring {

	if cfg == nil {
		cfg = &consistent.Config{
			Hasher:            &hasher{},
			PartitionCount:    31,
			ReplicationFactor: 3,
			Load:              1.25,
		}
	}

	return &ConsistentRing{
		ring: consistent.New(nil, *cfg),
	}
}

// Add adds the provided instance to the ring membership.
func (r *ConsistentRing) Add(instanceID string) {
	defer r.rw.Unlock()
	r.rw.Lock()
	r.ring.Add(member(instanceID))
}

// Remove removes the provided instance from the ring membership.
func (r *ConsistentRing) Remove(instanceID string) {
	defer r.rw.Unlock()
	r.rw.Lock()
	r.ring.Remove(instanceID)
}

// Sync reconciles the ring membership with the given instance set.
func (r *ConsistentRing) Sync(instanceIDs []string) {
	defer r.rw.Unlock()
	r.rw.Lock()

	desired := make(map[string]struct{}, len(instanceIDs))
	for _, id := range instanceIDs {
		desired[id] = struct{}{}
	}

	current := map[string]struct{}{}
	for _, m := range r.ring.GetMembers() {
		current[m.String()] = struct{}{}
	}

	for id := range current {
		if _, ok := desired[id]; !ok {
			r.ring.Remove(id)
		}
	}

	for id := range desired {
		if _, ok := current[id]; !ok {
			r.ring.Add(member(id))
		}
	}
}

// LocateKey locates the instance responsible for the given key. It returns
// the empty string if the ring has no members.
func (r *ConsistentRing) LocateKey(key []byte) string {
	defer r.rw.RUnlock()
	r.rw.RLock()

	m := r.ring.LocateKey(key)
	if m == nil {
		return ""
	}
	return m.String()
}

// Members returns the instances currently on the ring, sorted.
func (r *ConsistentRing) Members() []string {
	defer r.rw.RUnlock()
	r.rw.RLock()

	memberSet := make(map[string]struct{})
	for _, m := range r.ring.GetMembers() {
		memberSet[m.String()] = struct{}{}
	}

	members := make([]string, 0, len(memberSet))
	for m := range memberSet {
		members = append(members, m)
	}

	sort.Strings(members)
	return members
}

// Checksum computes a consistent CRC32 checksum of the ring members using
// the IEEE polynomial.
func (r *ConsistentRing) Checksum() uint32 {
	bytes := []byte(strings.Join(r.Members(), ","))
	return crc32.ChecksumIEEE(bytes)
}

// Always verify that we implement the interface
var _ Ring = &ConsistentRing{}
