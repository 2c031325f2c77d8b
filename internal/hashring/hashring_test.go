package hashring

import (
	"context"
	"hash/crc32"
	"sort"
	"strings"
	"testing"

	"github.com/cespare/xxhash"
)

func TestHasher_Sum64(t *testing.T) {

	sum := hasher{}.Sum64([]byte("test"))
	expected := xxhash.Sum64([]byte("test"))

	if sum != expected {
		t.Errorf("Expected '%v', but got '%v'", expected, sum)
	}
}

func TestChecksumFromContext(t *testing.T) {

	type output struct {
		checksum uint32
		ok       bool
	}

	tests := []struct {
		input  context.Context
		output output
	}{
		{
			input: context.Background(),
			output: output{
				ok: false,
			},
		},
		{
			input: NewContextWithChecksum(context.Background(), 1),
			output: output{
				checksum: 1,
				ok:       true,
			},
		},
	}

	for _, test := range tests {
		checksum, ok := ChecksumFromContext(test.input)

		if ok != test.output.ok {
			t.Errorf("Expected ok to be '%v', but got '%v'", test.output.ok, ok)
		} else {
			if checksum != test.output.checksum {
				t.Errorf("Expected checksum '%v', but got '%v'", test.output.checksum, checksum)
			}
		}
	}
}

func TestConsistentRing_Remove(t *testing.T) {

	ring := NewConsistentRing(nil)

	ring.Add("node1")
	ring.Add("node2")

	checksum1 := checksum("node1", "node2")
	if checksum1 != ring.Checksum() {
		t.Errorf("Expected checksum '%d', but got '%d'", ring.Checksum(), checksum1)
	}

	ring.Remove("node2")
	checksum2 := checksum("node1")
	if checksum2 != ring.Checksum() {
		t.Errorf("Expected checksum '%d', but got '%d'", ring.Checksum(), checksum2)
	}

	if expected := crc32.ChecksumIEEE([]byte("node1")); checksum2 != expected {
		t.Errorf("Expected checksum '%d', but got '%d'", expected, checksum2)
	}
}

func TestConsistentRing_LocateKey(t *testing.T) {

	ring := NewConsistentRing(nil)

	if member := ring.LocateKey([]byte("key1")); member != "" {
		t.Errorf("Expected an empty ring to locate nothing, but got '%s'", member)
	}

	ring.Add("node1")

	member := ring.LocateKey([]byte("key1"))
	if member != "node1" {
		t.Errorf("Expected '%s', but got '%s'", "node1", member)
	}

	ring.Add("node2")

	member = ring.LocateKey([]byte("key1"))
	if member != "node2" {
		t.Errorf("Expected '%s', but got '%s'", "node2", member)
	}
}

func TestConsistentRing_Checksum(t *testing.T) {

	ring := NewConsistentRing(nil)
	ring.Add("node2")
	ring.Add("node1")

	expected := checksum("node1", "node2")

	if expected != ring.Checksum() {
		t.Errorf("Expected checksum '%d', but got '%d'", ring.Checksum(), expected)
	}
}

func TestConsistentRing_Sync(t *testing.T) {

	ring := NewConsistentRing(nil)
	ring.Add("node1")
	ring.Add("node2")
	ring.Add("node3")

	ring.Sync([]string{"node2", "node4"})

	members := ring.Members()
	if len(members) != 2 || members[0] != "node2" || members[1] != "node4" {
		t.Errorf("Expected members [node2 node4], but got %v", members)
	}

	if expected := checksum("node2", "node4"); expected != ring.Checksum() {
		t.Errorf("Expected checksum '%d', but got '%d'", ring.Checksum(), expected)
	}

	ring.Sync(nil)
	if len(ring.Members()) != 0 {
		t.Errorf("Expected an empty ring after syncing to an empty set, but got %v", ring.Members())
	}
}

func checksum(members ...string) uint32 {

	memberSet := make(map[string]struct{})
	for _, member := range members {
		memberSet[member] = struct{}{}
	}

	m := make([]string, 0, len(memberSet))
	for member := range memberSet {
		m = append(m, member)
	}

	sort.Strings(m)
	bytes := []byte(strings.Join(m, ","))

	return crc32.ChecksumIEEE(bytes)
}
