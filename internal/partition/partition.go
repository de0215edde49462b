package partition

import (
	"encoding/binary"
	"sort"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/node"
)

// Count is the number of partitions a namespace's keyspace is divided into.
const Count = 4096

type ID uint16

// Of returns the partition that owns the given digest.
func Of(d key.Digest) ID { return ID(binary.LittleEndian.Uint16(d[:2]) & (Count - 1)) }

// Replicas are the nodes holding a partition. The first replica is the master.
type Replicas []node.ID

func (r Replicas) Master() (node.ID, bool) {
	if len(r) == 0 {
		return 0, false
	}
	return r[0], true
}

func (r Replicas) Contains(id node.ID) bool {
	for _, rid := range r {
		if rid == id {
			return true
		}
	}
	return false
}

// Table maps partitions to the nodes that replicate them. A Table doesn't
// change once built, so it is safe for concurrent use.
type Table struct {
	replicas [Count]Replicas
}

// Distribute builds a table over the given nodes. Partition p is replicated by
// the nodes in ascending ID order rotated by p, taking the first rf of them.
// Every party that distributes the same node list gets the same table.
func Distribute(ids []node.ID, rf int) *Table {
	t := &Table{}
	if len(ids) == 0 {
		return t
	}
	sorted := append([]node.ID{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if rf <= 0 {
		rf = 1
	}
	if rf > len(sorted) {
		rf = len(sorted)
	}
	for p := 0; p < Count; p++ {
		r := make(Replicas, rf)
		for i := 0; i < rf; i++ {
			r[i] = sorted[(p+i)%len(sorted)]
		}
		t.replicas[p] = r
	}
	return t
}

// Replicas returns a copy of the replicas of a partition.
func (t *Table) Replicas(p ID) Replicas { return append(Replicas{}, t.replicas[p%Count]...) }

func (t *Table) Master(p ID) (node.ID, bool) { return t.Replicas(p).Master() }

// Owned returns the partitions the given node replicates.
func (t *Table) Owned(id node.ID) []ID {
	var owned []ID
	for p, r := range t.replicas {
		if r.Contains(id) {
			owned = append(owned, ID(p))
		}
	}
	return owned
}
