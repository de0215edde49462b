package partition_test

import (
	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Partition", func() {
	Describe("Of", func() {
		It("Should map every digest into the partition range", func() {
			for i := 0; i < 100; i++ {
				k, err := key.New("test", "set", i)
				Expect(err).ToNot(HaveOccurred())
				Expect(int(partition.Of(k.Digest))).To(BeNumerically("<", partition.Count))
			}
		})
		It("Should use the low twelve bits of the first two digest bytes", func() {
			var d key.Digest
			d[0], d[1] = 0xff, 0xff
			Expect(partition.Of(d)).To(Equal(partition.ID(4095)))
			d[0], d[1] = 0x01, 0x10
			Expect(partition.Of(d)).To(Equal(partition.ID(1)))
		})
	})
	Describe("Distribute", func() {
		It("Should build identical tables regardless of node order", func() {
			a := partition.Distribute([]node.ID{3, 1, 2}, 2)
			b := partition.Distribute([]node.ID{1, 2, 3}, 2)
			for p := partition.ID(0); p < 10; p++ {
				Expect(a.Replicas(p)).To(Equal(b.Replicas(p)))
			}
		})
		It("Should rotate masters across nodes", func() {
			t := partition.Distribute([]node.ID{1, 2, 3}, 2)
			Expect(t.Replicas(0)).To(Equal(partition.Replicas{1, 2}))
			Expect(t.Replicas(1)).To(Equal(partition.Replicas{2, 3}))
			Expect(t.Replicas(2)).To(Equal(partition.Replicas{3, 1}))
		})
		It("Should cap the replication factor at the node count", func() {
			t := partition.Distribute([]node.ID{1, 2}, 5)
			Expect(t.Replicas(7)).To(HaveLen(2))
		})
		It("Should leave every partition empty without nodes", func() {
			t := partition.Distribute(nil, 2)
			_, ok := t.Master(0)
			Expect(ok).To(BeFalse())
		})
	})
	Describe("Table", func() {
		It("Should not leak internal slices", func() {
			t := partition.Distribute([]node.ID{1, 2}, 2)
			r := t.Replicas(0)
			r[0] = 9
			Expect(t.Replicas(0)[0]).To(Equal(node.ID(1)))
		})
		It("Should list the partitions a node owns", func() {
			t := partition.Distribute([]node.ID{1, 2}, 1)
			Expect(t.Owned(1)).To(HaveLen(partition.Count / 2))
		})
	})
})
