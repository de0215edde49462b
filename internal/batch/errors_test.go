package batch_test

import (
	"context"

	"github.com/arya-analytics/grove/internal/batch"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Translate", func() {
	keys := []interface{}{[]interface{}{"test", "demo", 1}}
	DescribeTable("Should classify internal errors",
		func(err error, kind batch.Kind, marker error) {
			e := batch.Translate(err, keys)
			Expect(e.Kind).To(Equal(kind))
			Expect(errors.Is(e, marker)).To(BeTrue())
			Expect(e.Key).To(Equal(keys))
			Expect(e.Bin).To(BeNil())
		},
		Entry("invalid parameter", errors.Mark(errors.New("bad"), batch.ErrInvalidParameter), batch.KindInvalidParameter, batch.ErrInvalidParameter),
		Entry("connection", errors.Mark(errors.New("closed"), batch.ErrConnection), batch.KindConnection, batch.ErrConnection),
		Entry("timeout", errors.Mark(errors.New("slow"), batch.ErrTimeout), batch.KindTimeout, batch.ErrTimeout),
		Entry("deadline", errors.Wrap(context.DeadlineExceeded, "waiting"), batch.KindTimeout, batch.ErrTimeout),
		Entry("aggregation", errors.Mark(errors.New("dup"), batch.ErrAggregation), batch.KindAggregation, batch.ErrAggregation),
		Entry("unreachable", errors.Wrap(transport.ErrUnreachable, "node-1"), batch.KindCluster, batch.ErrCluster),
		Entry("unmarked", errors.New("boom"), batch.KindCluster, batch.ErrCluster),
	)
	It("Should return nil for a nil error", func() {
		Expect(batch.Translate(nil, keys)).To(BeNil())
	})
	It("Should be deterministic", func() {
		err := errors.Mark(errors.New("slow"), batch.ErrTimeout)
		Expect(batch.Translate(err, keys)).To(Equal(batch.Translate(err, keys)))
	})
	It("Should expose the cause", func() {
		cause := errors.New("boom")
		Expect(errors.Is(batch.Translate(cause, keys), cause)).To(BeTrue())
	})
	It("Should pass through an already translated error", func() {
		e := batch.Translate(errors.New("boom"), keys)
		Expect(batch.Translate(errors.Wrap(e, "again"), nil)).To(BeIdenticalTo(e))
	})
	It("Should prefix the message with the kind", func() {
		e := batch.Translate(errors.Mark(errors.New("bad"), batch.ErrInvalidParameter), keys)
		Expect(e.Error()).To(Equal("InvalidParameter: bad"))
	})
})
