package batch_test

import (
	"time"

	"github.com/arya-analytics/grove/internal/batch"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Policy", func() {
	Describe("Merge", func() {
		It("Should fill unset fields from the default", func() {
			p := batch.Policy{TotalTimeout: batch.Duration(3 * time.Second)}.Merge(batch.DefaultPolicy())
			def := batch.DefaultPolicy()
			Expect(*p.TotalTimeout).To(Equal(3 * time.Second))
			Expect(*p.SocketTimeout).To(Equal(*def.SocketTimeout))
			Expect(*p.MaxRetries).To(Equal(*def.MaxRetries))
			Expect(p.Consistency).To(Equal(batch.ConsistencyOne))
			Expect(*p.AllowNotFound).To(BeTrue())
		})
		It("Should keep an explicit ConsistencyOne over a ConsistencyAll default", func() {
			def := batch.DefaultPolicy()
			def.Consistency = batch.ConsistencyAll
			p := batch.Policy{Consistency: batch.ConsistencyOne}.Merge(def)
			Expect(p.Consistency).To(Equal(batch.ConsistencyOne))
			Expect(batch.Policy{}.Merge(def).Consistency).To(Equal(batch.ConsistencyAll))
		})
		It("Should keep explicit zero values", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{
				"consistency":   "one",
				"max_retries":   0,
				"total_timeout": 0,
			})
			Expect(err).ToNot(HaveOccurred())
			def := batch.DefaultPolicy()
			def.Consistency = batch.ConsistencyAll
			p = p.Merge(def)
			Expect(p.Consistency).To(Equal(batch.ConsistencyOne))
			Expect(*p.MaxRetries).To(BeZero())
			Expect(*p.TotalTimeout).To(BeZero())
			Expect(*p.SocketTimeout).To(Equal(*def.SocketTimeout))
		})
		It("Should keep a negative retry count", func() {
			p := batch.Policy{MaxRetries: batch.Int(-1)}.Merge(batch.DefaultPolicy())
			Expect(*p.MaxRetries).To(Equal(-1))
		})
	})
	Describe("Validate", func() {
		It("Should reject negative timeouts", func() {
			err := batch.Policy{TotalTimeout: batch.Duration(-1)}.Validate()
			Expect(errors.Is(err, batch.ErrInvalidParameter)).To(BeTrue())
		})
		It("Should reject unknown consistency levels", func() {
			err := batch.Policy{Consistency: 7}.Validate()
			Expect(errors.Is(err, batch.ErrInvalidParameter)).To(BeTrue())
		})
	})
	Describe("PolicyFromMap", func() {
		It("Should decode durations given in milliseconds", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{
				"total_timeout":  1500,
				"socket_timeout": int64(200),
				"max_retries":    3,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(*p.TotalTimeout).To(Equal(1500 * time.Millisecond))
			Expect(*p.SocketTimeout).To(Equal(200 * time.Millisecond))
			Expect(*p.MaxRetries).To(Equal(3))
		})
		It("Should decode durations given as strings", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{"sleep_between_retries": "25ms"})
			Expect(err).ToNot(HaveOccurred())
			Expect(*p.SleepBetweenRetries).To(Equal(25 * time.Millisecond))
		})
		It("Should keep durations that are already durations", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{"total_timeout": 2 * time.Second})
			Expect(err).ToNot(HaveOccurred())
			Expect(*p.TotalTimeout).To(Equal(2 * time.Second))
		})
		It("Should leave fields missing from the map unset", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{"consistency": "all"})
			Expect(err).ToNot(HaveOccurred())
			Expect(p.TotalTimeout).To(BeNil())
			Expect(p.MaxRetries).To(BeNil())
		})
		It("Should decode consistency levels by name", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{"consistency": "all"})
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Consistency).To(Equal(batch.ConsistencyAll))
		})
		It("Should decode allow_not_found", func() {
			p, err := batch.PolicyFromMap(map[string]interface{}{"allow_not_found": false})
			Expect(err).ToNot(HaveOccurred())
			Expect(p.AllowNotFound).ToNot(BeNil())
			Expect(*p.AllowNotFound).To(BeFalse())
		})
		It("Should reject unknown keys", func() {
			_, err := batch.PolicyFromMap(map[string]interface{}{"timeout": 10})
			Expect(errors.Is(err, batch.ErrInvalidParameter)).To(BeTrue())
		})
		It("Should reject values of the wrong type", func() {
			_, err := batch.PolicyFromMap(map[string]interface{}{"max_retries": "many"})
			Expect(errors.Is(err, batch.ErrInvalidParameter)).To(BeTrue())
			_, err = batch.PolicyFromMap(map[string]interface{}{"consistency": "some"})
			Expect(errors.Is(err, batch.ErrInvalidParameter)).To(BeTrue())
		})
	})
})
