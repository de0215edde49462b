package batch_test

import (
	"github.com/arya-analytics/grove/internal/batch"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildBinFilter", func() {
	expectInvalid := func(bins interface{}, msg string) {
		_, err := batch.BuildBinFilter(bins)
		Expect(errors.Is(err, batch.ErrInvalidParameter)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring(msg)))
	}
	It("Should select every bin when no bins are given", func() {
		f, err := batch.BuildBinFilter(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(f.All()).To(BeTrue())
		f, err = batch.BuildBinFilter([]string{})
		Expect(err).ToNot(HaveOccurred())
		Expect(f.All()).To(BeTrue())
		Expect(f.Names()).To(BeNil())
	})
	It("Should accept text and byte text names", func() {
		f, err := batch.BuildBinFilter([]interface{}{"a", []byte("b")})
		Expect(err).ToNot(HaveOccurred())
		Expect(f.Names()).To(Equal([]string{"a", "b"}))
	})
	It("Should drop duplicate names and keep the first occurrence order", func() {
		f, err := batch.BuildBinFilter([]string{"b", "a", "b"})
		Expect(err).ToNot(HaveOccurred())
		Expect(f.Names()).To(Equal([]string{"b", "a"}))
	})
	It("Should reject a container that isn't a list", func() {
		expectInvalid("a", "filter bins should be specified as a list or tuple")
	})
	It("Should reject names that aren't text", func() {
		expectInvalid([]interface{}{"a", 1}, "bin name should be a string or unicode string")
		expectInvalid([]interface{}{[]byte{0xff, 0xfe}}, "bin name should be a string or unicode string")
	})
	It("Should reject empty and oversized names", func() {
		expectInvalid([]string{""}, "must not be empty")
		expectInvalid([]string{"a_very_long_bin_name"}, "exceeds 15 bytes")
	})
})
