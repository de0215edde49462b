package storage_test

import (
	"github.com/arya-analytics/grove/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	engines := map[string]func() (storage.Engine, error){
		"pebble": func() (storage.Engine, error) { return storage.OpenPebble("", true) },
		"badger": func() (storage.Engine, error) { return storage.OpenBadger("", true) },
	}
	for name, open := range engines {
		name, open := name, open
		Context(name, func() {
			var engine storage.Engine
			BeforeEach(func() {
				var err error
				engine, err = open()
				Expect(err).ToNot(HaveOccurred())
			})
			AfterEach(func() { Expect(engine.Close()).To(Succeed()) })
			It("Should return a value that was set", func() {
				Expect(engine.Set([]byte("k"), []byte("v"))).To(Succeed())
				Expect(engine.Get([]byte("k"))).To(Equal([]byte("v")))
			})
			It("Should overwrite an existing value", func() {
				Expect(engine.Set([]byte("k"), []byte("v1"))).To(Succeed())
				Expect(engine.Set([]byte("k"), []byte("v2"))).To(Succeed())
				Expect(engine.Get([]byte("k"))).To(Equal([]byte("v2")))
			})
			It("Should return ErrNotFound for a missing key", func() {
				_, err := engine.Get([]byte("missing"))
				Expect(err).To(MatchError(storage.ErrNotFound))
			})
			It("Should hand out copies of stored values", func() {
				Expect(engine.Set([]byte("k"), []byte("v"))).To(Succeed())
				v, err := engine.Get([]byte("k"))
				Expect(err).ToNot(HaveOccurred())
				v[0] = 'x'
				Expect(engine.Get([]byte("k"))).To(Equal([]byte("v")))
			})
		})
	}
})
