package server_test

import (
	"context"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/server"
	"github.com/arya-analytics/grove/internal/storage"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// keyMasteredBy returns the first integer key whose partition master is id.
func keyMasteredBy(table *partition.Table, id node.ID, from int) (key.Key, int) {
	for i := from; ; i++ {
		k, err := key.New("test", "demo", i)
		Expect(err).ToNot(HaveOccurred())
		if m, _ := table.Master(partition.Of(k.Digest)); m == id {
			return k, i
		}
	}
}

func collect(results *[]transport.RecordResult) transport.Sink {
	return func(res transport.RecordResult) error {
		*results = append(*results, res)
		return nil
	}
}

var _ = Describe("Server", func() {
	var (
		engine  storage.Engine
		table   *partition.Table
		srv     *server.Server
		owned   key.Key
		foreign key.Key
		results []transport.RecordResult
	)
	BeforeEach(func() {
		var err error
		engine, err = storage.OpenPebble("", true)
		Expect(err).ToNot(HaveOccurred())
		table = partition.Distribute([]node.ID{1, 2}, 1)
		srv, err = server.New(server.Config{Host: 1, Engine: engine, Partitions: table})
		Expect(err).ToNot(HaveOccurred())
		owned, _ = keyMasteredBy(table, 1, 0)
		foreign, _ = keyMasteredBy(table, 2, 0)
		results = nil
		Expect(srv.Put(record.Record{
			Key:      owned,
			Bins:     record.Bins{"name": "ada", "age": int64(36)},
			Metadata: record.Metadata{Generation: 3},
		})).To(Succeed())
	})
	AfterEach(func() { Expect(engine.Close()).To(Succeed()) })

	Describe("Config", func() {
		It("Should require a host", func() {
			_, err := server.New(server.Config{Engine: engine, Partitions: table})
			Expect(err).To(MatchError(ContainSubstring("host id required")))
		})
	})

	Describe("Put", func() {
		It("Should refuse records the node doesn't replicate", func() {
			err := srv.Put(record.Record{Key: foreign, Bins: record.Bins{"a": int64(1)}})
			Expect(errors.Is(err, server.ErrNotOwner)).To(BeTrue())
		})
	})

	Describe("Handle", func() {
		It("Should return every bin of a stored record", func() {
			req := transport.BatchRequest{Keys: []key.Key{owned}}
			Expect(srv.Handle(context.Background(), req, collect(&results))).To(Succeed())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Status).To(Equal(record.StatusFound))
			bins, md, err := record.WireCodec{}.Decode(results[0].Payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(bins).To(Equal(record.Bins{"name": "ada", "age": int64(36)}))
			Expect(md.Generation).To(Equal(uint32(3)))
		})
		It("Should project the requested bins", func() {
			req := transport.BatchRequest{Keys: []key.Key{owned}, Bins: []string{"name", "missing"}}
			Expect(srv.Handle(context.Background(), req, collect(&results))).To(Succeed())
			bins, _, err := record.WireCodec{}.Decode(results[0].Payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(bins).To(Equal(record.Bins{"name": "ada"}))
		})
		It("Should report keys that aren't stored as not found", func() {
			missing, _ := keyMasteredBy(table, 1, 100000)
			req := transport.BatchRequest{Keys: []key.Key{missing, owned}}
			Expect(srv.Handle(context.Background(), req, collect(&results))).To(Succeed())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Status).To(Equal(record.StatusNotFound))
			Expect(results[0].Key.Equal(missing)).To(BeTrue())
			Expect(results[1].Status).To(Equal(record.StatusFound))
		})
		It("Should echo the stored user key when the request carries only the digest", func() {
			req := transport.BatchRequest{Keys: []key.Key{owned.WithoutValue()}}
			Expect(srv.Handle(context.Background(), req, collect(&results))).To(Succeed())
			Expect(results[0].Key.Value).To(Equal(owned.Value))
		})
		It("Should refuse keys the node doesn't replicate", func() {
			req := transport.BatchRequest{Keys: []key.Key{foreign}}
			err := srv.Handle(context.Background(), req, collect(&results))
			Expect(errors.Is(err, server.ErrNotOwner)).To(BeTrue())
			Expect(results).To(BeEmpty())
		})
		It("Should refuse replica reads when the request requires the master", func() {
			table = partition.Distribute([]node.ID{1, 2}, 2)
			replicaSrv, err := server.New(server.Config{Host: 1, Engine: engine, Partitions: table})
			Expect(err).ToNot(HaveOccurred())
			req := transport.BatchRequest{Keys: []key.Key{foreign}}
			Expect(replicaSrv.Handle(context.Background(), req, collect(&results))).To(Succeed())
			req.Consistency = transport.ConsistencyAll
			err = replicaSrv.Handle(context.Background(), req, collect(&results))
			Expect(errors.Is(err, server.ErrNotOwner)).To(BeTrue())
		})
		It("Should stop when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := srv.Handle(ctx, transport.BatchRequest{Keys: []key.Key{owned}}, collect(&results))
			Expect(err).To(MatchError(context.Canceled))
			Expect(results).To(BeEmpty())
		})
		It("Should stop when the sink fails", func() {
			sinkErr := errors.New("full")
			err := srv.Handle(
				context.Background(),
				transport.BatchRequest{Keys: []key.Key{owned, owned}},
				func(transport.RecordResult) error { return sinkErr },
			)
			Expect(err).To(BeIdenticalTo(sinkErr))
		})
	})
})
