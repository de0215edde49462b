package mock_test

import (
	"context"
	"time"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/arya-analytics/grove/internal/transport/mock"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func echo(ctx context.Context, req transport.BatchRequest, sink transport.Sink) error {
	for _, k := range req.Keys {
		if err := sink(transport.RecordResult{Key: k, Status: record.StatusNotFound}); err != nil {
			return err
		}
	}
	return nil
}

var _ = Describe("Network", func() {
	var (
		net            *mock.Network
		client, server *mock.Batch
		req            transport.BatchRequest
	)
	BeforeEach(func() {
		net = mock.NewNetwork()
		client = net.Route("localhost:0")
		server = net.Route("localhost:1")
		k, err := key.New("test", "demo", 1)
		Expect(err).ToNot(HaveOccurred())
		req = transport.BatchRequest{ID: "1", Keys: []key.Key{k}}
	})
	It("Should return the same transport for an address", func() {
		Expect(net.Route("localhost:1")).To(BeIdenticalTo(server))
	})
	It("Should deliver a request to the handler at the target address", func() {
		server.Handle(echo)
		var results []transport.RecordResult
		Expect(client.Send(context.Background(), "localhost:1", req, func(res transport.RecordResult) error {
			results = append(results, res)
			return nil
		})).To(Succeed())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Key.Equal(req.Keys[0])).To(BeTrue())
		Expect(server.Requests()).To(Equal(1))
	})
	It("Should return ErrUnreachable for an unknown address", func() {
		err := client.Send(context.Background(), "localhost:9", req, func(transport.RecordResult) error { return nil })
		Expect(errors.Is(err, transport.ErrUnreachable)).To(BeTrue())
	})
	It("Should return ErrUnreachable for a removed route", func() {
		server.Handle(echo)
		net.Remove("localhost:1")
		err := client.Send(context.Background(), "localhost:1", req, func(transport.RecordResult) error { return nil })
		Expect(errors.Is(err, transport.ErrUnreachable)).To(BeTrue())
	})
	It("Should return ErrUnreachable when nothing handles requests", func() {
		err := client.Send(context.Background(), "localhost:1", req, func(transport.RecordResult) error { return nil })
		Expect(errors.Is(err, transport.ErrUnreachable)).To(BeTrue())
	})
	It("Should respect the context deadline while delaying a request", func() {
		server.Handle(echo)
		server.SetLatency(time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := client.Send(ctx, "localhost:1", req, func(transport.RecordResult) error { return nil })
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
	It("Should mark injected faults as node failures", func() {
		server.Handle(echo)
		server.Fail(errors.New("disk on fire"))
		err := client.Send(context.Background(), "localhost:1", req, func(transport.RecordResult) error { return nil })
		Expect(errors.Is(err, transport.ErrNode)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("disk on fire")))
	})
	It("Should return the error of a failing sink unchanged", func() {
		server.Handle(echo)
		sinkErr := errors.New("sink full")
		err := client.Send(context.Background(), "localhost:1", req, func(transport.RecordResult) error { return sinkErr })
		Expect(err).To(BeIdenticalTo(sinkErr))
	})
})
