package grpc_test

import (
	"context"
	"net"
	"time"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/transport"
	grovegrpc "github.com/arya-analytics/grove/internal/transport/grpc"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const serverAddr address.Address = "node-1:9090"

var _ = Describe("Transport", func() {
	var (
		lis            *bufconn.Listener
		server, client *grovegrpc.Batch
		req            transport.BatchRequest
	)
	BeforeEach(func() {
		lis = bufconn.Listen(1 << 20)
		dialer := grpc.WithContextDialer(func(ctx context.Context, target string) (net.Conn, error) {
			if target != serverAddr.String() {
				return nil, errors.Newf("no route to %s", target)
			}
			return lis.DialContext(ctx)
		})
		creds := grpc.WithTransportCredentials(insecure.NewCredentials())
		server = grovegrpc.New(creds, dialer)
		client = grovegrpc.New(creds, dialer)
		go func() { _ = server.Serve(lis) }()
		k1, err := key.New("test", "demo", 1)
		Expect(err).ToNot(HaveOccurred())
		k2, err := key.New("test", "demo", "two")
		Expect(err).ToNot(HaveOccurred())
		req = transport.BatchRequest{ID: "b", Keys: []key.Key{k1, k2}, Bins: []string{"a"}}
	})
	AfterEach(func() {
		Expect(client.Close()).To(Succeed())
		Expect(server.Close()).To(Succeed())
	})
	collect := func(results *[]transport.RecordResult) transport.Sink {
		return func(res transport.RecordResult) error {
			*results = append(*results, res)
			return nil
		}
	}
	It("Should stream every result the handler produces", func() {
		server.Handle(func(ctx context.Context, req transport.BatchRequest, sink transport.Sink) error {
			for i, k := range req.Keys {
				st := record.StatusFound
				if i == 1 {
					st = record.StatusNotFound
				}
				if err := sink(transport.RecordResult{Key: k, Status: st, Payload: []byte{byte(i)}}); err != nil {
					return err
				}
			}
			return nil
		})
		var results []transport.RecordResult
		Expect(client.Send(context.Background(), serverAddr, req, collect(&results))).To(Succeed())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Key.Equal(req.Keys[0])).To(BeTrue())
		Expect(results[0].Status).To(Equal(record.StatusFound))
		Expect(results[1].Status).To(Equal(record.StatusNotFound))
	})
	It("Should return ErrUnreachable when the target can't be dialed", func() {
		var results []transport.RecordResult
		err := client.Send(context.Background(), "node-2:9090", req, collect(&results))
		Expect(errors.Is(err, transport.ErrUnreachable)).To(BeTrue())
		Expect(results).To(BeEmpty())
	})
	It("Should return ErrUnreachable when the server has no handler", func() {
		var results []transport.RecordResult
		err := client.Send(context.Background(), serverAddr, req, collect(&results))
		Expect(errors.Is(err, transport.ErrUnreachable)).To(BeTrue())
	})
	It("Should translate an expired deadline", func() {
		server.Handle(func(ctx context.Context, _ transport.BatchRequest, _ transport.Sink) error {
			<-ctx.Done()
			return ctx.Err()
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		var results []transport.RecordResult
		err := client.Send(ctx, serverAddr, req, collect(&results))
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})
	It("Should mark handler failures as node failures", func() {
		server.Handle(func(context.Context, transport.BatchRequest, transport.Sink) error {
			return errors.New("not owner")
		})
		var results []transport.RecordResult
		err := client.Send(context.Background(), serverAddr, req, collect(&results))
		Expect(errors.Is(err, transport.ErrNode)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("not owner")))
	})
})
