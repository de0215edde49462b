// Package grpc implements the batch transport over gRPC. Messages are encoded
// with the transport wire format and carried as bytes, so the service is
// declared by hand instead of generated.
package grpc

import (
	"context"
	"io"
	"net"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const getBinsMethod = "/grove.v1.BatchService/GetBins"

type batchServiceServer interface {
	GetBins(*wrapperspb.BytesValue, grpc.ServerStream) error
}

var batchServiceDesc = grpc.ServiceDesc{
	ServiceName: "grove.v1.BatchService",
	HandlerType: (*batchServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetBins",
			Handler:       getBinsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "grove/v1/batch.proto",
}

func getBinsHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.BytesValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(batchServiceServer).GetBins(m, stream)
}

// Batch implements transport.Batch over gRPC.
type Batch struct {
	pool    *Pool
	handler transport.BatchHandler
	server  *grpc.Server
}

var _ transport.Batch = (*Batch)(nil)

// New creates a transport that dials peers with opts. Without options, peers are
// dialed over plaintext connections.
func New(opts ...grpc.DialOption) *Batch {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	b := &Batch{pool: NewPool(opts...), server: grpc.NewServer()}
	b.BindTo(b.server)
	return b
}

func (b *Batch) String() string { return "grpc" }

// Send implements transport.BatchClient.
func (b *Batch) Send(
	ctx context.Context,
	addr address.Address,
	req transport.BatchRequest,
	sink transport.Sink,
) error {
	conn, err := b.pool.Acquire(addr)
	if err != nil {
		return errors.Mark(err, transport.ErrUnreachable)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := conn.NewStream(ctx, &batchServiceDesc.Streams[0], getBinsMethod)
	if err != nil {
		return translateError(err)
	}
	if err := stream.SendMsg(translateBackward(req)); err != nil {
		return translateError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return translateError(err)
	}
	for {
		m := new(wrapperspb.BytesValue)
		if err := stream.RecvMsg(m); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return translateError(err)
		}
		res, err := transport.UnmarshalResult(m.Value)
		if err != nil {
			return err
		}
		if err := sink(res); err != nil {
			return err
		}
	}
}

// Handle implements transport.BatchServer.
func (b *Batch) Handle(handler transport.BatchHandler) { b.handler = handler }

// GetBins serves a batch request received over gRPC.
func (b *Batch) GetBins(m *wrapperspb.BytesValue, stream grpc.ServerStream) error {
	if b.handler == nil {
		return status.Error(codes.Unavailable, "no batch handler bound")
	}
	req, err := transport.UnmarshalRequest(m.GetValue())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	err = b.handler(stream.Context(), req, func(res transport.RecordResult) error {
		return stream.SendMsg(&wrapperspb.BytesValue{Value: transport.MarshalResult(res)})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// BindTo registers the batch service on server.
func (b *Batch) BindTo(server *grpc.Server) { server.RegisterService(&batchServiceDesc, b) }

// Serve accepts batch requests on lis until Close is called.
func (b *Batch) Serve(lis net.Listener) error { return b.server.Serve(lis) }

// Close stops the server started by Serve and closes every client connection.
func (b *Batch) Close() error {
	b.server.Stop()
	return b.pool.Close()
}

func translateBackward(req transport.BatchRequest) *wrapperspb.BytesValue {
	return &wrapperspb.BytesValue{Value: transport.MarshalRequest(req)}
}

func translateError(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.DeadlineExceeded:
		return errors.Wrap(context.DeadlineExceeded, s.Message())
	case codes.Canceled:
		return errors.Wrap(context.Canceled, s.Message())
	case codes.Unavailable:
		return errors.Wrap(transport.ErrUnreachable, s.Message())
	default:
		return errors.Wrap(transport.ErrNode, s.Message())
	}
}
