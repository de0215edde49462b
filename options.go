package grove

import (
	"github.com/arya-analytics/grove/internal/batch"
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/arya-analytics/grove/internal/transport/grpc"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Option func(*options)

type closer interface {
	Close() error
}

type options struct {
	// cluster configures the client's view of the cluster.
	cluster cluster.Config
	// batch configures batch reads.
	batch batch.Config
	// ownsTransport is true when the client created its transport and must close
	// it.
	ownsTransport bool
}

func newOptions(nodes []Node, opts ...Option) *options {
	o := &options{}
	o.cluster.Nodes = nodes
	for _, opt := range opts {
		opt(o)
	}
	mergeDefaultOptions(o)
	return o
}

func validateOptions(o *options) error {
	if len(o.cluster.Nodes) == 0 {
		return errors.New("[grove] - at least one node required")
	}
	return nil
}

func mergeDefaultOptions(o *options) {
	def := defaultOptions()

	// |||| CLUSTER ||||

	o.cluster = o.cluster.Merge(def.cluster)

	// |||| BATCH ||||

	o.batch = o.batch.Merge(def.batch)

	// |||| TRANSPORT ||||

	if o.batch.Transport == nil {
		o.batch.Transport = grpc.New()
		o.ownsTransport = true
	}
}

func defaultOptions() *options {
	return &options{
		cluster: cluster.DefaultConfig(),
		batch:   batch.DefaultConfig(),
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.cluster.Logger = logger
		o.batch.Logger = logger
	}
}

// WithTransport sets the transport the client uses to reach nodes. The client
// doesn't close it. By default the client dials nodes over gRPC.
func WithTransport(t transport.BatchClient) Option {
	return func(o *options) { o.batch.Transport = t }
}

// WithReplicationFactor sets the number of nodes that replicate each partition.
// It must match the cluster's.
func WithReplicationFactor(rf int) Option {
	return func(o *options) { o.cluster.ReplicationFactor = rf }
}

// WithPolicy sets the default policy of the client's batch reads.
func WithPolicy(p Policy) Option { return func(o *options) { o.batch.Policy = p } }

// WithConcurrency limits the number of nodes a single batch read queries at
// once.
func WithConcurrency(n int) Option { return func(o *options) { o.batch.Concurrency = n } }

// WithMetrics registers the client's metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.batch.Registerer = reg }
}
