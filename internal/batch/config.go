package batch

import (
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Config struct {
	// Cluster routes keys to nodes and reports whether the client is connected.
	Cluster cluster.Cluster
	// Transport carries sub-requests to nodes.
	Transport transport.BatchClient
	// Codec decodes record payloads.
	Codec record.Codec
	// Policy is the default policy of every batch read. Per-call policies are
	// merged over it.
	Policy Policy
	// Concurrency limits the number of sub-requests in flight for a single batch
	// read. Zero means no limit.
	Concurrency int
	// Registerer receives the reader's metrics. Metrics aren't exported if it is
	// nil.
	Registerer prometheus.Registerer
	Logger     *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Cluster == nil {
		cfg.Cluster = def.Cluster
	}
	if cfg.Transport == nil {
		cfg.Transport = def.Transport
	}
	if cfg.Codec == nil {
		cfg.Codec = def.Codec
	}
	cfg.Policy = cfg.Policy.Merge(def.Policy)
	if cfg.Concurrency == 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Registerer == nil {
		cfg.Registerer = def.Registerer
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Cluster == nil {
		return errors.New("[batch] - cluster required")
	}
	if cfg.Transport == nil {
		return errors.New("[batch] - transport required")
	}
	if cfg.Concurrency < 0 {
		return errors.New("[batch] - concurrency must not be negative")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return errors.Wrap(err, "[batch] - invalid default policy")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Codec:  record.WireCodec{},
		Policy: DefaultPolicy(),
		Logger: zap.NewNop(),
	}
}
