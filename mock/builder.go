// Package mock builds in-memory clusters for tests and examples. Nodes store
// records in in-memory engines and talk to clients over an in-memory network.
package mock

import (
	"github.com/arya-analytics/grove"
	"github.com/arya-analytics/grove/internal/cluster/clustermock"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/server"
	"github.com/arya-analytics/grove/internal/storage"
	tmock "github.com/arya-analytics/grove/internal/transport/mock"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// EngineFactory opens the storage engine of a node.
type EngineFactory func(id node.ID) (storage.Engine, error)

// PebbleEngine opens an in-memory pebble engine.
func PebbleEngine(node.ID) (storage.Engine, error) { return storage.OpenPebble("", true) }

// BadgerEngine opens an in-memory badger engine.
func BadgerEngine(node.ID) (storage.Engine, error) { return storage.OpenBadger("", true) }

type Builder struct {
	// Nodes is the number of nodes in the cluster.
	Nodes int
	// ReplicationFactor is the number of nodes that replicate each partition.
	ReplicationFactor int
	// Engine opens the storage engine of each node.
	Engine EngineFactory
	// DefaultOptions are applied to every client opened against the cluster.
	DefaultOptions []grove.Option
	Logger         *zap.Logger
}

// NewMemBuilder returns a builder for a three node cluster with a replication
// factor of two, backed by pebble.
func NewMemBuilder(defaultOpts ...grove.Option) *Builder {
	return &Builder{
		Nodes:             3,
		ReplicationFactor: 2,
		Engine:            PebbleEngine,
		DefaultOptions:    defaultOpts,
		Logger:            zap.NewNop(),
	}
}

func (b *Builder) Build() (*Cluster, error) {
	if b.Nodes < 1 {
		return nil, errors.New("[mock] - at least one node required")
	}
	c := &Cluster{
		Nodes:             clustermock.Nodes(b.Nodes),
		ReplicationFactor: b.ReplicationFactor,
		Network:           tmock.NewNetwork(),
		servers:           make(map[node.ID]*server.Server, b.Nodes),
		opts:              b.DefaultOptions,
	}
	ids := make([]node.ID, len(c.Nodes))
	for i, n := range c.Nodes {
		ids[i] = n.ID
	}
	c.partitions = partition.Distribute(ids, b.ReplicationFactor)
	for _, n := range c.Nodes {
		engine, err := b.Engine(n.ID)
		if err != nil {
			return nil, errors.CombineErrors(err, c.Close())
		}
		c.engines = append(c.engines, engine)
		srv, err := server.New(server.Config{
			Host:       n.ID,
			Engine:     engine,
			Partitions: c.partitions,
			Logger:     b.Logger,
		})
		if err != nil {
			return nil, errors.CombineErrors(err, c.Close())
		}
		srv.BindTo(c.Network.Route(n.Address))
		c.servers[n.ID] = srv
	}
	return c, nil
}
