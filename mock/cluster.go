package mock

import (
	"context"

	"github.com/arya-analytics/grove"
	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/server"
	"github.com/arya-analytics/grove/internal/storage"
	tmock "github.com/arya-analytics/grove/internal/transport/mock"
	"github.com/cockroachdb/errors"
)

// ClientAddress is the address clients of a mock cluster send requests from.
const ClientAddress address.Address = "client:0"

type Cluster struct {
	Nodes             []node.Node
	ReplicationFactor int
	Network           *tmock.Network
	partitions        *partition.Table
	servers           map[node.ID]*server.Server
	engines           []storage.Engine
	opts              []grove.Option
}

// Put stores r on every node that replicates its partition.
func (c *Cluster) Put(r record.Record) error {
	for _, id := range c.partitions.Replicas(partition.Of(r.Key.Digest)) {
		if err := c.servers[id].Put(r); err != nil {
			return err
		}
	}
	return nil
}

// PutBins stores a record with the given bins under k.
func (c *Cluster) PutBins(k grove.Key, bins grove.Bins) error {
	return c.Put(record.Record{Key: k, Bins: bins, Metadata: record.Metadata{Generation: 1}})
}

// Route returns the network route of the node with the given ID, which can be
// used to inject latency or faults.
func (c *Cluster) Route(id node.ID) *tmock.Batch {
	for _, n := range c.Nodes {
		if n.ID == id {
			return c.Network.Route(n.Address)
		}
	}
	panic(errors.Newf("[mock] - no node with id %s", id))
}

// Master returns the node that masters the partition of k.
func (c *Cluster) Master(k grove.Key) node.ID {
	id, _ := c.partitions.Master(partition.Of(k.Digest))
	return id
}

// Replicas returns the nodes that replicate the partition of k, master first.
func (c *Cluster) Replicas(k grove.Key) []node.ID {
	return c.partitions.Replicas(partition.Of(k.Digest))
}

// Server returns the batch server of the node with the given ID.
func (c *Cluster) Server(id node.ID) *server.Server { return c.servers[id] }

// Transport returns the client side of the network.
func (c *Cluster) Transport() *tmock.Batch { return c.Network.Route(ClientAddress) }

// View opens a cluster view over the mock cluster's nodes.
func (c *Cluster) View(ctx context.Context) (cluster.Cluster, error) {
	return cluster.Open(ctx, cluster.Config{Nodes: c.Nodes, ReplicationFactor: c.ReplicationFactor})
}

// Open connects a client to the mock cluster.
func (c *Cluster) Open(ctx context.Context, opts ...grove.Option) (grove.Client, error) {
	opts = append(append([]grove.Option{
		grove.WithTransport(c.Transport()),
		grove.WithReplicationFactor(c.ReplicationFactor),
	}, c.opts...), opts...)
	return grove.Open(ctx, c.Nodes, opts...)
}

// Close closes the storage engines of every node.
func (c *Cluster) Close() error {
	var err error
	for _, e := range c.engines {
		err = errors.CombineErrors(err, e.Close())
	}
	c.engines = nil
	return err
}
