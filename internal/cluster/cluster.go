// Package cluster holds a client's view of the cluster: which nodes exist, how
// to reach them, which partitions they replicate, and whether the client is
// connected at all.
package cluster

import (
	"context"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrClosed       = errors.New("cluster connection closed")
)

type Cluster interface {
	// Connected returns true while the client holds an active session.
	Connected() bool
	// Node returns the node with the given ID.
	Node(id node.ID) (node.Node, bool)
	// Nodes returns a snapshot of every node in the cluster.
	Nodes() node.Group
	// Resolve returns the address of the node with the given ID.
	Resolve(id node.ID) (address.Address, error)
	// Partitions returns the partition table used to route keys to nodes.
	Partitions() *partition.Table
	// SetState updates the liveness state of a node.
	SetState(id node.ID, state node.State) error
	// Close ends the session. Subsequent calls to Connected return false.
	Close() error
}

// Open builds a cluster view from the configured nodes and marks it connected.
func Open(ctx context.Context, cfg Config) (Cluster, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &cluster{Config: cfg, state: &state{nodes: make(node.Group, len(cfg.Nodes))}}
	ids := make([]node.ID, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		c.state.setNode(n)
		ids = append(ids, n.ID)
	}
	c.partitions = partition.Distribute(ids, cfg.ReplicationFactor)
	c.conn.set(true)
	c.Logger.Debug("opened cluster",
		zap.Int("nodes", len(ids)),
		zap.Int("replicationFactor", cfg.ReplicationFactor),
	)
	return c, nil
}

type cluster struct {
	Config
	conn       ConnectionState
	state      *state
	partitions *partition.Table
}

func (c *cluster) Connected() bool { return c.conn.Connected() }

func (c *cluster) Node(id node.ID) (node.Node, bool) { return c.state.get(id) }

func (c *cluster) Nodes() node.Group { return c.state.snapshot() }

func (c *cluster) Resolve(id node.ID) (address.Address, error) {
	n, ok := c.state.get(id)
	if !ok {
		return "", errors.Wrapf(ErrNodeNotFound, "%s", id)
	}
	return n.Address, nil
}

func (c *cluster) Partitions() *partition.Table { return c.partitions }

func (c *cluster) SetState(id node.ID, s node.State) error {
	n, ok := c.state.get(id)
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "%s", id)
	}
	n.State = s
	c.state.setNode(n)
	c.Logger.Debug("node state changed", zap.Stringer("node", id), zap.Stringer("state", s))
	return nil
}

func (c *cluster) Close() error {
	if !c.conn.Connected() {
		return ErrClosed
	}
	c.conn.set(false)
	return nil
}
