// Package grove is a client for batch reads against a partitioned key-value
// cluster. A batch read fans out to every node owning one of its keys and
// returns a single map of per-key outcomes.
package grove

import (
	"context"
	"time"

	"github.com/arya-analytics/grove/internal/batch"
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/record"
)

type (
	NodeID    = node.ID
	Node      = node.Node
	NodeState = node.State
	Key       = key.Key
	Value     = key.Value
	Digest    = key.Digest
	Bins      = record.Bins
	Metadata  = record.Metadata
	Record    = record.Record
	Outcome   = record.Outcome
	ResultMap = batch.ResultMap
	Entry     = batch.Entry
	Policy    = batch.Policy
	// ConsistencyLevel sets which replicas of a partition may serve a read.
	ConsistencyLevel = batch.ConsistencyLevel
	// Error is the error every failed batch read returns.
	Error     = batch.Error
	ErrorKind = batch.Kind
)

const (
	ConsistencyDefault = batch.ConsistencyDefault
	ConsistencyOne     = batch.ConsistencyOne
	ConsistencyAll     = batch.ConsistencyAll
)

const (
	NodeHealthy = node.StateHealthy
	NodeSuspect = node.StateSuspect
	NodeDead    = node.StateDead
	NodeLeft    = node.StateLeft
)

const (
	KindInvalidParameter = batch.KindInvalidParameter
	KindConnection       = batch.KindConnection
	KindCluster          = batch.KindCluster
	KindTimeout          = batch.KindTimeout
	KindAggregation      = batch.KindAggregation
)

var (
	ErrInvalidParameter = batch.ErrInvalidParameter
	ErrConnection       = batch.ErrConnection
	ErrCluster          = batch.ErrCluster
	ErrTimeout          = batch.ErrTimeout
	ErrAggregation      = batch.ErrAggregation
	ErrRecordNotFound   = record.ErrRecordNotFound
)

// NewKey builds a key from a namespace, set and user value. The value must be an
// integer, a string or a byte slice.
func NewKey(namespace, set string, value interface{}) (Key, error) {
	return key.New(namespace, set, value)
}

// DefaultPolicy returns the policy a client uses when none is configured.
func DefaultPolicy() Policy { return batch.DefaultPolicy() }

// Duration, Int and Bool set the optional fields of a Policy.
func Duration(d time.Duration) *time.Duration { return batch.Duration(d) }

func Int(n int) *int { return batch.Int(n) }

func Bool(b bool) *bool { return batch.Bool(b) }

type Client interface {
	// SelectMany reads the records of keys from the cluster, restricted to bins.
	// keys is a slice of Key values or (namespace, set, value[, digest]) tuples,
	// bins is nil or a slice of bin names, and policy is nil, a Policy, a *Policy
	// or a map[string]interface{}. Failures are returned as *Error.
	SelectMany(ctx context.Context, keys, bins, policy interface{}) (*ResultMap, error)
	// Get is SelectMany with typed arguments.
	Get(ctx context.Context, keys []Key, bins []string, policy *Policy) (*ResultMap, error)
	// Connected returns true until the client is closed.
	Connected() bool
	// Nodes returns a snapshot of the cluster's nodes.
	Nodes() map[NodeID]Node
	// SetNodeState records a change in a node's liveness. Reads avoid nodes
	// that are dead or have left.
	SetNodeState(id NodeID, state NodeState) error
	// Close disconnects the client. Reads made afterwards fail with a connection
	// error.
	Close() error
}

type client struct {
	cluster   cluster.Cluster
	reader    *batch.Reader
	transport closer
}

var _ Client = (*client)(nil)

func (c *client) SelectMany(ctx context.Context, keys, bins, policy interface{}) (*ResultMap, error) {
	return c.reader.SelectMany(ctx, keys, bins, policy)
}

func (c *client) Get(ctx context.Context, keys []Key, bins []string, policy *Policy) (*ResultMap, error) {
	return c.reader.Get(ctx, keys, bins, policy)
}

func (c *client) Connected() bool { return c.cluster.Connected() }

func (c *client) Nodes() map[NodeID]Node { return c.cluster.Nodes() }

func (c *client) SetNodeState(id NodeID, state NodeState) error { return c.cluster.SetState(id, state) }

func (c *client) Close() error {
	if err := c.cluster.Close(); err != nil {
		return err
	}
	return c.closeTransport()
}

func (c *client) closeTransport() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}
