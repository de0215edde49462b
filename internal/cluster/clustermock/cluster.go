// Package clustermock provisions cluster views over fabricated node addresses.
package clustermock

import (
	"context"
	"strconv"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/arya-analytics/grove/internal/node"
)

// Nodes returns n healthy nodes with IDs 1..n at the addresses localhost:0 through
// localhost:n-1.
func Nodes(n int) []node.Node {
	nodes := make([]node.Node, n)
	for i := range nodes {
		nodes[i] = node.Node{
			ID:      node.ID(i + 1),
			Address: address.New("localhost", strconv.Itoa(i)),
			State:   node.StateHealthy,
		}
	}
	return nodes
}

// Provision opens a cluster view over n fabricated nodes.
func Provision(n int, cfg cluster.Config) (cluster.Cluster, error) {
	cfg.Nodes = Nodes(n)
	return cluster.Open(context.Background(), cfg)
}
