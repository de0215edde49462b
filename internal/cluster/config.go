package cluster

import (
	"github.com/arya-analytics/grove/internal/node"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Config struct {
	// Nodes are the members of the cluster. Every node must have a unique, non-zero
	// ID and an address.
	Nodes []node.Node
	// ReplicationFactor is the number of nodes that replicate each partition.
	ReplicationFactor int
	// Logger is the witness of it all.
	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if len(cfg.Nodes) == 0 {
		cfg.Nodes = def.Nodes
	}
	if cfg.ReplicationFactor == 0 {
		cfg.ReplicationFactor = def.ReplicationFactor
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if len(cfg.Nodes) == 0 {
		return errors.New("[cluster] - at least one node required")
	}
	if cfg.ReplicationFactor < 1 {
		return errors.New("[cluster] - replication factor must be positive")
	}
	seen := make(map[node.ID]bool, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		if n.ID == 0 {
			return errors.Newf("[cluster] - node at %s has no id", n.Address)
		}
		if n.Address == "" {
			return errors.Newf("[cluster] - %s has no address", n.ID)
		}
		if seen[n.ID] {
			return errors.Newf("[cluster] - duplicate node id %s", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

func DefaultConfig() Config {
	return Config{ReplicationFactor: 2, Logger: zap.NewNop()}
}
