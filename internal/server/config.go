package server

import (
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/storage"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Config struct {
	// Host is the ID of the node this server runs on.
	Host node.ID
	// Engine stores the node's records.
	Engine storage.Engine
	// Partitions decides which keys the node is allowed to serve.
	Partitions *partition.Table
	// Codec encodes records into result payloads.
	Codec  record.Codec
	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Engine == nil {
		cfg.Engine = def.Engine
	}
	if cfg.Partitions == nil {
		cfg.Partitions = def.Partitions
	}
	if cfg.Codec == nil {
		cfg.Codec = def.Codec
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Host == 0 {
		return errors.New("[server] - host id required")
	}
	if cfg.Engine == nil {
		return errors.New("[server] - storage engine required")
	}
	if cfg.Partitions == nil {
		return errors.New("[server] - partition table required")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{Codec: record.WireCodec{}, Logger: zap.NewNop()}
}
