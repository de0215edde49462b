// Package config loads the configuration of the grove command from flags, a
// config file and GROVE_ prefixed environment variables, in that order of
// precedence.
package config

import (
	"strconv"
	"strings"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "GROVE"

type Config struct {
	LogLevel string `mapstructure:"log_level"`
	// Nodes lists the cluster's members as id=host:port pairs.
	Nodes             []string `mapstructure:"nodes"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	Node              Node     `mapstructure:"node"`
	// Policy is the default batch policy, keyed like batch.PolicyFromMap.
	Policy map[string]interface{} `mapstructure:"policy"`
}

// Node configures the node served by `grove node`. An empty Listen defaults to
// the port of the node's own entry in Nodes.
type Node struct {
	ID       uint16 `mapstructure:"id"`
	Listen   string `mapstructure:"listen"`
	DataDir  string `mapstructure:"data_dir"`
	Engine   string `mapstructure:"engine"`
	InMemory bool   `mapstructure:"in_memory"`
}

// Load builds the configuration for cmd.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindFlags(cmd, v); err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}
	if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("nodes", []string{})
	v.SetDefault("replication_factor", 2)
	v.SetDefault("node.id", 0)
	v.SetDefault("node.listen", "")
	v.SetDefault("node.data_dir", "./data")
	v.SetDefault("node.engine", "pebble")
	v.SetDefault("node.in_memory", false)
	v.SetDefault("policy", map[string]interface{}{})
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"log-level":          "log_level",
		"nodes":              "nodes",
		"replication-factor": "replication_factor",
		"node-id":            "node.id",
		"listen":             "node.listen",
		"data-dir":           "node.data_dir",
		"engine":             "node.engine",
		"in-memory":          "node.in_memory",
	}
	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.ReplicationFactor < 1 {
		return errors.New("replication_factor must be positive")
	}
	switch c.Node.Engine {
	case "pebble", "badger":
	default:
		return errors.Newf("unknown storage engine %q", c.Node.Engine)
	}
	_, err := c.ClusterNodes()
	return err
}

// ClusterNodes parses Nodes into healthy cluster members.
func (c Config) ClusterNodes() ([]node.Node, error) {
	nodes := make([]node.Node, 0, len(c.Nodes))
	for _, entry := range c.Nodes {
		id, addr, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || addr == "" {
			return nil, errors.Newf("node %q should be given as id=host:port", entry)
		}
		n, err := strconv.ParseUint(id, 10, 16)
		if err != nil || n == 0 {
			return nil, errors.Newf("node %q has an invalid id", entry)
		}
		nodes = append(nodes, node.Node{ID: node.ID(n), Address: address.Address(addr), State: node.StateHealthy})
	}
	return nodes, nil
}

// ListenAddress returns the address `grove node` listens on.
func (c Config) ListenAddress() (string, error) {
	if c.Node.Listen != "" {
		return c.Node.Listen, nil
	}
	nodes, err := c.ClusterNodes()
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		if n.ID == node.ID(c.Node.ID) {
			if port := n.Address.PortString(); port != "" {
				return port, nil
			}
			return "", errors.Newf("node %d has no port in %s", c.Node.ID, n.Address)
		}
	}
	return "", errors.Newf("node id %d is not one of the cluster's nodes", c.Node.ID)
}
