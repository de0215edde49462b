package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/arya-analytics/grove/internal/config"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/server"
	"github.com/arya-analytics/grove/internal/storage"
	"github.com/arya-analytics/grove/internal/transport/grpc"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func nodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Serve batch reads for one node of the cluster",
		RunE:  runNode,
	}
	cmd.Flags().Uint16("node-id", 0, "ID of this node in --nodes")
	cmd.Flags().StringP("listen", "l", "", "Listen address (defaults to the node's port in --nodes)")
	cmd.Flags().StringP("data-dir", "d", "./data", "Data directory path")
	cmd.Flags().String("engine", "pebble", "Storage engine (pebble, badger)")
	cmd.Flags().Bool("in-memory", false, "Keep data in memory only")
	return cmd
}

func runNode(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	log := logrus.WithField("component", "node")
	nodes, err := cfg.ClusterNodes()
	if err != nil {
		return err
	}
	host := node.ID(cfg.Node.ID)
	ids := make([]node.ID, 0, len(nodes))
	found := false
	for _, n := range nodes {
		ids = append(ids, n.ID)
		found = found || n.ID == host
	}
	if !found {
		return errors.Newf("node id %d is not one of the cluster's nodes", cfg.Node.ID)
	}
	engine, err := openEngine(cfg.Node)
	if err != nil {
		return errors.Wrap(err, "failed to open storage")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.WithError(err).Error("failed to close storage")
		}
	}()
	zl, err := libraryLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	table := partition.Distribute(ids, cfg.ReplicationFactor)
	srv, err := server.New(server.Config{Host: host, Engine: engine, Partitions: table, Logger: zl})
	if err != nil {
		return err
	}
	t := grpc.New()
	srv.BindTo(t)
	listen, err := cfg.ListenAddress()
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", listen)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("received shutdown signal")
		if err := t.Close(); err != nil {
			log.WithError(err).Error("failed to stop transport")
		}
	}()
	log.WithFields(logrus.Fields{
		"node":       host.String(),
		"listen":     lis.Addr().String(),
		"engine":     cfg.Node.Engine,
		"partitions": len(table.Owned(host)),
	}).Info("serving batch reads")
	if err := t.Serve(lis); err != nil {
		return errors.Wrap(err, "server error")
	}
	log.Info("node stopped")
	return nil
}

func openEngine(cfg config.Node) (storage.Engine, error) {
	if cfg.Engine == "badger" {
		return storage.OpenBadger(cfg.DataDir, cfg.InMemory)
	}
	return storage.OpenPebble(cfg.DataDir, cfg.InMemory)
}
