package main

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "grove",
		Short:         "grove - parallel batch reads over a partitioned key-value cluster",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSlice("nodes", nil, "Cluster members as id=host:port")
	rootCmd.PersistentFlags().Int("replication-factor", 2, "Number of nodes replicating each partition")
	rootCmd.AddCommand(nodeCommand(), selectCommand())
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// libraryLogger returns the logger handed to grove's packages. They only log at
// debug level, so it is a no-op unless debug logging is on.
func libraryLogger(level string) (*zap.Logger, error) {
	if level != "debug" {
		return zap.NewNop(), nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}
	return l, nil
}
