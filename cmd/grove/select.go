package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/arya-analytics/grove"
	"github.com/arya-analytics/grove/internal/batch"
	"github.com/arya-analytics/grove/internal/config"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func selectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <namespace> <set> <key>...",
		Short: "Read the records of a batch of keys",
		Args:  cobra.MinimumNArgs(3),
		RunE:  runSelect,
	}
	cmd.Flags().StringSliceP("bins", "b", nil, "Bins to return. Defaults to every bin")
	return cmd
}

type selectOutput struct {
	Key        interface{} `json:"key"`
	Status     string      `json:"status"`
	Generation uint32      `json:"generation,omitempty"`
	Bins       record.Bins `json:"bins,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	log := logrus.WithField("component", "select")
	nodes, err := cfg.ClusterNodes()
	if err != nil {
		return err
	}
	policy, err := batch.PolicyFromMap(cfg.Policy)
	if err != nil {
		return err
	}
	zl, err := libraryLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := grove.Open(ctx, nodes,
		grove.WithReplicationFactor(cfg.ReplicationFactor),
		grove.WithPolicy(policy),
		grove.WithLogger(zl),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("failed to close client")
		}
	}()
	keys := make([]interface{}, 0, len(args)-2)
	for _, v := range args[2:] {
		keys = append(keys, []interface{}{args[0], args[1], parseKeyValue(v)})
	}
	bins, err := cmd.Flags().GetStringSlice("bins")
	if err != nil {
		return err
	}
	var binFilter interface{}
	if len(bins) > 0 {
		binFilter = bins
	}
	res, err := client.SelectMany(ctx, keys, binFilter, nil)
	if err != nil {
		return err
	}
	log.WithField("records", res.Len()).Debug("batch read complete")
	enc := json.NewEncoder(os.Stdout)
	for _, e := range res.Entries() {
		out := selectOutput{Key: e.Key.Value.Interface(), Status: e.Outcome.Kind().String()}
		switch {
		case e.Outcome.Found():
			out.Generation = e.Outcome.Metadata().Generation
			out.Bins = e.Outcome.Bins()
		case e.Outcome.Err() != nil:
			out.Error = e.Outcome.Err().Error()
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

// parseKeyValue treats arguments that parse as integers as integer keys.
func parseKeyValue(v string) interface{} {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	return v
}
