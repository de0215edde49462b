// Package batch implements batch reads: validating the keys and bin filter of a
// request, fanning it out to the nodes owning its keys, collecting the streamed
// records into a ResultMap, and translating failures into a single *Error.
package batch

import (
	"context"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Reader struct {
	Config
	dispatcher *dispatcher
	metrics    *metrics
}

func NewReader(cfg Config) (*Reader, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newMetrics()
	if cfg.Registerer != nil {
		if err := m.register(cfg.Registerer); err != nil {
			return nil, err
		}
	}
	return &Reader{
		Config:  cfg,
		metrics: m,
		dispatcher: &dispatcher{
			cluster:     cfg.Cluster,
			transport:   cfg.Transport,
			concurrency: cfg.Concurrency,
			logger:      cfg.Logger,
			metrics:     m,
		},
	}, nil
}

// SelectMany reads the records of keys, restricted to bins, from the cluster.
//
// keys is a slice or array of key.Key values or (namespace, set, value[,
// digest]) tuples. bins is nil or a slice or array of bin names. policy is nil,
// a Policy, a *Policy or a map[string]interface{}, and is merged over the
// reader's default policy.
//
// Every distinct key appears in the returned map exactly once. Records that
// don't exist are reported in the map rather than as an error. On failure,
// SelectMany returns a nil map and an *Error.
func (r *Reader) SelectMany(ctx context.Context, keys, bins, policy interface{}) (*ResultMap, error) {
	res, err := r.selectMany(ctx, keys, bins, policy)
	r.metrics.batches.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		return nil, Translate(err, keys)
	}
	return res, nil
}

// Get is SelectMany with typed arguments.
func (r *Reader) Get(ctx context.Context, keys []key.Key, bins []string, policy *Policy) (*ResultMap, error) {
	var b interface{}
	if bins != nil {
		b = bins
	}
	return r.SelectMany(ctx, keys, b, policy)
}

func (r *Reader) selectMany(ctx context.Context, rawKeys, rawBins, rawPolicy interface{}) (*ResultMap, error) {
	keys, err := ValidateKeys(rawKeys)
	if err != nil {
		return nil, err
	}
	filter, err := BuildBinFilter(rawBins)
	if err != nil {
		return nil, err
	}
	pol, err := resolvePolicy(rawPolicy, r.Policy)
	if err != nil {
		return nil, err
	}
	if !r.Cluster.Connected() {
		return nil, errors.Mark(errors.New("not connected to cluster"), ErrConnection)
	}
	id := uuid.NewString()
	agg := newAggregator(keys, r.Codec, pol.allowNotFound(), r.Logger)
	if err := r.dispatcher.dispatch(ctx, id, keys, filter, pol, agg); err != nil {
		agg.Discard()
		r.Logger.Debug("batch failed", zap.String("batch", id), zap.Error(err))
		return nil, err
	}
	res := agg.Seal()
	if skipped := agg.Skipped(); skipped > 0 {
		r.metrics.skipped.Add(float64(skipped))
	}
	r.Logger.Debug("batch complete",
		zap.String("batch", id),
		zap.Int("records", res.Len()),
		zap.Int("skipped", agg.Skipped()),
	)
	return res, nil
}
