package batch

import (
	"sync"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// aggregator collects the record results of a batch read into a ResultMap. It
// is safe to call Collect from multiple goroutines.
type aggregator struct {
	codec         record.Codec
	allowNotFound bool
	logger        *zap.Logger
	requested     map[key.ID]struct{}
	mu            sync.Mutex
	results       *ResultMap
	skipped       int
	sealed        bool
}

func newAggregator(keys []key.Key, codec record.Codec, allowNotFound bool, logger *zap.Logger) *aggregator {
	a := &aggregator{codec: codec, allowNotFound: allowNotFound, logger: logger}
	a.results = newResultMap(keys)
	a.requested = make(map[key.ID]struct{}, len(a.results.order))
	for _, id := range a.results.order {
		a.requested[id] = struct{}{}
	}
	return a
}

// Collect stores the outcome of res. A later result for the same key replaces
// an earlier one.
func (a *aggregator) Collect(res transport.RecordResult) error {
	var outcome record.Outcome
	switch res.Status {
	case record.StatusFound:
		bins, md, err := a.codec.Decode(res.Payload)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "decoding record %s", res.Key), ErrAggregation)
		}
		outcome = record.Found(bins, md)
	case record.StatusNotFound:
		if a.allowNotFound {
			outcome = record.NotFound()
		} else {
			outcome = record.Errored(record.ErrRecordNotFound)
		}
	default:
		a.mu.Lock()
		a.skipped++
		a.mu.Unlock()
		a.logger.Debug("skipping record", zap.Stringer("key", res.Key), zap.Stringer("status", res.Status))
		return nil
	}
	id := res.Key.ID()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return errors.Mark(errors.Newf("result for %s arrived after the batch completed", res.Key), ErrAggregation)
	}
	if _, ok := a.requested[id]; !ok {
		return errors.Mark(errors.Newf("result for unrequested key %s", res.Key), ErrAggregation)
	}
	a.results.entries[id] = Entry{Key: res.Key, Outcome: outcome}
	return nil
}

// Skipped returns the number of results that were neither found nor not found.
func (a *aggregator) Skipped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skipped
}

// Seal stops the aggregator from accepting results and returns the collected
// map.
func (a *aggregator) Seal() *ResultMap {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	return a.results
}

// Discard stops the aggregator from accepting results and drops everything it
// collected.
func (a *aggregator) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	a.results = nil
}
