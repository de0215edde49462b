package batch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/node"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// dispatcher fans a batch read out to the nodes that own its keys.
type dispatcher struct {
	cluster     cluster.Cluster
	transport   transport.BatchClient
	concurrency int
	logger      *zap.Logger
	metrics     *metrics
	// seq rotates ConsistencyOne reads across replicas.
	seq atomic.Uint64
}

// subRequest is the part of a batch read served by a single node.
type subRequest struct {
	node node.ID
	addr address.Address
	keys []key.Key
}

type keySlot struct {
	req *subRequest
	i   int
}

// plan groups keys by the node that will serve them. Keys with the same
// identity are sent once.
func (d *dispatcher) plan(keys []key.Key, consistency ConsistencyLevel) ([]*subRequest, error) {
	var (
		table  = d.cluster.Partitions()
		nodes  = d.cluster.Nodes()
		seq    = d.seq.Add(1)
		byNode = make(map[node.ID]*subRequest)
		sent   = make(map[key.ID]keySlot, len(keys))
		reqs   []*subRequest
	)
	for _, k := range keys {
		if slot, ok := sent[k.ID()]; ok {
			// Keep the last occurrence of a duplicate key.
			slot.req.keys[slot.i] = k
			continue
		}
		p := partition.Of(k.Digest)
		target, err := selectReplica(table.Replicas(p), nodes, consistency, seq)
		if err != nil {
			return nil, errors.Wrapf(err, "partition %d", p)
		}
		r, ok := byNode[target.ID]
		if !ok {
			addr, err := d.cluster.Resolve(target.ID)
			if err != nil {
				return nil, errors.Mark(err, ErrCluster)
			}
			r = &subRequest{node: target.ID, addr: addr}
			byNode[target.ID] = r
			reqs = append(reqs, r)
		}
		sent[k.ID()] = keySlot{req: r, i: len(r.keys)}
		r.keys = append(r.keys, k)
	}
	return reqs, nil
}

func selectReplica(
	replicas partition.Replicas,
	nodes node.Group,
	consistency ConsistencyLevel,
	seq uint64,
) (node.Node, error) {
	if consistency == ConsistencyAll {
		master, ok := replicas.Master()
		if !ok {
			return node.Node{}, errors.Mark(errors.New("partition unavailable"), ErrCluster)
		}
		n, ok := nodes[master]
		if !ok || !n.Reachable() {
			return node.Node{}, errors.Mark(errors.Newf("partition master %s unavailable", master), ErrCluster)
		}
		return n, nil
	}
	live := make([]node.Node, 0, len(replicas))
	for _, id := range replicas {
		if n, ok := nodes[id]; ok && n.Reachable() {
			live = append(live, n)
		}
	}
	if len(live) == 0 {
		return node.Node{}, errors.Mark(errors.New("partition unavailable"), ErrCluster)
	}
	return live[seq%uint64(len(live))], nil
}

// dispatch sends every sub-request of a batch read concurrently, passing the
// results to agg. The first failing sub-request cancels the others.
func (d *dispatcher) dispatch(
	ctx context.Context,
	id string,
	keys []key.Key,
	filter BinFilter,
	pol Policy,
	agg *aggregator,
) error {
	reqs, err := d.plan(keys, pol.Consistency)
	if err != nil {
		return err
	}
	if total := pol.totalTimeout(); total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}
	d.logger.Debug("dispatching batch",
		zap.String("batch", id),
		zap.Int("keys", len(keys)),
		zap.Int("nodes", len(reqs)),
		zap.Stringer("consistency", pol.Consistency),
	)
	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for _, r := range reqs {
		r := r
		g.Go(func() error {
			return d.send(gctx, transport.BatchRequest{
				ID:          id,
				Keys:        r.keys,
				Bins:        filter.Names(),
				Consistency: pol.Consistency,
				Timeout:     pol.socketTimeout(),
			}, r, pol, agg)
		})
	}
	err = g.Wait()
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Mark(errors.Wrapf(err, "batch exceeded total timeout of %s", pol.totalTimeout()), ErrTimeout)
	}
	return err
}

// send issues a sub-request, retrying attempts that time out or can't reach
// the node.
func (d *dispatcher) send(
	ctx context.Context,
	req transport.BatchRequest,
	r *subRequest,
	pol Policy,
	agg *aggregator,
) error {
	start := time.Now()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pol.sleepBetweenRetries()
	b.MaxElapsedTime = 0
	attempts := 0
	op := func() error {
		attempts++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if req.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, req.Timeout)
		}
		defer cancel()
		err := d.transport.Send(actx, r.addr, req, agg.Collect)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrAggregation) {
			return backoff.Permanent(err)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, transport.ErrUnreachable) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		d.metrics.retries.Inc()
		d.logger.Debug("retrying node request",
			zap.String("batch", req.ID),
			zap.Stringer("node", r.node),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, pol.retries()), ctx), notify)
	err = classify(err, r)
	d.metrics.latency.Observe(time.Since(start).Seconds())
	d.metrics.subRequests.WithLabelValues(subRequestLabel(err)).Inc()
	d.logger.Debug("node request finished",
		zap.String("batch", req.ID),
		zap.Stringer("node", r.node),
		zap.Int("keys", len(r.keys)),
		zap.Int("attempts", attempts),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return err
}

func classify(err error, r *subRequest) error {
	switch {
	case err == nil,
		errors.Is(err, ErrAggregation),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Mark(errors.Wrapf(err, "%s timed out", r.node), ErrTimeout)
	default:
		return errors.Mark(errors.Wrapf(err, "%s at %s failed", r.node, r.addr), ErrCluster)
	}
}

func subRequestLabel(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return outcomeLabel(err)
}
