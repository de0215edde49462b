package grove

import (
	"context"

	"github.com/arya-analytics/grove/internal/batch"
	"github.com/arya-analytics/grove/internal/cluster"
	"github.com/cockroachdb/errors"
)

// Open connects a client to the cluster made up of nodes.
func Open(ctx context.Context, nodes []Node, opts ...Option) (Client, error) {
	o := newOptions(nodes, opts...)
	c := &client{}
	if o.ownsTransport {
		c.transport = o.batch.Transport.(closer)
	}
	if err := validateOptions(o); err != nil {
		return nil, errors.CombineErrors(err, c.closeTransport())
	}
	clust, err := cluster.Open(ctx, o.cluster)
	if err != nil {
		return nil, errors.CombineErrors(err, c.closeTransport())
	}
	o.batch.Cluster = clust
	c.cluster = clust
	if c.reader, err = batch.NewReader(o.batch); err != nil {
		return nil, errors.CombineErrors(err, c.Close())
	}
	return c, nil
}
