// Package mock implements an in-memory network for batch transports. Requests
// and results pass through the wire encoding so that mock clusters exercise
// the same messages as a networked one.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
)

type Network struct {
	mu     sync.RWMutex
	routes map[address.Address]*Batch
}

func NewNetwork() *Network { return &Network{routes: make(map[address.Address]*Batch)} }

// Route returns the transport bound to addr, creating it if it doesn't exist.
func (n *Network) Route(addr address.Address) *Batch {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.routes[addr]; ok {
		return b
	}
	b := &Batch{Address: addr, net: n}
	n.routes[addr] = b
	return b
}

// Remove detaches the transport at addr. Requests sent to it afterwards fail
// with transport.ErrUnreachable.
func (n *Network) Remove(addr address.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.routes, addr)
}

func (n *Network) resolve(addr address.Address) (*Batch, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	b, ok := n.routes[addr]
	return b, ok
}

// Batch is a synchronous in-memory implementation of transport.Batch.
type Batch struct {
	Address  address.Address
	net      *Network
	mu       sync.RWMutex
	handler  transport.BatchHandler
	latency  time.Duration
	fault    error
	requests atomic.Int64
}

var _ transport.Batch = (*Batch)(nil)

// Handle implements transport.BatchServer.
func (b *Batch) Handle(handler transport.BatchHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// SetLatency delays every request served by this route by d.
func (b *Batch) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// Fail makes every request served by this route fail with err. A nil err
// clears the fault.
func (b *Batch) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fault = err
}

// Requests returns the number of requests this route has received.
func (b *Batch) Requests() int { return int(b.requests.Load()) }

// Send implements transport.BatchClient.
func (b *Batch) Send(
	ctx context.Context,
	addr address.Address,
	req transport.BatchRequest,
	sink transport.Sink,
) error {
	target, ok := b.net.resolve(addr)
	if !ok {
		return errors.Wrapf(transport.ErrUnreachable, "no route to %s", addr)
	}
	target.requests.Add(1)
	target.mu.RLock()
	handler, latency, fault := target.handler, target.latency, target.fault
	target.mu.RUnlock()
	if handler == nil {
		return errors.Wrapf(transport.ErrUnreachable, "nothing listening at %s", addr)
	}
	if latency > 0 {
		t := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if fault != nil {
		return errors.Mark(fault, transport.ErrNode)
	}
	req, err := transport.UnmarshalRequest(transport.MarshalRequest(req))
	if err != nil {
		return err
	}
	var sinkErr error
	err = handler(ctx, req, func(res transport.RecordResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := transport.UnmarshalResult(transport.MarshalResult(res))
		if err != nil {
			return err
		}
		if err := sink(res); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	if sinkErr != nil {
		return sinkErr
	}
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
		return errors.Mark(err, transport.ErrNode)
	}
	return err
}
