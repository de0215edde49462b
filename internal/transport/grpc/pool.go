package grpc

import (
	"sync"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
)

// Pool keeps one client connection per target address.
type Pool struct {
	opts  []grpc.DialOption
	mu    sync.Mutex
	conns map[address.Address]*grpc.ClientConn
}

func NewPool(opts ...grpc.DialOption) *Pool {
	return &Pool{opts: opts, conns: make(map[address.Address]*grpc.ClientConn)}
}

// Acquire returns the connection to addr, dialing it if the pool doesn't hold
// one yet. Dialing doesn't block: an unreachable address surfaces as an error
// on the first call made over the connection.
func (p *Pool) Acquire(addr address.Address) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.Dial(addr.String(), p.opts...)
	if err != nil {
		return nil, err
	}
	p.conns[addr] = conn
	return conn, nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for addr, conn := range p.conns {
		err = errors.CombineErrors(err, conn.Close())
		delete(p.conns, addr)
	}
	return err
}
