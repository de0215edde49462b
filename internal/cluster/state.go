package cluster

import (
	"sync"
	"sync/atomic"

	"github.com/arya-analytics/grove/internal/node"
)

// ConnectionState tracks whether a client holds an active session with the
// cluster. It is safe for concurrent use.
type ConnectionState struct {
	connected atomic.Bool
}

func (c *ConnectionState) Connected() bool { return c.connected.Load() }

func (c *ConnectionState) set(connected bool) { c.connected.Store(connected) }

type state struct {
	mu    sync.RWMutex
	nodes node.Group
}

func (s *state) setNode(n node.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
}

func (s *state) get(id node.ID) (node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

func (s *state) snapshot() node.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes.Copy()
}
