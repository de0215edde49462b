package node

import (
	"strconv"

	"github.com/arya-analytics/grove/internal/address"
)

// ID uniquely identifies a node within the cluster. The zero ID is never
// assigned to a node.
type ID uint16

func (id ID) String() string { return "node-" + strconv.Itoa(int(id)) }

// State is the liveness state of a node as seen by the client.
type State uint32

const (
	StateHealthy State = iota
	StateSuspect
	StateDead
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateSuspect:
		return "suspect"
	case StateDead:
		return "dead"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

type Node struct {
	ID      ID
	Address address.Address
	State   State
}

// Reachable returns true if the node can be sent requests.
func (n Node) Reachable() bool { return n.State == StateHealthy || n.State == StateSuspect }
