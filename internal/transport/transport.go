// Package transport defines the messages exchanged between a batch client and
// cluster nodes, and the interfaces transports implement to carry them.
package transport

import (
	"context"
	"strconv"
	"time"

	"github.com/arya-analytics/grove/internal/address"
	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/cockroachdb/errors"
)

var (
	// ErrUnreachable is returned when no node is listening at an address.
	ErrUnreachable = errors.New("node unreachable")
	// ErrNode wraps failures reported by a remote node.
	ErrNode = errors.New("node failure")
)

// Consistency sets how many replicas of a partition a read may be served from.
type Consistency uint8

const (
	// ConsistencyDefault leaves the level to the reader's default policy. Nodes
	// serve it as ConsistencyOne.
	ConsistencyDefault Consistency = iota
	// ConsistencyOne lets any replica of a partition serve a read.
	ConsistencyOne
	// ConsistencyAll requires reads to be served by the partition master.
	ConsistencyAll
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyDefault:
		return "default"
	case ConsistencyOne:
		return "one"
	case ConsistencyAll:
		return "all"
	default:
		return "consistency(" + strconv.Itoa(int(c)) + ")"
	}
}

// BatchRequest asks a single node for the records of a set of keys.
type BatchRequest struct {
	// ID correlates the sub-requests of one batch in logs.
	ID   string
	Keys []key.Key
	// Bins restricts the bins returned for each record. Empty means all bins.
	Bins        []string
	Consistency Consistency
	// Timeout is the time the node has to serve the request. Zero means no limit.
	Timeout time.Duration
}

// RecordResult is a node's answer for one key of a BatchRequest.
type RecordResult struct {
	// Key is the key the result belongs to. Its Value is key.NoValue if the node
	// does not know the key's user value.
	Key     key.Key
	Status  record.Status
	Payload []byte
}

// Sink receives record results as they arrive. Returning an error aborts the
// request.
type Sink func(RecordResult) error

// BatchHandler serves a BatchRequest on a node, passing each result to sink in
// the order the node produces them.
type BatchHandler func(ctx context.Context, req BatchRequest, sink Sink) error

type BatchClient interface {
	// Send issues req to the node at addr and streams its results into sink. Send
	// returns once the node has finished the request, the sink fails, or ctx is
	// done.
	Send(ctx context.Context, addr address.Address, req BatchRequest, sink Sink) error
}

type BatchServer interface {
	// Handle binds the handler that serves incoming batch requests.
	Handle(handler BatchHandler)
}

type Batch interface {
	BatchClient
	BatchServer
}
