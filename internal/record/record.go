package record

import (
	"strconv"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/cockroachdb/errors"
)

// Bins maps bin names to bin values. Values are one of nil, bool, int64,
// float64, string, []byte, []interface{} or map[string]interface{}.
type Bins map[string]interface{}

// Project returns the bins whose names are in names. An empty names list returns
// every bin.
func (b Bins) Project(names []string) Bins {
	if len(names) == 0 {
		return b
	}
	res := make(Bins, len(names))
	for _, n := range names {
		if v, ok := b[n]; ok {
			res[n] = v
		}
	}
	return res
}

type Metadata struct {
	// Generation counts the writes applied to the record.
	Generation uint32
	// TTL is the record's remaining time to live in seconds. Zero means the record
	// never expires.
	TTL uint32
}

type Record struct {
	Key  key.Key
	Bins Bins
	Metadata
}

// Status is the per-record result a node reports for a key in a batch.
type Status uint8

const (
	StatusFound Status = iota
	StatusNotFound
	// StatusFiltered is reported when a node skips a record it holds, e.g. because
	// it expired between lookup and read.
	StatusFiltered
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFiltered:
		return "filtered"
	case StatusError:
		return "error"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

var ErrRecordNotFound = errors.New("record not found")

// OutcomeKind discriminates the variants of an Outcome.
type OutcomeKind uint8

const (
	OutcomeFound OutcomeKind = iota + 1
	OutcomeNotFound
	OutcomeErrored
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of reading a single key in a batch.
type Outcome struct {
	kind     OutcomeKind
	bins     Bins
	metadata Metadata
	err      error
}

func Found(bins Bins, md Metadata) Outcome {
	if bins == nil {
		bins = Bins{}
	}
	return Outcome{kind: OutcomeFound, bins: bins, metadata: md}
}

func NotFound() Outcome { return Outcome{kind: OutcomeNotFound} }

func Errored(err error) Outcome { return Outcome{kind: OutcomeErrored, err: err} }

func (o Outcome) Kind() OutcomeKind { return o.kind }

func (o Outcome) Found() bool { return o.kind == OutcomeFound }

// Bins returns the record's bins. It is nil unless the outcome is Found.
func (o Outcome) Bins() Bins { return o.bins }

func (o Outcome) Metadata() Metadata { return o.metadata }

// Err returns the error of an Errored outcome and nil otherwise.
func (o Outcome) Err() error { return o.err }
