// Package server serves batch reads on a cluster node from its local storage.
package server

import (
	"context"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/partition"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/arya-analytics/grove/internal/storage"
	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrNotOwner is returned when a node is asked for a key it can't serve at the
// requested consistency.
var ErrNotOwner = errors.New("node does not own partition")

type Server struct {
	Config
}

func New(cfg Config) (*Server, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{Config: cfg}, nil
}

// BindTo binds the server's batch handler to t.
func (s *Server) BindTo(t transport.BatchServer) { t.Handle(s.Handle) }

// Put stores r on the node, replacing any record under the same key. Put is
// used to seed nodes. It isn't replicated.
func (s *Server) Put(r record.Record) error {
	if !s.Partitions.Replicas(partition.Of(r.Key.Digest)).Contains(s.Host) {
		return errors.Wrapf(ErrNotOwner, "%s doesn't replicate %s", s.Host, r.Key)
	}
	payload, err := s.Codec.Encode(r.Bins, r.Metadata)
	if err != nil {
		return err
	}
	return s.Engine.Set(storageKey(r.Key), encodeStored(r.Key.Value, payload))
}

// Handle serves a batch request, streaming one result per requested key in
// request order.
func (s *Server) Handle(ctx context.Context, req transport.BatchRequest, sink transport.Sink) error {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	s.Logger.Debug("serving batch",
		zap.Stringer("host", s.Host),
		zap.String("batch", req.ID),
		zap.Int("keys", len(req.Keys)),
		zap.Stringer("consistency", req.Consistency),
	)
	for _, k := range req.Keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.checkOwner(k, req.Consistency); err != nil {
			return err
		}
		res, err := s.read(k, req.Bins)
		if err != nil {
			return err
		}
		if err := sink(res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) checkOwner(k key.Key, c transport.Consistency) error {
	p := partition.Of(k.Digest)
	replicas := s.Partitions.Replicas(p)
	if c == transport.ConsistencyAll {
		if master, ok := replicas.Master(); !ok || master != s.Host {
			return errors.Wrapf(ErrNotOwner, "%s is not master of partition %d", s.Host, p)
		}
		return nil
	}
	if !replicas.Contains(s.Host) {
		return errors.Wrapf(ErrNotOwner, "%s doesn't replicate partition %d", s.Host, p)
	}
	return nil
}

func (s *Server) read(k key.Key, bins []string) (transport.RecordResult, error) {
	res := transport.RecordResult{Key: k}
	raw, err := s.Engine.Get(storageKey(k))
	if errors.Is(err, storage.ErrNotFound) {
		res.Status = record.StatusNotFound
		return res, nil
	}
	if err != nil {
		return res, err
	}
	v, payload, err := decodeStored(raw)
	if err != nil {
		return res, err
	}
	if res.Key.Value.IsNone() {
		res.Key.Value = v
	}
	if len(bins) > 0 {
		b, md, err := s.Codec.Decode(payload)
		if err != nil {
			return res, err
		}
		if payload, err = s.Codec.Encode(b.Project(bins), md); err != nil {
			return res, err
		}
	}
	res.Status = record.StatusFound
	res.Payload = payload
	return res, nil
}

func storageKey(k key.Key) []byte {
	b := make([]byte, 0, len(k.Namespace)+1+key.DigestSize)
	b = append(b, k.Namespace...)
	b = append(b, 0)
	return append(b, k.Digest[:]...)
}

const (
	storedValue   protowire.Number = 1
	storedPayload protowire.Number = 2
)

func encodeStored(v key.Value, payload []byte) []byte {
	var b []byte
	if !v.IsNone() {
		b = protowire.AppendTag(b, storedValue, protowire.BytesType)
		b = protowire.AppendBytes(b, transport.AppendValue(nil, v))
	}
	b = protowire.AppendTag(b, storedPayload, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func decodeStored(b []byte) (v key.Value, payload []byte, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 || typ != protowire.BytesType {
			return v, nil, errors.New("corrupt stored record")
		}
		b = b[n:]
		raw, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return v, nil, errors.New("corrupt stored record")
		}
		b = b[m:]
		switch num {
		case storedValue:
			if v, err = transport.ConsumeValue(raw); err != nil {
				return v, nil, err
			}
		case storedPayload:
			payload = raw
		}
	}
	return v, payload, nil
}
