package batch

import (
	"reflect"
	"strings"
	"time"

	"github.com/arya-analytics/grove/internal/transport"
	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
)

// ConsistencyLevel sets which replicas of a partition may serve a read.
type ConsistencyLevel = transport.Consistency

const (
	// ConsistencyDefault takes the level of the reader's default policy.
	ConsistencyDefault = transport.ConsistencyDefault
	// ConsistencyOne reads from any live replica.
	ConsistencyOne = transport.ConsistencyOne
	// ConsistencyAll reads from the partition master.
	ConsistencyAll = transport.ConsistencyAll
)

// Policy tunes a single batch read. Nil fields and ConsistencyDefault take their
// value from the reader's default policy, so an explicit zero is kept.
type Policy struct {
	// TotalTimeout bounds the whole batch, retries included. Zero means no bound.
	TotalTimeout *time.Duration `mapstructure:"total_timeout"`
	// SocketTimeout bounds each attempt of a per-node sub-request. Zero means
	// attempts are bound only by the total timeout.
	SocketTimeout *time.Duration `mapstructure:"socket_timeout"`
	// MaxRetries is the number of times a sub-request is retried after a timeout
	// or an unreachable node. Zero or a negative value disables retries.
	MaxRetries *int `mapstructure:"max_retries"`
	// SleepBetweenRetries is the initial delay before a retry. Later retries back
	// off exponentially.
	SleepBetweenRetries *time.Duration   `mapstructure:"sleep_between_retries"`
	Consistency         ConsistencyLevel `mapstructure:"consistency"`
	// AllowNotFound reports missing records as record.NotFound. When false, they
	// are reported as record.Errored with record.ErrRecordNotFound.
	AllowNotFound *bool `mapstructure:"allow_not_found"`
}

// Duration returns a pointer to d for use in a Policy.
func Duration(d time.Duration) *time.Duration { return &d }

// Int returns a pointer to n for use in a Policy.
func Int(n int) *int { return &n }

// Bool returns a pointer to b for use in a Policy.
func Bool(b bool) *bool { return &b }

// DefaultPolicy is the policy a reader falls back to.
func DefaultPolicy() Policy {
	return Policy{
		TotalTimeout:        Duration(time.Second),
		SocketTimeout:       Duration(500 * time.Millisecond),
		MaxRetries:          Int(2),
		SleepBetweenRetries: Duration(5 * time.Millisecond),
		Consistency:         ConsistencyOne,
		AllowNotFound:       Bool(true),
	}
}

func (p Policy) Merge(def Policy) Policy {
	if p.TotalTimeout == nil {
		p.TotalTimeout = def.TotalTimeout
	}
	if p.SocketTimeout == nil {
		p.SocketTimeout = def.SocketTimeout
	}
	if p.MaxRetries == nil {
		p.MaxRetries = def.MaxRetries
	}
	if p.SleepBetweenRetries == nil {
		p.SleepBetweenRetries = def.SleepBetweenRetries
	}
	if p.Consistency == ConsistencyDefault {
		p.Consistency = def.Consistency
	}
	if p.AllowNotFound == nil {
		p.AllowNotFound = def.AllowNotFound
	}
	return p
}

func (p Policy) Validate() error {
	if p.totalTimeout() < 0 {
		return invalidParameter("total timeout must not be negative")
	}
	if deref(p.SocketTimeout) < 0 {
		return invalidParameter("socket timeout must not be negative")
	}
	if p.sleepBetweenRetries() < 0 {
		return invalidParameter("sleep between retries must not be negative")
	}
	if p.Consistency > ConsistencyAll {
		return invalidParameterf("unknown consistency level %s", p.Consistency)
	}
	return nil
}

func deref[T any](v *T) (zero T) {
	if v == nil {
		return zero
	}
	return *v
}

func (p Policy) totalTimeout() time.Duration { return deref(p.TotalTimeout) }

func (p Policy) sleepBetweenRetries() time.Duration { return deref(p.SleepBetweenRetries) }

func (p Policy) allowNotFound() bool { return p.AllowNotFound == nil || *p.AllowNotFound }

func (p Policy) retries() uint64 {
	if n := deref(p.MaxRetries); n > 0 {
		return uint64(n)
	}
	return 0
}

// socketTimeout returns the per-attempt timeout, which never exceeds a set total
// timeout.
func (p Policy) socketTimeout() time.Duration {
	total, socket := p.totalTimeout(), deref(p.SocketTimeout)
	if total > 0 && (socket == 0 || socket > total) {
		return total
	}
	return socket
}

// PolicyFromMap decodes a policy from a map keyed by the policy's field tags.
// Durations are given as integer milliseconds or duration strings, and the
// consistency level as "one" or "all".
func PolicyFromMap(m map[string]interface{}) (Policy, error) {
	var p Policy
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &p,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
			consistencyHook,
		),
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(m); err != nil {
		return p, errors.Mark(errors.Wrap(err, "invalid policy"), ErrInvalidParameter)
	}
	return p, nil
}

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	consistencyType = reflect.TypeOf(ConsistencyOne)
)

func millisecondsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	}
	return data, nil
}

func consistencyHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != consistencyType || from.Kind() != reflect.String {
		return data, nil
	}
	switch strings.ToLower(data.(string)) {
	case "one":
		return ConsistencyOne, nil
	case "all":
		return ConsistencyAll, nil
	}
	return nil, errors.Newf("unknown consistency level %q", data)
}

// resolvePolicy converts the policy argument of a batch read into a complete
// policy. p may be nil, a Policy, a *Policy or a map[string]interface{}.
func resolvePolicy(p interface{}, def Policy) (Policy, error) {
	var pol Policy
	switch t := p.(type) {
	case nil:
	case Policy:
		pol = t
	case *Policy:
		if t != nil {
			pol = *t
		}
	case map[string]interface{}:
		var err error
		if pol, err = PolicyFromMap(t); err != nil {
			return pol, err
		}
	default:
		return pol, invalidParameterf("policy should be a Policy or a map, got %T", p)
	}
	pol = pol.Merge(def)
	return pol, pol.Validate()
}
