package tempstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/leonardcser/tempstore/metrics"
)

var ErrType = errors.New("tempstore: unexpected value type")

// Lookup results reported to Metrics.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupExpired = "expired"
)

// Metrics receives the store's instrumentation. Implementations must be safe
// for concurrent use.
type Metrics interface {
	OpDuration(op string) metrics.Timer
	Lookup(result string) metrics.Counter
}

type nopMetrics struct{}

func (nopMetrics) OpDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) Lookup(string) metrics.Counter   { return metrics.NopCounter() }

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock deadlines are checked against. Defaults to time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metrics implementation.
func WithMetrics(m Metrics) StoreOption {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Store layers read-time expiration over a Provider.
//
// Expiration is lazy: an entry past its deadline is removed only when Get
// touches it. Keys, Values and Entries return whatever the provider holds,
// expired entries included.
type Store struct {
	provider Provider
	now      func() time.Time
	metrics  Metrics
}

// New returns a Store backed by p. The Store takes ownership of p; Close
// closes it.
func New(p Provider, opts ...StoreOption) *Store {
	s := &Store{provider: p, now: time.Now, metrics: NopMetrics()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores value under key. opt may be nil.
func (s *Store) Set(key string, value any, opt *SetOption) error {
	defer s.metrics.OpDuration("set").ObserveDuration()
	return s.provider.Set(key, value, opt)
}

// Get returns the value stored under key. ok is false if there is no entry
// or its deadline is at or before the current time; in the latter case the
// entry is deleted from the provider.
func (s *Store) Get(key string) (value any, ok bool, err error) {
	defer s.metrics.OpDuration("get").ObserveDuration()
	entry, ok, err := s.provider.Get(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.metrics.Lookup(LookupMiss).Inc()
		return nil, false, nil
	}
	if expired(entry.Option, s.now()) {
		s.metrics.Lookup(LookupExpired).Inc()
		if err := s.provider.Delete(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	s.metrics.Lookup(LookupHit).Inc()
	return entry.Value, true, nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	defer s.metrics.OpDuration("delete").ObserveDuration()
	return s.provider.Delete(key)
}

func (s *Store) Keys() ([]string, error) {
	defer s.metrics.OpDuration("keys").ObserveDuration()
	return s.provider.Keys()
}

func (s *Store) Values() ([]any, error) {
	defer s.metrics.OpDuration("values").ObserveDuration()
	return s.provider.Values()
}

func (s *Store) Entries() ([]Pair, error) {
	defer s.metrics.OpDuration("entries").ObserveDuration()
	return s.provider.Entries()
}

// Close closes the underlying provider.
func (s *Store) Close() error {
	return s.provider.Close()
}

// Lookup is Get with a type assertion. A stored null yields the zero T.
func Lookup[T any](s *Store, key string) (out T, ok bool, err error) {
	v, ok, err := s.Get(key)
	if err != nil || !ok || v == nil {
		return out, ok, err
	}
	t, isT := v.(T)
	if !isT {
		return out, false, fmt.Errorf("%w: %s holds %T", ErrType, key, v)
	}
	return t, true, nil
}

func expired(opt *SetOption, now time.Time) bool {
	return opt != nil && opt.Expire != 0 && opt.Expire <= now.UnixMilli()
}
