package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/leonardcser/tempstore"
	"github.com/leonardcser/tempstore/internal/codec"
	"github.com/leonardcser/tempstore/internal/logger"
)

const defaultTimeout = 5 * time.Second

var ErrClosed = errors.New("nats: provider closed")

type Config struct {
	// Connect defaults to ConnectDefault.
	Connect Connector
	Bucket  string
	// Timeout bounds each key-value operation. Defaults to 5s.
	Timeout time.Duration
}

// Provider keeps entries in a JetStream key-value bucket, one message per key
// holding the JSON of its tagged value. Keys must be valid NATS key-value
// keys. Delete is durable immediately.
type Provider struct {
	kv        jetstream.KeyValue
	timeout   time.Duration
	closeConn closeFunc

	mu     sync.RWMutex
	closed bool
}

var _ tempstore.Provider = (*Provider)(nil)

func Open(cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("nats: bucket is required")
	}
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  cfg.Bucket,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("nats: bucket %s: %w", cfg.Bucket, err)
	}
	return &Provider{kv: kv, timeout: timeout, closeConn: closeConn}, nil
}

func (p *Provider) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

func (p *Provider) Set(key string, value any, opt *tempstore.SetOption) error {
	enc, err := codec.Encode(value, opt)
	if err != nil {
		return err
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	ctx, cancel := p.ctx()
	defer cancel()
	if _, err := p.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("nats: put %s: %w", key, err)
	}
	return nil
}

func (p *Provider) Get(key string) (tempstore.Entry, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return tempstore.Entry{}, false, ErrClosed
	}
	ctx, cancel := p.ctx()
	defer cancel()
	v, err := p.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return tempstore.Entry{}, false, nil
		}
		return tempstore.Entry{}, false, fmt.Errorf("nats: get %s: %w", key, err)
	}
	enc := decodeRaw(key, v.Value())
	if enc.Absent() {
		return tempstore.Entry{}, false, nil
	}
	d := codec.Decode(enc)
	return tempstore.Entry{Value: d.Value, Option: d.Option}, true, nil
}

func (p *Provider) Delete(key string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	ctx, cancel := p.ctx()
	defer cancel()
	if err := p.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats: delete %s: %w", key, err)
	}
	return nil
}

func (p *Provider) Keys() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	return p.keys()
}

func (p *Provider) keys() ([]string, error) {
	ctx, cancel := p.ctx()
	defer cancel()
	lister, err := p.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("nats: list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()
	var out []string
	for key := range lister.Keys() {
		out = append(out, key)
	}
	return out, nil
}

func (p *Provider) Values() ([]any, error) {
	var out []any
	err := p.each(func(_ string, enc codec.Encoded) {
		out = append(out, codec.Decode(enc).Value)
	})
	return out, err
}

func (p *Provider) Entries() ([]tempstore.Pair, error) {
	var out []tempstore.Pair
	err := p.each(func(key string, enc codec.Encoded) {
		out = append(out, tempstore.Pair{Key: key, Value: codec.Decode(enc).Value})
	})
	return out, err
}

// each lists the keys, then fetches them one by one. A key deleted between
// the two steps is skipped.
func (p *Provider) each(fn func(key string, enc codec.Encoded)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	keys, err := p.keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		ctx, cancel := p.ctx()
		v, err := p.kv.Get(ctx, key)
		cancel()
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("nats: get %s: %w", key, err)
		}
		enc := decodeRaw(key, v.Value())
		if enc.Absent() {
			continue
		}
		fn(key, enc)
	}
	return nil
}

// Close releases the connection obtained from the Connector.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.closeConn()
	return nil
}

func decodeRaw(key string, v []byte) codec.Encoded {
	var enc codec.Encoded
	if err := json.Unmarshal(v, &enc); err != nil {
		logger.Warnf("nats: %s: unreadable entry: %v", key, err)
		return codec.Encoded{}
	}
	return enc
}
