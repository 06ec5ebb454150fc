package boltdb

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/leonardcser/tempstore"
	"github.com/leonardcser/tempstore/internal/codec"
	"github.com/leonardcser/tempstore/internal/logger"
)

const defaultBucket = "tempstore"

var ErrClosed = errors.New("boltdb: provider closed")

// Options configures a Provider.
type Options struct {
	// Bucket is the name of the Bolt bucket to use. Defaults to "tempstore".
	Bucket string
	// Timeout bounds how long Open waits for the file lock. Defaults to 1s.
	Timeout time.Duration
}

// Provider stores each entry as the JSON of its tagged value in one Bolt
// bucket. Writes are transactional, and unlike jsonfile a Delete is durable
// as soon as it returns. It is safe for concurrent use by multiple goroutines.
type Provider struct {
	db     *bolt.DB
	bucket []byte
	mu     sync.RWMutex
}

var _ tempstore.Provider = (*Provider)(nil)

// Open initializes or opens a Provider at the given path. Bolt holds an
// exclusive file lock, so a second Open of the same file fails after Timeout.
func Open(path string, opts Options) (*Provider, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte(defaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Provider{db: db, bucket: bucket}, nil
}

// Close closes the underlying database.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
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
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte(key), data)
	})
}

func (p *Provider) Get(key string) (tempstore.Entry, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return tempstore.Entry{}, false, ErrClosed
	}
	var (
		enc    codec.Encoded
		exists bool
	)
	if err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(p.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		exists = true
		enc = p.decodeRaw(key, v)
		return nil
	}); err != nil {
		return tempstore.Entry{}, false, err
	}
	if !exists || enc.Absent() {
		return tempstore.Entry{}, false, nil
	}
	d := codec.Decode(enc)
	return tempstore.Entry{Value: d.Value, Option: d.Option}, true, nil
}

// Delete removes a key.
func (p *Provider) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Delete([]byte(key))
	})
}

func (p *Provider) Keys() ([]string, error) {
	var out []string
	err := p.each(func(key string, _ codec.Encoded) {
		out = append(out, key)
	})
	return out, err
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

// each visits present entries in key byte order.
func (p *Provider) each(fn func(key string, enc codec.Encoded)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return ErrClosed
	}
	return p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).ForEach(func(k, v []byte) error {
			enc := p.decodeRaw(string(k), v)
			if enc.Absent() {
				return nil
			}
			fn(string(k), enc)
			return nil
		})
	})
}

// decodeRaw parses a stored value. Bytes that are not JSON at all yield the
// unknown variant, decoding to nil like any other foreign entry.
func (p *Provider) decodeRaw(key string, v []byte) codec.Encoded {
	var enc codec.Encoded
	if err := json.Unmarshal(v, &enc); err != nil {
		logger.Warnf("boltdb: %s/%s: unreadable entry: %v", p.bucket, key, err)
		return codec.Encoded{}
	}
	return enc
}
