package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/leonardcser/tempstore"
	"github.com/leonardcser/tempstore/internal/codec"
	"github.com/leonardcser/tempstore/internal/logger"
)

// emptyDatabase is written when the file is missing and when a write fails.
const emptyDatabase = "{}"

var (
	ErrCorrupt = errors.New("jsonfile: corrupt database file")
	ErrInUse   = errors.New("jsonfile: path already open")
	ErrClosed  = errors.New("jsonfile: provider closed")
)

type database = orderedmap.OrderedMap[string, codec.Encoded]

// Options configures a Provider.
type Options struct {
	// Medium defaults to OSMedium.
	Medium Medium
	// OnFlushError is called, outside the provider's lock, whenever a Set
	// fails to write the file and the reset branch runs.
	OnFlushError func(*FlushError)
}

// FlushError describes a failed rewrite of the database file. Write is the
// original failure; Reset is the result of the attempt to replace the file
// with an empty database, nil if that succeeded.
type FlushError struct {
	Path  string
	Write error
	Reset error
}

func (e *FlushError) Error() string {
	if e.Reset != nil {
		return fmt.Sprintf("jsonfile: write %s: %v (reset also failed: %v)", e.Path, e.Write, e.Reset)
	}
	return fmt.Sprintf("jsonfile: write %s: %v (file reset to empty)", e.Path, e.Write)
}

func (e *FlushError) Unwrap() error { return e.Write }

// Provider keeps an insertion-ordered database in memory and mirrors it to a
// single JSON file. The file is read once, by Open, and rewritten in full on
// every Set. It is safe for concurrent use by multiple goroutines; opening
// the same path twice in one process fails with ErrInUse.
type Provider struct {
	mu           sync.Mutex
	path         string
	claim        string
	medium       Medium
	db           *database
	onFlushError func(*FlushError)
	closed       bool
}

var _ tempstore.Provider = (*Provider)(nil)

// Open loads the database at path.
//
// A file that cannot be read is replaced by an empty database and Open
// succeeds. A file that is not a JSON object fails with ErrCorrupt and is
// left untouched.
func Open(path string, opts Options) (*Provider, error) {
	medium := opts.Medium
	if medium == nil {
		medium = OSMedium{}
	}
	claim, err := acquire(path)
	if err != nil {
		return nil, err
	}
	db, err := load(medium, path)
	if err != nil {
		release(claim)
		return nil, err
	}
	logger.Infof("jsonfile: opened %s (%d entries)", path, db.Len())
	return &Provider{
		path:         path,
		claim:        claim,
		medium:       medium,
		db:           db,
		onFlushError: opts.OnFlushError,
	}, nil
}

func load(medium Medium, path string) (*database, error) {
	text, err := medium.ReadFile(path)
	if err != nil {
		logger.Warnf("jsonfile: read %s: %v; starting with an empty database", path, err)
		if werr := medium.WriteFile(path, emptyDatabase); werr != nil {
			logger.Errorf("jsonfile: initialize %s: %v", path, werr)
		}
		return orderedmap.New[string, codec.Encoded](), nil
	}
	db, err := parse([]byte(text))
	if err != nil {
		logger.Errorf("jsonfile: %s: %v", path, err)
		return nil, err
	}
	return db, nil
}

func parse(data []byte) (*database, error) {
	data = bytes.TrimSpace(data)
	var probe json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorrupt)
	}
	db := orderedmap.New[string, codec.Encoded]()
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return db, nil
}

// Path returns the backing file path.
func (p *Provider) Path() string { return p.path }

// Set encodes value and stores it under key, then rewrites the file.
//
// If the rewrite fails the file is reset to an empty database, discarding
// everything previously persisted there; the in-memory entry is kept and Set
// still returns nil. The failure is logged and passed to Options.OnFlushError.
// Only an unencodable value makes Set fail.
func (p *Provider) Set(key string, value any, opt *tempstore.SetOption) error {
	enc, err := codec.Encode(value, opt)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.db.Set(key, enc)
	ferr := p.flushLocked()
	p.mu.Unlock()

	if ferr != nil && p.onFlushError != nil {
		p.onFlushError(ferr)
	}
	return nil
}

// Flush rewrites the file from memory. Use it after Delete, which does not
// write on its own. A failed write takes the same reset branch as Set and
// the *FlushError is returned.
func (p *Provider) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if ferr := p.flushLocked(); ferr != nil {
		return ferr
	}
	return nil
}

func (p *Provider) flushLocked() *FlushError {
	data, err := json.Marshal(p.db)
	if err == nil {
		if err = p.medium.WriteFile(p.path, string(data)); err == nil {
			return nil
		}
	}
	ferr := &FlushError{Path: p.path, Write: err}
	ferr.Reset = p.medium.WriteFile(p.path, emptyDatabase)
	logger.Errorf("%v", ferr)
	return ferr
}

func (p *Provider) Get(key string) (tempstore.Entry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return tempstore.Entry{}, false, ErrClosed
	}
	enc, ok := p.db.Get(key)
	if !ok || enc.Absent() {
		return tempstore.Entry{}, false, nil
	}
	d := codec.Decode(enc)
	return tempstore.Entry{Value: d.Value, Option: d.Option}, true, nil
}

// Delete removes key from memory. The file keeps the entry until the next
// Set or Flush.
func (p *Provider) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.db.Delete(key)
	return nil
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

// each visits present entries in insertion order.
func (p *Provider) each(fn func(key string, enc codec.Encoded)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	for pair := p.db.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Absent() {
			continue
		}
		fn(pair.Key, pair.Value)
	}
	return nil
}

// Close releases the path. The file is not written.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	release(p.claim)
	return nil
}

var (
	openMu    sync.Mutex
	openPaths = map[string]struct{}{}
)

func acquire(path string) (string, error) {
	claim, err := filepath.Abs(path)
	if err != nil {
		claim = filepath.Clean(path)
	}
	openMu.Lock()
	defer openMu.Unlock()
	if _, held := openPaths[claim]; held {
		return "", fmt.Errorf("%w: %s", ErrInUse, path)
	}
	openPaths[claim] = struct{}{}
	return claim, nil
}

func release(claim string) {
	openMu.Lock()
	defer openMu.Unlock()
	delete(openPaths, claim)
}
