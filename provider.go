package tempstore

import (
	"time"

	"github.com/leonardcser/tempstore/internal/codec"
)

// SetOption is the metadata stored with an entry.
type SetOption = codec.SetOption

// InvalidDate is returned in place of a time.Time when a stored date cannot
// be parsed.
type InvalidDate = codec.InvalidDate

// ExpireAt returns a SetOption whose deadline is t.
func ExpireAt(t time.Time) *SetOption {
	return &SetOption{Expire: t.UnixMilli()}
}

// Entry is a decoded value together with the option it was stored with.
type Entry struct {
	Value  any
	Option *SetOption
}

// Pair is one key and its decoded value.
type Pair struct {
	Key   string
	Value any
}

// Provider is the persistence contract a Store runs on.
// Get reports a missing key with ok == false and a nil error.
// Values and Entries carry no option metadata.
type Provider interface {
	Set(key string, value any, opt *SetOption) error
	Get(key string) (entry Entry, ok bool, err error)
	Delete(key string) error
	Keys() ([]string, error)
	Values() ([]any, error)
	Entries() ([]Pair, error)
	Close() error
}
