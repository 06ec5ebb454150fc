package providertest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leonardcser/tempstore"
)

// Factory opens a fresh, empty provider for one subtest.
type Factory func(t *testing.T) tempstore.Provider

// Run checks the behaviour every tempstore.Provider must share. Keys used
// here are valid for every backend, including NATS.
func Run(t *testing.T, open Factory) {
	t.Run("missing key", func(t *testing.T) {
		p := open(t)
		_, ok, err := p.Get("nope")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("date", func(t *testing.T) {
		p := open(t)
		want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, p.Set("a", want, nil))

		e, ok, err := p.Get("a")
		require.NoError(t, err)
		require.True(t, ok)
		got, isTime := e.Value.(time.Time)
		require.True(t, isTime, "got %T", e.Value)
		require.True(t, want.Equal(got))
		require.Nil(t, e.Option)
	})

	t.Run("binary", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Set("b", []byte{0, 1, 2, 3}, nil))

		e, ok, err := p.Get("b")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte{0, 1, 2, 3}, e.Value)
	})

	t.Run("mapping", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Set("c", map[string]any{"x": 1, "y": []any{"a", "b"}}, nil))

		e, ok, err := p.Get("c")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, map[string]any{"x": 1.0, "y": []any{"a", "b"}}, e.Value)
	})

	t.Run("option", func(t *testing.T) {
		p := open(t)
		opt := &tempstore.SetOption{Expire: 1_704_067_200_000}
		require.NoError(t, p.Set("d", "v", opt))

		e, ok, err := p.Get("d")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v", e.Value)
		require.Equal(t, opt, e.Option)
	})

	t.Run("overwrite", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Set("k", "one", &tempstore.SetOption{Expire: 1}))
		require.NoError(t, p.Set("k", "two", nil))

		e, ok, err := p.Get("k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "two", e.Value)
		require.Nil(t, e.Option)
	})

	t.Run("delete", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Set("k", true, nil))
		require.NoError(t, p.Delete("k"))
		require.NoError(t, p.Delete("never-set"))

		_, ok, err := p.Get("k")
		require.NoError(t, err)
		require.False(t, ok)

		keys, err := p.Keys()
		require.NoError(t, err)
		require.NotContains(t, keys, "k")
	})

	t.Run("enumerate", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Set("k1", "one", &tempstore.SetOption{Expire: 5}))
		require.NoError(t, p.Set("k2", 2, nil))

		keys, err := p.Keys()
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"k1", "k2"}, keys)

		values, err := p.Values()
		require.NoError(t, err)
		require.ElementsMatch(t, []any{"one", 2.0}, values)

		entries, err := p.Entries()
		require.NoError(t, err)
		require.ElementsMatch(t, []tempstore.Pair{{Key: "k1", Value: "one"}, {Key: "k2", Value: 2.0}}, entries)
	})

	t.Run("store expiration", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		s := tempstore.New(open(t), tempstore.WithClock(func() time.Time { return now }))

		require.NoError(t, s.Set("session", "tok", tempstore.ExpireAt(now.Add(time.Minute))))
		v, ok, err := s.Get("session")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "tok", v)

		now = now.Add(2 * time.Minute)
		keys, err := s.Keys()
		require.NoError(t, err)
		require.Contains(t, keys, "session")

		_, ok, err = s.Get("session")
		require.NoError(t, err)
		require.False(t, ok)

		keys, err = s.Keys()
		require.NoError(t, err)
		require.NotContains(t, keys, "session")
	})
}
