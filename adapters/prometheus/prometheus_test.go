package prometheus

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/tempstore"
	"github.com/leonardcser/tempstore/jsonfile"
)

func TestNewStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	require.NotNil(t, m)

	timer := m.OpDuration("get")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.Lookup(tempstore.LookupHit).Inc()
	m.Lookup(tempstore.LookupMiss).Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"tempstore_op_duration_seconds", "tempstore_get_total"}, names)
}

func TestStoreReportsLookups(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg).(*storeMetrics)

	p, err := jsonfile.Open(filepath.Join(t.TempDir(), "db.json"), jsonfile.Options{})
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := tempstore.New(p, tempstore.WithMetrics(m), tempstore.WithClock(func() time.Time { return now }))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set("live", 1, nil))
	require.NoError(t, s.Set("stale", 1, tempstore.ExpireAt(now)))

	_, _, err = s.Get("live")
	require.NoError(t, err)
	_, _, err = s.Get("stale")
	require.NoError(t, err)
	_, _, err = s.Get("missing")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(tempstore.LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(tempstore.LookupExpired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(tempstore.LookupMiss)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.opDuration, "tempstore_op_duration_seconds"))
}
