package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeAll(t *testing.T, c *PoolStatsCollector) []*prometheus.Desc {
	t.Helper()

	ch := make(chan *prometheus.Desc, 20)
	c.Describe(ch)
	close(ch)

	descs := make([]*prometheus.Desc, 0, 20)
	for d := range ch {
		descs = append(descs, d)
	}
	return descs
}

func TestNewPoolStatsCollector_NotNil(t *testing.T) {
	// Describe works without a live pool; only Collect touches it.
	c := NewPoolStatsCollector(nil, "urbancart")
	require.NotNil(t, c)
	assert.Equal(t, "urbancart", c.app)
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "urbancart")
	assert.Len(t, describeAll(t, c), 12)
}

func TestPoolStatsCollector_ImplementsCollector(t *testing.T) {
	var _ prometheus.Collector = NewPoolStatsCollector(nil, "urbancart")
}

func TestPoolStatsCollector_DescriptorNames(t *testing.T) {
	c := NewPoolStatsCollector(nil, "urbancart")
	descs := describeAll(t, c)

	want := []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_constructing_connections",
		"db_pool_acquire_count_total",
		"db_pool_acquire_duration_seconds_total",
		"db_pool_canceled_acquire_count_total",
		"db_pool_empty_acquire_count_total",
		"db_pool_new_connections_total",
		"db_pool_max_lifetime_destroy_total",
		"db_pool_max_idle_destroy_total",
	}

	for _, name := range want {
		found := false
		for _, d := range descs {
			if strings.Contains(d.String(), name) {
				found = true
				break
			}
		}
		assert.True(t, found, "expected descriptor containing %q", name)
	}
}

func TestPoolStatsCollector_DescriptorsCarryAppLabel(t *testing.T) {
	c := NewPoolStatsCollector(nil, "urbancart")

	for _, d := range describeAll(t, c) {
		assert.Contains(t, d.String(), "app", "descriptor %s should carry the app label", d)
	}
}
