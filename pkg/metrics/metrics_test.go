package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Registry lifecycle
// ============================================================================

// The registry is process-global and write-once, so ordering inside this
// function is the test: constructors before init return no-ops,
// constructors after init record.
func TestRPCMetrics(t *testing.T) {
	require.False(t, IsEnabled())

	noop := NewRPCMetrics()
	_, isNoop := noop.(noopRPCMetrics)
	assert.True(t, isNoop)
	noop.RecordRequest("nfs", "NULL", time.Millisecond, "success")
	noop.RecordDropped("malformed")

	InitRegistry()
	require.True(t, IsEnabled())
	first := GetRegistry()
	InitRegistry()
	assert.Same(t, first, GetRegistry())

	m, ok := NewRPCMetrics().(*rpcMetrics)
	require.True(t, ok)

	m.RecordRequest("nfs", "LOOKUP", 2*time.Millisecond, "success")
	m.RecordRequest("nfs", "LOOKUP", time.Millisecond, "success")
	m.RecordRequest("nfs", "procedure-18", time.Millisecond, "proc_unavail")
	m.RecordDropped("rate_limit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("nfs", "LOOKUP", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("nfs", "procedure-18", "proc_unavail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedTotal.WithLabelValues("rate_limit")))

	// Two procedure label sets on the counter, two on the histogram,
	// one drop reason.
	count, err := testutil.GatherAndCount(GetRegistry(),
		"prolink_nfs_requests_total",
		"prolink_nfs_request_duration_seconds",
		"prolink_nfs_dropped_datagrams_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
