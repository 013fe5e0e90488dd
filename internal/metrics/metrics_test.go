package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m io_prometheus_client.Metric
	require.NoError(t, c.Write(&m))

	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	var m io_prometheus_client.Metric
	require.NoError(t, g.Write(&m))

	return m.GetGauge().GetValue()
}

func TestRecordJobStartedAndCompleted(t *testing.T) {
	kind := "index_location"

	before := counterValue(t, JobsStartedTotal.WithLabelValues(kind))
	RecordJobStarted(kind)
	require.Equal(t, before+1, counterValue(t, JobsStartedTotal.WithLabelValues(kind)))

	beforeOK := counterValue(t, JobsCompletedTotal.WithLabelValues(kind, "success"))
	RecordJobCompleted(kind, true, 50*time.Millisecond)
	require.Equal(t, beforeOK+1, counterValue(t, JobsCompletedTotal.WithLabelValues(kind, "success")))

	beforeFail := counterValue(t, JobsCompletedTotal.WithLabelValues(kind, "failure"))
	RecordJobCompleted(kind, false, 10*time.Millisecond)
	require.Equal(t, beforeFail+1, counterValue(t, JobsCompletedTotal.WithLabelValues(kind, "failure")))
}

func TestSetJobQueueDepthAndActiveWorkers(t *testing.T) {
	SetJobQueueDepth(7)
	require.Equal(t, float64(7), gaugeValue(t, JobQueueDepth))

	SetJobActiveWorkers(3)
	require.Equal(t, float64(3), gaugeValue(t, JobActiveWorkers))
}

func TestRecordIndexerRun(t *testing.T) {
	beforeRuns := counterValue(t, IndexerRunsTotal.WithLabelValues("success"))
	beforeFiles := counterValue(t, IndexerEntriesTotal.WithLabelValues("file"))
	beforeBytes := counterValue(t, IndexerBytesTotal)

	RecordIndexerRun(true, 10, 2, 1, 0, 0, 4096, 200*time.Millisecond)

	require.Equal(t, beforeRuns+1, counterValue(t, IndexerRunsTotal.WithLabelValues("success")))
	require.Equal(t, beforeFiles+10, counterValue(t, IndexerEntriesTotal.WithLabelValues("file")))
	require.Equal(t, beforeBytes+4096, counterValue(t, IndexerBytesTotal))
}

func TestRecordPeerStateChangeExclusivity(t *testing.T) {
	states := []string{"uninitialized", "backfilling", "catching_up", "ready", "paused"}

	RecordPeerStateChange("peer-a", "backfilling", states)
	require.Equal(t, float64(1), gaugeValue(t, SyncPeerState.WithLabelValues("peer-a", "backfilling")))
	require.Equal(t, float64(0), gaugeValue(t, SyncPeerState.WithLabelValues("peer-a", "ready")))

	RecordPeerStateChange("peer-a", "ready", states)
	require.Equal(t, float64(0), gaugeValue(t, SyncPeerState.WithLabelValues("peer-a", "backfilling")))
	require.Equal(t, float64(1), gaugeValue(t, SyncPeerState.WithLabelValues("peer-a", "ready")))
}

func TestSetPeerLatency(t *testing.T) {
	SetPeerLatency("peer-b", 42)
	require.Equal(t, float64(42), gaugeValue(t, SyncPeerLatencyMS.WithLabelValues("peer-b")))
}

func TestRecordLogEntryAppliedAndSkipped(t *testing.T) {
	beforeApplied := counterValue(t, SyncLogEntriesTotal.WithLabelValues("content_identity", "applied"))
	RecordLogEntryApplied("content_identity")
	require.Equal(t, beforeApplied+1, counterValue(t, SyncLogEntriesTotal.WithLabelValues("content_identity", "applied")))

	beforeSkipped := counterValue(t, SyncLogEntriesTotal.WithLabelValues("content_identity", "skipped"))
	RecordLogEntrySkipped("content_identity")
	require.Equal(t, beforeSkipped+1, counterValue(t, SyncLogEntriesTotal.WithLabelValues("content_identity", "skipped")))
}

func TestRecordBackfillRows(t *testing.T) {
	before := counterValue(t, SyncBackfillRowsTotal.WithLabelValues("content_identity"))
	RecordBackfillRows("content_identity", 256)
	require.Equal(t, before+256, counterValue(t, SyncBackfillRowsTotal.WithLabelValues("content_identity")))
}
