package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingCollector struct {
	value float64
}

func (c *countingCollector) CollectMetrics() map[string]float64 {
	c.value++
	return map[string]float64{"collected": c.value}
}

func TestRecordMetricRollingWindow(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 3})

	for _, v := range []float64{10, 1, 4, 7} {
		rp.RecordMetric(MetricKeypoints, v)
	}

	s, ok := rp.Metric(MetricKeypoints)
	require.True(t, ok)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 4.0, s.Avg, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 7.0, s.Max)

	_, ok = rp.Metric(MetricMatches)
	assert.False(t, ok)
}

func TestStartOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})

	done := rp.StartOperation(StageFilter)
	time.Sleep(2 * time.Millisecond)
	done()
	rp.StartOperation(StageFilter)()

	s, ok := rp.Stage(StageFilter)
	require.True(t, ok)
	assert.Equal(t, 2, s.Count)
	assert.GreaterOrEqual(t, s.Max, float64(2*time.Millisecond))
	assert.LessOrEqual(t, s.Min, s.Avg)
}

func TestReportLogsStagesAndMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rp := NewRuntimeProfiler(ProfilingOptions{Logger: zap.New(core).Sugar()})

	rp.StartOperation(StageExtract)()
	rp.RecordMetric(MetricMatches, 12)
	rp.Report()

	assert.Equal(t, 1, logs.FilterMessage("profile").Len())
	stages := logs.FilterMessage("stage").All()
	require.Len(t, stages, 1)
	assert.Equal(t, StageExtract, stages[0].ContextMap()["name"])
	metrics := logs.FilterMessage("metric").All()
	require.Len(t, metrics, 1)
	assert.Equal(t, MetricMatches, metrics[0].ContextMap()["name"])
}

func TestStartStopSamplesCollectors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rp := NewRuntimeProfiler(ProfilingOptions{
		SampleInterval: time.Millisecond,
		ReportInterval: time.Hour,
		Logger:         zap.New(core).Sugar(),
	})
	rp.AddMetricsCollector(&countingCollector{})

	rp.Start()
	rp.Start()
	require.Eventually(t, func() bool {
		s, ok := rp.Metric("collected")
		return ok && s.Count >= 2
	}, time.Second, time.Millisecond)
	rp.Stop()
	rp.Stop()

	assert.Equal(t, 1, logs.FilterMessage("profile").Len())
}

func TestStageWindowDropsOldExtremes(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 2})

	for _, d := range []time.Duration{time.Second, 2 * time.Millisecond, 4 * time.Millisecond} {
		rp.recordOperationTime(StageRender, d)
	}

	s, ok := rp.Stage(StageRender)
	require.True(t, ok)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, float64(2*time.Millisecond), s.Min)
	assert.Equal(t, float64(4*time.Millisecond), s.Max)
	assert.InDelta(t, float64(3*time.Millisecond), s.Avg, 1)
}

func TestRestartAfterStop(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{SampleInterval: time.Millisecond, ReportInterval: time.Hour})
	collector := &countingCollector{}
	rp.AddMetricsCollector(collector)

	rp.Start()
	rp.Stop()
	first, _ := rp.Metric("collected")

	rp.Start()
	require.Eventually(t, func() bool {
		s, ok := rp.Metric("collected")
		return ok && s.Count > first.Count
	}, time.Second, time.Millisecond)
	rp.Stop()
}
