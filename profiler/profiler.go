// Package profiler - This file contains the runtime profiler that times the per-frame
// stages of the preview loop and reports them through the logger.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-odometry/logging"
)

// Stage names recorded by the preview loop.
const (
	StageFilter  = "filter"
	StageExtract = "extract"
	StageRender  = "render"
)

// Metric names recorded by the preview loop.
const (
	MetricKeypoints = "keypoints"
	MetricMatches   = "matches"
	MetricFrames    = "frames"
	MetricHalted    = "halted"
)

// MetricsCollector defines the interface for collecting custom metrics on every sample.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// RuntimeProfiler keeps rolling statistics of stage durations and custom metrics and
// periodically logs a summary.
//
// It is safe for concurrent use.
type RuntimeProfiler struct {
	reportInterval time.Duration
	sampleInterval time.Duration
	maxSamples     int
	logger         *zap.SugaredLogger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	startTime time.Time
	running   bool

	goroutines int
	cgoCalls   int64
	memStats   runtime.MemStats

	customMetrics map[string]*MetricTracker
	collectors    []MetricsCollector
	stageTimes    map[string]*TimeTracker
}

// MetricTracker tracks a rolling window of a custom metric.
type MetricTracker struct {
	values []float64
	sum    float64
	count  int64
}

// TimeTracker tracks a rolling window of stage durations.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	count     int64
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often to log a summary (default: 2s)
	ReportInterval time.Duration
	// SampleInterval specifies how often to sample runtime counters and collectors (default: 100ms)
	SampleInterval time.Duration
	// MaxSamples specifies the rolling window size of every tracker (default: 600)
	MaxSamples int
	// Logger receives the reports (default: no-op)
	Logger *zap.SugaredLogger
}

// Summary is the snapshot of one tracker over its rolling window.
type Summary struct {
	Avg   float64
	Min   float64
	Max   float64
	Count int
}

// NewRuntimeProfiler creates a new runtime profiler with the specified options.
//
// Arguments:
//   - opts: Configuration options for the profiler.
//
// Returns:
//   - *RuntimeProfiler: A stopped profiler. Recording works before Start.
func NewRuntimeProfiler(opts ProfilingOptions) *RuntimeProfiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 2 * time.Second
	}
	if opts.SampleInterval == 0 {
		opts.SampleInterval = 100 * time.Millisecond
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	return &RuntimeProfiler{
		reportInterval: opts.ReportInterval,
		sampleInterval: opts.SampleInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		startTime:      time.Now(),
		customMetrics:  make(map[string]*MetricTracker),
		stageTimes:     make(map[string]*TimeTracker),
	}
}

// Start launches the sampling and reporting goroutines. Calling it while running is a
// no-op; a stopped profiler can be started again.
func (rp *RuntimeProfiler) Start() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.running {
		return
	}
	rp.running = true
	rp.startTime = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	rp.cancel = cancel

	rp.wg.Add(2)
	go rp.loop(ctx, rp.sampleInterval, rp.sample)
	go rp.loop(ctx, rp.reportInterval, rp.Report)
}

// Stop ends the background goroutines and logs a final report.
func (rp *RuntimeProfiler) Stop() {
	rp.mu.Lock()
	if !rp.running {
		rp.mu.Unlock()
		return
	}
	rp.running = false
	cancel := rp.cancel
	rp.mu.Unlock()

	cancel()
	rp.wg.Wait()
	rp.Report()
}

// AddMetricsCollector registers a collector polled on every sample.
func (rp *RuntimeProfiler) AddMetricsCollector(collector MetricsCollector) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.collectors = append(rp.collectors, collector)
}

// RecordMetric records a custom metric value.
//
// Arguments:
//   - name: The name of the metric, e.g. MetricKeypoints.
//   - value: The metric value to record.
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.recordMetricLocked(name, value)
}

func (rp *RuntimeProfiler) recordMetricLocked(name string, value float64) {
	tracker, exists := rp.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{}
		rp.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	if len(tracker.values) > rp.maxSamples {
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.count++
}

// StartOperation begins timing a stage.
//
// Arguments:
//   - name: The stage name, e.g. StageFilter.
//
// Returns:
//   - func(): Call when the stage completes.
//
// @example
// done := rp.StartOperation(profiler.StageFilter)
// err := session.Filter()
// done()
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		rp.recordOperationTime(name, time.Since(start))
	}
}

func (rp *RuntimeProfiler) recordOperationTime(name string, duration time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.stageTimes[name]
	if !exists {
		tracker = &TimeTracker{}
		rp.stageTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > rp.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++
}

func (rp *RuntimeProfiler) loop(ctx context.Context, interval time.Duration, tick func()) {
	defer rp.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

func (rp *RuntimeProfiler) sample() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	runtime.ReadMemStats(&rp.memStats)
	rp.goroutines = runtime.NumGoroutine()
	rp.cgoCalls = runtime.NumCgoCall()

	for _, collector := range rp.collectors {
		for name, value := range collector.CollectMetrics() {
			rp.recordMetricLocked(name, value)
		}
	}
}

// Report logs the current uptime, runtime counters, stage timings and metrics.
func (rp *RuntimeProfiler) Report() {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	rp.logger.Infow("profile",
		"uptime", time.Since(rp.startTime).Truncate(time.Millisecond),
		"goroutines", rp.goroutines,
		"cgo_calls", rp.cgoCalls,
		"heap_alloc", rp.memStats.HeapAlloc)

	for _, name := range sortedKeys(rp.stageTimes) {
		s := rp.stageTimes[name].summary()
		rp.logger.Infow("stage",
			"name", name,
			"avg", time.Duration(s.Avg).Truncate(time.Microsecond),
			"min", time.Duration(s.Min).Truncate(time.Microsecond),
			"max", time.Duration(s.Max).Truncate(time.Microsecond),
			"count", s.Count)
	}
	for _, name := range sortedKeys(rp.customMetrics) {
		s := rp.customMetrics[name].summary()
		rp.logger.Infow("metric",
			"name", name,
			"avg", s.Avg,
			"min", s.Min,
			"max", s.Max,
			"count", s.Count)
	}
}

// Stage returns the rolling duration statistics of a stage in nanoseconds.
func (rp *RuntimeProfiler) Stage(name string) (Summary, bool) {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	tracker, ok := rp.stageTimes[name]
	if !ok {
		return Summary{}, false
	}
	return tracker.summary(), true
}

// Metric returns the rolling statistics of a custom metric.
func (rp *RuntimeProfiler) Metric(name string) (Summary, bool) {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	tracker, ok := rp.customMetrics[name]
	if !ok {
		return Summary{}, false
	}
	return tracker.summary(), true
}

func (t *MetricTracker) summary() Summary {
	s := Summary{Count: len(t.values)}
	for i, v := range t.values {
		if i == 0 || v < s.Min {
			s.Min = v
		}
		if i == 0 || v > s.Max {
			s.Max = v
		}
	}
	if s.Count > 0 {
		s.Avg = t.sum / float64(s.Count)
	}
	return s
}

func (t *TimeTracker) summary() Summary {
	s := Summary{Count: len(t.durations)}
	for i, d := range t.durations {
		v := float64(d)
		if i == 0 || v < s.Min {
			s.Min = v
		}
		if i == 0 || v > s.Max {
			s.Max = v
		}
	}
	if s.Count > 0 {
		s.Avg = float64(t.totalTime) / float64(s.Count)
	}
	return s
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
