// Package controller - This file contains the preview loop that routes frames from a
// source through the session to the display and applies key presses between frames.
package controller

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-odometry/logging"
	"github.com/nvr-ai/go-odometry/pipeline"
	"github.com/nvr-ai/go-odometry/profiler"
	"github.com/nvr-ai/go-odometry/source"
)

// Config is the display configuration of the loop.
type Config struct {
	// WindowName is the title of the preview window.
	WindowName string `yaml:"window_name"`
	// WaitDelay is how long each frame stays on screen waiting for a key, in milliseconds.
	WaitDelay int `yaml:"wait_delay"`
}

// DefaultConfig returns the default display configuration.
func DefaultConfig() Config {
	return Config{
		WindowName: "gray",
		WaitDelay:  50,
	}
}

// Controller drives the per-frame loop.
type Controller struct {
	config   Config
	source   source.Source
	session  *pipeline.Session
	display  Display
	profiler *profiler.RuntimeProfiler
	logger   *zap.SugaredLogger
	stats    *loopStats
}

// loopStats is sampled by the profiler goroutine while the loop runs.
type loopStats struct {
	frames atomic.Int64
	halted atomic.Bool
}

// CollectMetrics implements profiler.MetricsCollector.
func (l *loopStats) CollectMetrics() map[string]float64 {
	halted := 0.0
	if l.halted.Load() {
		halted = 1
	}
	return map[string]float64{
		profiler.MetricFrames: float64(l.frames.Load()),
		profiler.MetricHalted: halted,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithProfiler records stage timings and per-frame counts.
func WithProfiler(rp *profiler.RuntimeProfiler) Option {
	return func(c *Controller) {
		c.profiler = rp
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller. It does not take ownership of its collaborators.
//
// Arguments:
//   - config: Display configuration.
//   - src: The frame source.
//   - session: The session the frames are fed to.
//   - display: Where rendered frames are shown and keys are read.
//   - opts: Optional profiler and logger.
//
// Returns:
//   - *Controller: The controller.
func New(config Config, src source.Source, session *pipeline.Session, display Display, opts ...Option) *Controller {
	c := &Controller{
		config:  config,
		source:  src,
		session: session,
		display: display,
		logger:  logging.NewNopLogger(),
		stats:   &loopStats{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.profiler != nil {
		c.profiler.AddMetricsCollector(c.stats)
	}
	return c
}

// Run plays frames until the operator presses escape, a stage fails, the source is
// exhausted or ctx is cancelled. Once halted, every frame waits for a key.
//
// Returns:
//   - error: nil after escape, otherwise the error that ended the loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := c.source.Next()
		if err != nil {
			return errors.Wrap(err, "read frame")
		}

		output, err := c.step(frame)
		if err != nil {
			return err
		}
		err = c.display.Show(output)
		output.Close()
		if err != nil {
			return errors.Wrap(err, "show frame")
		}
		c.stats.frames.Add(1)

		if c.dispatch(c.display.WaitKey(c.config.WaitDelay)) == ActionQuit {
			return nil
		}
		if c.session.Halted() {
			if c.dispatch(c.display.WaitKey(0)) == ActionQuit {
				return nil
			}
		}

		c.session.ForwardFrameState()
	}
}

func (c *Controller) dispatch(key int) Action {
	base, halted := c.session.VisualOutputBase(), c.session.Halted()
	action := Dispatch(c.session, key)
	if b := c.session.VisualOutputBase(); b != base {
		c.logger.Debugw("display base", "base", b)
	}
	if !halted && c.session.Halted() {
		c.stats.halted.Store(true)
		c.logger.Debug("halted")
	}
	return action
}

// step runs the session stages on one frame, timing each when profiling.
func (c *Controller) step(frame gocv.Mat) (gocv.Mat, error) {
	c.session.Input(frame)
	if err := c.timed(profiler.StageFilter, c.session.Filter); err != nil {
		return gocv.NewMat(), err
	}
	if err := c.timed(profiler.StageExtract, c.session.Extract); err != nil {
		return gocv.NewMat(), err
	}

	var output gocv.Mat
	err := c.timed(profiler.StageRender, func() error {
		var err error
		output, err = c.session.VisualOutput()
		return err
	})
	if err != nil {
		output.Close()
		return gocv.NewMat(), err
	}

	if c.profiler != nil {
		c.profiler.RecordMetric(profiler.MetricKeypoints, float64(len(c.session.Current().Keypoints)))
		c.profiler.RecordMetric(profiler.MetricMatches, float64(len(c.session.Matches())))
	}
	return output, nil
}

func (c *Controller) timed(stage string, fn func() error) error {
	if c.profiler == nil {
		return fn()
	}
	done := c.profiler.StartOperation(stage)
	defer done()
	return fn()
}
