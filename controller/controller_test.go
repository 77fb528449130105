package controller

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-odometry/geometry"
	"github.com/nvr-ai/go-odometry/images"
	"github.com/nvr-ai/go-odometry/pipeline"
	"github.com/nvr-ai/go-odometry/profiler"
	"github.com/nvr-ai/go-odometry/source"
	"github.com/nvr-ai/go-odometry/test"
)

// MockSource hands out shifted synthetic scenes until it runs out.
type MockSource struct {
	gen    *test.MockFrameGenerator
	frames int
	served int
	err    error
}

func (m *MockSource) Next() (gocv.Mat, error) {
	if m.err != nil {
		return gocv.NewMat(), m.err
	}
	if m.served >= m.frames {
		return gocv.NewMat(), source.ErrExhausted
	}
	frame := m.gen.GenerateSceneFrame(2*m.served, m.served)
	m.served++
	return frame, nil
}

func (m *MockSource) Close() error { return nil }

// MockDisplay replays scripted key presses and records every wait.
type MockDisplay struct {
	showErr  error
	keys     []int
	waits    []int
	shown    int
	channels []int
}

func (m *MockDisplay) Show(frame gocv.Mat) error {
	if m.showErr != nil {
		return m.showErr
	}
	m.shown++
	m.channels = append(m.channels, frame.Channels())
	return nil
}

func (m *MockDisplay) WaitKey(delay int) int {
	m.waits = append(m.waits, delay)
	if len(m.keys) == 0 {
		return -1
	}
	key := m.keys[0]
	m.keys = m.keys[1:]
	return key
}

func (m *MockDisplay) Close() error { return nil }

func newTestController(frames int, keys ...int) (*Controller, *MockDisplay, *pipeline.Session) {
	src := &MockSource{gen: test.NewMockFrameGenerator(320, 240), frames: frames}
	display := &MockDisplay{keys: keys}
	session := pipeline.NewSession(pipeline.DefaultConfig(),
		pipeline.WithMatcher(pipeline.NewDescriptorMatcher(geometry.DefaultRANSACConfig(), 1)))
	return New(DefaultConfig(), src, session, display), display, session
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name   string
		key    int
		base   pipeline.VisualOutputBase
		halted bool
		action Action
	}{
		{name: "escape", key: KeyEscape, base: pipeline.BaseGray, action: ActionQuit},
		{name: "gray", key: 'g', base: pipeline.BaseGray, action: ActionNone},
		{name: "canny", key: 'c', base: pipeline.BaseCanny, action: ActionNone},
		{name: "original", key: 'o', base: pipeline.BaseOriginal, action: ActionNone},
		{name: "space", key: KeySpace, base: pipeline.BaseGray, halted: true, action: ActionNone},
		{name: "no key", key: -1, base: pipeline.BaseGray, action: ActionNone},
		{name: "unbound", key: 'x', base: pipeline.BaseGray, action: ActionNone},
		{name: "upper case", key: 'C', base: pipeline.BaseGray, action: ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := pipeline.NewSession(pipeline.DefaultConfig())
			defer session.Close()

			assert.Equal(t, tt.action, Dispatch(session, tt.key))
			assert.Equal(t, tt.base, session.VisualOutputBase())
			assert.Equal(t, tt.halted, session.Halted())
		})
	}
}

func TestDispatchSpaceNeverClears(t *testing.T) {
	session := pipeline.NewSession(pipeline.DefaultConfig())
	defer session.Close()

	Dispatch(session, KeySpace)
	Dispatch(session, KeySpace)
	Dispatch(session, 'g')
	assert.True(t, session.Halted())
}

func TestRunQuitsOnEscape(t *testing.T) {
	c, display, session := newTestController(10, -1, -1, KeyEscape)
	defer session.Close()

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 3, display.shown)
	assert.Equal(t, []int{50, 50, 50}, display.waits)
	assert.Equal(t, []int{3, 3, 3}, display.channels)
}

func TestRunReturnsExhaustion(t *testing.T) {
	c, display, session := newTestController(3)
	defer session.Close()

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, source.ErrExhausted)
	assert.Equal(t, 3, display.shown)
}

func TestRunHaltWaitsIndefinitelyEveryFrame(t *testing.T) {
	c, display, session := newTestController(10, KeySpace, -1, -1, 'c', -1, KeyEscape)
	defer session.Close()

	require.NoError(t, c.Run(context.Background()))
	assert.True(t, session.Halted())
	assert.Equal(t, pipeline.BaseCanny, session.VisualOutputBase())
	assert.Equal(t, []int{50, 0, 50, 0, 50, 0}, display.waits)
	assert.Equal(t, 3, display.shown)
}

func TestRunModeChangeAppliesToNextFrame(t *testing.T) {
	c, _, session := newTestController(2, 'o')
	defer session.Close()

	err := c.Run(context.Background())
	require.ErrorIs(t, err, source.ErrExhausted)
	assert.Equal(t, pipeline.BaseOriginal, session.VisualOutputBase())
}

func TestRunPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("decode failed")
	display := &MockDisplay{}
	session := pipeline.NewSession(pipeline.DefaultConfig())
	defer session.Close()
	c := New(DefaultConfig(), &MockSource{err: boom}, session, display)

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, display.shown)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	c, display, session := newTestController(10)
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
	assert.Zero(t, display.shown)
}

func TestRunRecordsProfile(t *testing.T) {
	rp := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{})
	src := &MockSource{gen: test.NewMockFrameGenerator(320, 240), frames: 2}
	display := &MockDisplay{}
	session := pipeline.NewSession(pipeline.DefaultConfig())
	defer session.Close()

	c := New(DefaultConfig(), src, session, display, WithProfiler(rp))
	require.ErrorIs(t, c.Run(context.Background()), source.ErrExhausted)

	for _, stage := range []string{profiler.StageFilter, profiler.StageExtract, profiler.StageRender} {
		s, ok := rp.Stage(stage)
		require.True(t, ok, stage)
		assert.Equal(t, 2, s.Count, stage)
	}
	keypoints, ok := rp.Metric(profiler.MetricKeypoints)
	require.True(t, ok)
	assert.Greater(t, keypoints.Max, 0.0)
}

func TestRunFeedsLoopCollector(t *testing.T) {
	rp := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
		SampleInterval: time.Millisecond,
		ReportInterval: time.Hour,
	})
	src := &MockSource{gen: test.NewMockFrameGenerator(320, 240), frames: 3}
	display := &MockDisplay{keys: []int{KeySpace}}
	session := pipeline.NewSession(pipeline.DefaultConfig())
	defer session.Close()
	c := New(DefaultConfig(), src, session, display, WithProfiler(rp))

	require.ErrorIs(t, c.Run(context.Background()), source.ErrExhausted)

	rp.Start()
	defer rp.Stop()
	require.Eventually(t, func() bool {
		frames, ok := rp.Metric(profiler.MetricFrames)
		return ok && frames.Max == 3
	}, time.Second, time.Millisecond)
	halted, ok := rp.Metric(profiler.MetricHalted)
	require.True(t, ok)
	assert.Equal(t, 1.0, halted.Max)
}

func TestRunPropagatesDisplayErrors(t *testing.T) {
	c, display, session := newTestController(5)
	defer session.Close()
	display.showErr = errors.New("no display")

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, display.showErr)
	assert.Empty(t, display.waits)
}

func TestGrayKeyThenTwoRendersUseTheSameBase(t *testing.T) {
	gen := test.NewMockFrameGenerator(320, 240)
	session := pipeline.NewSession(pipeline.DefaultConfig())
	defer session.Close()

	output, err := session.Step(gen.GenerateSceneFrame(0, 0))
	require.NoError(t, err)
	output.Close()

	render := func() string {
		output, err := session.VisualOutput()
		require.NoError(t, err)
		defer output.Close()
		return images.ComputeMatChecksum(output)
	}

	require.Equal(t, ActionNone, Dispatch(session, 'c'))
	canny := render()

	require.Equal(t, ActionNone, Dispatch(session, 'g'))
	first := render()
	second := render()

	assert.Equal(t, pipeline.BaseGray, session.VisualOutputBase())
	assert.Equal(t, first, second)
	assert.NotEqual(t, canny, first)
}
