// Package pipeline - This file contains the session that owns the two-frame window and
// runs the per-frame stages of the odometry preview.
//
// Per frame the caller drives:
//
//	Input -> Filter -> Extract -> VisualOutput -> (display, keys) -> ForwardFrameState
//
// Filter derives the grayscale image and edge map, Extract finds corners and keypoints
// and, when the session was built with a CrossFrameMatcher, describes them and matches
// them against the previous frame. VisualOutput composites the overlays on the selected
// base image.
package pipeline

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-odometry/labels"
	"github.com/nvr-ai/go-odometry/logging"
)

var (
	// ErrNoCurrentFrame is returned by the stages when Input has not been called since
	// the last ForwardFrameState.
	ErrNoCurrentFrame = errors.New("no current frame")
	// ErrEmptyFrame is returned by Filter when the current frame holds no pixels.
	ErrEmptyFrame = errors.New("current frame is empty")
)

// Option configures a Session.
type Option func(*Session)

// WithMatcher enables descriptor computation and cross-frame matching.
func WithMatcher(m CrossFrameMatcher) Option {
	return func(s *Session) {
		s.matcher = m
	}
}

// WithLabels attaches a ground-truth track whose pitch and yaw are printed on the output.
func WithLabels(track *labels.Track) Option {
	return func(s *Session) {
		s.labels = track
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithVisualOutputBase sets the initial display base.
func WithVisualOutputBase(base VisualOutputBase) Option {
	return func(s *Session) {
		s.base = base
	}
}

// Session owns the rolling previous/current frame window, the extraction handles, the
// latest match list, the display base and the halted flag.
//
// A Session is not safe for concurrent use.
type Session struct {
	config  Config
	matcher CrossFrameMatcher
	labels  *labels.Track
	logger  *zap.SugaredLogger

	previous *FrameState
	current  *FrameState
	frames   int

	matches []Match
	base    VisualOutputBase
	halted  bool
}

// NewSession creates a session with no frames.
//
// Arguments:
//   - config: Filter and extract parameters.
//   - opts: Optional capabilities; without WithMatcher no descriptors are computed and
//     the match list stays empty.
//
// Returns:
//   - *Session: The session. Call Close to release frames and the matcher.
//
// @example
// session := NewSession(DefaultConfig(), WithMatcher(NewDescriptorMatcher(geometry.DefaultRANSACConfig(), 1)))
// defer session.Close()
func NewSession(config Config, opts ...Option) *Session {
	s := &Session{
		config: config,
		base:   BaseGray,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input replaces the current frame state with a fresh one wrapping frame. The session
// takes ownership of frame.
func (s *Session) Input(frame gocv.Mat) {
	if s.current != nil {
		s.current.Close()
	}
	s.current = newFrameState(s.frames, frame)
	s.frames++
}

// Filter computes the grayscale image and the edge map of the current frame.
func (s *Session) Filter() error {
	frame := s.current
	if frame == nil {
		return ErrNoCurrentFrame
	}
	if frame.Original.Empty() {
		return ErrEmptyFrame
	}

	var err error
	if frame.Original.Channels() == 1 {
		err = frame.Original.CopyTo(&frame.Gray)
	} else {
		err = gocv.CvtColor(frame.Original, &frame.Gray, gocv.ColorBGRToGray)
	}
	if err != nil {
		return errors.Wrapf(err, "frame %d: grayscale conversion", frame.Index)
	}
	if frame.Gray.Empty() {
		return errors.Errorf("frame %d: grayscale conversion produced no image", frame.Index)
	}

	if err := gocv.Canny(frame.Gray, &frame.Canny, s.config.CannyLow, s.config.CannyHigh); err != nil {
		return errors.Wrapf(err, "frame %d: edge detection", frame.Index)
	}
	if frame.Canny.Empty() {
		return errors.Errorf("frame %d: edge detection produced no image", frame.Index)
	}
	return nil
}

// Extract detects corner features, converts them to keypoints and, with a matcher,
// describes them and matches them against the previous frame. Without a previous frame
// the match list is cleared.
func (s *Session) Extract() error {
	frame := s.current
	if frame == nil {
		return ErrNoCurrentFrame
	}
	if frame.Gray.Empty() {
		return errors.Errorf("frame %d: extract before filter", frame.Index)
	}

	corners := gocv.NewMat()
	defer corners.Close()
	err := gocv.GoodFeaturesToTrack(frame.Gray, &corners, s.config.MaxCorners, s.config.QualityLevel, s.config.MinDistance)
	if err != nil {
		s.matches = nil
		return errors.Wrapf(err, "frame %d: corner detection", frame.Index)
	}

	frame.Features = cornerPoints(corners)
	frame.Keypoints = make([]gocv.KeyPoint, len(frame.Features))
	for i, pt := range frame.Features {
		frame.Keypoints[i] = gocv.KeyPoint{
			X:    float64(pt.X),
			Y:    float64(pt.Y),
			Size: s.config.KeypointSize,
		}
	}

	s.matches = nil
	if s.matcher == nil {
		return nil
	}

	if err := s.matcher.Describe(frame); err != nil {
		return errors.Wrapf(err, "frame %d: describe keypoints", frame.Index)
	}
	if s.previous == nil {
		return nil
	}

	matches, err := s.matcher.Match(frame, s.previous)
	if err != nil {
		return errors.Wrapf(err, "frame %d: match against frame %d", frame.Index, s.previous.Index)
	}
	s.matches = matches

	s.logger.Debugw("extracted",
		"frame", frame.Index,
		"features", len(frame.Features),
		"keypoints", len(frame.Keypoints),
		"matches", len(matches))
	return nil
}

// ForwardFrameState moves the current frame into the previous slot and releases the
// frame that was there.
func (s *Session) ForwardFrameState() {
	if s.previous != nil {
		if err := s.previous.Close(); err != nil {
			s.logger.Warnw("release previous frame", "frame", s.previous.Index, "error", err)
		}
	}
	s.previous = s.current
	s.current = nil
}

// SelectVisualOutputBase sets the image following renders draw on.
func (s *Session) SelectVisualOutputBase(base VisualOutputBase) {
	s.base = base
}

// VisualOutputBase returns the selected display base.
func (s *Session) VisualOutputBase() VisualOutputBase {
	return s.base
}

// Halt sets the halted flag. Nothing in the session clears it.
func (s *Session) Halt() {
	s.halted = true
}

// Halted reports whether the operator paused playback.
func (s *Session) Halted() bool {
	return s.halted
}

// Matches returns the filtered matches of the latest Extract.
func (s *Session) Matches() []Match {
	return s.matches
}

// Current returns the current frame state, or nil.
func (s *Session) Current() *FrameState {
	return s.current
}

// Previous returns the previous frame state, or nil.
func (s *Session) Previous() *FrameState {
	return s.previous
}

// Step runs Input, Filter, Extract and VisualOutput on one frame.
//
// Arguments:
//   - frame: The raw frame; the session takes ownership.
//
// Returns:
//   - gocv.Mat: The rendered output, owned by the caller.
//   - error: The first stage error.
func (s *Session) Step(frame gocv.Mat) (gocv.Mat, error) {
	s.Input(frame)
	if err := s.Filter(); err != nil {
		return gocv.NewMat(), err
	}
	if err := s.Extract(); err != nil {
		return gocv.NewMat(), err
	}
	return s.VisualOutput()
}

// Close releases both frames and the matcher.
func (s *Session) Close() error {
	var err error
	if s.current != nil {
		err = multierr.Append(err, s.current.Close())
		s.current = nil
	}
	if s.previous != nil {
		err = multierr.Append(err, s.previous.Close())
		s.previous = nil
	}
	if s.matcher != nil {
		err = multierr.Append(err, s.matcher.Close())
	}
	return err
}

// cornerPoints reads the Nx1 two channel float corner list of GoodFeaturesToTrack as
// whole-pixel points.
func cornerPoints(corners gocv.Mat) []image.Point {
	if corners.Empty() {
		return nil
	}
	points := make([]image.Point, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		if len(v) < 2 {
			continue
		}
		points = append(points, image.Point{
			X: int(math.Round(float64(v[0]))),
			Y: int(math.Round(float64(v[1]))),
		})
	}
	return points
}
