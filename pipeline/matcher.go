package pipeline

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-odometry/geometry"
)

// Match pairs a current-frame keypoint with a previous-frame keypoint that survived
// geometric consensus filtering.
type Match struct {
	Current  gocv.KeyPoint
	Previous gocv.KeyPoint
	// Distance is the Hamming distance between the two descriptors.
	Distance float64
}

// CrossFrameMatcher is the optional extraction capability that describes keypoints and
// matches them against the previous frame.
type CrossFrameMatcher interface {
	// Describe computes descriptors for the frame keypoints. Keypoints that cannot be
	// described are dropped from the frame.
	Describe(frame *FrameState) error
	// Match returns the consistent keypoint pairs between two described frames.
	Match(current, previous *FrameState) ([]Match, error)
	// Close releases the native handles.
	Close() error
}

// DescriptorMatcher describes keypoints with ORB, matches them by brute force on
// Hamming distance with cross-checking, and keeps the pairs a RANSAC fundamental
// matrix accepts as inliers.
type DescriptorMatcher struct {
	orb    gocv.ORB
	bf     gocv.BFMatcher
	ransac *geometry.RANSAC
	mask   gocv.Mat
}

// NewDescriptorMatcher creates the ORB extractor and the brute force matcher.
//
// Arguments:
//   - config: RANSAC parameters for the consensus filter.
//   - seed: Seed of the RANSAC sampler.
//
// Returns:
//   - *DescriptorMatcher: The matcher. Call Close to release it.
func NewDescriptorMatcher(config geometry.RANSACConfig, seed int64) *DescriptorMatcher {
	return &DescriptorMatcher{
		orb:    gocv.NewORB(),
		bf:     gocv.NewBFMatcherWithParams(gocv.NormHamming, true),
		ransac: geometry.NewRANSAC(config, seed),
		mask:   gocv.NewMat(),
	}
}

// Describe computes ORB descriptors over the frame keypoints.
func (m *DescriptorMatcher) Describe(frame *FrameState) error {
	if len(frame.Keypoints) == 0 {
		return nil
	}

	keypoints, descriptors := m.orb.Compute(frame.Gray, m.mask, frame.Keypoints)
	frame.Keypoints = keypoints
	if err := frame.Descriptors.Close(); err != nil {
		descriptors.Close()
		return errors.Wrap(err, "release descriptors")
	}
	frame.Descriptors = descriptors
	return nil
}

// Match pairs current descriptors with previous ones and filters the pairs by
// fundamental matrix consensus. Fewer than eight candidate pairs cannot constrain the
// geometry and yield no matches.
func (m *DescriptorMatcher) Match(current, previous *FrameState) ([]Match, error) {
	if current.Descriptors.Empty() || previous.Descriptors.Empty() {
		return nil, nil
	}

	candidates := m.bf.Match(current.Descriptors, previous.Descriptors)
	if len(candidates) < geometry.MinCorrespondences {
		return nil, nil
	}

	pairs := make([]Match, 0, len(candidates))
	p1 := make([]r2.Point, 0, len(candidates))
	p2 := make([]r2.Point, 0, len(candidates))
	for _, dm := range candidates {
		if dm.QueryIdx < 0 || dm.QueryIdx >= len(current.Keypoints) ||
			dm.TrainIdx < 0 || dm.TrainIdx >= len(previous.Keypoints) {
			return nil, errors.Errorf("match index out of range: query %d of %d, train %d of %d",
				dm.QueryIdx, len(current.Keypoints), dm.TrainIdx, len(previous.Keypoints))
		}
		cur := current.Keypoints[dm.QueryIdx]
		prev := previous.Keypoints[dm.TrainIdx]
		pairs = append(pairs, Match{Current: cur, Previous: prev, Distance: dm.Distance})
		p1 = append(p1, r2.Point{X: cur.X, Y: cur.Y})
		p2 = append(p2, r2.Point{X: prev.X, Y: prev.Y})
	}

	_, mask, err := m.ransac.Estimate(p1, p2)
	if errors.Is(err, geometry.ErrDegenerate) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "estimate fundamental matrix")
	}

	inliers := pairs[:0]
	for i, ok := range mask {
		if ok {
			inliers = append(inliers, pairs[i])
		}
	}
	return inliers, nil
}

// Close releases the ORB extractor and the matcher.
func (m *DescriptorMatcher) Close() error {
	return multierr.Combine(
		m.orb.Close(),
		m.bf.Close(),
		m.mask.Close(),
	)
}
