package geometry

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// RANSACConfig contains the consensus parameters for fundamental matrix estimation.
type RANSACConfig struct {
	// Threshold is the maximum epipolar distance in pixels for an inlier.
	Threshold float64 `yaml:"threshold"`
	// Confidence is the desired probability that an outlier-free sample was drawn.
	Confidence float64 `yaml:"confidence"`
	// MaxIterations caps the number of samples drawn.
	MaxIterations int `yaml:"max_iterations"`
}

// DefaultRANSACConfig returns the consensus parameters of the preview: 5px, 0.1
// confidence and at most 100 iterations.
func DefaultRANSACConfig() RANSACConfig {
	return RANSACConfig{
		Threshold:     5.0,
		Confidence:    0.1,
		MaxIterations: 100,
	}
}

// RANSAC estimates a fundamental matrix robustly by random sample consensus.
type RANSAC struct {
	config RANSACConfig
	rng    *rand.Rand
}

// NewRANSAC creates an estimator.
//
// Arguments:
//   - config: Consensus parameters.
//   - seed: Seed of the sampler; a fixed seed makes the estimate reproducible.
//
// Returns:
//   - *RANSAC: The estimator.
func NewRANSAC(config RANSACConfig, seed int64) *RANSAC {
	return &RANSAC{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Estimate draws minimal samples, keeps the model with the most inliers and refits it
// on those inliers.
//
// Arguments:
//   - p1: Points in the first view.
//   - p2: Corresponding points in the second view.
//
// Returns:
//   - *mat.Dense: The best fundamental matrix.
//   - []bool: The inlier mask of the best sample's model, one entry per pair.
//   - error: ErrMismatchedPoints, ErrTooFewPoints, or ErrDegenerate when no sample
//     produced a model.
func (r *RANSAC) Estimate(p1, p2 []r2.Point) (*mat.Dense, []bool, error) {
	if len(p1) != len(p2) {
		return nil, nil, ErrMismatchedPoints
	}
	n := len(p1)
	if n < MinCorrespondences {
		return nil, nil, ErrTooFewPoints
	}

	thresh2 := r.config.Threshold * r.config.Threshold
	maxIters := r.config.MaxIterations
	if maxIters < 1 {
		maxIters = 1
	}

	var (
		bestF     *mat.Dense
		bestMask  []bool
		bestCount int
	)
	s1 := make([]r2.Point, MinCorrespondences)
	s2 := make([]r2.Point, MinCorrespondences)
	mask := make([]bool, n)

	iters := maxIters
	for i := 0; i < iters; i++ {
		for j, idx := range r.rng.Perm(n)[:MinCorrespondences] {
			s1[j] = p1[idx]
			s2[j] = p2[idx]
		}
		f, err := FundamentalMatrix(s1, s2)
		if err != nil {
			continue
		}

		count := 0
		for k := range p1 {
			mask[k] = EpipolarError(f, p1[k], p2[k]) <= thresh2
			if mask[k] {
				count++
			}
		}
		if count <= bestCount {
			continue
		}

		bestCount = count
		bestF = f
		bestMask = append(bestMask[:0], mask...)
		iters = updateIterations(r.config.Confidence, float64(n-count)/float64(n), iters)
	}

	if bestF == nil {
		return nil, nil, ErrDegenerate
	}

	if bestCount >= MinCorrespondences {
		in1 := make([]r2.Point, 0, bestCount)
		in2 := make([]r2.Point, 0, bestCount)
		for k, ok := range bestMask {
			if ok {
				in1 = append(in1, p1[k])
				in2 = append(in2, p2[k])
			}
		}
		if refined, err := FundamentalMatrix(in1, in2); err == nil {
			bestF = refined
		}
	}

	return bestF, bestMask, nil
}

// updateIterations shrinks the iteration budget once a model with the given outlier
// ratio has been found. It never grows the budget.
func updateIterations(confidence, outlierRatio float64, current int) int {
	confidence = math.Max(math.Min(confidence, 1), 0)
	outlierRatio = math.Max(math.Min(outlierRatio, 1), 0)

	num := math.Max(1-confidence, math.SmallestNonzeroFloat64)
	denom := 1 - math.Pow(1-outlierRatio, MinCorrespondences)
	if denom < math.SmallestNonzeroFloat64 {
		return 0
	}

	num = math.Log(num)
	denom = math.Log(denom)
	if denom >= 0 || -num >= float64(current)*(-denom) {
		return current
	}
	return int(math.Round(num / denom))
}
