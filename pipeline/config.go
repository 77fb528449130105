package pipeline

// Config contains the fixed parameters of the filter and extract stages.
type Config struct {
	// CannyLow is the lower hysteresis threshold of the edge detector.
	CannyLow float32 `yaml:"canny_low"`
	// CannyHigh is the upper hysteresis threshold of the edge detector.
	CannyHigh float32 `yaml:"canny_high"`
	// MaxCorners is the maximum number of corner features per frame.
	MaxCorners int `yaml:"max_corners"`
	// QualityLevel is the minimal accepted corner quality relative to the best corner.
	QualityLevel float64 `yaml:"quality_level"`
	// MinDistance is the minimum distance in pixels between two corners.
	MinDistance float64 `yaml:"min_distance"`
	// KeypointSize is the diameter assigned to every keypoint built from a corner.
	KeypointSize float64 `yaml:"keypoint_size"`
}

// DefaultConfig returns the parameters the preview runs with.
//
// Returns:
//   - Config: Canny 60/100, up to 3000 corners at quality 0.01 and 3px spacing, and
//     keypoints of size 20.
func DefaultConfig() Config {
	return Config{
		CannyLow:     60,
		CannyHigh:    100,
		MaxCorners:   3000,
		QualityLevel: 0.01,
		MinDistance:  3.0,
		KeypointSize: 20,
	}
}
