// Package config - This file contains the top-level configuration of the preview and its
// optional YAML file.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-odometry/controller"
	"github.com/nvr-ai/go-odometry/geometry"
	"github.com/nvr-ai/go-odometry/pipeline"
	"github.com/nvr-ai/go-odometry/source"
)

// DefaultVideoPath is the clip the preview plays when none is given.
const DefaultVideoPath = "labeled/0.hevc"

// Config gathers every tunable of the preview.
type Config struct {
	// VideoPath is a video file or a directory of frame-<N> images.
	VideoPath string `yaml:"video"`
	// LabelsPath is an optional pitch/yaw ground-truth file printed on every frame.
	LabelsPath string `yaml:"labels"`
	// Matching enables descriptor matching against the previous frame.
	Matching bool `yaml:"matching"`
	// Seed seeds the RANSAC sampler.
	Seed int64 `yaml:"seed"`
	// Base is the display base at startup.
	Base pipeline.VisualOutputBase `yaml:"base"`
	// Profile logs stage timings periodically.
	Profile bool `yaml:"profile"`

	Source   source.Options        `yaml:"source"`
	Pipeline pipeline.Config       `yaml:"pipeline"`
	RANSAC   geometry.RANSACConfig `yaml:"ransac"`
	Display  controller.Config     `yaml:"display"`
}

// Default returns the configuration the preview runs with when no file is given.
func Default() Config {
	return Config{
		VideoPath: DefaultVideoPath,
		Matching:  true,
		Seed:      1,
		Base:      pipeline.BaseGray,
		Source:    source.DefaultOptions(),
		Pipeline:  pipeline.DefaultConfig(),
		RANSAC:    geometry.DefaultRANSACConfig(),
		Display:   controller.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep their default.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged, validated configuration.
//   - error: An error if the file cannot be read, has unknown keys, or fails validation.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the stages cannot run with.
func (c Config) Validate() error {
	switch {
	case c.VideoPath == "":
		return errors.New("video path is empty")
	case c.Source.Width < 0:
		return errors.Errorf("source width %d is negative", c.Source.Width)
	case c.Pipeline.CannyLow <= 0 || c.Pipeline.CannyHigh <= 0:
		return errors.Errorf("canny thresholds %v/%v must be positive", c.Pipeline.CannyLow, c.Pipeline.CannyHigh)
	case c.Pipeline.CannyLow > c.Pipeline.CannyHigh:
		return errors.Errorf("canny low threshold %v exceeds high threshold %v", c.Pipeline.CannyLow, c.Pipeline.CannyHigh)
	case c.Pipeline.MaxCorners <= 0:
		return errors.Errorf("max corners %d must be positive", c.Pipeline.MaxCorners)
	case c.Pipeline.QualityLevel <= 0 || c.Pipeline.QualityLevel >= 1:
		return errors.Errorf("quality level %v must be in (0, 1)", c.Pipeline.QualityLevel)
	case c.Pipeline.MinDistance < 0:
		return errors.Errorf("min distance %v is negative", c.Pipeline.MinDistance)
	case c.Pipeline.KeypointSize <= 0:
		return errors.Errorf("keypoint size %v must be positive", c.Pipeline.KeypointSize)
	case c.RANSAC.Threshold <= 0:
		return errors.Errorf("ransac threshold %v must be positive", c.RANSAC.Threshold)
	case c.RANSAC.Confidence <= 0 || c.RANSAC.Confidence >= 1:
		return errors.Errorf("ransac confidence %v must be in (0, 1)", c.RANSAC.Confidence)
	case c.RANSAC.MaxIterations <= 0:
		return errors.Errorf("ransac max iterations %d must be positive", c.RANSAC.MaxIterations)
	case c.Display.WaitDelay <= 0:
		return errors.Errorf("wait delay %dms must be positive", c.Display.WaitDelay)
	}
	return nil
}
