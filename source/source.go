// Package source - This file contains the frame sources feeding the odometry preview.
//
// A Source hands out one decoded BGR frame per call until it is exhausted. Two sources
// exist: a video container read through OpenCV, and a directory of numbered still images.
package source

import (
	"image"
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrExhausted is returned by Next once no further frame can be read.
var ErrExhausted = errors.New("frame source exhausted")

// Source supplies successive raw frames.
type Source interface {
	// Next returns the next frame. The caller owns the returned Mat.
	Next() (gocv.Mat, error)
	// Close releases the underlying reader.
	Close() error
}

// Options configures how frames are decoded.
type Options struct {
	// Width downscales frames wider than this many pixels, keeping the aspect ratio.
	// Zero keeps the native size.
	Width int `yaml:"width"`
}

// DefaultOptions returns options that keep frames at their native size.
func DefaultOptions() Options {
	return Options{}
}

// Open opens path as a DirectorySource when it is a directory and as a VideoSource
// otherwise.
//
// Arguments:
//   - path: A video file or a directory of frame images.
//   - opts: Decoding options.
//
// Returns:
//   - Source: The opened source.
//   - error: An error if the path cannot be opened.
func Open(path string, opts Options) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open source %s", path)
	}
	if info.IsDir() {
		return NewDirectorySource(path, opts)
	}
	return NewVideoSource(path, opts)
}

// scaledSize returns the size a frame of the given dimensions is downscaled to, and
// whether any scaling is needed.
func scaledSize(width, height, target int) (image.Point, bool) {
	if target <= 0 || width <= target || width == 0 {
		return image.Point{X: width, Y: height}, false
	}
	h := int(float64(height)*float64(target)/float64(width) + 0.5)
	if h < 1 {
		h = 1
	}
	return image.Point{X: target, Y: h}, true
}
