package pipeline

import (
	"image"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// FrameState bundles one raw frame with everything derived from it.
//
// All derived fields start empty and are filled in place by Filter and Extract. Once a
// frame is rotated into the previous slot it is no longer modified.
type FrameState struct {
	// Index is the position of the frame in the stream, starting at 0.
	Index int
	// Original is the raw BGR frame.
	Original gocv.Mat
	// Gray is the single channel grayscale image.
	Gray gocv.Mat
	// Canny is the edge map.
	Canny gocv.Mat
	// Features are the detected corners, rounded to whole pixels.
	Features []image.Point
	// Keypoints are the features with size and orientation metadata.
	Keypoints []gocv.KeyPoint
	// Descriptors holds one row per keypoint when a matcher described the frame.
	Descriptors gocv.Mat
}

// newFrameState wraps a raw frame. The state takes ownership of frame.
func newFrameState(index int, frame gocv.Mat) *FrameState {
	return &FrameState{
		Index:       index,
		Original:    frame,
		Gray:        gocv.NewMat(),
		Canny:       gocv.NewMat(),
		Descriptors: gocv.NewMat(),
	}
}

// Close releases the native images of the frame.
func (f *FrameState) Close() error {
	return multierr.Combine(
		f.Original.Close(),
		f.Gray.Close(),
		f.Canny.Close(),
		f.Descriptors.Close(),
	)
}
