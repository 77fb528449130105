// Package images - This file contains helpers that compare rendered frames.
package images

import (
	"crypto/md5"
	"fmt"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ComputeMatChecksum returns a hex MD5 of the Mat pixel data, or "empty".
//
// Arguments:
// - mat: A continuous 8-bit Mat.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	before := ComputeMatChecksum(output)
//	session.SelectVisualOutputBase(pipeline.BaseCanny)
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return "unreadable"
	}
	return fmt.Sprintf("%x", md5.Sum(data))
}

// DominantPixels returns the indices of the pixels of a three channel Mat where one
// channel exceeds both others by more than margin. On frames whose channels are equal
// everywhere, only colored overlays pass.
//
// Arguments:
// - mat: A continuous 8-bit BGR Mat.
// - channel: 0 for blue, 1 for green, 2 for red.
// - margin: The minimum lead over the other two channels.
//
// Returns:
// - The row-major pixel indices in ascending order.
// - An error if the Mat is not three channel 8-bit.
func DominantPixels(mat gocv.Mat, channel int, margin int) ([]int, error) {
	if mat.Channels() != 3 {
		return nil, errors.Errorf("expected 3 channels, got %d", mat.Channels())
	}
	if channel < 0 || channel > 2 {
		return nil, errors.Errorf("channel %d out of range", channel)
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, errors.Wrap(err, "read pixels")
	}

	var idx []int
	for i := 0; i+2 < len(data); i += 3 {
		lead := int(data[i+channel])
		dominant := true
		for c := 0; c < 3; c++ {
			if c != channel && lead-int(data[i+c]) <= margin {
				dominant = false
				break
			}
		}
		if dominant {
			idx = append(idx, i/3)
		}
	}
	return idx, nil
}
