// Package test - This file contains deterministic synthetic frames for the pipeline and
// controller tests.
package test

import (
	"image"
	"image/color"
	"math/rand"

	"gocv.io/x/gocv"
)

// sceneMargin keeps scene content away from the frame border, where ORB cannot
// describe keypoints.
const sceneMargin = 48

// MockFrameGenerator creates deterministic BGR test frames.
//
// Arguments:
// - None.
//
// Returns:
// - A generator for creating test frames with controlled content and offsets.
//
// @example
// gen := NewMockFrameGenerator(640, 480)
// frame := gen.GenerateSceneFrame(0, 0)
// defer frame.Close()
type MockFrameGenerator struct {
	width  int
	height int
	seed   int64
}

// NewMockFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
//
// Returns:
// - A configured MockFrameGenerator instance.
func NewMockFrameGenerator(width, height int) *MockFrameGenerator {
	return &MockFrameGenerator{
		width:  width,
		height: height,
		seed:   42, // Deterministic seed for reproducibility.
	}
}

// GenerateStaticFrame creates a uniform mid-gray frame with no features.
func (g *MockFrameGenerator) GenerateStaticFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), g.height, g.width, gocv.MatTypeCV8UC3)
}

// GenerateCornerFrame creates a dark frame with one bright square whose top-left
// corner is at (x, y).
//
// Arguments:
// - x: X coordinate of the square.
// - y: Y coordinate of the square.
// - size: Side of the square in pixels.
//
// Returns:
// - A BGR Mat.
func (g *MockFrameGenerator) GenerateCornerFrame(x, y, size int) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(20, 20, 20, 0), g.height, g.width, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(x, y, x+size, y+size), color.RGBA{R: 235, G: 235, B: 235, A: 0}, -1)
	return frame
}

// GenerateSceneFrame creates a textured scene of overlapping gray rectangles, shifted by
// (dx, dy). Every call with the same generator draws the same scene, so two frames with
// different offsets differ by a pure translation.
//
// Arguments:
// - dx: Horizontal shift of the scene in pixels.
// - dy: Vertical shift of the scene in pixels.
//
// Returns:
// - A BGR Mat whose channels are equal everywhere.
func (g *MockFrameGenerator) GenerateSceneFrame(dx, dy int) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), g.height, g.width, gocv.MatTypeCV8UC3)
	rng := rand.New(rand.NewSource(g.seed))

	for i := 0; i < 80; i++ {
		w := 10 + rng.Intn(40)
		h := 10 + rng.Intn(40)
		x := sceneMargin + rng.Intn(g.width-2*sceneMargin-w)
		y := sceneMargin + rng.Intn(g.height-2*sceneMargin-h)
		level := uint8(rng.Intn(256))

		rect := image.Rect(x+dx, y+dy, x+dx+w, y+dy+h)
		gocv.Rectangle(&frame, rect, color.RGBA{R: level, G: level, B: level, A: 0}, -1)
	}
	return frame
}
