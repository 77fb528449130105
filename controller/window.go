package controller

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// windowPropertyTopMost is highgui's WND_PROP_TOPMOST.
const windowPropertyTopMost gocv.WindowPropertyFlag = 5

// Display shows rendered frames and reports key presses.
type Display interface {
	// Show presents a frame.
	Show(frame gocv.Mat) error
	// WaitKey waits up to delay milliseconds for a key, or indefinitely when delay is 0.
	// It returns -1 when no key was pressed.
	WaitKey(delay int) int
	// Close destroys the display.
	Close() error
}

// Window is a Display backed by a topmost highgui window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a named window that stays above other windows.
func NewWindow(name string) (*Window, error) {
	w := gocv.NewWindow(name)
	if err := w.SetWindowProperty(windowPropertyTopMost, gocv.WindowFlag(1)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "window %q: keep on top", name)
	}
	return &Window{window: w}, nil
}

// Show implements Display.
func (w *Window) Show(frame gocv.Mat) error {
	return w.window.IMShow(frame)
}

// WaitKey implements Display.
func (w *Window) WaitKey(delay int) int {
	return w.window.WaitKey(delay)
}

// Close implements Display.
func (w *Window) Close() error {
	return w.window.Close()
}
