package source

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// VideoSource reads frames from a video container.
type VideoSource struct {
	path    string
	opts    Options
	capture *gocv.VideoCapture
	frames  int
}

// NewVideoSource opens a video file for sequential reading.
//
// Arguments:
//   - path: The video file.
//   - opts: Decoding options.
//
// Returns:
//   - *VideoSource: The opened source.
//   - error: An error if OpenCV cannot open the file.
func NewVideoSource(path string, opts Options) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open video %s", path)
	}
	return &VideoSource{
		path:    path,
		opts:    opts,
		capture: capture,
	}, nil
}

// Next reads the next frame. A failed read or an empty frame ends the stream.
func (s *VideoSource) Next() (gocv.Mat, error) {
	frame := gocv.NewMat()
	if ok := s.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.NewMat(), errors.Wrapf(ErrExhausted, "%s after %d frames", s.path, s.frames)
	}
	s.frames++

	size, scale := scaledSize(frame.Cols(), frame.Rows(), s.opts.Width)
	if !scale {
		return frame, nil
	}

	resized := gocv.NewMat()
	err := gocv.Resize(frame, &resized, size, 0, 0, gocv.InterpolationArea)
	frame.Close()
	if err != nil {
		resized.Close()
		return gocv.NewMat(), errors.Wrapf(err, "resize frame %d of %s", s.frames, s.path)
	}
	if resized.Empty() {
		resized.Close()
		return gocv.NewMat(), errors.Errorf("resize frame %d of %s", s.frames, s.path)
	}
	return resized, nil
}

// Close releases the capture.
func (s *VideoSource) Close() error {
	return s.capture.Close()
}
