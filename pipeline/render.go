package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// KeypointColor is the color of the keypoint circles.
	KeypointColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	// MatchColor is the color of the lines joining matched keypoints.
	MatchColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// LabelColor is the color of the ground-truth text.
	LabelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// VisualOutput composites the selected base image with the current keypoints, a line
// per match from the current to the previous keypoint position and, with a label
// track, the frame's ground-truth orientation.
//
// Returns:
//   - gocv.Mat: A three channel image owned by the caller.
//   - error: ErrNoCurrentFrame, or an error if the base image has not been computed.
func (s *Session) VisualOutput() (gocv.Mat, error) {
	frame := s.current
	if frame == nil {
		return gocv.NewMat(), ErrNoCurrentFrame
	}

	base := s.base.image(frame)
	if base.Empty() {
		return gocv.NewMat(), errors.Errorf("frame %d: %s image not computed", frame.Index, s.base)
	}

	output := gocv.NewMat()
	var err error
	if len(frame.Keypoints) > 0 {
		gocv.DrawKeyPoints(base, frame.Keypoints, &output, KeypointColor, gocv.DrawDefault)
	} else if base.Channels() == 1 {
		err = gocv.CvtColor(base, &output, gocv.ColorGrayToBGR)
	} else {
		err = base.CopyTo(&output)
	}
	if err != nil {
		output.Close()
		return gocv.NewMat(), errors.Wrapf(err, "frame %d: compose output", frame.Index)
	}
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), errors.Errorf("frame %d: compose output", frame.Index)
	}

	for _, m := range s.matches {
		err := gocv.Line(&output,
			image.Pt(int(m.Current.X), int(m.Current.Y)),
			image.Pt(int(m.Previous.X), int(m.Previous.Y)),
			MatchColor, 1)
		if err != nil {
			output.Close()
			return gocv.NewMat(), errors.Wrapf(err, "frame %d: draw match", frame.Index)
		}
	}

	if label, ok := s.labels.At(frame.Index); ok && label.Valid() {
		text := fmt.Sprintf("pitch %.4f yaw %.4f", label.Pitch, label.Yaw)
		if err := gocv.PutText(&output, text, image.Pt(10, 20), gocv.FontHersheyPlain, 1.2, LabelColor, 1); err != nil {
			output.Close()
			return gocv.NewMat(), errors.Wrapf(err, "frame %d: draw label", frame.Index)
		}
	}

	return output, nil
}
