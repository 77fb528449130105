// Package labels - This file contains the ground-truth camera orientation track that can
// accompany a video: one "pitch yaw" row in radians per frame.
package labels

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Label is the camera orientation of one frame, in radians. Either angle may be NaN when
// the frame is unlabeled.
type Label struct {
	Pitch float64
	Yaw   float64
}

// Valid reports whether both angles are known.
func (l Label) Valid() bool {
	return !math.IsNaN(l.Pitch) && !math.IsNaN(l.Yaw)
}

// Track is the per-frame label sequence of one video.
type Track struct {
	Labels []Label
}

// At returns the label of a frame. ok is false past the end of the track.
func (t *Track) At(frame int) (Label, bool) {
	if t == nil || frame < 0 || frame >= len(t.Labels) {
		return Label{}, false
	}
	return t.Labels[frame], true
}

// Len returns the number of labeled frames.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Labels)
}

// Load reads a label file.
//
// Arguments:
//   - path: A text file with one whitespace-separated "pitch yaw" row per frame.
//
// Returns:
//   - *Track: The parsed track.
//   - error: An error if the file cannot be read or a row is malformed.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open labels %s", path)
	}
	defer f.Close()

	track, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse labels %s", path)
	}
	return track, nil
}

// Parse reads label rows from r. Blank lines are skipped; "nan" is accepted for
// unlabeled frames.
func Parse(r io.Reader) (*Track, error) {
	track := &Track{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, errors.Errorf("line %d: expected 2 columns, got %d", line, len(fields))
		}

		pitch, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: pitch", line)
		}
		yaw, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: yaw", line)
		}
		track.Labels = append(track.Labels, Label{Pitch: pitch, Yaw: yaw})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return track, nil
}
