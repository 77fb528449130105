package labels

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotOptions controls the size of the rendered chart.
type PlotOptions struct {
	Width  vg.Length
	Height vg.Length
	Title  string
}

// DefaultPlotOptions returns a 10x4 inch chart.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Width:  10 * vg.Inch,
		Height: 4 * vg.Inch,
		Title:  "Camera orientation",
	}
}

// NewPlot builds a line chart of pitch and yaw against the frame number. A NaN angle
// leaves that frame out of its own line only.
func NewPlot(track *Track, opts PlotOptions) (*plot.Plot, error) {
	if track.Len() == 0 {
		return nil, errors.New("label track is empty")
	}

	pitch, yaw := series(track)
	if len(pitch) == 0 && len(yaw) == 0 {
		return nil, errors.New("label track has no labeled frames")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "rad"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, s := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{name: "pitch", xys: pitch, color: color.RGBA{R: 31, G: 119, B: 180, A: 255}},
		{name: "yaw", xys: yaw, color: color.RGBA{R: 255, G: 127, B: 14, A: 255}},
	} {
		if len(s.xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line", s.name)
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	return p, nil
}

// series splits the track into one point list per angle, skipping NaN values.
func series(track *Track) (pitch, yaw plotter.XYs) {
	pitch = make(plotter.XYs, 0, track.Len())
	yaw = make(plotter.XYs, 0, track.Len())
	for i, l := range track.Labels {
		if !math.IsNaN(l.Pitch) {
			pitch = append(pitch, plotter.XY{X: float64(i), Y: l.Pitch})
		}
		if !math.IsNaN(l.Yaw) {
			yaw = append(yaw, plotter.XY{X: float64(i), Y: l.Yaw})
		}
	}
	return pitch, yaw
}

// Plot renders the track to path. The image format follows the file extension
// (png, svg, pdf, ...).
func Plot(track *Track, path string, opts PlotOptions) error {
	p, err := NewPlot(track, opts)
	if err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
