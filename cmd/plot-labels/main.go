// Command plot-labels renders the pitch and yaw of a label file as a line chart.
package main

import (
	"flag"
	"log"

	"gonum.org/v1/plot/vg"

	"github.com/nvr-ai/go-odometry/labels"
	"github.com/nvr-ai/go-odometry/logging"
)

func main() {
	var (
		labelsPath string
		outputPath string
		title      string
		widthIn    float64
		heightIn   float64
	)
	flag.StringVar(&labelsPath, "labels", "labeled/0.txt", "Path to the pitch/yaw label file")
	flag.StringVar(&outputPath, "output", "labels.png", "Chart path; the extension selects png, svg or pdf")
	flag.StringVar(&title, "title", "", "Chart title (defaults to the label path)")
	flag.Float64Var(&widthIn, "width", 10, "Chart width in inches")
	flag.Float64Var(&heightIn, "height", 4, "Chart height in inches")
	flag.Parse()

	logger, err := logging.NewLogger("plot-labels", false)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	track, err := labels.Load(labelsPath)
	if err != nil {
		logger.Fatalw("load labels", "error", err)
	}

	opts := labels.DefaultPlotOptions()
	opts.Width = vg.Length(widthIn) * vg.Inch
	opts.Height = vg.Length(heightIn) * vg.Inch
	opts.Title = labelsPath
	if title != "" {
		opts.Title = title
	}

	if err := labels.Plot(track, outputPath, opts); err != nil {
		logger.Fatalw("plot labels", "error", err)
	}
	logger.Infow("wrote chart", "path", outputPath, "frames", track.Len())
}
