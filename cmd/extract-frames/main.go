// Command extract-frames writes the frames of a video as numbered images that the preview
// can replay as a directory source.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-odometry/logging"
	"github.com/nvr-ai/go-odometry/source"
)

func main() {
	var (
		videoPath string
		outputDir string
		ext       string
		width     int
		limit     int
	)
	flag.StringVar(&videoPath, "video", "labeled/0.hevc", "Path to the video file")
	flag.StringVar(&outputDir, "output-dir", "frames", "Directory the frame images are written to")
	flag.StringVar(&ext, "ext", "png", "Image format: png, jpg or bmp")
	flag.IntVar(&width, "width", 0, "Downscale frames wider than this many pixels (0 keeps the native size)")
	flag.IntVar(&limit, "limit", 0, "Stop after this many frames (0 extracts all)")
	flag.Parse()

	logger, err := logging.NewLogger("extract-frames", false)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Fatalw("create output directory", "error", err)
	}

	src, err := source.NewVideoSource(videoPath, source.Options{Width: width})
	if err != nil {
		logger.Fatalw("open video", "error", err)
	}
	defer src.Close()

	// FPS tracking variables
	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	written := 0
	for limit == 0 || written < limit {
		img, err := src.Next()
		if errors.Is(err, source.ErrExhausted) {
			break
		}
		if err != nil {
			logger.Fatalw("read frame", "error", err)
		}

		path := filepath.Join(outputDir, fmt.Sprintf("frame-%d.%s", written, ext))
		ok := gocv.IMWrite(path, img)
		img.Close()
		if !ok {
			logger.Fatalw("write frame", "path", path)
		}
		written++

		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
			logger.Infow("extracting", "frames", written, "fps", fmt.Sprintf("%.2f", fps))
		}
	}

	logger.Infow("done", "frames", written, "dir", outputDir)
}
