package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-odometry/config"
	"github.com/nvr-ai/go-odometry/controller"
	"github.com/nvr-ai/go-odometry/labels"
	"github.com/nvr-ai/go-odometry/logging"
	"github.com/nvr-ai/go-odometry/pipeline"
	"github.com/nvr-ai/go-odometry/profiler"
	"github.com/nvr-ai/go-odometry/source"
)

func main() {
	var (
		configPath string
		videoPath  string
		labelsPath string
		width      int
		noMatch    bool
		profile    bool
		debug      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&videoPath, "video", config.DefaultVideoPath, "Path to a video file or a directory of frame-<N> images")
	flag.StringVar(&labelsPath, "labels", "", "Path to a pitch/yaw label file printed on every frame")
	flag.IntVar(&width, "width", 0, "Downscale frames wider than this many pixels (0 keeps the native size)")
	flag.BoolVar(&noMatch, "no-match", false, "Skip descriptor matching against the previous frame")
	flag.BoolVar(&profile, "profile", false, "Log stage timings periodically")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger, err := logging.NewLogger("odometry", debug)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			logger.Fatalw("load config", "error", err)
		}
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "video":
			cfg.VideoPath = videoPath
		case "labels":
			cfg.LabelsPath = labelsPath
		case "width":
			cfg.Source.Width = width
		case "no-match":
			cfg.Matching = !noMatch
		case "profile":
			cfg.Profile = profile
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatalw("invalid config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Running ...")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorw("preview stopped", "error", err)
		stop()
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

// run wires the source, session, display and optional profiler and plays until escape.
func run(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (err error) {
	src, err := source.Open(cfg.VideoPath, cfg.Source)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()

	opts := []pipeline.Option{
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithVisualOutputBase(cfg.Base),
	}
	if cfg.Matching {
		opts = append(opts, pipeline.WithMatcher(pipeline.NewDescriptorMatcher(cfg.RANSAC, cfg.Seed)))
	}
	if cfg.LabelsPath != "" {
		track, err := labels.Load(cfg.LabelsPath)
		if err != nil {
			return err
		}
		logger.Infow("loaded labels", "path", cfg.LabelsPath, "frames", track.Len())
		opts = append(opts, pipeline.WithLabels(track))
	}

	session := pipeline.NewSession(cfg.Pipeline, opts...)
	defer func() {
		err = multierr.Append(err, session.Close())
	}()

	window, err := controller.NewWindow(cfg.Display.WindowName)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, window.Close())
	}()

	ctrlOpts := []controller.Option{controller.WithLogger(logger.Named("controller"))}
	if cfg.Profile {
		rp := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{Logger: logger.Named("profiler")})
		rp.Start()
		defer rp.Stop()
		ctrlOpts = append(ctrlOpts, controller.WithProfiler(rp))
	}

	logger.Debugw("config",
		"video", cfg.VideoPath,
		"matching", cfg.Matching,
		"base", cfg.Base,
		"width", cfg.Source.Width)

	if err := controller.New(cfg.Display, src, session, window, ctrlOpts...).Run(ctx); err != nil {
		return errors.Wrap(err, "preview")
	}
	return nil
}
