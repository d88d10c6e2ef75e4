// md2render plays the configured scene without a window and writes every
// tick as a WebP image.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/app"
	"github.com/Faultbox/md2anim/internal/config"
	"github.com/Faultbox/md2anim/internal/engine/raster"
	"github.com/Faultbox/md2anim/internal/logger"
)

var (
	flagFrames = flag.Int("frames", 48, "Number of ticks to render")
	flagStep   = flag.Float64("step", 1000.0/48, "Milliseconds per tick")
	flagOut    = flag.String("out", "frames", "Output directory")
	flagSeed   = flag.Uint64("seed", 1, "Seed for IDLE start frames")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("render failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if *flagStep < 0 || *flagFrames < 0 {
		return fmt.Errorf("-step and -frames must not be negative")
	}
	if err := os.MkdirAll(*flagOut, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	b := raster.New(cfg.Graphics.Width, cfg.Graphics.Height, cfg.Snapshot.Supersample)
	ctx := app.New(cfg, b,
		app.WithLogger(logger.Named("app")),
		app.WithRand(rand.New(rand.NewPCG(*flagSeed, *flagSeed))))
	defer ctx.Close()

	if err := ctx.BuildScene(); err != nil {
		return err
	}

	step := float32(*flagStep)
	for i := 0; i < *flagFrames; i++ {
		if err := ctx.Tick(step); err != nil {
			return err
		}
		if err := writeFrame(b, filepath.Join(*flagOut, fmt.Sprintf("frame_%04d.webp", i))); err != nil {
			return err
		}
	}

	logger.Info("frames written",
		zap.Int("count", *flagFrames),
		zap.String("dir", *flagOut))
	return nil
}

func writeFrame(b *raster.Backend, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating frame: %w", err)
	}
	if err := b.EncodeWebP(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
