// md2view opens a window and plays the configured MD2 scene.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/config"
	"github.com/Faultbox/md2anim/internal/inspect"
	"github.com/Faultbox/md2anim/internal/logger"
	"github.com/Faultbox/md2anim/internal/viewer"
)

var flagOpen = flag.Bool("open", false, "Choose an action descriptor with a file dialog instead of the configured scene")

func main() {
	// Parse CLI flags first
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

	logger.Info("=== md2view ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if *flagOpen {
		path, err := chooseDescriptor()
		if err != nil {
			if err == dialog.ErrCancelled {
				logger.Info("no descriptor chosen")
				return
			}
			logger.Error("file dialog failed", zap.Error(err))
			os.Exit(1)
		}
		cfg.Scene.Instances = []config.InstanceConfig{{
			Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Descriptor: path,
			Translate:  [3]float32{0, 0, -250},
		}}
	}

	v, err := viewer.New(cfg, logger.Named("viewer"))
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		v.App().Stop()
	}()

	if cfg.Inspect.Enabled {
		srv := inspect.New(v.App(), logger.Named("inspect"))
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Inspect.Addr); err != nil {
				logger.Error("inspection server stopped", zap.Error(err))
			}
		}()
	}

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func chooseDescriptor() (string, error) {
	return dialog.File().
		Filter("Action descriptors", "act").
		Filter("All Files", "*").
		Title("Open model").
		Load()
}
