package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/milk9111/rigid/config"
	"github.com/milk9111/rigid/physics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "space config YAML (built-in defaults when empty)")
	steps := flag.Int("steps", 600, "number of steps to simulate (0 = until interrupted with -watch)")
	dt := flag.Float64("dt", 1.0/60.0, "step length in seconds")
	watch := flag.Bool("watch", false, "reload -config on change and step in real time")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if *dt <= 0 {
		logger.Fatal("step length must be positive", zap.Float64("dt", *dt))
	}
	if *watch && *configPath == "" {
		logger.Fatal("-watch needs -config")
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
	}

	space := physics.NewSpace(cfg, logger.Named("physics"))
	sc := newScene(space, cfg, logger)

	if !*watch {
		for i := 0; i < *steps; i++ {
			space.Step(*dt)
		}
		sc.report(logger)
		return
	}

	w, err := config.NewWatcher(*configPath)
	if err != nil {
		logger.Fatal("failed to watch config", zap.String("path", *configPath), zap.Error(err))
	}
	defer func() { _ = w.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(time.Duration(*dt * float64(time.Second)))
	defer ticker.Stop()

	for stepped := 0; *steps == 0 || stepped < *steps; {
		select {
		case <-ctx.Done():
			sc.report(logger)
			return
		case updated := <-w.Updates:
			space.Configure(updated)
			logger.Info("config reloaded", zap.String("path", *configPath))
		case err := <-w.Errors:
			logger.Warn("config reload failed", zap.Error(err))
		case <-ticker.C:
			space.Step(*dt)
			stepped++
		}
	}
	sc.report(logger)
}

func newLogger(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	if !debug {
		cfg.Encoding = "json"
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	}
	return cfg.Build()
}
