package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/marketreel/marketreel/config"
	"github.com/marketreel/marketreel/logger"
	"github.com/marketreel/marketreel/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := config.ValidateConfig(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	if err := logger.Init(cfg.LogDir); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StageTimeout)
	defer cancel()

	// A single run, but still interruptible: a signal cancels the
	// context so ffmpeg and downloads stop cleanly.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logrus.WithField("signal", sig.String()).Warn("Interrupted, cancelling run")
		cancel()
	}()

	p := pipeline.New(cfg)
	outPath, err := p.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Run failed")
		os.Exit(1)
	}
	logrus.WithField("video", outPath).Info("Reel published")
}
