package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/OOF2510/geofinder-harness/internal/config"
	"github.com/OOF2510/geofinder-harness/internal/log"
	"github.com/OOF2510/geofinder-harness/internal/session"
)

func main() {
	mode := flag.String("mode", "", "endpoint mode: deployed or local (default: config value)")
	configPath := flag.String("config", "", "optional YAML config file")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	transcriptPath := flag.String("transcript", "", "record all frames to this SQLite file")
	timeout := flag.Duration("timeout", 0, "hard session timeout override, e.g. 90s (default: config value)")
	flag.Parse()

	logger := log.New("info")

	cfg, err := config.Load(logger, *configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *transcriptPath != "" {
		cfg.TranscriptPath = *transcriptPath
	}
	if *timeout > 0 {
		cfg.SessionTimeout = *timeout
	}
	if err := cfg.ApplyMode(*mode); err != nil {
		logger.Fatal().Err(err).Msg("invalid mode")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger = log.New(cfg.LogLevel)
	logger.Info().
		Str("mode", cfg.Mode).
		Str("room_api", cfg.RoomAPIURL).
		Str("ws_base", cfg.WSBaseURL).
		Msg("starting geofinder 1v1 harness")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := &session.Session{Config: cfg, Logger: logger}
	res, err := sess.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("interrupted")
			os.Exit(1)
		}
		logger.Fatal().Err(err).Msg("session failed")
	}

	summary := logger.Info().
		Str("room_hash", res.RoomHash).
		Bool("host_authenticated", res.HostAuthenticated).
		Bool("guest_authenticated", res.GuestAuthenticated)
	if res.GameEnded {
		summary = summary.Str("winner", res.Winner).
			Int("host_score", res.HostScore).
			Int("guest_score", res.GuestScore)
	}
	summary.Msg("session finished")

	if res.TimedOut {
		logger.Warn().Msg("session hit the hard timeout before game_end")
		os.Exit(1)
	}
}
