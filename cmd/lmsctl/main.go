package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	client, err := lmsclient.New(cfg.BaseURL,
		lmsclient.WithToken(cfg.Token),
		lmsclient.WithTimeout(cfg.Timeout),
		lmsclient.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create api client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commandLine{
		client: client,
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		now:    time.Now,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
