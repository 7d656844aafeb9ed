package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/taskboard/taskboard/devserver"
	"github.com/taskboard/taskboard/internal/config"
)

func main() {
	config.InitLogger()
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	config.SetLogLevel(cfg.Level())

	addr := flag.String("addr", cfg.DevServerAddr, "Listen address")
	seed := flag.Bool("seed", true, "Create admin@, manager@ and user@example.com (password \"password\")")
	flag.Parse()

	srv := devserver.New(devserver.WithLogger(log.With().Str("component", "devserver").Logger()))
	if *seed {
		if err := srv.Seed(); err != nil {
			log.Fatal().Err(err).Msg("seed accounts")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		log.Error().Err(err).Msg("dev server exited with error")
		os.Exit(1)
	}
}
