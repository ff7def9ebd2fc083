// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/internal/discord"
	"github.com/keshon/fastiscord/internal/logger"
	v "github.com/keshon/fastiscord/internal/version"
	_ "github.com/keshon/fastiscord/pkg/builtin"
)

func main() {
	logger.Setup(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") != "")
	log.Info().Msgf("Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve working directory")
	}

	bot, err := discord.NewClient(root)
	if errors.Is(err, config.ErrEnvironment) {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Discord client")
	}

	if _, err := bot.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load handlers")
	}

	var res *discord.SyncResult
	if bot.Secrets().GuildID != "" {
		res, err = bot.RegisterGuildCommands(ctx, "")
	} else {
		res, err = bot.RegisterGlobalCommands(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register commands")
	}
	if !res.OK() {
		log.Warn().Err(res.Err).Msg("Commands were not registered, continuing with the previous set")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("Received signal, shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Discord bot error")
			os.Exit(1)
		}
	}

	log.Info().Msg("Discord bot exited cleanly")
}
