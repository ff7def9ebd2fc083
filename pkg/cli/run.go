package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/fastiscord/internal/discord"
	"github.com/keshon/fastiscord/internal/watch"
)

const (
	syncGlobal = "global"
	syncGuild  = "guild"
	syncNone   = "none"
)

type runOptions struct {
	sync  string
	watch bool
}

func newRunCmd(o *options) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the project's handlers and connect the bot",
		Long: `Discover commands and events, bind the events, optionally register the
commands and keep the gateway connection open until interrupted.

With --watch, edits to command manifests re-register the commands in
DISCORD_GUILD_ID while the bot keeps running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, o, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sync, "sync", syncNone, "Register commands before connecting: global, guild or none")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-register guild commands when manifests change")

	return cmd
}

func runBot(cmd *cobra.Command, o *options, opts *runOptions) error {
	switch opts.sync {
	case syncGlobal, syncGuild, syncNone:
	default:
		return fmt.Errorf("invalid --sync value %q (want global, guild or none)", opts.sync)
	}

	root, err := o.root()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := o.newClient(root)
	if err != nil {
		return err
	}
	if opts.watch && client.Secrets().GuildID == "" {
		return fmt.Errorf("--watch needs DISCORD_GUILD_ID to be set")
	}

	if _, err := client.Load(ctx); err != nil {
		return err
	}

	var res *discord.SyncResult
	switch opts.sync {
	case syncGlobal:
		res, err = client.RegisterGlobalCommands(ctx)
	case syncGuild:
		res, err = client.RegisterGuildCommands(ctx, "")
	}
	if err != nil {
		return err
	}
	if res != nil && !res.OK() {
		log.Warn().Err(res.Err).Str("scope", res.Scope).Msg("Command registration failed, starting bot anyway")
	}

	if !opts.watch {
		return client.Run(ctx)
	}

	w, err := watch.New(watch.Config{
		Patterns: []string{client.Config().CommandFilePattern},
		OnChange: func(_ context.Context, changed []string) error {
			log.Info().Strs("files", changed).Msg("Command manifests changed, refreshing")
			if !client.PublishSystemEvent(discord.SystemEvent{
				Type:    discord.SystemEventRefreshCommands,
				GuildID: client.Secrets().GuildID,
			}) {
				return fmt.Errorf("refresh request dropped")
			}
			return nil
		},
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(gctx) })
	g.Go(func() error { return w.Run(gctx) })
	return g.Wait()
}
