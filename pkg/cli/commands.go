package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/internal/discord"
	"github.com/keshon/fastiscord/internal/discovery"
	"github.com/keshon/fastiscord/internal/storage"
	"github.com/keshon/fastiscord/internal/watch"
	fcmd "github.com/keshon/fastiscord/pkg/cmd"
)

const defaultSyncTimeout = 30 * time.Second

func newCommandsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmd"},
		Short:   "Inspect and register slash commands",
	}
	cmd.AddCommand(newListCmd(o))
	cmd.AddCommand(newSyncCmd(o))
	cmd.AddCommand(newStatusCmd(o))
	cmd.AddCommand(newWatchCmd(o))
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the commands and events the project's manifests declare",
		Long: `Run discovery without connecting to Discord and print what a bot started
in this directory would load. No credentials are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, o)
		},
	}
}

func runList(cmd *cobra.Command, o *options) error {
	root, err := o.root()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	snap, err := discovery.New(o.catalog, discovery.WithLogger(log.Logger)).Discover(cmd.Context(), *cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rel := relTo(root)

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("📦 Commands (%d)", snap.Commands.Len())))
	if snap.Commands.Len() == 0 {
		fmt.Fprintln(out, sectionStyle.Render(mutedStyle.Render("none matched "+cfg.CommandFilePattern)))
	}
	for _, c := range snap.Commands.All() {
		fmt.Fprintf(out, "  /%s  %s\n", codeStyle.Render(c.Data.Name), c.Data.Description)
		fmt.Fprintln(out, sectionStyle.Render(sectionStyle.Render(mutedStyle.Render(rel(c.Source)))))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("⚡ Events (%d)", snap.Events.Len())))
	if snap.Events.Len() == 0 {
		fmt.Fprintln(out, sectionStyle.Render(mutedStyle.Render("none matched "+cfg.EventFilePattern)))
	}
	for _, kind := range sortedEventKinds(snap) {
		for _, ev := range snap.Events[kind] {
			mode := ""
			if ev.Once {
				mode = " " + warningStyle.Render("(once)")
			}
			fmt.Fprintf(out, "  %s%s  %s\n", codeStyle.Render(kind), mode, mutedStyle.Render(rel(ev.Source)))
		}
	}

	if len(snap.Collisions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Duplicate command names (%d)", len(snap.Collisions))))
		for _, col := range snap.Collisions {
			fmt.Fprintf(out, "  /%s  %s replaces %s\n", col.Name, rel(col.Current), rel(col.Previous))
		}
	}
	return nil
}

type syncOptions struct {
	global  bool
	guilds  []string
	timeout time.Duration
}

func newSyncCmd(o *options) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the registered slash commands with the project's commands",
		Long: `Discover the project's commands and overwrite the commands registered in
Discord with them. Without --global or --guild the commands go to
DISCORD_GUILD_ID when it is set, otherwise to global scope.

Every sync is recorded in the ledger shown by 'commands status'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, o, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.global, "global", false, "Register global commands")
	cmd.Flags().StringSliceVarP(&opts.guilds, "guild", "g", nil, "Register in these guild IDs (repeatable)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultSyncTimeout, "Bound on each registration call (0 disables it)")

	return cmd
}

func runSync(cmd *cobra.Command, o *options, opts *syncOptions) error {
	root, err := o.root()
	if err != nil {
		return err
	}

	secrets, err := config.LoadEnv(root)
	if err != nil {
		return err
	}
	if err := secrets.Require(); err != nil {
		return err
	}

	ledger, err := storage.New(secrets.Ledger(root))
	if err != nil {
		return fmt.Errorf("failed to open sync ledger: %w", err)
	}
	defer ledger.Close()

	client, err := o.newClient(root,
		discord.WithSecrets(secrets),
		discord.WithSyncOptions(discord.WithTimeout(opts.timeout), discord.WithLedger(ledger)),
	)
	if err != nil {
		return err
	}
	return syncCommands(cmd.Context(), cmd.OutOrStdout(), client, discovery.New(o.catalog, discovery.WithLogger(log.Logger)), opts)
}

func syncCommands(ctx context.Context, out io.Writer, client *discord.Client, d *discovery.Discoverer, opts *syncOptions) error {
	table, _, err := d.Commands(ctx, client.Config().CommandFilePattern)
	if err != nil {
		return err
	}
	client.ExposeCommands(table)

	guilds := opts.guilds
	global := opts.global
	if !global && len(guilds) == 0 {
		if id := client.Secrets().GuildID; id != "" {
			guilds = []string{id}
		} else {
			global = true
		}
	}

	var results []*discord.SyncResult
	if global {
		res, err := client.Synchronizer().SyncGlobal(ctx, table)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	if len(guilds) > 0 {
		res, err := client.Synchronizer().SyncGuilds(ctx, table, guilds)
		results = append(results, res...)
		if err != nil {
			printSyncResults(out, results)
			return err
		}
	}

	printSyncResults(out, results)

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d syncs failed", failed, len(results))
	}
	return nil
}

func printSyncResults(out io.Writer, results []*discord.SyncResult) {
	for _, r := range results {
		target := storage.TargetKey(r.Scope, r.GuildID)
		if r.OK() {
			fmt.Fprintf(out, "%s %s: %d commands in %s\n",
				successStyle.Render("✅"), target, len(r.Commands), r.Duration.Round(time.Millisecond))
			if len(r.Commands) > 0 {
				fmt.Fprintln(out, sectionStyle.Render(mutedStyle.Render(strings.Join(r.Commands, ", "))))
			}
			continue
		}
		fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("❌"), target, r.Err)
	}
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded sync for every target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, o)
		},
	}
}

func runStatus(cmd *cobra.Command, o *options) error {
	root, err := o.root()
	if err != nil {
		return err
	}
	secrets, err := config.LoadEnv(root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	path := secrets.Ledger(root)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, mutedStyle.Render("No syncs recorded yet."))
		return nil
	}

	ledger, err := storage.New(path)
	if err != nil {
		return fmt.Errorf("failed to open sync ledger: %w", err)
	}
	defer ledger.Close()

	targets := ledger.Targets()
	if len(targets) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No syncs recorded yet."))
		return nil
	}

	fmt.Fprintln(out, titleStyle.Render("🔄 Command sync status"))
	for _, target := range targets {
		rec, ok, err := ledger.LastSync(target)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		mark := successStyle.Render("✅")
		if rec.Error != "" {
			mark = errorStyle.Render("❌")
		}
		fmt.Fprintf(out, "%s %s  %s  %d commands  %s\n",
			mark, codeStyle.Render(target), rec.State, rec.Count,
			mutedStyle.Render(rec.At.Local().Format(time.DateTime)))
		if rec.Error != "" {
			fmt.Fprintln(out, sectionStyle.Render(errorStyle.Render(rec.Error)))
		}
	}
	return nil
}

func newWatchCmd(o *options) *cobra.Command {
	var guild string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-register guild commands whenever a command manifest changes",
		Long: `Register the project's commands in a guild, then watch the command
manifests and register them again after every change. Invalid manifests
are reported and the watch keeps running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, o, guild)
		},
	}
	cmd.Flags().StringVarP(&guild, "guild", "g", "", "Guild ID (defaults to DISCORD_GUILD_ID)")
	return cmd
}

func runWatch(cmd *cobra.Command, o *options, guild string) error {
	root, err := o.root()
	if err != nil {
		return err
	}

	client, err := o.newClient(root)
	if err != nil {
		return err
	}
	if guild == "" {
		guild = client.Secrets().GuildID
	}
	if guild == "" {
		return fmt.Errorf("%w: pass --guild or set %s", discord.ErrInvalidParameter, config.EnvGuildID)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	refresh := func(ctx context.Context) error {
		res, err := client.RefreshCommands(ctx, guild)
		if err != nil {
			return err
		}
		printSyncResults(out, []*discord.SyncResult{res})
		if !res.OK() {
			return res.Err
		}
		return nil
	}

	if err := refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Initial command registration failed")
	}

	w, err := watch.New(watch.Config{
		Patterns: []string{client.Config().CommandFilePattern},
		OnChange: func(ctx context.Context, changed []string) error {
			log.Info().Strs("files", changed).Msg("Command manifests changed")
			return refresh(ctx)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s watching %s\n", titleStyle.Render("👀"), mutedStyle.Render(client.Config().CommandFilePattern))
	return w.Run(ctx)
}

func sortedEventKinds(snap *discovery.Snapshot) []string {
	var kinds []string
	for _, kind := range fcmd.EventKinds {
		if len(snap.Events[kind]) > 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func relTo(root string) func(string) string {
	return func(p string) string {
		if rp, err := filepath.Rel(root, p); err == nil {
			return rp
		}
		return p
	}
}
