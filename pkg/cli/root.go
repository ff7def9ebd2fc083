// Package cli is the fastiscord command line. A bot project can call Execute
// from its own main package so the CLI runs with the project's handlers
// compiled in.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keshon/fastiscord/internal/discord"
	"github.com/keshon/fastiscord/internal/logger"
	"github.com/keshon/fastiscord/internal/version"
	fcmd "github.com/keshon/fastiscord/pkg/cmd"
)

type options struct {
	dir      string
	logLevel string
	logJSON  bool

	catalog    *fcmd.Catalog
	clientOpts []discord.ClientOption
}

// root returns the project directory as an absolute path.
func (o *options) root() (string, error) {
	dir, err := filepath.Abs(o.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return dir, nil
}

func (o *options) newClient(root string, opts ...discord.ClientOption) (*discord.Client, error) {
	all := []discord.ClientOption{discord.WithCatalog(o.catalog), discord.WithLogger(log.Logger)}
	all = append(all, opts...)
	return discord.NewClient(root, append(all, o.clientOpts...)...)
}

// NewRootCommand builds the fastiscord command tree around the handlers
// registered in cmd.DefaultCatalog.
func NewRootCommand() *cobra.Command {
	return newRootCmd(fcmd.DefaultCatalog)
}

func newRootCmd(catalog *fcmd.Catalog, clientOpts ...discord.ClientOption) *cobra.Command {
	o := &options{catalog: catalog, clientOpts: clientOpts}

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: "Fastiscord - bootstrap and run manifest-driven Discord bots",
		Long: `Fastiscord discovers command and event manifests in a project directory,
binds them to a Discord gateway session and keeps the slash command
registry in sync with them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(cmd.ErrOrStderr(), o.logLevel, o.logJSON)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&o.dir, "dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&o.logJSON, "log-json", false, "Log as JSON instead of console output")

	rootCmd.AddCommand(newInitCmd(o))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(o))
	rootCmd.AddCommand(newCommandsCmd(o))

	return rootCmd
}

// Execute runs the CLI with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
