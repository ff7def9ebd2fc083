package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/internal/scaffold"
)

type initOptions struct {
	yes            bool
	commandPattern string
	eventPattern   string
	noTemplate     bool
	module         string
}

func newInitCmd(o *options) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config document, the .env file and a starter project",
		Long: `Write fastiscord.config.json, create or complete .env with the Discord
credentials it needs, and copy a starter main package with example manifests.

Without -y the file patterns are asked for interactively; an empty answer
keeps the default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, o, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Accept the default patterns without asking")
	cmd.Flags().StringVar(&opts.commandPattern, "command-pattern", "", "Pattern for command manifests")
	cmd.Flags().StringVar(&opts.eventPattern, "event-pattern", "", "Pattern for event manifests")
	cmd.Flags().BoolVar(&opts.noTemplate, "no-template", false, "Do not copy the starter template")
	cmd.Flags().StringVar(&opts.module, "module", "", "Module path for a new go.mod")

	return cmd
}

func runInit(cmd *cobra.Command, o *options, opts *initOptions) error {
	root, err := o.root()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render("✨ Welcome to Fastiscord init!"))
	fmt.Fprintln(out)

	cmdPattern, evtPattern := opts.commandPattern, opts.eventPattern
	if !opts.yes {
		in := bufio.NewReader(cmd.InOrStdin())
		defaults := config.Default()
		if cmdPattern == "" {
			if cmdPattern, err = ask(in, out, "Enter the pattern for command files", defaults.CommandFilePattern); err != nil {
				return err
			}
		}
		if evtPattern == "" {
			if evtPattern, err = ask(in, out, "Enter the pattern for event files", defaults.EventFilePattern); err != nil {
				return err
			}
		}
	}

	report, err := scaffold.Init(root, scaffold.Options{
		CommandPattern: cmdPattern,
		EventPattern:   evtPattern,
		Template:       !opts.noTemplate,
		Module:         opts.module,
	})
	if err != nil {
		return err
	}

	printInitReport(out, root, report)
	return nil
}

// ask prints question and reads one line. Empty input or EOF yields def.
func ask(in *bufio.Reader, out io.Writer, question, def string) (string, error) {
	fmt.Fprintf(out, "%s %s ", question, mutedStyle.Render("("+def+")"))
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(out)
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return def, nil
}

func printInitReport(out io.Writer, root string, r *scaffold.Report) {
	rel := relTo(root)

	fmt.Fprintf(out, "%s Created '%s'\n", successStyle.Render("✅"), rel(r.ConfigPath))

	switch r.Env {
	case scaffold.EnvCreated:
		fmt.Fprintf(out, "%s Created '%s' with required variables\n", successStyle.Render("✅"), rel(r.EnvPath))
	case scaffold.EnvAppended:
		fmt.Fprintf(out, "%s Appended missing variables to '%s': %s\n",
			warningStyle.Render("🔧"), rel(r.EnvPath), strings.Join(r.EnvAdded, ", "))
	default:
		fmt.Fprintf(out, "%s All required variables already present in '%s'\n", successStyle.Render("✅"), rel(r.EnvPath))
	}

	for _, f := range r.Files {
		if f.Created {
			fmt.Fprintf(out, "%s Created '%s'\n", successStyle.Render("✅"), rel(f.Path))
		} else {
			fmt.Fprintf(out, "%s Kept existing '%s'\n", mutedStyle.Render("•"), rel(f.Path))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("💡 .env explanation:"))
	fmt.Fprintln(out, sectionStyle.Render(strings.Join([]string{
		codeStyle.Render(config.EnvToken) + "      → Your Discord bot token",
		codeStyle.Render(config.EnvClientID) + "  → Your application (bot) client ID",
		codeStyle.Render(config.EnvGuildID) + "   → (Optional) Guild ID for testing/dev command registration",
	}, "\n")))
	fmt.Fprintln(out)
}
