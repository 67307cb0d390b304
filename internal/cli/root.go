// Package cli provides the command-line interface for realmweave.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/realmweave/internal/cli/commands"
	"github.com/leapstack-labs/realmweave/internal/cli/config"
	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "realmweave",
		Short: "realmweave - weave Go model types onto row storage",
		Long: `realmweave is a build step that rewrites plain Go model types so their
property accessors read and write through a storage row.

Annotate fields with realm:"objectid", realm:"indexed", realm:"ignored" or
realm:"mapto=Column", run weave on the package, and build against the
woven copy.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.ConfigFile != "" {
				logger.Debug("using config file", slog.String("path", cfg.ConfigFile))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./realmweave.yaml, searched upward)")
	pf.String("output", "", "Output format (auto|text|markdown|json|yaml)")
	pf.String("suffix", "", "Suffix of the default output directory (default .woven)")
	pf.String("state", "", "Path to the weave history database")
	pf.Bool("no-state", false, "Do not record weave history")
	pf.Bool("apply-type-mapping", false, "Let //realm:mapto type directives rename tables")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")
	pf.Bool("structural", true, "Run the structural verifier after weaving")
	pf.Bool("typecheck", false, "Type-check the woven package after weaving")
	pf.StringSlice("verify-command", nil, "External verifier; the original and woven directories are appended")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	watch := commands.NewWatchCommand()
	watch.Flags().Duration("debounce", 0, "Delay after the last change before re-weaving (default 200ms)")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewWeaveCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewVerifyCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(watch)
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command and prints any error not already reported.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var ee *commands.ExitError
	if !errors.As(err, &ee) || !ee.Silent() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
