package commands

import (
	"log/slog"

	"github.com/leapstack-labs/realmweave/internal/cli/config"
	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/weave"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the config and logger the
// root command stored in the command context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// weaveOptions returns the weave options the config selects.
func (cc *CommandContext) weaveOptions() weave.Options {
	return weave.Options{
		ApplyTypeMapping: cc.Cfg.ApplyTypeMapping,
		Logger:           cc.Logger,
	}
}

// verifiers returns the post-weave verifier chain the config selects.
func (cc *CommandContext) verifiers() []weave.Verifier {
	var vs []weave.Verifier
	if cc.Cfg.Verify.Structural {
		vs = append(vs, weave.StructuralVerifier{})
	}
	if cc.Cfg.Verify.TypeCheck {
		vs = append(vs, weave.TypeCheckVerifier{})
	}
	if len(cc.Cfg.Verify.Command) > 0 {
		vs = append(vs, weave.CommandVerifier{Args: cc.Cfg.Verify.Command})
	}
	return vs
}
