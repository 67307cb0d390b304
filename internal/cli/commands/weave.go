package commands

import (
	"context"
	"time"

	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/weave"
	"github.com/spf13/cobra"
)

// NewWeaveCommand creates the weave command.
func NewWeaveCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "weave <input-dir>",
		Short: "Rewrite model accessors to read and write through storage",
		Long: `Weave the Go package in <input-dir> and publish the result to a
parallel directory.

Every struct type with a getter/setter pair over a field becomes a woven
model: the accessor bodies are replaced by calls into the rowaccess runtime
and a realm_woven.go file adds the row binding and schema methods.

Exit codes:
  0  woven
  3  already woven, copied unchanged
  1  failure (nothing published)`,
		Example: `  # Weave ./models into ./models.woven
  realmweave weave ./models

  # Choose the output directory
  realmweave weave ./models -o ./build/models

  # Also type-check the result
  realmweave weave ./models --typecheck`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeave(cmd, args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default <input-dir><output_suffix>)")
	return cmd
}

func runWeave(cmd *cobra.Command, input, out string) error {
	cc := NewCommandContext(cmd)
	if out == "" {
		out = weave.DefaultOutput(input, cc.Cfg.OutputSuffix)
	}

	rec := newRecorder(cc.Cfg, cc.Logger)
	defer rec.Close()

	report, res, err := cc.weaveOnce(cmd.Context(), rec, input, out)
	if rerr := renderWeaveReport(cc.Renderer, report); rerr != nil {
		return rerr
	}
	return exitFor(res, err)
}

// weaveOnce runs one full weave of input into out and records it.
func (cc *CommandContext) weaveOnce(ctx context.Context, rec *recorder, input, out string) (output.WeaveReport, *weave.Result, error) {
	start := time.Now()
	runID := rec.start(input, out)

	res, err := weave.Run(ctx, weave.RunOptions{
		Input:     input,
		Output:    out,
		Options:   cc.weaveOptions(),
		Verifiers: cc.verifiers(),
	})
	rec.finish(runID, res, err)

	report := weaveReport(input, out, res, err, time.Since(start))
	report.RunID = runID
	return report, res, err
}

// exitFor maps a weave result to the command error.
func exitFor(res *weave.Result, err error) error {
	switch {
	case err != nil:
		return &ExitError{Code: ExitFailure, Err: err, Reported: true}
	case res != nil && res.Outcome == weave.OutcomeAlreadyWoven:
		return &ExitError{Code: ExitAlreadyWoven}
	}
	return nil
}
