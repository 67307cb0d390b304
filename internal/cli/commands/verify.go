package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/weave"
	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <original> <transformed>",
		Short: "Check a woven package against its original",
		Long: `Run the configured verifiers on an original package directory and its
woven counterpart. The structural verifier always runs; --typecheck and
--verify-command add the others.

Every verifier runs and is reported; any failure exits with status 1.`,
		Example: `  realmweave verify ./models ./models.woven
  realmweave verify ./models ./models.woven --typecheck`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args[0], args[1])
		},
	}
}

func runVerify(cmd *cobra.Command, original, transformed string) error {
	cc := NewCommandContext(cmd)

	vs := cc.verifiers()
	if !cc.Cfg.Verify.Structural {
		vs = append([]weave.Verifier{weave.StructuralVerifier{}}, vs...)
	}

	report := output.VerifyReport{Original: original, Transformed: transformed, Passed: true}
	var errs []error
	for _, v := range vs {
		res := output.VerifierResult{Name: v.Name(), Passed: true}
		if err := v.Verify(cmd.Context(), original, transformed); err != nil {
			res.Passed = false
			res.Error = err.Error()
			report.Passed = false
			errs = append(errs, err)
		}
		cc.Logger.Debug("verifier finished", "verifier", v.Name(), "passed", res.Passed)
		report.Results = append(report.Results, res)
	}

	if err := renderVerify(cc.Renderer, report); err != nil {
		return err
	}
	if len(errs) > 0 {
		return &ExitError{Code: ExitFailure, Err: errors.Join(errs...), Reported: true}
	}
	return nil
}

func renderVerify(r *output.Renderer, report output.VerifyReport) error {
	if ok, err := r.Structured(report); ok {
		return err
	}

	r.Header(1, fmt.Sprintf("Verify %s → %s", report.Original, report.Transformed))
	for _, res := range report.Results {
		if res.Passed {
			r.Success(res.Name)
			continue
		}
		r.Error(res.Error)
	}
	return nil
}
