package commands

import (
	"fmt"

	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/weave"
	"github.com/spf13/cobra"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Show the models weave would produce, without writing anything",
		Long: `Scan and analyze the Go package in <dir> and print every model type
with its properties, resolved columns and kinds. Analysis errors are
reported the same way weave reports them.`,
		Example: `  realmweave inspect ./models
  realmweave inspect ./models --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, dir string) error {
	cc := NewCommandContext(cmd)

	m, err := weave.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", dir, err)
	}

	report := output.InspectReport{Dir: dir, Package: m.PackageName, Woven: m.Woven}
	models, aerr := weave.Analyze(m, weave.Scan(m), weave.AnalyzeOptions{
		ApplyTypeMapping: cc.Cfg.ApplyTypeMapping,
		Logger:           cc.Logger,
	})
	report.Types = typeReports(models)
	report.Errors = errorLines(aerr)

	if err := renderInspect(cc.Renderer, report); err != nil {
		return err
	}
	if aerr != nil {
		return &ExitError{Code: ExitFailure, Err: aerr, Reported: true}
	}
	return nil
}

func renderInspect(r *output.Renderer, report output.InspectReport) error {
	if ok, err := r.Structured(report); ok {
		return err
	}

	r.Header(1, fmt.Sprintf("Package %s", report.Package))
	r.KeyValue("Directory", report.Dir)
	r.KeyValue("Woven", fmt.Sprintf("%t", report.Woven))
	r.Println("")

	if len(report.Types) == 0 && len(report.Errors) == 0 {
		r.Println(r.Muted("no model types found"))
	}
	for _, tr := range report.Types {
		title := r.Styles().TypeName.Render(tr.Name) + " → " + tr.Table
		if tr.Woven {
			title += " (woven)"
		}
		r.Header(2, title)
		if len(tr.Properties) > 0 {
			renderProperties(r, tr.Properties)
		}
	}
	for _, line := range report.Errors {
		r.Error(line)
	}
	return nil
}
