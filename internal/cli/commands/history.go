package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded weave runs",
		Long: `List weave runs recorded in the state database, newest first. With a run
ID, show that run and the property mapping it produced.`,
		Example: `  realmweave history
  realmweave history --limit 5 --output json
  realmweave history 6f1c2a4e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(cmd, id, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, id string, limit int) error {
	cc := NewCommandContext(cmd)
	if cc.Cfg.NoState {
		return fmt.Errorf("weave history is disabled (no_state is set)")
	}

	store, err := openStore(cc.Cfg, cc.Logger)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer func() { _ = store.Close() }()

	var report output.HistoryReport
	if id != "" {
		run, err := store.GetRun(id)
		if err != nil {
			return err
		}
		props, err := store.ListProperties(id)
		if err != nil {
			return err
		}
		report.Runs = []output.RunReport{runReport(run)}
		for _, p := range props {
			report.Properties = append(report.Properties, output.PropertyReport{
				Name:      p.Type + "." + p.Property,
				Column:    p.Column,
				Kind:      p.Kind,
				ValueKind: p.ValueKind,
				GoType:    p.GoType,
			})
		}
	} else {
		runs, err := store.ListRuns(limit)
		if err != nil {
			return err
		}
		for _, run := range runs {
			report.Runs = append(report.Runs, runReport(run))
		}
	}

	return renderHistory(cc.Renderer, report, id != "")
}

func runReport(run *state.Run) output.RunReport {
	rr := output.RunReport{
		ID:        run.ID,
		Input:     run.InputDir,
		Output:    run.OutputDir,
		Outcome:   run.Outcome,
		StartedAt: run.StartedAt.Local().Format(time.RFC3339),
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		rr.Duration = run.Duration().Round(time.Millisecond).String()
	}
	return rr
}

func renderHistory(r *output.Renderer, report output.HistoryReport, single bool) error {
	if ok, err := r.Structured(report); ok {
		return err
	}

	if single {
		run := report.Runs[0]
		r.Header(1, "Run "+run.ID)
		r.KeyValue("Input", run.Input)
		r.KeyValue("Output", run.Output)
		r.KeyValue("Outcome", run.Outcome)
		r.KeyValue("Started", run.StartedAt)
		if run.Duration != "" {
			r.KeyValue("Duration", run.Duration)
		}
		if run.Error != "" {
			r.KeyValue("Error", run.Error)
		}
		r.Println("")
		if len(report.Properties) > 0 {
			renderProperties(r, report.Properties)
		}
		return nil
	}

	r.Header(1, fmt.Sprintf("Weave runs (%d)", len(report.Runs)))
	if len(report.Runs) == 0 {
		r.Println(r.Muted("no runs recorded"))
		return nil
	}
	rows := make([][]string, 0, len(report.Runs))
	for _, run := range report.Runs {
		rows = append(rows, []string{run.ID, run.StartedAt, run.Outcome, run.Input, run.Output, run.Duration})
	}
	r.Table([]string{"ID", "Started", "Outcome", "Input", "Output", "Duration"}, rows)
	return nil
}
