package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/state"
	"github.com/leapstack-labs/realmweave/internal/weave"
)

func propertyReports(mt weave.ModelType) []output.PropertyReport {
	props := make([]output.PropertyReport, 0, len(mt.Properties))
	for _, p := range mt.Properties {
		pr := output.PropertyReport{
			Name:   p.Name,
			Kind:   p.Kind.String(),
			GoType: p.Type,
		}
		if p.Stored() {
			pr.Column = p.Column
			pr.ValueKind = p.ValueKind.String()
		}
		props = append(props, pr)
	}
	return props
}

func typeReports(types []weave.ModelType) []output.TypeReport {
	out := make([]output.TypeReport, 0, len(types))
	for _, mt := range types {
		out = append(out, output.TypeReport{
			Name:       mt.Name,
			Table:      mt.TableName,
			File:       mt.File,
			Woven:      mt.Woven,
			Properties: propertyReports(mt),
		})
	}
	return out
}

// errorLines splits aggregated analysis errors into one line each.
func errorLines(err error) []string {
	if err == nil {
		return nil
	}
	var diags weave.Diagnostics
	if errors.As(err, &diags) {
		lines := make([]string, 0, len(diags))
		for _, d := range diags {
			lines = append(lines, d.Error())
		}
		return lines
	}
	return []string{err.Error()}
}

func weaveReport(input, out string, res *weave.Result, err error, took time.Duration) output.WeaveReport {
	report := output.WeaveReport{
		Input:    input,
		Output:   out,
		Outcome:  weave.OutcomeFailed.String(),
		Duration: took.Round(time.Millisecond).String(),
		Errors:   errorLines(err),
	}
	if res == nil {
		return report
	}
	if err == nil {
		report.Outcome = res.Outcome.String()
	}
	for _, p := range res.Phases {
		report.Phases = append(report.Phases, p.String())
	}
	report.Types = typeReports(res.Types)
	if res.Output != "" {
		report.Files = res.FileNames()
	}
	return report
}

func renderWeaveReport(r *output.Renderer, report output.WeaveReport) error {
	if ok, err := r.Structured(report); ok {
		return err
	}

	st := r.Styles()
	r.Header(1, fmt.Sprintf("Weave %s", report.Input))
	r.KeyValue("Outcome", report.Outcome)
	if report.Output != "" && report.Outcome != weave.OutcomeFailed.String() {
		r.KeyValue("Output", report.Output)
	}
	if len(report.Phases) > 0 {
		r.KeyValue("Phases", strings.Join(report.Phases, " → "))
	}
	r.KeyValue("Duration", report.Duration)
	if report.RunID != "" {
		r.KeyValue("Run", report.RunID)
	}
	r.Println("")

	for _, tr := range report.Types {
		r.Header(2, st.TypeName.Render(tr.Name)+" → "+tr.Table)
		renderProperties(r, tr.Properties)
	}

	for _, line := range report.Errors {
		r.Error(line)
	}
	switch report.Outcome {
	case weave.OutcomeWoven.String():
		r.Success(fmt.Sprintf("wove %d type(s)", len(report.Types)))
	case weave.OutcomeAlreadyWoven.String():
		r.Println(r.Muted("module already woven, nothing to do"))
	}
	return nil
}

func renderProperties(r *output.Renderer, props []output.PropertyReport) {
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		col := p.Column
		if col == "" {
			col = "-"
		}
		rows = append(rows, []string{p.Name, col, p.Kind, p.GoType})
	}
	r.Table([]string{"Property", "Column", "Kind", "Go type"}, rows)
}

func wovenProperties(types []weave.ModelType) []state.WovenProperty {
	var props []state.WovenProperty
	for _, mt := range types {
		for _, p := range mt.Properties {
			wp := state.WovenProperty{
				Type:     mt.Name,
				Table:    mt.TableName,
				Property: p.Name,
				Kind:     p.Kind.String(),
				GoType:   p.Type,
			}
			if p.Stored() {
				wp.Column = p.Column
				wp.ValueKind = p.ValueKind.String()
			}
			props = append(props, wp)
		}
	}
	return props
}
