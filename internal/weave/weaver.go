package weave

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"
)

// Options configures a weave pass.
type Options struct {
	// ApplyTypeMapping lets //realm:mapto type directives rename tables.
	ApplyTypeMapping bool
	Logger           *slog.Logger
}

// Result is the outcome of one weave invocation.
type Result struct {
	Module  *Module
	Outcome Outcome
	Phases  []Phase
	// Types lists the types that were woven, in scan order.
	Types []ModelType
	// Output is set once Finalize has published the result.
	Output string

	files map[string][]byte
}

// Files returns the rendered output files keyed by base name.
func (r *Result) Files() map[string][]byte {
	return r.files
}

// FileNames returns the rendered file names in sorted order.
func (r *Result) FileNames() []string {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Weave scans, analyzes and rewrites m and renders the output files. It does
// no I/O. An already woven module yields OutcomeAlreadyWoven and its files
// unchanged. On error the returned Result records the failed phase; an
// analysis or rewrite planning error leaves m unmodified.
func Weave(m *Module, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("package", m.PackageName))

	res := &Result{Module: m, Phases: []Phase{PhaseUnwoven}}
	if m.Woven {
		logger.Info("module already woven, nothing to do")
		res.Outcome = OutcomeAlreadyWoven
		res.files = originalFiles(m)
		res.transition(logger, PhaseWoven)
		return res, nil
	}

	fail := func(err error) (*Result, error) {
		res.Outcome = OutcomeFailed
		res.transition(logger, PhaseFailed)
		return res, err
	}

	res.transition(logger, PhaseScanning)
	cands := Scan(m)
	logger.Debug("scan complete", slog.Int("candidates", len(cands)))

	res.transition(logger, PhaseAnalyzing)
	models, err := Analyze(m, cands, AnalyzeOptions{ApplyTypeMapping: opts.ApplyTypeMapping, Logger: logger})
	if err != nil {
		return fail(err)
	}

	res.transition(logger, PhaseRewriting)
	woven, err := Rewrite(m, models)
	if err != nil {
		return fail(err)
	}
	res.Types = woven
	for _, mt := range woven {
		logger.Debug("wove type",
			slog.String("type", mt.Name),
			slog.String("table", mt.TableName),
			slog.Int("properties", len(mt.Stored())))
	}

	res.transition(logger, PhaseFinalizing)
	files, err := render(m, woven)
	if err != nil {
		return fail(err)
	}
	res.files = files
	res.Outcome = OutcomeWoven
	return res, nil
}

func originalFiles(m *Module) map[string][]byte {
	out := make(map[string][]byte, len(m.Files)+len(m.Extra))
	for _, f := range m.Files {
		out[f.Name] = f.Src
	}
	for name, data := range m.Extra {
		out[name] = data
	}
	return out
}

// DefaultOutput returns the output directory used when none is given: a
// sibling of input named with suffix appended.
func DefaultOutput(input, suffix string) string {
	return filepath.Clean(input) + suffix
}

// RunOptions configures Run.
type RunOptions struct {
	Input     string
	Output    string
	Options   Options
	Verifiers []Verifier
}

// Run loads the package in Input, weaves it and publishes the result to
// Output. The returned Result is non-nil whenever the module could be
// loaded, including on failure.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	logger := opts.Options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()

	m, err := Load(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", opts.Input, err)
	}

	res, err := Weave(m, opts.Options)
	if err != nil {
		return res, err
	}

	if err := Finalize(ctx, res, FinalizeOptions{
		Output:    opts.Output,
		Verifiers: opts.Verifiers,
		Logger:    logger,
	}); err != nil {
		return res, err
	}

	logger.Info("weave complete",
		slog.String("input", opts.Input),
		slog.String("outcome", res.Outcome.String()),
		slog.Int("types", len(res.Types)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}
