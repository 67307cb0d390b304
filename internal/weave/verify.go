package weave

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// Verifier checks a transformed package directory against the original.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, original, transformed string) error
}

// StructuralVerifier checks that the transformed package parses, carries the
// module marker, and keeps every original type, field and function
// signature.
type StructuralVerifier struct{}

// Name implements Verifier.
func (StructuralVerifier) Name() string { return "structural" }

// Verify implements Verifier.
func (v StructuralVerifier) Verify(ctx context.Context, original, transformed string) error {
	var before, after *Module
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := Load(original)
		if err != nil {
			return fmt.Errorf("original: %w", err)
		}
		before = m
		return nil
	})
	g.Go(func() error {
		m, err := Load(transformed)
		if err != nil {
			return fmt.Errorf("transformed: %w", err)
		}
		after = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return &ValidationError{Verifier: v.Name(), Cause: err}
	}

	if err := compareModules(before, after); err != nil {
		return &ValidationError{Verifier: v.Name(), Cause: err}
	}
	return nil
}

func compareModules(before, after *Module) error {
	var problems []string
	if !after.Woven {
		problems = append(problems, "module marker missing")
	}
	if before.PackageName != after.PackageName {
		problems = append(problems, fmt.Sprintf("package renamed from %s to %s", before.PackageName, after.PackageName))
	}

	bs, as := summarize(before), summarize(after)
	for name, fields := range bs.structs {
		got, ok := as.structs[name]
		if !ok {
			continue
		}
		for field, sig := range fields {
			if got[field] != sig {
				problems = append(problems, fmt.Sprintf("field %s.%s changed from %q to %q", name, field, sig, got[field]))
			}
		}
	}
	for name := range bs.types {
		if !as.types[name] {
			problems = append(problems, "type "+name+" removed")
		}
	}
	for name, sig := range bs.funcs {
		if got, ok := as.funcs[name]; !ok {
			problems = append(problems, "func "+name+" removed")
		} else if got != sig {
			problems = append(problems, fmt.Sprintf("func %s signature changed from %q to %q", name, sig, got))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

type moduleSummary struct {
	types   map[string]bool
	structs map[string]map[string]string
	funcs   map[string]string
}

func summarize(m *Module) moduleSummary {
	s := moduleSummary{
		types:   make(map[string]bool),
		structs: make(map[string]map[string]string),
		funcs:   make(map[string]string),
	}
	for _, f := range m.Files {
		for _, decl := range f.AST.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					s.types[ts.Name.Name] = true
					st, ok := ts.Type.(*ast.StructType)
					if !ok {
						continue
					}
					fields := make(map[string]string)
					for _, fl := range st.Fields.List {
						sig := types.ExprString(fl.Type)
						if fl.Tag != nil {
							sig += " " + fl.Tag.Value
						}
						if len(fl.Names) == 0 {
							fields[types.ExprString(fl.Type)] = sig
						}
						for _, n := range fl.Names {
							fields[n.Name] = sig
						}
					}
					s.structs[ts.Name.Name] = fields
				}
			case *ast.FuncDecl:
				name := d.Name.Name
				if d.Recv != nil && len(d.Recv.List) == 1 {
					name = types.ExprString(d.Recv.List[0].Type) + "." + name
				}
				s.funcs[name] = types.ExprString(d.Type)
			}
		}
	}
	return s
}

// TypeCheckVerifier loads the transformed package with the go toolchain and
// fails on any parse or type error. The transformed directory must resolve
// its imports, which holds for the staging directory beside the input.
type TypeCheckVerifier struct{}

// Name implements Verifier.
func (TypeCheckVerifier) Name() string { return "typecheck" }

// Verify implements Verifier.
func (v TypeCheckVerifier) Verify(ctx context.Context, _, transformed string) error {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     transformed,
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return &ValidationError{Verifier: v.Name(), Cause: err}
	}
	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	})
	if len(errs) > 0 {
		return &ValidationError{Verifier: v.Name(), Cause: errors.Join(errs...)}
	}
	return nil
}

// CommandVerifier runs an external program with the original and
// transformed directories appended to Args. A non-zero exit fails.
type CommandVerifier struct {
	Args []string
}

// Name implements Verifier.
func (v CommandVerifier) Name() string {
	if len(v.Args) == 0 {
		return "command"
	}
	return "command " + v.Args[0]
}

// Verify implements Verifier.
func (v CommandVerifier) Verify(ctx context.Context, original, transformed string) error {
	if len(v.Args) == 0 {
		return &ValidationError{Verifier: v.Name(), Cause: errors.New("no command configured")}
	}
	args := append(append([]string{}, v.Args[1:]...), original, transformed)
	cmd := exec.CommandContext(ctx, v.Args[0], args...) //nolint:gosec // command comes from project configuration
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &ValidationError{Verifier: v.Name(), Cause: err}
	}
	return nil
}
