package weave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/realmweave/pkg/attr"
)

var wovenDirective = attr.Directive{Kind: attr.DirectiveWoven}.String()

// render produces every output file of a woven module, keyed by base name.
// Untouched files keep their original bytes.
func render(m *Module, woven []ModelType) (map[string][]byte, error) {
	out := make(map[string][]byte, len(m.Files)+len(m.Extra)+1)
	for name, data := range m.Extra {
		out[name] = data
	}

	byFile := make(map[string][]string)
	for _, mt := range woven {
		byFile[mt.File] = append(byFile[mt.File], mt.Name)
	}

	for _, f := range m.Files {
		if !f.touched {
			out[f.Name] = f.Src
			continue
		}
		var buf bytes.Buffer
		if err := format.Node(&buf, m.Fset, f.AST); err != nil {
			return nil, fmt.Errorf("failed to print %s: %w", f.Name, err)
		}
		src, err := markTypes(f.Name, buf.Bytes(), byFile[f.Name])
		if err != nil {
			return nil, err
		}
		out[f.Name] = src
	}

	gen, err := generate(m.PackageName, woven)
	if err != nil {
		return nil, err
	}
	out[GeneratedFile] = gen
	return out, nil
}

// markTypes appends the //realm:woven directive to the doc comment of each
// named type declared in src.
func markTypes(name string, src []byte, names []string) ([]byte, error) {
	if len(names) == 0 {
		return src, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, name, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to reparse %s: %w", name, err)
	}

	var offsets []int
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			if !want[ts.Name.Name] {
				continue
			}
			pos := ts.Pos()
			if !gd.Lparen.IsValid() {
				pos = gd.Pos()
			}
			offsets = append(offsets, lineStart(src, fset.Position(pos).Offset))
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))
	for _, off := range offsets {
		indent := leadingSpace(src[off:])
		line := []byte(indent + wovenDirective + "\n")
		src = append(src[:off], append(line, src[off:]...)...)
	}

	formatted, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", name, err)
	}
	return formatted, nil
}

func lineStart(src []byte, off int) int {
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

func leadingSpace(b []byte) string {
	n := 0
	for n < len(b) && (b[n] == ' ' || b[n] == '\t') {
		n++
	}
	return string(b[:n])
}

// generate emits the module marker file with the row binding and schema
// methods of every woven type. Without woven types it holds only the marker.
func generate(pkg string, woven []ModelType) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by realmweave. DO NOT EDIT.\n\n")
	buf.WriteString(wovenDirective + "\n\n")
	fmt.Fprintf(&buf, "package %s\n", pkg)
	if len(woven) > 0 {
		fmt.Fprintf(&buf, "\nimport %q\n", RowAccessPath)
	}

	for _, mt := range woven {
		fmt.Fprintf(&buf, "\n// BindRow attaches m to a storage row.\n")
		fmt.Fprintf(&buf, "func (m *%s) BindRow(h rowaccess.Handle) { m.%s = h }\n\n", mt.Name, rowField)
		fmt.Fprintf(&buf, "// RealmRow returns the row m is bound to.\n")
		fmt.Fprintf(&buf, "func (m *%s) RealmRow() rowaccess.Handle { return m.%s }\n\n", mt.Name, rowField)
		fmt.Fprintf(&buf, "// RealmSchema describes the %s table.\n", mt.TableName)
		fmt.Fprintf(&buf, "func (*%s) RealmSchema() rowaccess.Schema {\n", mt.Name)
		fmt.Fprintf(&buf, "\treturn rowaccess.Schema{\n\t\tTable: %s,\n\t\tColumns: []rowaccess.Column{\n", strconv.Quote(mt.TableName))
		for _, col := range mt.Schema().Columns {
			fields := []string{
				"Name: " + strconv.Quote(col.Name),
				"Kind: rowaccess." + col.Kind.GoName(),
			}
			if col.Indexed {
				fields = append(fields, "Indexed: true")
			}
			if col.ObjectID {
				fields = append(fields, "ObjectID: true")
			}
			fmt.Fprintf(&buf, "\t\t\t{%s},\n", strings.Join(fields, ", "))
		}
		buf.WriteString("\t\t},\n\t}\n}\n")
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", GeneratedFile, err)
	}
	return src, nil
}

// FinalizeOptions controls where and how a result is published.
type FinalizeOptions struct {
	Output    string
	Verifiers []Verifier
	Logger    *slog.Logger
}

// Finalize writes the rendered result into a temporary sibling of the
// output directory, runs the verifiers against (input, temporary) and then
// replaces the output directory with it. On any failure nothing is
// published.
func Finalize(ctx context.Context, res *Result, opts FinalizeOptions) (err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defer func() {
		if err != nil {
			res.transition(logger, PhaseFailed)
			res.Outcome = OutcomeFailed
		}
	}()

	if res.Outcome == OutcomeFailed {
		return errors.New("cannot finalize a failed weave")
	}
	out, err := filepath.Abs(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	in, err := filepath.Abs(res.Module.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve input directory: %w", err)
	}
	if out == in {
		return errors.New("output directory must differ from the input directory")
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output parent: %w", err)
	}
	tmp, err := os.MkdirTemp(filepath.Dir(out), "."+filepath.Base(out)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := writeFiles(tmp, res.files); err != nil {
		return err
	}

	if res.Outcome == OutcomeWoven {
		for _, v := range opts.Verifiers {
			logger.Debug("running verifier", slog.String("verifier", v.Name()))
			if err := v.Verify(ctx, in, tmp); err != nil {
				var verr *ValidationError
				if errors.As(err, &verr) {
					return err
				}
				return &ValidationError{Verifier: v.Name(), Cause: err}
			}
		}
	}

	if err := publish(tmp, out); err != nil {
		return err
	}
	published = true
	res.Output = out
	if res.Outcome == OutcomeWoven {
		res.transition(logger, PhaseWoven)
	}
	logger.Info("published module", slog.String("output", out), slog.String("outcome", res.Outcome.String()))
	return nil
}

func writeFiles(dir string, files map[string][]byte) error {
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil { //nolint:gosec // source files are world readable
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// publish moves tmp to out, replacing any previous output. The previous
// output is restored if the final rename fails.
func publish(tmp, out string) error {
	backup := ""
	if _, err := os.Stat(out); err == nil {
		backup = tmp + ".old"
		if err := os.Rename(out, backup); err != nil {
			return fmt.Errorf("failed to move previous output aside: %w", err)
		}
	}
	if err := os.Rename(tmp, out); err != nil {
		if backup != "" {
			_ = os.Rename(backup, out)
		}
		return fmt.Errorf("failed to publish output: %w", err)
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}
