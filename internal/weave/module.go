// Package weave rewrites the accessor pairs of model types in a Go package so
// that reads and writes go through row storage.
//
// A pass runs Scan, Analyze and Rewrite over an in-memory Module, renders the
// result, and Finalize publishes it to an output directory once every
// configured Verifier accepts it. Run chains all of it for one directory.
package weave

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/realmweave/pkg/attr"
)

// GeneratedFile is the file the finalizer adds to a woven package.
const GeneratedFile = "realm_woven.go"

// RowAccessPath is the import path woven code calls into.
const RowAccessPath = "github.com/leapstack-labs/realmweave/pkg/rowaccess"

// File is one parsed source file of a module.
type File struct {
	Name string // base name
	AST  *ast.File
	Src  []byte

	touched bool
}

// Module is a parsed Go package directory. Only non-test .go files are
// parsed; every other regular file is carried along in Extra and copied to
// the output unchanged.
type Module struct {
	Dir         string
	PackageName string
	Fset        *token.FileSet
	Files       []*File
	Extra       map[string][]byte
	// Woven is set when a file carries the //realm:woven module marker.
	Woven bool
}

// Load reads and parses the package in dir. Subdirectories are separate
// packages and are not part of the module.
func Load(dir string) (*Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read module directory: %w", err)
	}
	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		files[e.Name()] = data
	}
	return NewModule(dir, files)
}

// NewModule parses a module from in-memory file contents keyed by base name.
func NewModule(dir string, files map[string][]byte) (*Module, error) {
	m := &Module{
		Dir:   dir,
		Fset:  token.NewFileSet(),
		Extra: make(map[string][]byte),
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		src := files[name]
		if !isSourceFile(name) {
			m.Extra[name] = src
			continue
		}
		f, err := parser.ParseFile(m.Fset, filepath.Join(dir, name), src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if m.PackageName == "" {
			m.PackageName = f.Name.Name
		} else if f.Name.Name != m.PackageName {
			return nil, fmt.Errorf("%s: package %s, expected %s", name, f.Name.Name, m.PackageName)
		}
		if hasModuleMarker(f) {
			m.Woven = true
		}
		m.Files = append(m.Files, &File{Name: name, AST: f, Src: src})
	}

	if len(m.Files) == 0 {
		return nil, errors.New("no Go source files in module")
	}
	return m, nil
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

// hasModuleMarker reports whether a //realm:woven comment precedes the
// package clause of f.
func hasModuleMarker(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() >= f.Package {
			break
		}
		for _, c := range cg.List {
			if d, ok := attr.ParseDirective(c.Text); ok && d.Kind == attr.DirectiveWoven {
				return true
			}
		}
	}
	return false
}

// File returns the file named name.
func (m *Module) File(name string) *File {
	for _, f := range m.Files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// directives returns the realm directives of a doc comment group.
func directives(doc *ast.CommentGroup) []attr.Directive {
	if doc == nil {
		return nil
	}
	var out []attr.Directive
	for _, c := range doc.List {
		if d, ok := attr.ParseDirective(c.Text); ok {
			out = append(out, d)
		}
	}
	return out
}
