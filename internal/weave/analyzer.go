package weave

import (
	"go/ast"
	"go/types"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/leapstack-labs/realmweave/pkg/attr"
	"github.com/leapstack-labs/realmweave/pkg/rowaccess"
)

// PropertyKind classifies how a property is woven.
type PropertyKind uint8

// Property kinds.
const (
	Persisted PropertyKind = iota
	Ignored
	Indexed
	ObjectID
)

func (k PropertyKind) String() string {
	switch k {
	case Persisted:
		return "persisted"
	case Ignored:
		return "ignored"
	case Indexed:
		return "indexed"
	case ObjectID:
		return "objectid"
	default:
		return "unknown"
	}
}

// PropertyDescriptor is the weave decision for one accessor pair.
type PropertyDescriptor struct {
	Name string
	// Type is the Go type expression of the property as written.
	Type      string
	ValueKind rowaccess.Kind
	Kind      PropertyKind
	Indexed   bool
	Column    string
	// BackingField is the struct field read by the getter and written by
	// the setter.
	BackingField string
	Getter       string
	Setter       string

	typeExpr ast.Expr
	getter   *ast.FuncDecl
	setter   *ast.FuncDecl
}

// Stored reports whether reads and writes of the property go to storage.
func (p PropertyDescriptor) Stored() bool { return p.Kind != Ignored }

// ModelType is an analyzed model type.
type ModelType struct {
	Name       string
	File       string
	Properties []PropertyDescriptor
	// Woven is set for types already carrying the //realm:woven marker;
	// they are left untouched.
	Woven bool
	// TableName is the storage table. It equals Name unless a type-level
	// mapping is applied.
	TableName string
	// TableOverride is the argument of a //realm:mapto type directive.
	TableOverride string

	cand Candidate
}

// Stored returns the properties that go to storage, in declaration order.
func (t ModelType) Stored() []PropertyDescriptor {
	var out []PropertyDescriptor
	for _, p := range t.Properties {
		if p.Stored() {
			out = append(out, p)
		}
	}
	return out
}

// Schema returns the storage schema of t.
func (t ModelType) Schema() rowaccess.Schema {
	s := rowaccess.Schema{Table: t.TableName}
	for _, p := range t.Stored() {
		s.Columns = append(s.Columns, rowaccess.Column{
			Name:     p.Column,
			Kind:     p.ValueKind,
			Indexed:  p.Indexed,
			ObjectID: p.Kind == ObjectID,
		})
	}
	return s
}

// reservedMembers are generated on every woven type.
var reservedMembers = []string{rowField, "BindRow", "RealmRow", "RealmSchema"}

const rowField = "realmRow"

// AnalyzeOptions controls analysis.
type AnalyzeOptions struct {
	// ApplyTypeMapping makes a //realm:mapto type directive rename the
	// table. When false the directive is recorded and reported only.
	ApplyTypeMapping bool
	Logger           *slog.Logger
}

// Analyze classifies every property of the candidates. All errors of the
// module are collected and returned together as Diagnostics.
func Analyze(m *Module, cands []Candidate, opts AnalyzeOptions) ([]ModelType, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var diags Diagnostics
	if f := m.File(GeneratedFile); f != nil && !m.Woven {
		diags = append(diags, newReservedMemberError(positionOf(m.Fset, f.AST.Package), m.PackageName, GeneratedFile))
	}

	locals := localTypes(m)
	out := make([]ModelType, 0, len(cands))
	for _, c := range cands {
		mt := ModelType{
			Name:      c.Spec.Name.Name,
			File:      c.File.Name,
			TableName: c.Spec.Name.Name,
			cand:      c,
		}
		for _, d := range append(directives(c.Decl.Doc), directives(c.Spec.Doc)...) {
			switch d.Kind {
			case attr.DirectiveWoven:
				mt.Woven = true
			case attr.DirectiveMapTo:
				mt.TableOverride = d.Arg
			}
		}
		if mt.Woven {
			logger.Debug("type already woven", slog.String("type", mt.Name))
			out = append(out, mt)
			continue
		}
		if mt.TableOverride != "" {
			if opts.ApplyTypeMapping {
				mt.TableName = mt.TableOverride
			} else {
				logger.Warn("type-level mapto ignored; enable apply_type_mapping to rename the table",
					slog.String("type", mt.Name), slog.String("table", mt.TableOverride))
			}
		}

		diags = append(diags, checkReserved(m, c)...)
		diags = append(diags, analyzeProperties(m, c, locals, &mt)...)
		out = append(out, mt)
	}

	if err := diags.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkReserved(m *Module, c Candidate) []error {
	var errs []error
	name := c.Spec.Name.Name
	for _, member := range reservedMembers {
		if f := lookupField(c.Struct, member); f != nil {
			errs = append(errs, newReservedMemberError(positionOf(m.Fset, f.Pos()), name, member))
		}
		if fn, ok := c.Methods[member]; ok {
			errs = append(errs, newReservedMemberError(positionOf(m.Fset, fn.Pos()), name, member))
		}
	}
	return errs
}

func analyzeProperties(m *Module, c Candidate, locals map[string]localType, mt *ModelType) []error {
	var errs []error
	var objectID string
	columns := make(map[string]string)

	for _, cp := range c.Props {
		pos := positionOf(m.Fset, cp.Getter.Pos())
		pd := PropertyDescriptor{
			Name:         cp.Name,
			Type:         types.ExprString(cp.Field.Type),
			Column:       cp.Name,
			BackingField: cp.Backing,
			Getter:       cp.Getter.Name.Name,
			Setter:       cp.Setter.Name.Name,
			typeExpr:     cp.Field.Type,
			getter:       cp.Getter,
			setter:       cp.Setter,
		}

		set, err := fieldTags(cp.Field)
		if err != nil {
			errs = append(errs, newTagError(positionOf(m.Fset, cp.Field.Pos()), mt.Name, cp.Backing, err))
			continue
		}
		if set.MapTo != "" {
			pd.Column = set.MapTo
		}

		switch {
		case set.Has(attr.ObjectID) && set.Has(attr.Ignored):
			errs = append(errs, newConflictingAttributesError(pos, mt.Name, cp.Name))
			continue
		case set.Has(attr.Ignored):
			pd.Kind = Ignored
			mt.Properties = append(mt.Properties, pd)
			continue
		case set.Has(attr.ObjectID):
			if objectID != "" {
				errs = append(errs, newDuplicateObjectIDError(pos, mt.Name, cp.Name, objectID))
				continue
			}
			objectID = cp.Name
			pd.Kind = ObjectID
			pd.Indexed = set.Has(attr.Indexed)
		case set.Has(attr.Indexed):
			pd.Kind = Indexed
			pd.Indexed = true
		default:
			pd.Kind = Persisted
		}

		if first, ok := columns[pd.Column]; ok {
			errs = append(errs, newDuplicateColumnError(pos, mt.Name, pd.Column, cp.Name, first))
			continue
		}
		columns[pd.Column] = cp.Name

		kind := resolveValueKind(cp.Field.Type, c.File.AST, locals, nil)
		if kind == rowaccess.KindInvalid {
			errs = append(errs, newUnsupportedPropertyTypeError(pos, mt.Name, cp.Name, pd.Type))
			continue
		}
		pd.ValueKind = kind
		mt.Properties = append(mt.Properties, pd)
	}
	return errs
}

func fieldTags(f *ast.Field) (attr.Set, error) {
	if f.Tag == nil {
		return attr.Set{}, nil
	}
	raw, err := strconv.Unquote(f.Tag.Value)
	if err != nil {
		return attr.Set{}, err
	}
	return attr.Parse(reflect.StructTag(raw))
}

type localType struct {
	expr ast.Expr
	file *ast.File
}

// localTypes indexes every package-level type declaration of m.
func localTypes(m *Module) map[string]localType {
	out := make(map[string]localType)
	for _, f := range m.Files {
		for _, decl := range f.AST.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gd.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok && ts.TypeParams == nil {
					out[ts.Name.Name] = localType{expr: ts.Type, file: f.AST}
				}
			}
		}
	}
	return out
}

var builtinKinds = map[string]rowaccess.Kind{
	"string":  rowaccess.KindString,
	"bool":    rowaccess.KindBool,
	"int":     rowaccess.KindInt,
	"int8":    rowaccess.KindInt,
	"int16":   rowaccess.KindInt,
	"int32":   rowaccess.KindInt,
	"int64":   rowaccess.KindInt,
	"rune":    rowaccess.KindInt,
	"uint":    rowaccess.KindUint,
	"uint8":   rowaccess.KindUint,
	"uint16":  rowaccess.KindUint,
	"uint32":  rowaccess.KindUint,
	"uint64":  rowaccess.KindUint,
	"byte":    rowaccess.KindUint,
	"float32": rowaccess.KindFloat,
	"float64": rowaccess.KindFloat,
}

// resolveValueKind maps a type expression to its storage kind, following
// package-local type declarations. seen guards against declaration cycles.
func resolveValueKind(expr ast.Expr, file *ast.File, locals map[string]localType, seen map[string]bool) rowaccess.Kind {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return resolveValueKind(e.X, file, locals, seen)
	case *ast.Ident:
		if lt, ok := locals[e.Name]; ok {
			if seen[e.Name] {
				return rowaccess.KindInvalid
			}
			if seen == nil {
				seen = make(map[string]bool)
			}
			seen[e.Name] = true
			return resolveValueKind(lt.expr, lt.file, locals, seen)
		}
		return builtinKinds[e.Name]
	case *ast.SelectorExpr:
		pkg, ok := e.X.(*ast.Ident)
		if ok && e.Sel.Name == "Time" && pkg.Name == importName(file, "time") {
			return rowaccess.KindTime
		}
	case *ast.ArrayType:
		if e.Len != nil {
			return rowaccess.KindInvalid
		}
		if elt, ok := e.Elt.(*ast.Ident); ok && (elt.Name == "byte" || elt.Name == "uint8") {
			if _, shadowed := locals[elt.Name]; !shadowed {
				return rowaccess.KindBytes
			}
		}
	}
	return rowaccess.KindInvalid
}

// importName returns the local name under which file imports path, or ""
// when it does not (or imports it blank or dot).
func importName(file *ast.File, path string) string {
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil || p != path {
			continue
		}
		if spec.Name == nil {
			return pathBase(p)
		}
		if spec.Name.Name == "_" || spec.Name.Name == "." {
			return ""
		}
		return spec.Name.Name
	}
	return ""
}

func pathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
