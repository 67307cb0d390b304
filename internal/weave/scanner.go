package weave

import (
	"go/ast"
	"go/token"
	"go/types"
)

// Candidate is a struct type with at least one accessor pair.
type Candidate struct {
	File   *File
	Decl   *ast.GenDecl
	Spec   *ast.TypeSpec
	Struct *ast.StructType
	Props  []CandidateProperty
	// Methods names every method declared on the type.
	Methods map[string]*ast.FuncDecl
}

// CandidateProperty is one getter/setter pair over a named struct field.
type CandidateProperty struct {
	Name    string
	Field   *ast.Field
	Backing string
	Getter  *ast.FuncDecl
	Setter  *ast.FuncDecl
}

type structDecl struct {
	file *File
	decl *ast.GenDecl
	spec *ast.TypeSpec
	st   *ast.StructType
}

// Scan finds every struct type of m that has an accessor pair: a getter
// returning one of its fields unchanged and a Set<Name> method assigning its
// only parameter to that same field. Types are returned in file name order,
// then declaration order; properties in getter declaration order.
func Scan(m *Module) []Candidate {
	var structs []structDecl
	methods := make(map[string][]*ast.FuncDecl)

	for _, f := range m.Files {
		for _, decl := range f.AST.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					st, ok := ts.Type.(*ast.StructType)
					if !ok || ts.TypeParams != nil || ts.Assign.IsValid() {
						continue
					}
					structs = append(structs, structDecl{file: f, decl: d, spec: ts, st: st})
				}
			case *ast.FuncDecl:
				if name := receiverType(d); name != "" {
					methods[name] = append(methods[name], d)
				}
			}
		}
	}

	var out []Candidate
	for _, s := range structs {
		name := s.spec.Name.Name
		byName := make(map[string]*ast.FuncDecl, len(methods[name]))
		for _, fn := range methods[name] {
			byName[fn.Name.Name] = fn
		}

		c := Candidate{File: s.file, Decl: s.decl, Spec: s.spec, Struct: s.st, Methods: byName}
		for _, getter := range methods[name] {
			backing, ok := getterField(getter)
			if !ok {
				continue
			}
			setter, ok := byName["Set"+getter.Name.Name]
			if !ok {
				continue
			}
			if f, ok := setterField(setter); !ok || f != backing {
				continue
			}
			field := lookupField(s.st, backing)
			if field == nil {
				continue
			}
			typ := types.ExprString(getter.Type.Results.List[0].Type)
			if typ != types.ExprString(field.Type) || typ != types.ExprString(setter.Type.Params.List[0].Type) {
				continue
			}
			c.Props = append(c.Props, CandidateProperty{
				Name:    getter.Name.Name,
				Field:   field,
				Backing: backing,
				Getter:  getter,
				Setter:  setter,
			})
		}
		if len(c.Props) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// receiverType returns the base type name of a method receiver, or "" for
// functions and generic receivers.
func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) != 1 {
		return ""
	}
	t := fn.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// receiverName returns the named receiver of fn, or "" when it is blank or
// unnamed.
func receiverName(fn *ast.FuncDecl) string {
	names := fn.Recv.List[0].Names
	if len(names) != 1 || names[0].Name == "_" {
		return ""
	}
	return names[0].Name
}

func isPointerReceiver(fn *ast.FuncDecl) bool {
	_, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
	return ok
}

// getterField matches `func (r T) Name() F { return r.field }`.
func getterField(fn *ast.FuncDecl) (string, bool) {
	recv := receiverName(fn)
	if recv == "" || fn.Body == nil || fn.Type.TypeParams != nil {
		return "", false
	}
	if fn.Type.Params.NumFields() != 0 || fn.Type.Results.NumFields() != 1 {
		return "", false
	}
	if len(fn.Body.List) != 1 {
		return "", false
	}
	ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return "", false
	}
	return recvSelector(ret.Results[0], recv)
}

// setterField matches `func (r *T) SetName(v F) { r.field = v }`.
func setterField(fn *ast.FuncDecl) (string, bool) {
	recv := receiverName(fn)
	if recv == "" || !isPointerReceiver(fn) || fn.Body == nil {
		return "", false
	}
	if fn.Type.Results.NumFields() != 0 || fn.Type.Params.NumFields() != 1 {
		return "", false
	}
	param := paramName(fn)
	if param == "" || len(fn.Body.List) != 1 {
		return "", false
	}
	assign, ok := fn.Body.List[0].(*ast.AssignStmt)
	if !ok || assign.Tok != token.ASSIGN || len(assign.Lhs) != 1 || len(assign.Rhs) != 1 {
		return "", false
	}
	if rhs, ok := assign.Rhs[0].(*ast.Ident); !ok || rhs.Name != param {
		return "", false
	}
	return recvSelector(assign.Lhs[0], recv)
}

// paramName returns the name of the only parameter of fn.
func paramName(fn *ast.FuncDecl) string {
	names := fn.Type.Params.List[0].Names
	if len(names) != 1 || names[0].Name == "_" {
		return ""
	}
	return names[0].Name
}

func recvSelector(e ast.Expr, recv string) (string, bool) {
	sel, ok := e.(*ast.SelectorExpr)
	if !ok {
		return "", false
	}
	x, ok := sel.X.(*ast.Ident)
	if !ok || x.Name != recv {
		return "", false
	}
	return sel.Sel.Name, true
}

// lookupField returns the declaration of the named (non-embedded) field.
func lookupField(st *ast.StructType, name string) *ast.Field {
	for _, f := range st.Fields.List {
		for _, n := range f.Names {
			if n.Name == name {
				return f
			}
		}
	}
	return nil
}
