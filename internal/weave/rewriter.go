package weave

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"
)

type bodyEdit struct {
	file *File
	fn   *ast.FuncDecl
	body *ast.BlockStmt
}

type fieldEdit struct {
	file *File
	st   *ast.StructType
	qual string
}

type rewritePlan struct {
	bodies  []bodyEdit
	fields  []fieldEdit
	imports []*File
	woven   []ModelType
}

// Rewrite routes the accessors of every stored property through the row
// handle and injects the handle field. Types already woven, and types whose
// properties are all ignored, are left alone. The whole module is planned
// before anything is changed, so an error leaves m untouched. It returns the
// types that were woven.
func Rewrite(m *Module, models []ModelType) ([]ModelType, error) {
	p, err := planRewrite(m, models)
	if err != nil {
		return nil, err
	}
	p.apply(m)
	return p.woven, nil
}

func planRewrite(m *Module, models []ModelType) (*rewritePlan, error) {
	owner := declFiles(m)
	p := &rewritePlan{}
	quals := make(map[*File]string)

	qualifier := func(f *File) (string, error) {
		if q, ok := quals[f]; ok {
			return q, nil
		}
		q := importName(f.AST, RowAccessPath)
		if q == "" {
			for _, spec := range f.AST.Imports {
				path, _ := strconv.Unquote(spec.Path.Value)
				name := pathBase(path)
				if spec.Name != nil {
					name = spec.Name.Name
				}
				if name == "rowaccess" {
					return "", newReservedMemberError(positionOf(m.Fset, spec.Pos()), f.Name, "import name rowaccess")
				}
			}
			q = "rowaccess"
			p.imports = append(p.imports, f)
		}
		quals[f] = q
		return q, nil
	}

	for _, mt := range models {
		if mt.Woven || len(mt.Stored()) == 0 {
			continue
		}
		for _, pd := range mt.Stored() {
			for _, fn := range []*ast.FuncDecl{pd.getter, pd.setter} {
				f := owner[fn]
				if f == nil {
					return nil, fmt.Errorf("accessor %s.%s has no source file", mt.Name, fn.Name.Name)
				}
				q, err := qualifier(f)
				if err != nil {
					return nil, err
				}
				var body *ast.BlockStmt
				if fn == pd.getter {
					body = getterBody(fn, q, pd)
				} else {
					body = setterBody(fn, q, pd)
				}
				p.bodies = append(p.bodies, bodyEdit{file: f, fn: fn, body: body})
			}
		}

		q, err := qualifier(mt.cand.File)
		if err != nil {
			return nil, err
		}
		p.fields = append(p.fields, fieldEdit{file: mt.cand.File, st: mt.cand.Struct, qual: q})
		p.woven = append(p.woven, mt)
	}
	return p, nil
}

func (p *rewritePlan) apply(m *Module) {
	for _, e := range p.bodies {
		dropComments(e.file.AST, e.fn.Body)
		e.fn.Body = e.body
		e.file.touched = true
	}
	for _, e := range p.fields {
		e.st.Fields.List = append(e.st.Fields.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(rowField)},
			Type:  &ast.SelectorExpr{X: ast.NewIdent(e.qual), Sel: ast.NewIdent("Handle")},
		})
		e.file.touched = true
	}
	for _, f := range p.imports {
		astutil.AddImport(m.Fset, f.AST, RowAccessPath)
		f.touched = true
	}
}

// getterBody builds `return rowaccess.GetValue[T](recv.realmRow, "Column")`.
func getterBody(fn *ast.FuncDecl, qual string, pd PropertyDescriptor) *ast.BlockStmt {
	call := accessCall(qual, "GetValue", pd, receiverName(fn))
	return &ast.BlockStmt{
		Lbrace: fn.Body.Lbrace,
		List:   []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{call}}},
		Rbrace: fn.Body.Rbrace,
	}
}

// setterBody builds `rowaccess.SetValue[T](recv.realmRow, "Column", v)`.
func setterBody(fn *ast.FuncDecl, qual string, pd PropertyDescriptor) *ast.BlockStmt {
	call := accessCall(qual, "SetValue", pd, receiverName(fn))
	call.Args = append(call.Args, ast.NewIdent(paramName(fn)))
	return &ast.BlockStmt{
		Lbrace: fn.Body.Lbrace,
		List:   []ast.Stmt{&ast.ExprStmt{X: call}},
		Rbrace: fn.Body.Rbrace,
	}
}

func accessCall(qual, fn string, pd PropertyDescriptor, recv string) *ast.CallExpr {
	return &ast.CallExpr{
		Fun: &ast.IndexExpr{
			X:     &ast.SelectorExpr{X: ast.NewIdent(qual), Sel: ast.NewIdent(fn)},
			Index: cloneExpr(pd.typeExpr),
		},
		Args: []ast.Expr{
			&ast.SelectorExpr{X: ast.NewIdent(recv), Sel: ast.NewIdent(rowField)},
			&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(pd.Column)},
		},
	}
}

// cloneExpr copies a type expression without positions so the printer does
// not tie it to the original source lines.
func cloneExpr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Ident:
		return ast.NewIdent(e.Name)
	case *ast.SelectorExpr:
		return &ast.SelectorExpr{X: cloneExpr(e.X), Sel: ast.NewIdent(e.Sel.Name)}
	case *ast.ArrayType:
		return &ast.ArrayType{Len: cloneExpr(e.Len), Elt: cloneExpr(e.Elt)}
	case *ast.StarExpr:
		return &ast.StarExpr{X: cloneExpr(e.X)}
	case *ast.ParenExpr:
		return cloneExpr(e.X)
	case *ast.BasicLit:
		return &ast.BasicLit{Kind: e.Kind, Value: e.Value}
	case nil:
		return nil
	default:
		return e
	}
}

// dropComments removes the comment groups inside body from f.
func dropComments(f *ast.File, body *ast.BlockStmt) {
	kept := f.Comments[:0]
	for _, cg := range f.Comments {
		if cg.Pos() > body.Lbrace && cg.End() <= body.Rbrace {
			continue
		}
		kept = append(kept, cg)
	}
	f.Comments = kept
}

// declFiles maps every function declaration to its file.
func declFiles(m *Module) map[*ast.FuncDecl]*File {
	out := make(map[*ast.FuncDecl]*File)
	for _, f := range m.Files {
		for _, decl := range f.AST.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok {
				out[fn] = f
			}
		}
	}
	return out
}
