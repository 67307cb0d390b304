package weave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleFrom(t *testing.T, files map[string]string) *Module {
	t.Helper()
	raw := make(map[string][]byte, len(files))
	for name, src := range files {
		raw[name] = []byte(src)
	}
	m, err := NewModule("mod", raw)
	require.NoError(t, err)
	return m
}

func loadPerson(t *testing.T) *Module {
	t.Helper()
	m, err := Load("testdata/person")
	require.NoError(t, err)
	return m
}

func propNames(c Candidate) []string {
	names := make([]string, 0, len(c.Props))
	for _, p := range c.Props {
		names = append(names, p.Name)
	}
	return names
}

func TestLoad_Person(t *testing.T) {
	m := loadPerson(t)

	assert.Equal(t, "models", m.PackageName)
	assert.False(t, m.Woven)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "person.go", m.Files[0].Name)
	assert.Contains(t, m.Extra, "notes.txt")
}

func TestNewModule_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"no go files", map[string]string{"README": "hi"}},
		{"syntax error", map[string]string{"a.go": "package a\nfunc {"}},
		{"mixed packages", map[string]string{"a.go": "package a\n", "b.go": "package b\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make(map[string][]byte)
			for k, v := range tt.files {
				raw[k] = []byte(v)
			}
			_, err := NewModule("x", raw)
			assert.Error(t, err)
		})
	}
}

func TestNewModule_DetectsModuleMarker(t *testing.T) {
	m := moduleFrom(t, map[string]string{
		"a.go":           "package a\n",
		"realm_woven.go": "// Code generated by realmweave. DO NOT EDIT.\n\n//realm:woven\n\npackage a\n",
	})
	assert.True(t, m.Woven)

	// the marker only counts before the package clause
	m = moduleFrom(t, map[string]string{"a.go": "package a\n\n//realm:woven\nvar x int\n"})
	assert.False(t, m.Woven)
}

func TestNewModule_SkipsTestFiles(t *testing.T) {
	m := moduleFrom(t, map[string]string{
		"a.go":      "package a\n",
		"a_test.go": "package a_test\n",
	})
	require.Len(t, m.Files, 1)
	assert.Contains(t, m.Extra, "a_test.go")
}

func TestScan_Person(t *testing.T) {
	cands := Scan(loadPerson(t))

	require.Len(t, cands, 1)
	assert.Equal(t, "Person", cands[0].Spec.Name.Name)
	assert.Equal(t, []string{"ID", "FirstName", "LastName", "Email", "Birthday", "Nickname"}, propNames(cands[0]))
	assert.Equal(t, "email", cands[0].Props[3].Backing)
}

func TestScan_OrdersTypesByFileThenDeclaration(t *testing.T) {
	m := moduleFrom(t, map[string]string{
		"b.go": `package a
type B struct{ x int }
func (b *B) X() int { return b.x }
func (b *B) SetX(v int) { b.x = v }
`,
		"a.go": `package a
type Z struct{ x int }
type A struct{ x int }
func (a *A) X() int { return a.x }
func (a *A) SetX(v int) { a.x = v }
`,
		"c.go": `package a
func (z *Z) X() int { return z.x }
func (z *Z) SetX(v int) { z.x = v }
`,
	})

	var names []string
	for _, c := range Scan(m) {
		names = append(names, c.Spec.Name.Name)
	}
	assert.Equal(t, []string{"Z", "A", "B"}, names)
}

func TestScan_RejectsNonTrivialAccessors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"getter without setter", `
func (t *T) Name() string { return t.name }`},
		{"setter without getter", `
func (t *T) SetName(v string) { t.name = v }`},
		{"getter computes", `
func (t *T) Name() string { return t.name + "!" }
func (t *T) SetName(v string) { t.name = v }`},
		{"setter transforms", `
func (t *T) Name() string { return t.name }
func (t *T) SetName(v string) { t.name = v + "!" }`},
		{"setter has two statements", `
func (t *T) Name() string { return t.name }
func (t *T) SetName(v string) { t.name = v; t.count++ }`},
		{"different fields", `
func (t *T) Name() string { return t.name }
func (t *T) SetName(v string) { t.other = v }`},
		{"value receiver setter", `
func (t *T) Name() string { return t.name }
func (t T) SetName(v string) { t.name = v }`},
		{"mismatched setter type", `
func (t *T) Name() string { return t.name }
func (t *T) SetName(v any) { t.name = v.(string) }`},
		{"getter with parameter", `
func (t *T) Name(x int) string { return t.name }
func (t *T) SetName(v string) { t.name = v }`},
		{"blank receiver", `
func (_ *T) Name() string { return "" }
func (t *T) SetName(v string) { t.name = v }`},
		{"define instead of assign", `
func (t *T) Name() string { return t.name }
func (t *T) SetName(v string) { x := v; _ = x }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "package a\ntype T struct {\n\tname string\n\tother string\n\tcount int\n}\n" + tt.src + "\n"
			m := moduleFrom(t, map[string]string{"a.go": src})
			assert.Empty(t, Scan(m))
		})
	}
}

func TestScan_SkipsGenericAndAliasTypes(t *testing.T) {
	m := moduleFrom(t, map[string]string{"a.go": `package a
type G[T any] struct{ v T }
func (g *G[T]) V() T { return g.v }
func (g *G[T]) SetV(v T) { g.v = v }

type inner struct{ v int }
type Alias = inner
func (a *Alias) V() int { return a.v }
func (a *Alias) SetV(v int) { a.v = v }
`})
	cands := Scan(m)
	require.Len(t, cands, 0)
}

func TestScan_AccessorsInAnotherFile(t *testing.T) {
	m := moduleFrom(t, map[string]string{
		"model.go":    "package a\ntype T struct{ n int }\n",
		"accessor.go": "package a\nfunc (t *T) N() int { return t.n }\nfunc (t *T) SetN(v int) { t.n = v }\n",
	})
	cands := Scan(m)
	require.Len(t, cands, 1)
	assert.Equal(t, "model.go", cands[0].File.Name)
	assert.Equal(t, []string{"N"}, propNames(cands[0]))
}
