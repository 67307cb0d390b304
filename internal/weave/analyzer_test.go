package weave

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/realmweave/internal/testutil"
	"github.com/leapstack-labs/realmweave/pkg/attr"
	"github.com/leapstack-labs/realmweave/pkg/rowaccess"
)

func analyze(t *testing.T, m *Module, opts AnalyzeOptions) ([]ModelType, error) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	return Analyze(m, Scan(m), opts)
}

func TestAnalyze_Person(t *testing.T) {
	models, err := analyze(t, loadPerson(t), AnalyzeOptions{})
	require.NoError(t, err)
	require.Len(t, models, 1)

	mt := models[0]
	assert.Equal(t, "Person", mt.Name)
	assert.Equal(t, "Person", mt.TableName)
	assert.Equal(t, "person.go", mt.File)
	assert.False(t, mt.Woven)

	tests := []struct {
		name      string
		kind      PropertyKind
		column    string
		valueKind rowaccess.Kind
		indexed   bool
	}{
		{"ID", ObjectID, "ID", rowaccess.KindInt, false},
		{"FirstName", Persisted, "FirstName", rowaccess.KindString, false},
		{"LastName", Indexed, "LastName", rowaccess.KindString, true},
		{"Email", Persisted, "Email2", rowaccess.KindString, false},
		{"Birthday", Persisted, "Birthday", rowaccess.KindTime, false},
		{"Nickname", Ignored, "Nickname", rowaccess.KindInvalid, false},
	}
	require.Len(t, mt.Properties, len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := mt.Properties[i]
			assert.Equal(t, tt.name, pd.Name)
			assert.Equal(t, tt.kind, pd.Kind)
			assert.Equal(t, tt.column, pd.Column)
			assert.Equal(t, tt.valueKind, pd.ValueKind)
			assert.Equal(t, tt.indexed, pd.Indexed)
		})
	}

	schema := mt.Schema()
	require.NoError(t, schema.Validate())
	var cols []string
	for _, c := range schema.Columns {
		cols = append(cols, c.Name)
	}
	assert.Equal(t, []string{"ID", "FirstName", "LastName", "Email2", "Birthday"}, cols)
	assert.True(t, schema.Columns[0].ObjectID)
	assert.True(t, schema.Columns[2].Indexed)
}

// model builds a single-type module whose fields and accessor pairs are
// generated from name/type/tag triples.
func model(header string, props ...[3]string) map[string]string {
	src := "package a\n" + header + "\ntype T struct {\n"
	for _, p := range props {
		tag := ""
		if p[2] != "" {
			tag = " `realm:\"" + p[2] + "\"`"
		}
		src += "\tf" + p[0] + " " + p[1] + tag + "\n"
	}
	src += "}\n"
	for _, p := range props {
		src += "func (t *T) " + p[0] + "() " + p[1] + " { return t.f" + p[0] + " }\n"
		src += "func (t *T) Set" + p[0] + "(v " + p[1] + ") { t.f" + p[0] + " = v }\n"
	}
	return map[string]string{"a.go": src}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		target error
	}{
		{"objectid and ignored", model("", [3]string{"A", "int64", "objectid,ignored"}), ErrConflictingAttributes},
		{"objectid and dash", model("", [3]string{"A", "int64", "-,objectid"}), ErrConflictingAttributes},
		{"two object ids", model("",
			[3]string{"A", "int64", "objectid"},
			[3]string{"B", "string", "objectid"}), ErrDuplicateObjectID},
		{"map type", model("", [3]string{"A", "map[string]int", ""}), ErrUnsupportedPropertyType},
		{"pointer type", model("", [3]string{"A", "*string", ""}), ErrUnsupportedPropertyType},
		{"struct type", model("type S struct{}", [3]string{"A", "S", ""}), ErrUnsupportedPropertyType},
		{"fixed array", model("", [3]string{"A", "[4]byte", ""}), ErrUnsupportedPropertyType},
		{"foreign time", model(`import "example.com/time"`, [3]string{"A", "time.Time", ""}), ErrUnsupportedPropertyType},
		{"duplicate column", model("",
			[3]string{"A", "string", ""},
			[3]string{"B", "string", "mapto=A"}), ErrDuplicateColumn},
		{"unknown tag option", model("", [3]string{"A", "string", "primary"}), attr.ErrInvalidTag},
		{"empty mapto", model("", [3]string{"A", "string", "mapto="}), attr.ErrInvalidTag},
		{"reserved field", map[string]string{"a.go": `package a
type T struct {
	n        int
	realmRow int
}
func (t *T) N() int { return t.n }
func (t *T) SetN(v int) { t.n = v }
`}, ErrReservedMember},
		{"reserved method", map[string]string{"a.go": `package a
type T struct{ n int }
func (t *T) N() int { return t.n }
func (t *T) SetN(v int) { t.n = v }
func (t *T) RealmSchema() int { return 0 }
`}, ErrReservedMember},
		{"generated file present", map[string]string{
			"a.go":         "package a\ntype T struct{ n int }\nfunc (t *T) N() int { return t.n }\nfunc (t *T) SetN(v int) { t.n = v }\n",
			GeneratedFile: "package a\n",
		}, ErrReservedMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyze(t, moduleFrom(t, tt.files), AnalyzeOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)

			var diags Diagnostics
			require.True(t, errors.As(err, &diags))
		})
	}
}

func TestAnalyze_ErrorsCarryPositions(t *testing.T) {
	_, err := analyze(t, moduleFrom(t, model("", [3]string{"A", "chan int", ""})), AnalyzeOptions{})
	require.Error(t, err)

	var unsupported *UnsupportedPropertyTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "T", unsupported.Type)
	assert.Equal(t, "A", unsupported.Property)
	assert.Equal(t, "chan int", unsupported.GoType)
	assert.Equal(t, "mod/a.go", unsupported.Position().File)
	assert.Greater(t, unsupported.Position().Line, 0)
	assert.Contains(t, err.Error(), "mod/a.go:")
}

func TestAnalyze_CollectsEveryError(t *testing.T) {
	files := model("",
		[3]string{"A", "int64", "objectid"},
		[3]string{"B", "int64", "objectid"},
		[3]string{"C", "[]string", ""},
		[3]string{"D", "string", "ignored,objectid"},
	)
	_, err := analyze(t, moduleFrom(t, files), AnalyzeOptions{})
	require.Error(t, err)

	var diags Diagnostics
	require.True(t, errors.As(err, &diags))
	assert.Len(t, diags, 3)
	assert.True(t, errors.Is(err, ErrDuplicateObjectID))
	assert.True(t, errors.Is(err, ErrUnsupportedPropertyType))
	assert.True(t, errors.Is(err, ErrConflictingAttributes))
	assert.Contains(t, err.Error(), "3 errors:")
}

func TestAnalyze_ValueKinds(t *testing.T) {
	tests := []struct {
		header string
		typ    string
		want   rowaccess.Kind
	}{
		{"", "string", rowaccess.KindString},
		{"", "bool", rowaccess.KindBool},
		{"", "int", rowaccess.KindInt},
		{"", "int8", rowaccess.KindInt},
		{"", "rune", rowaccess.KindInt},
		{"", "uint16", rowaccess.KindUint},
		{"", "byte", rowaccess.KindUint},
		{"", "float32", rowaccess.KindFloat},
		{"", "float64", rowaccess.KindFloat},
		{"", "[]byte", rowaccess.KindBytes},
		{"", "[]uint8", rowaccess.KindBytes},
		{`import "time"`, "time.Time", rowaccess.KindTime},
		{`import stdtime "time"`, "stdtime.Time", rowaccess.KindTime},
		{"type Celsius float64", "Celsius", rowaccess.KindFloat},
		{"type Status string", "Status", rowaccess.KindString},
		{"type Level = int32", "Level", rowaccess.KindInt},
		{"type Raw []byte", "Raw", rowaccess.KindBytes},
		{"type Outer Inner\ntype Inner uint64", "Outer", rowaccess.KindUint},
		{"import \"time\"\ntype Stamp time.Time", "Stamp", rowaccess.KindTime},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			models, err := analyze(t, moduleFrom(t, model(tt.header, [3]string{"A", tt.typ, ""})), AnalyzeOptions{})
			require.NoError(t, err)
			require.Len(t, models, 1)
			require.Len(t, models[0].Properties, 1)
			assert.Equal(t, tt.want, models[0].Properties[0].ValueKind)
			assert.Equal(t, tt.typ, models[0].Properties[0].Type)
		})
	}
}

func TestAnalyze_CyclicTypeIsUnsupported(t *testing.T) {
	_, err := analyze(t, moduleFrom(t, model("type X = Y\ntype Y = X", [3]string{"A", "X", ""})), AnalyzeOptions{})
	assert.True(t, errors.Is(err, ErrUnsupportedPropertyType))
}

func TestAnalyze_IgnoredSkipsTypeCheck(t *testing.T) {
	models, err := analyze(t, moduleFrom(t, model("",
		[3]string{"A", "string", ""},
		[3]string{"B", "map[string]int", "ignored"},
	)), AnalyzeOptions{})
	require.NoError(t, err)
	require.Len(t, models[0].Properties, 2)
	assert.Equal(t, Ignored, models[0].Properties[1].Kind)
	assert.Len(t, models[0].Stored(), 1)
}

func TestAnalyze_IndexedObjectID(t *testing.T) {
	models, err := analyze(t, moduleFrom(t, model("", [3]string{"A", "string", "indexed,objectid"})), AnalyzeOptions{})
	require.NoError(t, err)
	pd := models[0].Properties[0]
	assert.Equal(t, ObjectID, pd.Kind)
	assert.True(t, pd.Indexed)
}

func TestAnalyze_TypeMapping(t *testing.T) {
	files := map[string]string{"a.go": `package a

// T is mapped.
//
//realm:mapto People
type T struct{ n int }
func (t *T) N() int { return t.n }
func (t *T) SetN(v int) { t.n = v }
`}

	models, err := analyze(t, moduleFrom(t, files), AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "People", models[0].TableOverride)
	assert.Equal(t, "T", models[0].TableName)

	models, err = analyze(t, moduleFrom(t, files), AnalyzeOptions{ApplyTypeMapping: true})
	require.NoError(t, err)
	assert.Equal(t, "People", models[0].TableName)
}

func TestAnalyze_WovenTypeIsSkipped(t *testing.T) {
	files := map[string]string{"a.go": `package a

//realm:woven
type T struct {
	n        int
	realmRow int
}
func (t *T) N() int { return t.n }
func (t *T) SetN(v int) { t.n = v }
`}
	models, err := analyze(t, moduleFrom(t, files), AnalyzeOptions{})
	require.NoError(t, err, "reserved members of already woven types are expected")
	require.Len(t, models, 1)
	assert.True(t, models[0].Woven)
	assert.Empty(t, models[0].Properties)
}
