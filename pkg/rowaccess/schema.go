// Package rowaccess is the runtime surface woven model types call into.
//
// A woven getter reads through GetValue and a woven setter writes through
// SetValue, both keyed by the instance's bound Handle and the property's
// resolved column name. The storage engine behind a Handle is supplied by a
// Provider; this package ships only the contracts and the generic helpers.
//
// The package imports nothing outside the standard library because every
// woven user package depends on it.
package rowaccess

import "fmt"

// Kind is the storage representation of a column.
type Kind uint8

// Column kinds. Every signed integer width is stored as KindInt, every
// unsigned width as KindUint.
const (
	KindInvalid Kind = iota
	KindString
	KindBool
	KindInt
	KindUint
	KindFloat
	KindBytes
	KindTime
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat:   "float",
	KindBytes:   "bytes",
	KindTime:    "time",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// GoName is the exported identifier of k in this package, used by code
// generators that emit schema literals.
func (k Kind) GoName() string {
	switch k {
	case KindString:
		return "KindString"
	case KindBool:
		return "KindBool"
	case KindInt:
		return "KindInt"
	case KindUint:
		return "KindUint"
	case KindFloat:
		return "KindFloat"
	case KindBytes:
		return "KindBytes"
	case KindTime:
		return "KindTime"
	default:
		return "KindInvalid"
	}
}

// Column is one typed storage slot of a table.
type Column struct {
	Name     string
	Kind     Kind
	Indexed  bool
	ObjectID bool
}

// Schema describes the table backing one woven type.
type Schema struct {
	Table   string
	Columns []Column
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks that the schema names a table, has unique non-empty
// column names and at most one object id column.
func (s Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("schema: table name is empty")
	}
	seen := make(map[string]bool, len(s.Columns))
	objectIDs := 0
	for _, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema %s: column name is empty", s.Table)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema %s: duplicate column %q", s.Table, c.Name)
		}
		seen[c.Name] = true
		if c.Kind == KindInvalid {
			return fmt.Errorf("schema %s: column %q has no kind", s.Table, c.Name)
		}
		if c.ObjectID {
			objectIDs++
		}
	}
	if objectIDs > 1 {
		return fmt.Errorf("schema %s: %d object id columns", s.Table, objectIDs)
	}
	return nil
}

// RowRef identifies one row of one table.
type RowRef struct {
	Table string
	ID    int64
}

func (r RowRef) String() string {
	return fmt.Sprintf("%s#%d", r.Table, r.ID)
}
