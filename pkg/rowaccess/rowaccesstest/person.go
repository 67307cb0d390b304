// Package rowaccesstest provides a woven reference model and a conformance
// suite for rowaccess providers.
package rowaccesstest

import (
	"github.com/leapstack-labs/realmweave/pkg/rowaccess"
)

// Person is the reference model as the weaver emits it for
// internal/weave/testdata/reference. TestWeave_MatchesReferenceModel in
// internal/weave keeps the two in step.
//
//realm:woven
type Person struct {
	id        int64 `realm:"objectid"`
	firstName string
	lastName  string `realm:"indexed"`
	email     string `realm:"mapto=Email2"`
	age       int
	nickname  string `realm:"ignored"`
	realmRow  rowaccess.Handle
}

func (p *Person) ID() int64 { return rowaccess.GetValue[int64](p.realmRow, "ID") }

func (p *Person) SetID(v int64) { rowaccess.SetValue[int64](p.realmRow, "ID", v) }

func (p *Person) FirstName() string { return rowaccess.GetValue[string](p.realmRow, "FirstName") }

func (p *Person) SetFirstName(v string) { rowaccess.SetValue[string](p.realmRow, "FirstName", v) }

func (p *Person) LastName() string { return rowaccess.GetValue[string](p.realmRow, "LastName") }

func (p *Person) SetLastName(v string) { rowaccess.SetValue[string](p.realmRow, "LastName", v) }

func (p *Person) Email() string { return rowaccess.GetValue[string](p.realmRow, "Email2") }

func (p *Person) SetEmail(v string) { rowaccess.SetValue[string](p.realmRow, "Email2", v) }

func (p *Person) Age() int { return rowaccess.GetValue[int](p.realmRow, "Age") }

func (p *Person) SetAge(v int) { rowaccess.SetValue[int](p.realmRow, "Age", v) }

func (p *Person) Nickname() string { return p.nickname }

func (p *Person) SetNickname(v string) { p.nickname = v }

// BindRow attaches m to a storage row.
func (m *Person) BindRow(h rowaccess.Handle) { m.realmRow = h }

// RealmRow returns the row m is bound to.
func (m *Person) RealmRow() rowaccess.Handle { return m.realmRow }

// RealmSchema describes the Person table.
func (*Person) RealmSchema() rowaccess.Schema {
	return rowaccess.Schema{
		Table: "Person",
		Columns: []rowaccess.Column{
			{Name: "ID", Kind: rowaccess.KindInt, ObjectID: true},
			{Name: "FirstName", Kind: rowaccess.KindString},
			{Name: "LastName", Kind: rowaccess.KindString, Indexed: true},
			{Name: "Email2", Kind: rowaccess.KindString},
			{Name: "Age", Kind: rowaccess.KindInt},
		},
	}
}

// Call is one accessor invocation observed by a RecordingTx.
type Call struct {
	Op     string
	Row    rowaccess.RowRef
	Column string
	Value  any
}

// RecordingTx wraps a transaction and records every accessor call.
type RecordingTx struct {
	rowaccess.Transaction
	Calls []Call
}

// Record wraps tx.
func Record(tx rowaccess.Transaction) *RecordingTx {
	return &RecordingTx{Transaction: tx}
}

// GetValue records the read and forwards it.
func (r *RecordingTx) GetValue(row rowaccess.RowRef, column string) (any, error) {
	r.Calls = append(r.Calls, Call{Op: "get", Row: row, Column: column})
	return r.Transaction.GetValue(row, column)
}

// SetValue records the write and forwards it.
func (r *RecordingTx) SetValue(row rowaccess.RowRef, column string, value any) error {
	r.Calls = append(r.Calls, Call{Op: "set", Row: row, Column: column, Value: value})
	return r.Transaction.SetValue(row, column, value)
}

// Columns returns the columns touched by op, in call order.
func (r *RecordingTx) Columns(op string) []string {
	var cols []string
	for _, c := range r.Calls {
		if c.Op == op {
			cols = append(cols, c.Column)
		}
	}
	return cols
}
