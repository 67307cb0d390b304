package rowaccess

// Accessor reads and writes single column values of rows.
type Accessor interface {
	GetValue(row RowRef, column string) (any, error)
	SetValue(row RowRef, column string, value any) error
}

// recorder is implemented by accessors that latch errors instead of
// panicking, which every Transaction does.
type recorder interface {
	Record(err error)
}

// Handle is the row binding a woven instance carries. The zero Handle is
// unbound.
type Handle struct {
	acc Accessor
	row RowRef
}

// NewHandle binds row to the accessor that serves it.
func NewHandle(acc Accessor, row RowRef) Handle {
	return Handle{acc: acc, row: row}
}

// Bound reports whether the handle points at a row.
func (h Handle) Bound() bool { return h.acc != nil }

// Row returns the referenced row. It is the zero RowRef for an unbound handle.
func (h Handle) Row() RowRef { return h.row }

// Accessor returns the accessor serving the row, nil when unbound.
func (h Handle) Accessor() Accessor { return h.acc }

func (h Handle) fail(op, column string, err error) {
	err = &ColumnError{Op: op, Row: h.row, Column: column, Err: err}
	if r, ok := h.acc.(recorder); ok {
		r.Record(err)
		return
	}
	panic(err)
}

// GetValue reads column of the bound row as T. Woven getters call it.
//
// Using an unbound handle panics with ErrUnbound. Accessor failures are
// latched on the transaction and the zero T is returned.
func GetValue[T any](h Handle, column string) T {
	var zero T
	if h.acc == nil {
		panic(&ColumnError{Op: "get", Row: h.row, Column: column, Err: ErrUnbound})
	}
	raw, err := h.acc.GetValue(h.row, column)
	if err != nil {
		h.fail("get", column, err)
		return zero
	}
	v, err := convertTo[T](raw)
	if err != nil {
		h.fail("get", column, err)
		return zero
	}
	return v
}

// SetValue writes value into column of the bound row. Woven setters call it.
// Failure handling matches GetValue.
func SetValue[T any](h Handle, column string, value T) {
	if h.acc == nil {
		panic(&ColumnError{Op: "set", Row: h.row, Column: column, Err: ErrUnbound})
	}
	if err := h.acc.SetValue(h.row, column, value); err != nil {
		h.fail("set", column, err)
	}
}
