package rowaccess

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors returned by providers and the generic helpers.
var (
	ErrUnbound         = errors.New("rowaccess: instance is not bound to a row")
	ErrNoSuchTable     = errors.New("rowaccess: no such table")
	ErrNoSuchColumn    = errors.New("rowaccess: no such column")
	ErrNoSuchRow       = errors.New("rowaccess: no such row")
	ErrTypeMismatch    = errors.New("rowaccess: value does not match column type")
	ErrReadOnly        = errors.New("rowaccess: transaction is read-only")
	ErrTransactionDone = errors.New("rowaccess: transaction already committed or rolled back")
)

// ColumnError attaches the row and column to an accessor failure.
type ColumnError struct {
	Op     string
	Row    RowRef
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("rowaccess: %s %s.%s: %v", e.Op, e.Row, e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// ErrorLatch keeps the first error recorded on it. Providers embed it in
// their transactions so failures inside woven accessors, which cannot return
// errors, surface at Commit.
type ErrorLatch struct {
	mu  sync.Mutex
	err error
}

// Record stores err unless an earlier error is already latched.
func (l *ErrorLatch) Record(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()
}

// Err returns the latched error, if any.
func (l *ErrorLatch) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
