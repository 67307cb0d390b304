package rowaccess

import (
	"errors"
	"fmt"
)

// TransactionState selects what a transaction may do.
type TransactionState uint8

// Transaction states.
const (
	ReadOnly TransactionState = iota
	ReadWrite
)

func (s TransactionState) String() string {
	if s == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Transaction is a unit of work against a session. Handles created inside a
// transaction are only valid until it commits or rolls back.
type Transaction interface {
	Accessor

	// EnsureTable creates the table described by schema when missing.
	EnsureTable(schema Schema) error
	// AddRow appends an empty row to table.
	AddRow(table string) (RowRef, error)
	// Record latches an accessor failure; Commit reports it.
	Record(err error)
	// Err returns the first latched failure.
	Err() error
	// Commit makes the transaction's writes durable. It fails, and rolls
	// back, when an error was latched.
	Commit() error
	Rollback() error
}

// Session is an open storage location.
type Session interface {
	StartTransaction(state TransactionState) (Transaction, error)
	Close() error
}

// Provider creates sessions. There is no process-wide default provider:
// callers pass one explicitly.
type Provider interface {
	CreateSession(path string) (Session, error)
}

// Model is implemented by every woven type. The weaver generates the
// methods alongside the rewritten accessors.
type Model interface {
	RealmSchema() Schema
	BindRow(h Handle)
	RealmRow() Handle
}

// Realm is a session opened through a provider.
type Realm struct {
	session Session
}

// Open creates a session at path.
func Open(p Provider, path string) (*Realm, error) {
	if p == nil {
		return nil, errors.New("rowaccess: nil provider")
	}
	s, err := p.CreateSession(path)
	if err != nil {
		return nil, fmt.Errorf("rowaccess: create session %q: %w", path, err)
	}
	return &Realm{session: s}, nil
}

// BeginWrite starts a read-write transaction.
func (r *Realm) BeginWrite() (Transaction, error) {
	return r.session.StartTransaction(ReadWrite)
}

// BeginRead starts a read-only transaction.
func (r *Realm) BeginRead() (Transaction, error) {
	return r.session.StartTransaction(ReadOnly)
}

// Close closes the underlying session.
func (r *Realm) Close() error {
	return r.session.Close()
}

// Add creates a row for m in its table, creating the table if needed, and
// binds m to it.
func Add(tx Transaction, m Model) error {
	schema := m.RealmSchema()
	if err := schema.Validate(); err != nil {
		return err
	}
	if err := tx.EnsureTable(schema); err != nil {
		return fmt.Errorf("rowaccess: ensure table %s: %w", schema.Table, err)
	}
	row, err := tx.AddRow(schema.Table)
	if err != nil {
		return fmt.Errorf("rowaccess: add row to %s: %w", schema.Table, err)
	}
	m.BindRow(NewHandle(tx, row))
	return nil
}

// Attach binds m to an existing row within tx, typically a row obtained
// from an earlier transaction.
func Attach(tx Transaction, m Model, row RowRef) error {
	if row.Table != m.RealmSchema().Table {
		return fmt.Errorf("rowaccess: row %s does not belong to table %s", row, m.RealmSchema().Table)
	}
	m.BindRow(NewHandle(tx, row))
	return nil
}
