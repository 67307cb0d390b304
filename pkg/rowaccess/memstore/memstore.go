// Package memstore is an in-memory rowaccess provider. Sessions opened with
// the same path on one Provider share data, which makes it a convenient
// stand-in for a real storage engine in tests.
package memstore

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/realmweave/pkg/rowaccess"
)

type table struct {
	schema rowaccess.Schema
	nextID int64
	rows   map[int64]map[string]any
}

type database struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// Provider keeps one database per session path.
type Provider struct {
	mu  sync.Mutex
	dbs map[string]*database
}

// New creates an empty provider.
func New() *Provider {
	return &Provider{dbs: make(map[string]*database)}
}

// CreateSession opens (or creates) the database named by path.
func (p *Provider) CreateSession(path string) (rowaccess.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	db, ok := p.dbs[path]
	if !ok {
		db = &database{tables: make(map[string]*table)}
		p.dbs[path] = db
	}
	return &session{db: db}, nil
}

type session struct {
	db     *database
	closed bool
}

func (s *session) StartTransaction(state rowaccess.TransactionState) (rowaccess.Transaction, error) {
	if s.closed {
		return nil, fmt.Errorf("memstore: session closed")
	}
	return &transaction{
		db:      s.db,
		state:   state,
		added:   make(map[rowaccess.RowRef]bool),
		pending: make(map[rowaccess.RowRef]map[string]any),
	}, nil
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

// transaction buffers writes and applies them on commit. Table creation is
// applied immediately and is not undone by rollback.
type transaction struct {
	rowaccess.ErrorLatch

	db      *database
	state   rowaccess.TransactionState
	done    bool
	added   map[rowaccess.RowRef]bool
	pending map[rowaccess.RowRef]map[string]any
}

func (tx *transaction) check(write bool) error {
	if tx.done {
		return rowaccess.ErrTransactionDone
	}
	if write && tx.state != rowaccess.ReadWrite {
		return rowaccess.ErrReadOnly
	}
	return nil
}

func (tx *transaction) EnsureTable(schema rowaccess.Schema) error {
	if err := tx.check(true); err != nil {
		return err
	}
	if err := schema.Validate(); err != nil {
		return err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if _, ok := tx.db.tables[schema.Table]; ok {
		return nil
	}
	tx.db.tables[schema.Table] = &table{
		schema: schema,
		rows:   make(map[int64]map[string]any),
	}
	return nil
}

func (tx *transaction) AddRow(name string) (rowaccess.RowRef, error) {
	if err := tx.check(true); err != nil {
		return rowaccess.RowRef{}, err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	t, ok := tx.db.tables[name]
	if !ok {
		return rowaccess.RowRef{}, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchTable, name)
	}
	t.nextID++
	ref := rowaccess.RowRef{Table: name, ID: t.nextID}
	tx.added[ref] = true
	tx.pending[ref] = make(map[string]any)
	return ref, nil
}

// column resolves the table column and whether the row is visible to tx.
func (tx *transaction) column(row rowaccess.RowRef, name string) (rowaccess.Column, map[string]any, error) {
	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()
	t, ok := tx.db.tables[row.Table]
	if !ok {
		return rowaccess.Column{}, nil, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchTable, row.Table)
	}
	col, ok := t.schema.Column(name)
	if !ok {
		return rowaccess.Column{}, nil, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchColumn, name)
	}
	committed, exists := t.rows[row.ID]
	if !exists && !tx.added[row] {
		return rowaccess.Column{}, nil, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchRow, row)
	}
	return col, committed, nil
}

func (tx *transaction) GetValue(row rowaccess.RowRef, name string) (any, error) {
	if err := tx.check(false); err != nil {
		return nil, err
	}
	_, committed, err := tx.column(row, name)
	if err != nil {
		return nil, err
	}
	if vals, ok := tx.pending[row]; ok {
		if v, ok := vals[name]; ok {
			return v, nil
		}
	}
	if committed == nil {
		return nil, nil
	}
	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()
	return committed[name], nil
}

func (tx *transaction) SetValue(row rowaccess.RowRef, name string, value any) error {
	if err := tx.check(true); err != nil {
		return err
	}
	col, _, err := tx.column(row, name)
	if err != nil {
		return err
	}
	v, err := rowaccess.Normalize(col.Kind, value)
	if err != nil {
		return err
	}
	vals, ok := tx.pending[row]
	if !ok {
		vals = make(map[string]any)
		tx.pending[row] = vals
	}
	vals[name] = v
	return nil
}

func (tx *transaction) Commit() error {
	if tx.done {
		return rowaccess.ErrTransactionDone
	}
	if err := tx.Err(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("memstore: commit aborted: %w", err)
	}
	tx.done = true

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for ref, vals := range tx.pending {
		t := tx.db.tables[ref.Table]
		stored, ok := t.rows[ref.ID]
		if !ok {
			stored = make(map[string]any, len(vals))
			t.rows[ref.ID] = stored
		}
		for k, v := range vals {
			stored[k] = v
		}
	}
	return nil
}

func (tx *transaction) Rollback() error {
	if tx.done {
		return rowaccess.ErrTransactionDone
	}
	tx.done = true
	tx.pending = nil
	tx.added = nil
	return nil
}
