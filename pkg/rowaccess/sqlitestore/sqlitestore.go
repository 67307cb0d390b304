// Package sqlitestore is a rowaccess provider backed by SQLite (pure Go
// driver). Each woven type maps to one table; each persisted property to one
// column; each instance to one row keyed by an integer row id.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/realmweave/pkg/rowaccess"
)

// rowIDColumn is the integer primary key every table carries.
const rowIDColumn = "_realm_id"

// declared SQL types per column kind. The names round-trip through
// PRAGMA table_info so a reopened session recovers the schema.
var declTypes = map[rowaccess.Kind]string{
	rowaccess.KindString: "TEXT",
	rowaccess.KindBool:   "BOOLEAN",
	rowaccess.KindInt:    "INTEGER",
	rowaccess.KindUint:   "UNSIGNED BIG INT",
	rowaccess.KindFloat:  "REAL",
	rowaccess.KindBytes:  "BLOB",
	rowaccess.KindTime:   "UNIXNANO",
}

func kindForDecl(decl string) rowaccess.Kind {
	decl = strings.ToUpper(strings.TrimSpace(decl))
	for k, d := range declTypes {
		if d == decl {
			return k
		}
	}
	return rowaccess.KindInvalid
}

// Provider opens SQLite databases. The session path is a file path or
// ":memory:".
type Provider struct {
	logger *slog.Logger
}

// New creates a provider. A nil logger discards.
func New(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{logger: logger}
}

// CreateSession opens the database at path.
func (p *Provider) CreateSession(path string) (rowaccess.Session, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection: ":memory:" databases are per-connection and SQLite
	// allows a single writer anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	p.logger.Debug("opened sqlite session", slog.String("path", path))
	return NewSession(db, p.logger), nil
}

// NewSession wraps an already open database.
func NewSession(db *sql.DB, logger *slog.Logger) rowaccess.Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &session{db: db, logger: logger, schemas: make(map[string]rowaccess.Schema)}
}

type session struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	schemas map[string]rowaccess.Schema
}

func (s *session) StartTransaction(state rowaccess.TransactionState) (rowaccess.Transaction, error) {
	ctx := context.Background()
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &transaction{
		ctx:     ctx,
		s:       s,
		tx:      sqlTx,
		state:   state,
		schemas: make(map[string]rowaccess.Schema),
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) cachedSchema(table string) (rowaccess.Schema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema, ok := s.schemas[table]
	return schema, ok
}

func (s *session) storeSchemas(schemas map[string]rowaccess.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, schema := range schemas {
		s.schemas[name] = schema
	}
}

type transaction struct {
	rowaccess.ErrorLatch

	ctx   context.Context
	s     *session
	tx    *sql.Tx
	state rowaccess.TransactionState
	done  bool
	// schemas created or loaded by this transaction; merged into the
	// session cache on commit only
	schemas map[string]rowaccess.Schema
}

func (t *transaction) check(write bool) error {
	if t.done {
		return rowaccess.ErrTransactionDone
	}
	if write && t.state != rowaccess.ReadWrite {
		return rowaccess.ErrReadOnly
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (t *transaction) EnsureTable(schema rowaccess.Schema) error {
	if err := t.check(true); err != nil {
		return err
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	cols := []string{quoteIdent(rowIDColumn) + " INTEGER PRIMARY KEY"}
	for _, c := range schema.Columns {
		if c.Name == rowIDColumn {
			return fmt.Errorf("column name %q is reserved", rowIDColumn)
		}
		cols = append(cols, quoteIdent(c.Name)+" "+declTypes[c.Kind])
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(schema.Table), strings.Join(cols, ", "))
	if _, err := t.tx.ExecContext(t.ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", schema.Table, err)
	}

	for _, c := range schema.Columns {
		var stmt string
		switch {
		case c.ObjectID:
			stmt = fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
				quoteIdent(schema.Table+"_"+c.Name+"_objectid"), quoteIdent(schema.Table), quoteIdent(c.Name))
		case c.Indexed:
			stmt = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				quoteIdent(schema.Table+"_"+c.Name+"_idx"), quoteIdent(schema.Table), quoteIdent(c.Name))
		default:
			continue
		}
		if _, err := t.tx.ExecContext(t.ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index on %s.%s: %w", schema.Table, c.Name, err)
		}
	}

	t.schemas[schema.Table] = schema
	t.s.logger.Debug("ensured table", slog.String("table", schema.Table), slog.Int("columns", len(schema.Columns)))
	return nil
}

// schema resolves a table's schema from the transaction, the session cache,
// or the database catalog, in that order.
func (t *transaction) schema(table string) (rowaccess.Schema, error) {
	if schema, ok := t.schemas[table]; ok {
		return schema, nil
	}
	if schema, ok := t.s.cachedSchema(table); ok {
		return schema, nil
	}

	rows, err := t.tx.QueryContext(t.ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return rowaccess.Schema{}, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	schema := rowaccess.Schema{Table: table}
	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			decl    string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dflt, &pk); err != nil {
			return rowaccess.Schema{}, fmt.Errorf("failed to scan schema of %s: %w", table, err)
		}
		found = true
		if name == rowIDColumn {
			continue
		}
		schema.Columns = append(schema.Columns, rowaccess.Column{Name: name, Kind: kindForDecl(decl)})
	}
	if err := rows.Err(); err != nil {
		return rowaccess.Schema{}, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	if !found {
		return rowaccess.Schema{}, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchTable, table)
	}
	t.schemas[table] = schema
	return schema, nil
}

func (t *transaction) column(row rowaccess.RowRef, name string) (rowaccess.Column, error) {
	schema, err := t.schema(row.Table)
	if err != nil {
		return rowaccess.Column{}, err
	}
	col, ok := schema.Column(name)
	if !ok {
		return rowaccess.Column{}, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchColumn, name)
	}
	if col.Kind == rowaccess.KindInvalid {
		return rowaccess.Column{}, fmt.Errorf("%w: column %s has an unknown declared type", rowaccess.ErrTypeMismatch, name)
	}
	return col, nil
}

func (t *transaction) AddRow(table string) (rowaccess.RowRef, error) {
	if err := t.check(true); err != nil {
		return rowaccess.RowRef{}, err
	}
	if _, err := t.schema(table); err != nil {
		return rowaccess.RowRef{}, err
	}
	res, err := t.tx.ExecContext(t.ctx, fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(table)))
	if err != nil {
		return rowaccess.RowRef{}, fmt.Errorf("failed to insert row into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rowaccess.RowRef{}, fmt.Errorf("failed to read row id: %w", err)
	}
	return rowaccess.RowRef{Table: table, ID: id}, nil
}

func (t *transaction) GetValue(row rowaccess.RowRef, name string) (any, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	col, err := t.column(row, name)
	if err != nil {
		return nil, err
	}

	var raw any
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", quoteIdent(name), quoteIdent(row.Table), rowIDColumn)
	err = t.tx.QueryRowContext(t.ctx, query, row.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", rowaccess.ErrNoSuchRow, row)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s.%s: %w", row, name, err)
	}
	return decode(col.Kind, raw)
}

func (t *transaction) SetValue(row rowaccess.RowRef, name string, value any) error {
	if err := t.check(true); err != nil {
		return err
	}
	col, err := t.column(row, name)
	if err != nil {
		return err
	}
	v, err := rowaccess.Normalize(col.Kind, value)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", quoteIdent(row.Table), quoteIdent(name), rowIDColumn)
	res, err := t.tx.ExecContext(t.ctx, stmt, encode(col.Kind, v), row.ID)
	if err != nil {
		return fmt.Errorf("failed to write %s.%s: %w", row, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write %s.%s: %w", row, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", rowaccess.ErrNoSuchRow, row)
	}
	return nil
}

func (t *transaction) Commit() error {
	if t.done {
		return rowaccess.ErrTransactionDone
	}
	if err := t.Err(); err != nil {
		_ = t.Rollback()
		return fmt.Errorf("sqlitestore: commit aborted: %w", err)
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.s.storeSchemas(t.schemas)
	return nil
}

func (t *transaction) Rollback() error {
	if t.done {
		return rowaccess.ErrTransactionDone
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// encode maps a normalized value to its SQL representation.
func encode(kind rowaccess.Kind, v any) any {
	switch kind {
	case rowaccess.KindBool:
		if v.(bool) {
			return int64(1)
		}
		return int64(0)
	case rowaccess.KindUint:
		return int64(v.(uint64)) //nolint:gosec // stored as the same 64 bits
	case rowaccess.KindTime:
		return v.(time.Time).UnixNano()
	}
	return v
}

// decode maps a scanned SQL value back to the normalized Go value.
func decode(kind rowaccess.Kind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case rowaccess.KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
	case rowaccess.KindInt:
		if v, ok := raw.(int64); ok {
			return v, nil
		}
	case rowaccess.KindUint:
		if v, ok := raw.(int64); ok {
			return uint64(v), nil //nolint:gosec // stored as the same 64 bits
		}
	case rowaccess.KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
	case rowaccess.KindString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case rowaccess.KindBytes:
		switch v := raw.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
	case rowaccess.KindTime:
		switch v := raw.(type) {
		case int64:
			return time.Unix(0, v).UTC(), nil
		case time.Time:
			return v.UTC(), nil
		}
	}
	return nil, fmt.Errorf("%w: stored %T is not %s", rowaccess.ErrTypeMismatch, raw, kind)
}
