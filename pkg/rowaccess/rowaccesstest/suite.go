package rowaccesstest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/realmweave/pkg/rowaccess"
)

// Factory returns a provider and the session path to open on it. Two calls
// to CreateSession with the same path must see the same data.
type Factory func(t *testing.T) (rowaccess.Provider, string)

// RunProviderSuite runs the provider conformance tests.
func RunProviderSuite(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("creates table from schema", func(t *testing.T) { testCreatesTable(t, factory) })
	t.Run("round trip", func(t *testing.T) { testRoundTrip(t, factory) })
	t.Run("person scenario", func(t *testing.T) { testPersonScenario(t, factory) })
	t.Run("instance isolation", func(t *testing.T) { testInstanceIsolation(t, factory) })
	t.Run("ignored isolation", func(t *testing.T) { testIgnoredIsolation(t, factory) })
	t.Run("commit persists across sessions", func(t *testing.T) { testCommitPersists(t, factory) })
	t.Run("rollback discards", func(t *testing.T) { testRollback(t, factory) })
	t.Run("read-only rejects writes", func(t *testing.T) { testReadOnly(t, factory) })
	t.Run("latched error fails commit", func(t *testing.T) { testLatchedErrorFailsCommit(t, factory) })
	t.Run("finished transaction", func(t *testing.T) { testFinishedTransaction(t, factory) })
}

func open(t *testing.T, factory Factory) *rowaccess.Realm {
	t.Helper()
	p, path := factory(t)
	r, err := rowaccess.Open(p, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func begin(t *testing.T, r *rowaccess.Realm) rowaccess.Transaction {
	t.Helper()
	tx, err := r.BeginWrite()
	require.NoError(t, err)
	return tx
}

func testCreatesTable(t *testing.T, factory Factory) {
	r := open(t, factory)
	tx := begin(t, r)

	p := &Person{}
	require.NoError(t, rowaccess.Add(tx, p))
	require.True(t, p.RealmRow().Bound())
	assert.Equal(t, "Person", p.RealmRow().Row().Table)

	for _, col := range p.RealmSchema().Columns {
		_, err := tx.GetValue(p.RealmRow().Row(), col.Name)
		assert.NoError(t, err, "column %s should exist", col.Name)
	}
	_, err := tx.GetValue(p.RealmRow().Row(), "Email")
	assert.True(t, errors.Is(err, rowaccess.ErrNoSuchColumn), "declared property name must not become a column")
	require.NoError(t, tx.Commit())
}

func testRoundTrip(t *testing.T, factory Factory) {
	r := open(t, factory)
	tx := begin(t, r)

	p := &Person{}
	require.NoError(t, rowaccess.Add(tx, p))

	for _, v := range []string{"", "John", "Jöhn ✓", "with \"quotes\" and 'ticks'"} {
		p.SetFirstName(v)
		assert.Equal(t, v, p.FirstName())
	}
	for _, v := range []int{0, -1, 42, 1 << 40} {
		p.SetAge(v)
		assert.Equal(t, v, p.Age())
	}
	p.SetID(7)
	assert.Equal(t, int64(7), p.ID())

	require.NoError(t, tx.Err())
	require.NoError(t, tx.Commit())
}

func testPersonScenario(t *testing.T, factory Factory) {
	r := open(t, factory)
	tx := begin(t, r)
	rec := Record(tx)

	person := &Person{}
	require.NoError(t, rowaccess.Add(rec, person))

	person.SetFirstName("John")
	person.SetEmail("john@johnson.com")

	assert.Equal(t, []string{"FirstName", "Email2"}, rec.Columns("set"))
	assert.Equal(t, "John", person.FirstName())

	stored, err := tx.GetValue(person.RealmRow().Row(), "Email2")
	require.NoError(t, err)
	assert.Equal(t, "john@johnson.com", stored)

	require.NoError(t, tx.Commit())
}

func testInstanceIsolation(t *testing.T, factory Factory) {
	r := open(t, factory)
	tx := begin(t, r)

	person1, person2 := &Person{}, &Person{}
	require.NoError(t, rowaccess.Add(tx, person1))
	require.NoError(t, rowaccess.Add(tx, person2))
	require.NotEqual(t, person1.RealmRow().Row(), person2.RealmRow().Row())

	person1.SetFirstName("John")
	person2.SetFirstName("Peter")
	person1.SetFirstName("Joe")

	assert.Equal(t, "Joe", person1.FirstName())
	assert.Equal(t, "Peter", person2.FirstName())
	require.NoError(t, tx.Commit())
}

func testIgnoredIsolation(t *testing.T, factory Factory) {
	r := open(t, factory)
	tx := begin(t, r)
	rec := Record(tx)

	p := &Person{}
	require.NoError(t, rowaccess.Add(rec, p))
	p.SetNickname("Johnny")
	assert.Equal(t, "Johnny", p.Nickname())
	assert.Empty(t, rec.Calls, "ignored property must not reach storage")

	row := p.RealmRow().Row()
	require.NoError(t, tx.Commit())

	tx2 := begin(t, r)
	again := &Person{}
	require.NoError(t, rowaccess.Attach(tx2, again, row))
	assert.Empty(t, again.Nickname(), "ignored value must not survive reattachment")
	require.NoError(t, tx2.Rollback())
}

func testCommitPersists(t *testing.T, factory Factory) {
	p, path := factory(t)

	first, err := rowaccess.Open(p, path)
	require.NoError(t, err)
	tx := begin(t, first)
	person := &Person{}
	require.NoError(t, rowaccess.Add(tx, person))
	person.SetFirstName("John")
	person.SetLastName("Johnson")
	row := person.RealmRow().Row()
	require.NoError(t, tx.Commit())
	require.NoError(t, first.Close())

	second, err := rowaccess.Open(p, path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	rtx, err := second.BeginRead()
	require.NoError(t, err)
	again := &Person{}
	require.NoError(t, rowaccess.Attach(rtx, again, row))
	assert.Equal(t, "John", again.FirstName())
	assert.Equal(t, "Johnson", again.LastName())
	require.NoError(t, rtx.Err())
	require.NoError(t, rtx.Rollback())
}

func testRollback(t *testing.T, factory Factory) {
	r := open(t, factory)

	tx := begin(t, r)
	p := &Person{}
	require.NoError(t, rowaccess.Add(tx, p))
	p.SetFirstName("kept")
	row := p.RealmRow().Row()
	require.NoError(t, tx.Commit())

	tx2 := begin(t, r)
	require.NoError(t, rowaccess.Attach(tx2, p, row))
	p.SetFirstName("discarded")
	require.NoError(t, tx2.Rollback())

	tx3 := begin(t, r)
	require.NoError(t, rowaccess.Attach(tx3, p, row))
	assert.Equal(t, "kept", p.FirstName())
	require.NoError(t, tx3.Rollback())
}

func testReadOnly(t *testing.T, factory Factory) {
	r := open(t, factory)

	tx := begin(t, r)
	p := &Person{}
	require.NoError(t, rowaccess.Add(tx, p))
	row := p.RealmRow().Row()
	require.NoError(t, tx.Commit())

	rtx, err := r.BeginRead()
	require.NoError(t, err)
	_, err = rtx.AddRow("Person")
	assert.True(t, errors.Is(err, rowaccess.ErrReadOnly))

	require.NoError(t, rowaccess.Attach(rtx, p, row))
	p.SetFirstName("nope")
	assert.True(t, errors.Is(rtx.Err(), rowaccess.ErrReadOnly))
	assert.Error(t, rtx.Commit())
}

func testLatchedErrorFailsCommit(t *testing.T, factory Factory) {
	r := open(t, factory)

	tx := begin(t, r)
	p := &Person{}
	require.NoError(t, rowaccess.Add(tx, p))
	p.SetFirstName("lost")
	row := p.RealmRow().Row()

	bogus := rowaccess.NewHandle(tx, rowaccess.RowRef{Table: "Person", ID: row.ID})
	rowaccess.SetValue(bogus, "NoSuchColumn", "x")
	require.True(t, errors.Is(tx.Err(), rowaccess.ErrNoSuchColumn))

	err := tx.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, rowaccess.ErrNoSuchColumn))

	tx2 := begin(t, r)
	_, err = tx2.GetValue(row, "FirstName")
	assert.Error(t, err, "row added by a failed transaction must not exist")
	require.NoError(t, tx2.Rollback())
}

func testFinishedTransaction(t *testing.T, factory Factory) {
	r := open(t, factory)

	tx := begin(t, r)
	p := &Person{}
	require.NoError(t, rowaccess.Add(tx, p))
	require.NoError(t, tx.Commit())

	assert.True(t, errors.Is(tx.Commit(), rowaccess.ErrTransactionDone))
	_, err := tx.AddRow("Person")
	assert.True(t, errors.Is(err, rowaccess.ErrTransactionDone))

	p.SetFirstName("late")
	assert.True(t, errors.Is(tx.Err(), rowaccess.ErrTransactionDone))
}
