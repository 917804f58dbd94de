package automap_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap"
)

func TestLoadArrayAssociation(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	c := &Customer{ID: 1}
	require.NoError(t, env.DB.LoadObject(c))
	require.Len(t, c.Orders, 2)
	assert.Equal(t, 10.5, c.Orders[0].Amount)
	assert.Equal(t, float64(20), c.Orders[1].Amount)
	assert.Contains(t, env.Store.SQL(), `select * from "orders" where "customer_id" = ?`)

	// the reference back is loaded without going round the cycle again
	require.NotNil(t, c.Orders[0].Customer)
	assert.Equal(t, "Jane", c.Orders[0].Customer.Name)
	assert.Nil(t, c.Orders[0].Customer.Orders)
}

func TestLoadSingleAssociation(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	o := &Order{ID: 3}
	require.NoError(t, env.DB.LoadObject(o))
	require.NotNil(t, o.Customer)
	assert.Equal(t, "John", o.Customer.Name)
	assert.Contains(t, env.Store.SQL(), `select * from "customers" where "id" = ?`)
}

func TestIgnoreAssociations(t *testing.T) {
	env := newEnv(t, func(c *automap.Config) {
		ignore := true
		c.IgnoreAssociations = &ignore
	})
	env.seedCustomers(t)

	c := &Customer{ID: 1}
	require.NoError(t, env.DB.LoadObject(c))
	assert.Nil(t, c.Orders)
	assert.Len(t, env.Store.SQL(), 1)

	require.NoError(t, env.DB.LoadAssociations(c))
	assert.Len(t, c.Orders, 2)
}

type Account struct {
	ID      int64
	Name    string
	Entries automap.List[*Entry]
}

type Entry struct {
	ID        int64
	AccountID int64
	Amount    int
}

func newLedger(t *testing.T) *testEnv {
	t.Helper()
	env := newEnv(t)
	require.NoError(t, env.Store.Exec(
		`create table accounts (id integer primary key, name text)`,
		`create table entries (id integer primary key, account_id integer references accounts(id), amount integer)`,
	))
	require.NoError(t, env.Store.Seed("accounts", map[string]interface{}{"name": "cash"}))
	require.NoError(t, env.Store.Seed("entries",
		map[string]interface{}{"account_id": 1, "amount": 5},
		map[string]interface{}{"account_id": 1, "amount": 7},
	))
	return env
}

func TestLazyCollection(t *testing.T) {
	env := newLedger(t)

	a := &Account{ID: 1}
	require.NoError(t, env.DB.LoadObject(a))
	assert.False(t, a.Entries.Loaded())
	assert.Len(t, env.Store.SQL(), 1)

	assert.Equal(t, 2, a.Entries.Len())
	assert.True(t, a.Entries.Loaded())
	assert.Equal(t, 7, a.Entries.At(1).Amount)
	assert.Len(t, env.Store.SQL(), 2)

	// loaded once
	a.Entries.Items()
	assert.Len(t, env.Store.SQL(), 2)
}

func TestLazyCollectionOutlivesTransaction(t *testing.T) {
	env := newLedger(t)

	a := &Account{ID: 1}
	require.NoError(t, env.DB.Transaction(func(tx *automap.DB) error {
		return tx.LoadObject(a)
	}))
	require.NoError(t, a.Entries.Load())
	assert.Equal(t, 2, a.Entries.Len())
}

func TestEagerCollection(t *testing.T) {
	env := newLedger(t)
	env.DB.Classes().SetLazyLoading(Account{}, false)

	a := &Account{ID: 1}
	require.NoError(t, env.DB.LoadObject(a))
	assert.True(t, a.Entries.Loaded())
	assert.Len(t, env.Store.SQL(), 2)
	assert.Equal(t, 2, a.Entries.Len())
}

func TestSaveAssociations(t *testing.T) {
	env := newEnv(t)

	c := &Customer{Name: "Jane", Orders: []*Order{{Amount: 5}, {Amount: 6}}}
	_, err := env.DB.SaveObject(c)
	require.NoError(t, err)

	orders := env.Store.Rows("orders")
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0]["customer_id"])
	assert.Equal(t, int64(1), orders[1]["customer_id"])
	assert.Equal(t, c.ID, c.Orders[1].CustomerID)
	assert.True(t, env.DB.IsPersistent(c.Orders[0]))
}

func TestSaveImportedReferenceFirst(t *testing.T) {
	env := newEnv(t)

	o := &Order{Amount: 9, Customer: &Customer{Name: "Jane"}}
	_, err := env.DB.SaveObject(o)
	require.NoError(t, err)

	assert.Equal(t, `insert into "customers" ("name", "city", "credit_limit") values(?, ?, ?)`, env.Store.SQL()[0])
	assert.Equal(t, `insert into "orders" ("customer_id", "amount") values(?, ?)`, env.Store.SQL()[1])
	assert.Equal(t, int64(1), o.CustomerID)
	assert.Equal(t, int64(1), env.Store.Rows("orders")[0]["customer_id"])
}

func TestSaveCollectionAssociation(t *testing.T) {
	env := newLedger(t)

	a := &Account{Name: "bank"}
	a.Entries.Append(&Entry{Amount: 1}, &Entry{Amount: 2})
	_, err := env.DB.SaveObject(a)
	require.NoError(t, err)

	var saved int
	for _, e := range env.Store.Rows("entries") {
		if e["account_id"] == int64(2) {
			saved++
		}
	}
	assert.Equal(t, 2, saved)
}

type Tag struct {
	ID   int64
	Name string
}

type Label struct {
	ID   int64
	Text string
	Tags []Tag
}

func TestAssociationWithoutKeyRelation(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.Store.Exec(
		`create table tags (id int primary key, name text)`,
		`create table labels (id int primary key, text text)`,
	))
	require.NoError(t, env.Store.Seed("labels", map[string]interface{}{"id": 1, "text": "x"}))

	err := env.DB.LoadObject(&Label{ID: 1})
	assert.ErrorIs(t, err, automap.ErrMissingKeyRelation)
	assert.ErrorContains(t, err, "Tags")
}

type Memo struct {
	ID          int64
	Attachments []Attachment
}

type Attachment struct {
	ID   int64
	Name string
}

func TestAssociationWithoutTableIsSkipped(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.Store.Exec(`create table memos (id int primary key)`))
	require.NoError(t, env.Store.Seed("memos", map[string]interface{}{"id": 1}))

	m := &Memo{ID: 1}
	require.NoError(t, env.DB.LoadObject(m))
	assert.Empty(t, m.Attachments)
	assert.Contains(t, env.Log.String(), "association Memo.Attachments skipped")
	assert.Equal(t, int64(1), env.counter("engine.association_skipped"))
}

func TestAssociationWithoutKeyValuesIsSkipped(t *testing.T) {
	env := newEnv(t)

	// an unsaved customer has no id for its orders to reference
	c := &Customer{Name: "Jane"}
	require.NoError(t, env.DB.LoadAssociations(c))
	assert.Empty(t, c.Orders)
	assert.Contains(t, env.Log.String(), "has no key values")
}

func TestAssociationErrorsAreWrapped(t *testing.T) {
	env, mock := newMockEnv(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`select * from "customers" where "id" = ?`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "city", "credit_limit"}).AddRow(int64(1), "Jane", "Oslo", int64(100)))
	mock.ExpectQuery(`select * from "orders" where "customer_id" = ?`).
		WithArgs(1).
		WillReturnError(boom)

	err := env.DB.LoadObject(&Customer{ID: 1})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "load Customer.Orders")
}
