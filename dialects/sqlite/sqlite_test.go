package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap"
	"github.com/automap-go/automap/dialects/common"
	"github.com/automap-go/automap/dialects/sqlite"
	"github.com/automap-go/automap/schema"
)

type Customer struct {
	ID     int64
	Name   string
	City   *string
	Orders []*Order
}

type Order struct {
	ID         int64
	CustomerID int64
	Amount     float64
}

func openDB(t *testing.T) *common.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, ddl := range []string{
		`create table customers (id integer primary key, name text not null, city text)`,
		`create table orders (id integer primary key, customer_id integer references customers, amount real)`,
		`create view big_orders as select * from orders where amount > 100`,
	} {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}
	return db
}

func TestIntrospection(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	d, err := db.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name)
	assert.True(t, d.GeneratedKeys)

	refs, err := db.Tables(ctx, "", "", "%orders", []string{"TABLE"})
	require.NoError(t, err)
	assert.Equal(t, []schema.TableRef{{Name: "orders", Type: "TABLE"}}, refs)

	refs, err = db.Tables(ctx, "", "", "Customers", []string{"TABLE", "VIEW"})
	require.NoError(t, err)
	assert.Empty(t, refs, "exact lookups keep the case")

	refs, err = db.Tables(ctx, "", "", "big%", []string{"TABLE", "VIEW"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "VIEW", refs[0].Type)

	orders := schema.TableRef{Name: "orders", Type: "TABLE"}
	pks, err := db.PrimaryKeys(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pks)

	imported, err := db.ImportedKeys(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, []schema.Key{{LocalTable: "orders", LocalColumn: "customer_id", ForeignTable: "customers", ForeignColumn: "id"}}, imported)

	exported, err := db.ExportedKeys(ctx, schema.TableRef{Name: "customers", Type: "TABLE"})
	require.NoError(t, err)
	assert.Equal(t, []schema.Key{{LocalTable: "customers", LocalColumn: "id", ForeignTable: "orders", ForeignColumn: "customer_id"}}, exported)

	columns, err := db.Columns(ctx, orders)
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.True(t, columns[0].AutoIncrement)
	assert.False(t, columns[1].AutoIncrement)
	assert.True(t, columns[1].Nullable)

	_, err = db.Tables(ctx, "", "other", "%", nil)
	assert.NoError(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	db := openDB(t)
	m, err := automap.Open(db, &automap.Config{
		Classes: automap.NewClassManager(),
		Tracker: automap.NewWeakTracker(),
	})
	require.NoError(t, err)

	jane := &Customer{Name: "Jane", Orders: []*Order{{Amount: 10}, {Amount: 250}}}
	_, err = m.SaveObject(jane)
	require.NoError(t, err)
	assert.Equal(t, int64(1), jane.ID)
	assert.Equal(t, jane.ID, jane.Orders[1].CustomerID)
	assert.NotZero(t, jane.Orders[1].ID)

	loaded, err := automap.Load[Customer](m, "where :name = ?", "Jane")
	require.NoError(t, err)
	assert.Nil(t, loaded.City)
	require.Len(t, loaded.Orders, 2)
	assert.Equal(t, 250.0, loaded.Orders[1].Amount)

	city := "Oslo"
	loaded.City = &city
	_, err = m.UpdateObject(loaded)
	require.NoError(t, err)

	again, err := automap.Load[Customer](m, "where :id = ?", jane.ID)
	require.NoError(t, err)
	require.NotNil(t, again.City)
	assert.Equal(t, "Oslo", *again.City)

	// the foreign key is enforced
	_, err = m.InsertObject(&Order{CustomerID: 99, Amount: 1})
	assert.Error(t, err)
}

func TestTransactionRollback(t *testing.T) {
	db := openDB(t)
	m, err := automap.Open(db, &automap.Config{Classes: automap.NewClassManager()})
	require.NoError(t, err)

	err = m.Transaction(func(tx *automap.DB) error {
		if _, err := tx.InsertObject(&Customer{Name: "Temp"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	all, err := automap.LoadAll[Customer](m)
	require.NoError(t, err)
	assert.Empty(t, all)
}
