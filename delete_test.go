package automap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap"
)

func TestDeletePersistentObject(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)
	env.DB.Classes().SetIgnoreAssociations(Customer{}, true)

	c := &Customer{Name: "John"}
	require.NoError(t, env.DB.LoadObject(c))
	// key values are tracked, not read from the fields
	c.ID = 0

	env.Store.ResetLog()
	n, err := env.DB.DeleteObject(c)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, `delete from "customers" where "id" = ?`, env.Store.SQL()[0])
	assert.Equal(t, []interface{}{int64(2)}, env.Store.Statements()[0].Args)
	assert.False(t, env.DB.IsPersistent(c))
	assert.Len(t, env.Store.Rows("customers"), 2)
}

func TestDeleteByExample(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	n, err := env.DB.DeleteObject(&Customer{City: "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, `delete from "customers" where "city" = ?`, env.Store.SQL()[0])

	n, err = env.DB.DeleteObject(&Customer{}, "where :creditLimit > ?", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, `delete from "customers" where "credit_limit" > ?`, env.Store.SQL()[1])
	assert.Empty(t, env.Store.Rows("customers"))
}

func TestDeleteRequiresConditions(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	_, err := env.DB.DeleteObject(&Customer{})
	assert.ErrorIs(t, err, automap.ErrMissingWhereClause)
	assert.Len(t, env.Store.Rows("customers"), 3)

	_, err = env.DB.DeleteObject(&Customer{}, `from "orders" where "amount" > ?`, 25)
	require.NoError(t, err)
	assert.Equal(t, `delete from "orders" where "amount" > ?`, env.Store.SQL()[0])
	assert.Len(t, env.Store.Rows("orders"), 2)
}

type Scratch struct {
	automap.GlobalDelete
	Name  string
	Value int
}

func TestGlobalDelete(t *testing.T) {
	env := newEnv(t)
	env.DB.Classes().SetTableMapping(Scratch{}, "products")
	env.DB.Classes().SetColumnMapping(Scratch{}, map[string]string{"Name": "title", "Value": "price"})
	require.NoError(t, env.Store.Seed("products",
		map[string]interface{}{"code": "a"},
		map[string]interface{}{"code": "b"},
	))

	n, err := env.DB.DeleteObject(&Scratch{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, `delete from "products"`, env.Store.SQL()[0])
}

func TestDeleteSubclassDeletesBaseRow(t *testing.T) {
	env := newEnv(t)
	e := &Employee{Person: Person{Name: "Jane"}, Salary: 10}
	_, err := env.DB.SaveObject(e)
	require.NoError(t, err)

	env.Store.ResetLog()
	_, err = env.DB.DeleteObject(e)
	require.NoError(t, err)
	assert.Equal(t, []string{`delete from "people" where "id" = ?`}, env.Store.SQL())
}
