package automap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap"
	"github.com/automap-go/automap/internal/testdb"
)

func TestTransactionCommit(t *testing.T) {
	env := newEnv(t)

	err := env.DB.Transaction(func(tx *automap.DB) error {
		if _, err := tx.InsertObject(&Customer{Name: "Jane"}); err != nil {
			return err
		}
		// nested calls join the open transaction
		return tx.Transaction(func(tx *automap.DB) error {
			_, err := tx.SaveObject(&Customer{Name: "John"})
			return err
		})
	})
	require.NoError(t, err)
	assert.Len(t, env.Store.Rows("customers"), 2)

	begun, committed, rolledBack := env.Store.Transactions()
	assert.Equal(t, 1, begun)
	assert.Equal(t, 1, committed)
	assert.Zero(t, rolledBack)
}

func TestTransactionRollback(t *testing.T) {
	env := newEnv(t)
	boom := errors.New("boom")

	err := env.DB.Transaction(func(tx *automap.DB) error {
		if _, err := tx.InsertObject(&Customer{Name: "Jane"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, env.Store.Rows("customers"))

	_, _, rolledBack := env.Store.Transactions()
	assert.Equal(t, 1, rolledBack)
}

func TestTransactionRollbackOnPanic(t *testing.T) {
	env := newEnv(t)

	assert.Panics(t, func() {
		_ = env.DB.Transaction(func(tx *automap.DB) error {
			_, _ = tx.InsertObject(&Customer{Name: "Jane"})
			panic("oops")
		})
	})
	assert.Empty(t, env.Store.Rows("customers"))
	_, _, rolledBack := env.Store.Transactions()
	assert.Equal(t, 1, rolledBack)
}

func TestTransactionRollbackError(t *testing.T) {
	env, mock := newMockEnv(t)
	boom, closed := errors.New("boom"), errors.New("connection closed")

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(closed)

	err := env.DB.Transaction(func(*automap.DB) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, closed)
}

func TestTransactionCommitError(t *testing.T) {
	env, mock := newMockEnv(t)
	failure := errors.New("serialization failure")

	mock.ExpectBegin()
	mock.ExpectExec(`insert into "customers" ("name", "city", "credit_limit") values(?, ?, ?)`).
		WithArgs("Jane", "", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(failure)

	_, err := env.DB.SaveObject(&Customer{Name: "Jane"})
	assert.ErrorIs(t, err, failure)
	assert.ErrorContains(t, err, "commit")

	// a failed commit is not rolled back
	begun, committed, rolledBack := env.Store.Transactions()
	assert.Equal(t, 1, begun)
	assert.Zero(t, committed)
	assert.Zero(t, rolledBack)
}

func TestHandleWithoutTransactions(t *testing.T) {
	store := testdb.Open(t, tables...)
	env := open(t, store.WithoutTransactions())

	err := env.DB.Transaction(func(*automap.DB) error { return nil })
	assert.ErrorIs(t, err, automap.ErrInvalidTransaction)

	// writes still run, one statement at a time
	_, err = env.DB.SaveObject(&Customer{Name: "Jane"})
	require.NoError(t, err)
	assert.Len(t, store.Rows("customers"), 1)
	begun, _, _ := store.Transactions()
	assert.Zero(t, begun)
}

func TestSkipDefaultTransaction(t *testing.T) {
	env := newEnv(t, func(c *automap.Config) { c.SkipDefaultTransaction = true })

	_, err := env.DB.SaveObject(&Customer{Name: "Jane"})
	require.NoError(t, err)
	begun, _, _ := env.Store.Transactions()
	assert.Zero(t, begun)

	session := newEnv(t).DB.Session(&automap.Session{SkipDefaultTransaction: true})
	assert.True(t, session.SkipDefaultTransaction)
}

func TestTransactionHandle(t *testing.T) {
	env := newEnv(t)
	assert.Same(t, env.Store, env.DB.Handle())

	require.NoError(t, env.DB.Transaction(func(tx *automap.DB) error {
		assert.NotSame(t, env.Store, tx.Handle())
		_, ok := tx.Handle().(automap.Tx)
		assert.True(t, ok)
		return nil
	}))
}

func TestCanceledContext(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.DB.WithContext(ctx).QueryObject(&Customer{Name: "Jane"})
	assert.ErrorIs(t, err, context.Canceled)

	err = env.DB.WithContext(ctx).Transaction(func(*automap.DB) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionKeepsParentConfig(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	ignore := true
	session := env.DB.Session(&automap.Session{IgnoreAssociations: &ignore})
	assert.Nil(t, env.DB.IgnoreAssociations)

	c := &Customer{ID: 1}
	require.NoError(t, session.LoadObject(c))
	assert.Nil(t, c.Orders)

	require.NoError(t, env.DB.LoadObject(c))
	assert.Len(t, c.Orders, 2)
}

func TestDebugLogsStatements(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)

	_, err := env.DB.Debug().ExecuteQuery(`select * from "customers"`)
	require.NoError(t, err)
	assert.Contains(t, env.Log.String(), `select * from "customers"`)
	assert.Contains(t, env.Log.String(), "[rows:3]")
}
