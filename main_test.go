package automap_test

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"github.com/automap-go/automap"
	"github.com/automap-go/automap/internal/testdb"
	"github.com/automap-go/automap/logger"
	"github.com/automap-go/automap/schema"
)

type Customer struct {
	ID          int64
	Name        string
	City        string
	CreditLimit int
	Orders      []*Order
}

type Order struct {
	ID         int64
	CustomerID int64
	Amount     float64
	Customer   *Customer
}

type Product struct {
	Code  string
	Title string
	Price *float64
}

type Person struct {
	ID   int64
	Name string
}

type Employee struct {
	Person
	Salary int
}

type Manager struct {
	automap.SingleTable
	Employee
	Level int
}

type Note struct {
	ID   *int64
	Text *string
}

type CustomerTotal struct {
	CustomerID int64
	Total      float64
}

type logBuffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (w *logBuffer) Printf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(&w.Buffer, format, args...)
	w.WriteByte('\n')
}

func (w *logBuffer) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Buffer.String()
}

type testEnv struct {
	DB      *automap.DB
	Store   *testdb.DB
	Log     *logBuffer
	Metrics tally.TestScope
}

// tables are the tables the tests map to.
var tables = []string{
	`create table customers (id integer primary key, name text not null, city text, credit_limit integer)`,
	`create table orders (id integer primary key, customer_id integer references customers(id), amount real)`,
	`create table products (code text primary key, title text, price real)`,
	`create table people (id integer primary key, name text, salary integer, level integer)`,
	`create table employees (id int primary key references people(id), salary integer)`,
	`create table notes (id int primary key, text text)`,
	`create view customertotals as select customer_id, sum(amount) as total from orders group by customer_id`,
}

func open(t *testing.T, handle automap.Handle, configure ...func(*automap.Config)) *testEnv {
	t.Helper()
	env := &testEnv{Log: &logBuffer{}, Metrics: tally.NewTestScope("", nil)}
	config := &automap.Config{
		Logger:  logger.New(env.Log, logger.Config{LogLevel: logger.Warn}),
		Classes: automap.NewClassManager(),
		Metrics: env.Metrics,
	}
	for _, fc := range configure {
		fc(config)
	}
	db, err := automap.Open(handle, config)
	require.NoError(t, err)
	env.DB = db
	return env
}

// newEnv opens a mapper over the test tables of a fresh SQLite database.
func newEnv(t *testing.T, configure ...func(*automap.Config)) *testEnv {
	t.Helper()
	return newEnvWith(t, nil, configure...)
}

// newEnvWith is newEnv on a database whose description is edited by
// dialect, to act like engines reporting keys in other ways.
func newEnvWith(t *testing.T, dialect func(*schema.Dialect), configure ...func(*automap.Config)) *testEnv {
	t.Helper()
	store := testdb.Open(t, tables...)
	store.Dialect = dialect
	env := open(t, store, configure...)
	env.Store = store
	return env
}

// newMockEnv opens a mapper whose statements go to a sqlmock connection.
func newMockEnv(t *testing.T, configure ...func(*automap.Config)) (*testEnv, sqlmock.Sqlmock) {
	t.Helper()
	store, mock := testdb.Mock(t, tables...)
	env := open(t, store, configure...)
	env.Store = store
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return env, mock
}

// withoutKeys describes a database returning no generated keys.
func withoutKeys(d *schema.Dialect) {
	d.GeneratedKeys, d.Returning = false, false
}

func (env *testEnv) counter(name string) int64 {
	for _, c := range env.Metrics.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

func (env *testEnv) seedCustomers(t *testing.T) {
	t.Helper()
	require.NoError(t, env.Store.Seed("customers",
		map[string]interface{}{"name": "Jane", "city": "Oslo", "credit_limit": 100},
		map[string]interface{}{"name": "John", "city": "Rome", "credit_limit": 200},
		map[string]interface{}{"name": "Mary", "city": "Oslo", "credit_limit": 300},
	))
	require.NoError(t, env.Store.Seed("orders",
		map[string]interface{}{"customer_id": 1, "amount": 10.5},
		map[string]interface{}{"customer_id": 1, "amount": 20},
		map[string]interface{}{"customer_id": 2, "amount": 30},
	))
}

func float(v float64) *float64 { return &v }
