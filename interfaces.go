package automap

import (
	"context"
	"database/sql"

	"github.com/automap-go/automap/schema"
)

// Rows is a forward cursor over a query result. *sql.Rows satisfies it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// ConnPool db conns pool interface
type ConnPool interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Handle is a connection pool that can also describe its schema.
type Handle interface {
	ConnPool
	schema.Introspector
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type TxCommitter interface {
	Commit() error
	Rollback() error
}

// Tx is a transaction. It introspects through its own connection.
type Tx interface {
	Handle
	TxCommitter
}

// GeneratedKeysSetter lets an object populate its generated keys after
// an insert instead of the built-in strategies. It reports whether the
// keys were handled.
type GeneratedKeysSetter interface {
	SetGeneratedKeys(tx *DB, table *schema.Table) (bool, error)
}

type BeforeSaveInterface interface {
	BeforeSave(*DB) error
}

type AfterSaveInterface interface {
	AfterSave(*DB) error
}

type BeforeDeleteInterface interface {
	BeforeDelete(*DB) error
}

type AfterDeleteInterface interface {
	AfterDelete(*DB) error
}

type AfterFindInterface interface {
	AfterFind(*DB) error
}
