// Package common adapts database/sql connections to automap handles.
// Dialect packages only supply the schema queries of their database.
package common

import (
	"context"
	"database/sql"
	"strings"

	"github.com/automap-go/automap"
	"github.com/automap-go/automap/schema"
)

// Querier is the part of *sql.DB and *sql.Tx statements run on.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Introspector reads schema metadata of one database engine through q,
// the pool or the open transaction.
type Introspector interface {
	Describe(ctx context.Context, q Querier) (schema.Dialect, error)
	Tables(ctx context.Context, q Querier, catalog, schemaPattern, pattern string, types []string) ([]schema.TableRef, error)
	PrimaryKeys(ctx context.Context, q Querier, table schema.TableRef) ([]string, error)
	ImportedKeys(ctx context.Context, q Querier, table schema.TableRef) ([]schema.Key, error)
	ExportedKeys(ctx context.Context, q Querier, table schema.TableRef) ([]schema.Key, error)
	Columns(ctx context.Context, q Querier, table schema.TableRef) ([]schema.ColumnInfo, error)
}

// Binder is implemented by introspectors of databases that do not take
// ? placeholders. Rebind rewrites the statements the mapper generates.
type Binder interface {
	Rebind(query string) string
}

var (
	_ automap.Handle     = (*DB)(nil)
	_ automap.TxBeginner = (*DB)(nil)
	_ automap.Tx         = (*Tx)(nil)
)

type conn struct {
	q     Querier
	intro Introspector
}

func (c conn) rebind(query string) string {
	if b, ok := c.intro.(Binder); ok {
		return b.Rebind(query)
	}
	return query
}

func (c conn) QueryContext(ctx context.Context, query string, args ...interface{}) (automap.Rows, error) {
	rows, err := c.q.QueryContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c conn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.rebind(query), args...)
}

func (c conn) Describe(ctx context.Context) (schema.Dialect, error) {
	return c.intro.Describe(ctx, c.q)
}

func (c conn) Tables(ctx context.Context, catalog, schemaPattern, pattern string, types []string) ([]schema.TableRef, error) {
	return c.intro.Tables(ctx, c.q, catalog, schemaPattern, pattern, types)
}

func (c conn) PrimaryKeys(ctx context.Context, table schema.TableRef) ([]string, error) {
	return c.intro.PrimaryKeys(ctx, c.q, table)
}

func (c conn) ImportedKeys(ctx context.Context, table schema.TableRef) ([]schema.Key, error) {
	return c.intro.ImportedKeys(ctx, c.q, table)
}

func (c conn) ExportedKeys(ctx context.Context, table schema.TableRef) ([]schema.Key, error) {
	return c.intro.ExportedKeys(ctx, c.q, table)
}

func (c conn) Columns(ctx context.Context, table schema.TableRef) ([]schema.ColumnInfo, error) {
	return c.intro.Columns(ctx, c.q, table)
}

// DB is an automap.Handle over a *sql.DB.
type DB struct {
	conn
	db *sql.DB
}

// New wraps db. intro answers the schema queries.
func New(db *sql.DB, intro Introspector) *DB {
	return &DB{conn: conn{q: db, intro: intro}, db: db}
}

// Open opens the database with the named database/sql driver and
// checks the connection.
func Open(ctx context.Context, driverName, dsn string, intro Introspector) (*DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, intro), nil
}

// BeginTx starts a transaction. Statements and schema queries of the
// returned handle run on the transaction's connection.
func (db *DB) BeginTx(ctx context.Context) (automap.Tx, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{conn: conn{q: tx, intro: db.intro}, tx: tx}, nil
}

// SQLDB returns the wrapped *sql.DB.
func (db *DB) SQLDB() *sql.DB {
	return db.db
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Tx is an automap.Tx over a *sql.Tx.
type Tx struct {
	conn
	tx *sql.Tx
}

func (tx *Tx) Commit() error {
	return tx.tx.Commit()
}

func (tx *Tx) Rollback() error {
	return tx.tx.Rollback()
}

// Collect scans every row of a query with scan and closes the rows.
func Collect[T any](rows *sql.Rows, err error, scan func(*sql.Rows) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Placeholders returns n comma separated ? placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// Args converts strings to statement arguments.
func Args(values ...string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
