// Package testdb runs the package tests on SQLite databases in temporary
// files. DB records the statements the mapper runs and can report the
// database the way another engine would describe it.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap"
	"github.com/automap-go/automap/dialects/common"
	"github.com/automap-go/automap/dialects/sqlite"
	"github.com/automap-go/automap/schema"
)

var (
	_ automap.Handle     = (*DB)(nil)
	_ automap.TxBeginner = (*DB)(nil)
	_ automap.Tx         = (*Tx)(nil)
)

// Statement is a statement run by the mapper.
type Statement struct {
	SQL  string
	Args []interface{}
}

// DB is an automap handle over a SQLite database. Statements run through
// it and transactions begun on it are counted; schema queries, Exec and
// Seed are not.
type DB struct {
	meta

	// Dialect, when set, edits the description of the database.
	Dialect func(*schema.Dialect)

	data   *common.DB
	conn   *common.DB
	mocked bool

	mu                           sync.Mutex
	statements                   []Statement
	begun, committed, rolledBack int
}

// Open creates a database in a temporary directory of t and runs ddl on
// it. Foreign keys are not enforced, so rows can be seeded in any order.
func Open(t testing.TB, ddl ...string) *DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)"
	data, err := sqlite.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = data.Close() })

	db := &DB{data: data, conn: data}
	db.meta = meta{db: db, src: data}
	require.NoError(t, db.Exec(ddl...))
	return db
}

// Mock is Open with statements and transactions sent to a sqlmock
// connection matching statements by their exact text. Schema queries
// still read the SQLite database.
func Mock(t testing.TB, ddl ...string) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db := Open(t, ddl...)
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db.conn = common.New(conn, sqlite.Introspector{})
	db.mocked = true
	return db, mock
}

func (db *DB) record(query string, args []interface{}) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.statements = append(db.statements, Statement{SQL: query, Args: args})
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (automap.Rows, error) {
	db.record(query, args)
	return db.conn.QueryContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db.record(query, args)
	return db.conn.ExecContext(ctx, query, args...)
}

func (db *DB) BeginTx(ctx context.Context) (automap.Tx, error) {
	tx, err := db.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.begun++
	db.mu.Unlock()

	var src schema.Introspector = tx
	if db.mocked {
		src = db.data
	}
	return &Tx{meta: meta{db: db, src: src}, tx: tx}, nil
}

// WithoutTransactions returns the handle without BeginTx, like a
// connection that cannot start transactions.
func (db *DB) WithoutTransactions() automap.Handle {
	return struct{ automap.Handle }{db}
}

// Exec runs statements on the database without recording them.
func (db *DB) Exec(statements ...string) error {
	for _, s := range statements {
		if _, err := db.data.SQLDB().Exec(s); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	return nil
}

// Seed inserts rows into table without recording the statements.
func (db *DB) Seed(table string, rows ...map[string]interface{}) error {
	for _, row := range rows {
		columns := make([]string, 0, len(row))
		for name := range row {
			columns = append(columns, name)
		}
		sort.Strings(columns)

		args := make([]interface{}, len(columns))
		for i, name := range columns {
			args[i] = row[name]
			columns[i] = `"` + name + `"`
		}
		query := fmt.Sprintf(`insert into "%s" (%s) values(%s)`, table, strings.Join(columns, ", "), common.Placeholders(len(args)))
		if _, err := db.data.SQLDB().Exec(query, args...); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	return nil
}

// Rows returns the committed rows of table in insertion order, keyed by
// column name. It returns nil when the table cannot be read.
func (db *DB) Rows(table string) []map[string]interface{} {
	rows, err := db.data.SQLDB().Query(fmt.Sprintf(`select * from "%s" order by rowid`, table))
	if err != nil {
		return nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil
	}
	var list []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil
		}
		row := make(map[string]interface{}, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		list = append(list, row)
	}
	return list
}

// Statements returns the statements run since the last ResetLog.
func (db *DB) Statements() []Statement {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]Statement(nil), db.statements...)
}

// SQL returns the text of Statements.
func (db *DB) SQL() []string {
	var list []string
	for _, s := range db.Statements() {
		list = append(list, s.SQL)
	}
	return list
}

// ResetLog forgets the recorded statements.
func (db *DB) ResetLog() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.statements = nil
}

// Transactions counts begun transactions, successful commits and
// rollbacks.
func (db *DB) Transactions() (begun, committed, rolledBack int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.begun, db.committed, db.rolledBack
}

// Tx is a transaction begun on DB.
type Tx struct {
	meta
	tx automap.Tx
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (automap.Rows, error) {
	tx.db.record(query, args)
	return tx.tx.QueryContext(ctx, query, args...)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	tx.db.record(query, args)
	return tx.tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) Commit() error {
	if err := tx.tx.Commit(); err != nil {
		return err
	}
	tx.db.mu.Lock()
	tx.db.committed++
	tx.db.mu.Unlock()
	return nil
}

func (tx *Tx) Rollback() error {
	tx.db.mu.Lock()
	tx.db.rolledBack++
	tx.db.mu.Unlock()
	return tx.tx.Rollback()
}

// meta answers schema queries from src, applying the Dialect edits of db.
type meta struct {
	db  *DB
	src schema.Introspector
}

func (m meta) Describe(ctx context.Context) (schema.Dialect, error) {
	d, err := m.src.Describe(ctx)
	if err != nil {
		return d, err
	}
	if m.db.Dialect != nil {
		m.db.Dialect(&d)
	}
	return d, nil
}

func (m meta) Tables(ctx context.Context, catalog, schemaPattern, pattern string, types []string) ([]schema.TableRef, error) {
	return m.src.Tables(ctx, catalog, schemaPattern, pattern, types)
}

func (m meta) PrimaryKeys(ctx context.Context, table schema.TableRef) ([]string, error) {
	return m.src.PrimaryKeys(ctx, table)
}

func (m meta) ImportedKeys(ctx context.Context, table schema.TableRef) ([]schema.Key, error) {
	return m.src.ImportedKeys(ctx, table)
}

func (m meta) ExportedKeys(ctx context.Context, table schema.TableRef) ([]schema.Key, error) {
	return m.src.ExportedKeys(ctx, table)
}

func (m meta) Columns(ctx context.Context, table schema.TableRef) ([]schema.ColumnInfo, error) {
	return m.src.Columns(ctx, table)
}
