package automap

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/automap-go/automap/logger"
	"github.com/automap-go/automap/schema"
)

// Statement builds one SQL statement with ? placeholders.
type Statement struct {
	SQL     strings.Builder
	Vars    []interface{}
	dialect schema.Dialect
}

func (db *DB) statement() *Statement {
	return &Statement{dialect: db.dialect()}
}

// Write write string
func (stmt *Statement) Write(sql ...string) {
	for _, s := range sql {
		stmt.SQL.WriteString(s)
	}
}

// WriteQuoted write quoted identifier
func (stmt *Statement) WriteQuoted(name string) {
	stmt.SQL.WriteString(stmt.dialect.Quote(name))
}

// WriteTable write the quoted, schema qualified table name
func (stmt *Statement) WriteTable(table *schema.Table) {
	stmt.SQL.WriteString(stmt.dialect.QuoteTable(table))
}

// AddVar binds v to a new placeholder
func (stmt *Statement) AddVar(v interface{}) {
	stmt.SQL.WriteByte('?')
	stmt.Vars = append(stmt.Vars, v)
}

// Append writes the SQL and vars of other.
func (stmt *Statement) Append(other *Statement) {
	stmt.SQL.WriteString(other.SQL.String())
	stmt.Vars = append(stmt.Vars, other.Vars...)
}

func (stmt *Statement) Empty() bool {
	return stmt.SQL.Len() == 0
}

func (stmt *Statement) String() string {
	return stmt.SQL.String()
}

// exec runs a statement that returns no rows.
func (db *DB) exec(ctx context.Context, sql string, vars []interface{}) (sql.Result, error) {
	begin := time.Now()
	result, err := db.conn.ExecContext(ctx, sql, vars...)
	rows := int64(-1)
	if err == nil {
		if n, e := result.RowsAffected(); e == nil {
			rows = n
		}
	}
	db.trace(ctx, begin, sql, vars, rows, err)
	return result, err
}

// query runs a statement and buffers all of its rows.
func (db *DB) query(ctx context.Context, sql string, vars []interface{}) (*Result, error) {
	begin := time.Now()
	rows, err := db.conn.QueryContext(ctx, sql, vars...)
	var res *Result
	if err == nil {
		res, err = db.readRows(ctx, rows)
	}
	n := int64(-1)
	if res != nil {
		n = int64(len(res.rows))
	}
	db.trace(ctx, begin, sql, vars, n, err)
	return res, err
}

func (db *DB) readRows(ctx context.Context, rows Rows) (res *Result, err error) {
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res = newResult(db, ctx, columns)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		res.rows = append(res.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (db *DB) trace(ctx context.Context, begin time.Time, sql string, vars []interface{}, rows int64, err error) {
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		db.metrics.errors.Inc(1)
	}
	db.Logger.Trace(ctx, begin, func() (string, int64) {
		if filter, ok := db.Logger.(logger.ParamsFilter); ok {
			sql, vars = filter.ParamsFilter(ctx, sql, vars...)
		}
		return logger.ExplainSQL(sql, nil, `'`, vars...), rows
	}, err)
}
