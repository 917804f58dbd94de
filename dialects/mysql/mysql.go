// Package mysql opens MySQL and MariaDB databases with
// github.com/go-sql-driver/mysql and reads their schema from
// information_schema.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/automap-go/automap/dialects/common"
	"github.com/automap-go/automap/schema"
)

// DriverName is the database/sql driver registered by go-sql-driver/mysql.
const DriverName = "mysql"

// Open opens dsn, in the go-sql-driver/mysql format. Time columns are
// parsed into time.Time.
func Open(ctx context.Context, dsn string) (*common.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return common.New(db, Introspector{URL: DatabaseURL(cfg)}), nil
}

// DatabaseURL identifies the database of cfg without its credentials.
func DatabaseURL(cfg *mysql.Config) string {
	return fmt.Sprintf("mysql://%s/%s", cfg.Addr, cfg.DBName)
}

// Introspector answers schema queries of a MySQL database. Without a
// schema pattern only the current database is searched.
type Introspector struct {
	URL string
}

func (i Introspector) Describe(ctx context.Context, q common.Querier) (schema.Dialect, error) {
	d := schema.Dialect{
		Name:            "mysql",
		URL:             i.URL,
		StoresCase:      schema.StoresMixed,
		IdentifierQuote: "`",
		GeneratedKeys:   true,
	}
	rows, err := q.QueryContext(ctx, "select @@lower_case_table_names")
	modes, err := common.Collect(rows, err, func(rows *sql.Rows) (int, error) {
		var mode int
		err := rows.Scan(&mode)
		return mode, err
	})
	if err != nil {
		return d, err
	}
	if len(modes) > 0 && modes[0] != 0 {
		d.StoresCase = schema.StoresLower
	}
	return d, nil
}

func schemaCondition(column, schemaPattern string) (string, []interface{}) {
	if schemaPattern == "" {
		return column + " = database()", nil
	}
	return column + " like ?", []interface{}{schemaPattern}
}

func (Introspector) Tables(ctx context.Context, q common.Querier, _, schemaPattern, pattern string, types []string) ([]schema.TableRef, error) {
	cond, args := schemaCondition("table_schema", schemaPattern)
	query := "select table_schema, table_name, table_type from information_schema.tables where " + cond + " and table_name like ?"
	args = append(args, pattern)

	var kinds []string
	for _, t := range types {
		switch strings.ToUpper(t) {
		case "TABLE":
			kinds = append(kinds, "BASE TABLE")
		case "VIEW", "SYSTEM VIEW":
			kinds = append(kinds, strings.ToUpper(t))
		}
	}
	if len(types) > 0 {
		if len(kinds) == 0 {
			return nil, nil
		}
		query += " and table_type in (" + common.Placeholders(len(kinds)) + ")"
		args = append(args, common.Args(kinds...)...)
	}

	rows, err := q.QueryContext(ctx, query+" order by table_schema, table_name", args...)
	return common.Collect(rows, err, func(rows *sql.Rows) (schema.TableRef, error) {
		var ref schema.TableRef
		err := rows.Scan(&ref.Schema, &ref.Name, &ref.Type)
		if ref.Type == "BASE TABLE" {
			ref.Type = "TABLE"
		}
		if schemaPattern == "" {
			// the current database needs no qualification
			ref.Schema = ""
		}
		return ref, err
	})
}

func tableCondition(table schema.TableRef, prefix string) (string, []interface{}) {
	cond, args := schemaCondition(prefix+"table_schema", table.Schema)
	if table.Schema != "" {
		cond = prefix + "table_schema = ?"
	}
	return cond + " and " + prefix + "table_name = ?", append(args, table.Name)
}

func (Introspector) PrimaryKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]string, error) {
	cond, args := tableCondition(table, "")
	rows, err := q.QueryContext(ctx, "select column_name from information_schema.key_column_usage where constraint_name = 'PRIMARY' and "+
		cond+" order by ordinal_position", args...)
	return common.Collect(rows, err, func(rows *sql.Rows) (string, error) {
		var name string
		err := rows.Scan(&name)
		return name, err
	})
}

func queryKeys(ctx context.Context, q common.Querier, cond string, args []interface{}) ([]schema.Key, error) {
	rows, err := q.QueryContext(ctx, `select table_schema, table_name, column_name,
  referenced_table_schema, referenced_table_name, referenced_column_name
from information_schema.key_column_usage
where referenced_table_name is not null and `+cond+`
order by table_name, ordinal_position`, args...)
	return common.Collect(rows, err, func(rows *sql.Rows) (schema.Key, error) {
		var k schema.Key
		err := rows.Scan(&k.LocalSchema, &k.LocalTable, &k.LocalColumn, &k.ForeignSchema, &k.ForeignTable, &k.ForeignColumn)
		return k, err
	})
}

func (Introspector) ImportedKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.Key, error) {
	cond, args := tableCondition(table, "")
	return queryKeys(ctx, q, cond, args)
}

func (Introspector) ExportedKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.Key, error) {
	cond, args := tableCondition(table, "referenced_")
	keys, err := queryKeys(ctx, q, cond, args)
	for i := range keys {
		k := &keys[i]
		k.LocalSchema, k.ForeignSchema = k.ForeignSchema, k.LocalSchema
		k.LocalTable, k.ForeignTable = k.ForeignTable, k.LocalTable
		k.LocalColumn, k.ForeignColumn = k.ForeignColumn, k.LocalColumn
	}
	return keys, err
}

func (Introspector) Columns(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.ColumnInfo, error) {
	cond, args := tableCondition(table, "")
	rows, err := q.QueryContext(ctx, `select column_name, data_type,
  coalesce(character_maximum_length, numeric_precision, 0), coalesce(numeric_scale, 0),
  is_nullable = 'YES', extra like '%auto_increment%', extra like '%GENERATED%'
from information_schema.columns
where `+cond+`
order by ordinal_position`, args...)
	return common.Collect(rows, err, func(rows *sql.Rows) (schema.ColumnInfo, error) {
		info := schema.ColumnInfo{Radix: 10, Searchable: true}
		err := rows.Scan(&info.Name, &info.TypeName, &info.Size, &info.Scale,
			&info.Nullable, &info.AutoIncrement, &info.ReadOnly)
		return info, err
	})
}
