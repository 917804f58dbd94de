// Package postgres opens PostgreSQL databases through the pgx stdlib
// driver, or lib/pq, and reads their schema from information_schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/automap-go/automap/dialects/common"
	"github.com/automap-go/automap/schema"
)

const (
	// DriverPgx is the driver registered by github.com/jackc/pgx/v5/stdlib.
	DriverPgx = "pgx"
	// DriverPq is the driver registered by github.com/lib/pq.
	DriverPq = "postgres"
)

// Open opens dsn, a URL or keyword/value connection string, with pgx.
func Open(ctx context.Context, dsn string) (*common.DB, error) {
	return OpenWith(ctx, DriverPgx, dsn)
}

// OpenWith opens dsn with the named driver, DriverPgx or DriverPq.
func OpenWith(ctx context.Context, driverName, dsn string) (*common.DB, error) {
	url, err := DatabaseURL(dsn)
	if err != nil {
		return nil, err
	}
	return common.Open(ctx, driverName, dsn, Introspector{URL: url})
}

// DatabaseURL identifies the database of dsn without its credentials.
func DatabaseURL(dsn string) (string, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	return fmt.Sprintf("postgresql://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database), nil
}

// Introspector answers schema queries of a PostgreSQL database.
type Introspector struct {
	URL string
}

func (i Introspector) Describe(context.Context, common.Querier) (schema.Dialect, error) {
	return schema.Dialect{
		Name:       "postgres",
		URL:        i.URL,
		StoresCase: schema.StoresLower,
		Returning:  true,
	}, nil
}

// Rebind replaces ? placeholders with $1, $2... outside of quoted text.
func (Introspector) Rebind(query string) string {
	var (
		b     strings.Builder
		n     int
		quote rune
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var tableTypes = map[string]string{
	"TABLE":           "BASE TABLE",
	"VIEW":            "VIEW",
	"FOREIGN TABLE":   "FOREIGN",
	"LOCAL TEMPORARY": "LOCAL TEMPORARY",
}

func reportedType(t string) string {
	if t == "BASE TABLE" {
		return "TABLE"
	}
	if t == "FOREIGN" {
		return "FOREIGN TABLE"
	}
	return t
}

// where collects conditions with numbered placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	return strings.Join(w.conds, " and ")
}

func (Introspector) Tables(ctx context.Context, q common.Querier, catalog, schemaPattern, pattern string, types []string) ([]schema.TableRef, error) {
	w := &where{}
	w.add("table_name like ?", pattern)
	if catalog != "" {
		w.add("table_catalog like ?", catalog)
	}
	if schemaPattern != "" {
		w.add("table_schema like ?", schemaPattern)
	} else {
		w.add("table_schema not in ('pg_catalog', 'information_schema')")
	}
	if len(types) > 0 {
		var in []interface{}
		for _, t := range types {
			if pg, ok := tableTypes[strings.ToUpper(t)]; ok {
				in = append(in, pg)
			}
		}
		if len(in) == 0 {
			return nil, nil
		}
		w.add("table_type in ("+common.Placeholders(len(in))+")", in...)
	}

	rows, err := q.QueryContext(ctx, "select table_catalog, table_schema, table_name, table_type from information_schema.tables where "+
		w.String()+" order by table_schema, table_name", w.args...)
	return common.Collect(rows, err, func(rows *sql.Rows) (schema.TableRef, error) {
		var ref schema.TableRef
		err := rows.Scan(&ref.Catalog, &ref.Schema, &ref.Name, &ref.Type)
		ref.Type = reportedType(ref.Type)
		return ref, err
	})
}

func scanStrings(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}

func (Introspector) PrimaryKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]string, error) {
	rows, err := q.QueryContext(ctx, `select kcu.column_name
from information_schema.table_constraints tc
join information_schema.key_column_usage kcu
  on tc.constraint_name = kcu.constraint_name and tc.table_schema = kcu.table_schema
where tc.constraint_type = 'PRIMARY KEY' and tc.table_schema = $1 and tc.table_name = $2
order by kcu.ordinal_position`, table.Schema, table.Name)
	return common.Collect(rows, err, scanStrings)
}

const foreignKeys = `select kcu.table_schema, kcu.table_name, kcu.column_name,
  ccu.table_schema, ccu.table_name, ccu.column_name
from information_schema.table_constraints tc
join information_schema.key_column_usage kcu
  on tc.constraint_name = kcu.constraint_name and tc.table_schema = kcu.table_schema
join information_schema.constraint_column_usage ccu
  on tc.constraint_name = ccu.constraint_name and tc.table_schema = ccu.constraint_schema
where tc.constraint_type = 'FOREIGN KEY' and %s
order by kcu.table_name, kcu.ordinal_position`

type fkRow struct {
	schema, table, column                      string
	foreignSchema, foreignTable, foreignColumn string
}

func queryForeignKeys(ctx context.Context, q common.Querier, cond string, args ...interface{}) ([]fkRow, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(foreignKeys, cond), args...)
	return common.Collect(rows, err, func(rows *sql.Rows) (fkRow, error) {
		var r fkRow
		err := rows.Scan(&r.schema, &r.table, &r.column, &r.foreignSchema, &r.foreignTable, &r.foreignColumn)
		return r, err
	})
}

func (Introspector) ImportedKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.Key, error) {
	fks, err := queryForeignKeys(ctx, q, "kcu.table_schema = $1 and kcu.table_name = $2", table.Schema, table.Name)
	if err != nil {
		return nil, err
	}
	keys := make([]schema.Key, 0, len(fks))
	for _, fk := range fks {
		keys = append(keys, schema.Key{
			LocalCatalog:   table.Catalog,
			LocalSchema:    fk.schema,
			LocalTable:     fk.table,
			LocalColumn:    fk.column,
			ForeignCatalog: table.Catalog,
			ForeignSchema:  fk.foreignSchema,
			ForeignTable:   fk.foreignTable,
			ForeignColumn:  fk.foreignColumn,
		})
	}
	return keys, nil
}

func (Introspector) ExportedKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.Key, error) {
	fks, err := queryForeignKeys(ctx, q, "ccu.table_schema = $1 and ccu.table_name = $2", table.Schema, table.Name)
	if err != nil {
		return nil, err
	}
	keys := make([]schema.Key, 0, len(fks))
	for _, fk := range fks {
		keys = append(keys, schema.Key{
			LocalCatalog:   table.Catalog,
			LocalSchema:    fk.foreignSchema,
			LocalTable:     fk.foreignTable,
			LocalColumn:    fk.foreignColumn,
			ForeignCatalog: table.Catalog,
			ForeignSchema:  fk.schema,
			ForeignTable:   fk.table,
			ForeignColumn:  fk.column,
		})
	}
	return keys, nil
}

func (Introspector) Columns(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, `select column_name, data_type,
  coalesce(character_maximum_length, numeric_precision, 0), coalesce(numeric_scale, 0),
  coalesce(numeric_precision_radix, 0), is_nullable = 'YES',
  coalesce(column_default like 'nextval(%', false) or is_identity = 'YES',
  is_generated = 'ALWAYS' or is_updatable = 'NO'
from information_schema.columns
where table_schema = $1 and table_name = $2
order by ordinal_position`, table.Schema, table.Name)
	return common.Collect(rows, err, func(rows *sql.Rows) (schema.ColumnInfo, error) {
		info := schema.ColumnInfo{Searchable: true}
		err := rows.Scan(&info.Name, &info.TypeName, &info.Size, &info.Scale, &info.Radix,
			&info.Nullable, &info.AutoIncrement, &info.ReadOnly)
		return info, err
	})
}
