// Package sqlite opens SQLite databases with the modernc.org/sqlite
// driver and reads their schema from sqlite_master and the table pragmas.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/automap-go/automap/dialects/common"
	"github.com/automap-go/automap/schema"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Open opens the database at dsn, a file name or "file::memory:".
// Foreign keys are enforced on every connection.
func Open(ctx context.Context, dsn string) (*common.DB, error) {
	return common.Open(ctx, DriverName, withForeignKeys(dsn), Introspector{DSN: dsn})
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// Introspector answers schema queries of a SQLite database. Only the
// main schema is reported.
type Introspector struct {
	DSN string
}

func (i Introspector) Describe(context.Context, common.Querier) (schema.Dialect, error) {
	return schema.Dialect{
		Name:          "sqlite",
		URL:           "sqlite:" + i.DSN,
		StoresCase:    schema.StoresMixed,
		GeneratedKeys: true,
	}, nil
}

func (Introspector) Tables(ctx context.Context, q common.Querier, _, schemaPattern, pattern string, types []string) ([]schema.TableRef, error) {
	if schemaPattern != "" && !strings.EqualFold(schemaPattern, "main") {
		return nil, nil
	}

	var kinds []string
	for _, t := range types {
		kinds = append(kinds, strings.ToLower(t))
	}
	if len(kinds) == 0 {
		kinds = []string{"table", "view"}
	}

	query := fmt.Sprintf("select name, type from sqlite_master where type in (%s) and name like ? escape '\\' and name not like 'sqlite\\_%%' escape '\\' order by name",
		common.Placeholders(len(kinds)))
	args := append(common.Args(kinds...), pattern)

	rows, err := q.QueryContext(ctx, query, args...)
	refs, err := common.Collect(rows, err, func(rows *sql.Rows) (schema.TableRef, error) {
		var ref schema.TableRef
		err := rows.Scan(&ref.Name, &ref.Type)
		ref.Type = strings.ToUpper(ref.Type)
		return ref, err
	})
	if err != nil {
		return nil, err
	}

	// LIKE ignores case in SQLite
	if strings.ContainsAny(pattern, "%_") {
		return refs, nil
	}
	var exact []schema.TableRef
	for _, ref := range refs {
		if ref.Name == pattern {
			exact = append(exact, ref)
		}
	}
	return exact, nil
}

type columnRow struct {
	name     string
	typeName string
	notNull  bool
	pk       int
}

func tableInfo(ctx context.Context, q common.Querier, table string) ([]columnRow, error) {
	rows, err := q.QueryContext(ctx, `select name, type, "notnull", pk from pragma_table_info(?) order by cid`, table)
	return common.Collect(rows, err, func(rows *sql.Rows) (columnRow, error) {
		var c columnRow
		err := rows.Scan(&c.name, &c.typeName, &c.notNull, &c.pk)
		return c, err
	})
}

func (Introspector) PrimaryKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]string, error) {
	columns, err := tableInfo(ctx, q, table.Name)
	if err != nil {
		return nil, err
	}
	pks := make([]string, 0, 1)
	for order := 1; ; order++ {
		found := false
		for _, c := range columns {
			if c.pk == order {
				pks = append(pks, c.name)
				found = true
			}
		}
		if !found {
			return pks, nil
		}
	}
}

type foreignKeyRow struct {
	table string
	from  string
	to    sql.NullString
}

func foreignKeys(ctx context.Context, q common.Querier, table string) ([]foreignKeyRow, error) {
	rows, err := q.QueryContext(ctx, `select "table", "from", "to" from pragma_foreign_key_list(?) order by id, seq`, table)
	return common.Collect(rows, err, func(rows *sql.Rows) (foreignKeyRow, error) {
		var fk foreignKeyRow
		err := rows.Scan(&fk.table, &fk.from, &fk.to)
		return fk, err
	})
}

// referenced returns the referenced column, the primary key of the
// referenced table when the key names none.
func (i Introspector) referenced(ctx context.Context, q common.Querier, fk foreignKeyRow) (string, error) {
	if fk.to.Valid && fk.to.String != "" {
		return fk.to.String, nil
	}
	pks, err := i.PrimaryKeys(ctx, q, schema.TableRef{Name: fk.table})
	if err != nil || len(pks) == 0 {
		return "", err
	}
	return pks[0], nil
}

func (i Introspector) ImportedKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.Key, error) {
	fks, err := foreignKeys(ctx, q, table.Name)
	if err != nil {
		return nil, err
	}
	keys := make([]schema.Key, 0, len(fks))
	for _, fk := range fks {
		to, err := i.referenced(ctx, q, fk)
		if err != nil {
			return nil, err
		}
		keys = append(keys, schema.Key{
			LocalTable:    table.Name,
			LocalColumn:   fk.from,
			ForeignTable:  fk.table,
			ForeignColumn: to,
		})
	}
	return keys, nil
}

func (i Introspector) ExportedKeys(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.Key, error) {
	rows, err := q.QueryContext(ctx, "select name from sqlite_master where type = 'table' and name not like 'sqlite\\_%' escape '\\' order by name")
	others, err := common.Collect(rows, err, func(rows *sql.Rows) (string, error) {
		var name string
		err := rows.Scan(&name)
		return name, err
	})
	if err != nil {
		return nil, err
	}

	var keys []schema.Key
	for _, other := range others {
		fks, err := foreignKeys(ctx, q, other)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			if !strings.EqualFold(fk.table, table.Name) {
				continue
			}
			to, err := i.referenced(ctx, q, fk)
			if err != nil {
				return nil, err
			}
			keys = append(keys, schema.Key{
				LocalTable:    table.Name,
				LocalColumn:   to,
				ForeignTable:  other,
				ForeignColumn: fk.from,
			})
		}
	}
	return keys, nil
}

func (Introspector) Columns(ctx context.Context, q common.Querier, table schema.TableRef) ([]schema.ColumnInfo, error) {
	columns, err := tableInfo(ctx, q, table.Name)
	if err != nil {
		return nil, err
	}

	pks := 0
	for _, c := range columns {
		if c.pk > 0 {
			pks++
		}
	}

	infos := make([]schema.ColumnInfo, 0, len(columns))
	for _, c := range columns {
		infos = append(infos, schema.ColumnInfo{
			Name:     c.name,
			TypeName: c.typeName,
			Nullable: !c.notNull && c.pk == 0,
			// a lone INTEGER PRIMARY KEY aliases the rowid
			AutoIncrement: pks == 1 && c.pk == 1 && strings.EqualFold(c.typeName, "INTEGER") && table.Type != "VIEW",
			ReadOnly:      table.Type == "VIEW",
			Searchable:    true,
		})
	}
	return infos, nil
}
