package automap

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/automap-go/automap/schema"
)

// generatedKeyQuery returns the statement reading the last generated key
// of table on databases that cannot return it with the insert.
func generatedKeyQuery(d schema.Dialect, table *schema.Table) string {
	url := strings.TrimPrefix(strings.ToLower(d.URL), "jdbc:")
	switch {
	case strings.HasPrefix(url, "mysql"):
		return "select LAST_INSERT_ID() as id"
	case strings.HasPrefix(url, "derby"), strings.HasPrefix(url, "db2"):
		return "select IDENTITY_VAL_LOCAL() as id from " + d.QuoteTable(table)
	case strings.HasPrefix(url, "hsqldb"), strings.HasPrefix(url, "h2"):
		return "select IDENTITY() as id from " + d.QuoteTable(table)
	case strings.HasPrefix(url, "postgre"):
		return fmt.Sprintf("select currval('%s_%s_seq') as id", table.AbsoluteName(), table.GeneratedKey)
	}
	return ""
}

// processGeneratedKeys writes the generated key of table back into obj.
// The object's own GeneratedKeysSetter wins over returned keys, which
// win over the fallback query.
func (db *DB) processGeneratedKeys(ctx context.Context, obj reflect.Value, table *schema.Table, returned []interface{}) error {
	if setter, ok := obj.Interface().(GeneratedKeysSetter); ok {
		handled, err := setter.SetGeneratedKeys(db.Session(&Session{Context: ctx}), table)
		if err != nil || handled {
			return err
		}
	}

	key := table.GeneratedKey
	if key == "" {
		return nil
	}

	if len(returned) == 0 {
		sql := generatedKeyQuery(db.dialect(), table)
		if sql == "" {
			return nil
		}
		res, err := db.query(ctx, sql, nil)
		if err != nil {
			return err
		}
		if !res.Next() {
			return nil
		}
		v, ok := res.ColumnValue("id")
		if !ok || v == nil {
			return nil
		}
		returned = append(returned, v)
	}

	p, err := db.propertyForColumn(ctx, obj.Elem().Type(), key)
	if err != nil {
		return err
	}
	if p != nil {
		if err := p.Set(obj, returned[0]); err != nil {
			return err
		}
	}
	db.objectInfo(obj.Interface()).setKeyValue(key, returned[0])
	return nil
}
