package automap

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/utils"
)

// updateObject updates every table of the chain of obj. Rows are found
// by the key values last confirmed for obj, so key fields may change.
func (db *DB) updateObject(ctx context.Context, obj reflect.Value, clause string, params []interface{}) (int64, error) {
	var (
		rowsAffected  int64
		t             = obj.Elem().Type()
		info          = db.objectInfo(obj.Interface())
		externalWhere = utils.HasPrefixFold(clause, "where")
		global        = db.Descriptor.IsMarked(t, model.TraitGlobalUpdate)
		updatedKeys   = map[string]interface{}{}
	)

	_, err := db.processClasses(ctx, t, obj, walkOptions{tableRequired: true, isUpdate: true, includeZero: true}, func(step *chainStep) error {
		set := db.statement()
		for _, v := range step.Values.list {
			if v.column == nil || v.column.ReadOnly {
				continue
			}
			if _, ok := info.keyValue(v.name); ok && !v.null {
				updatedKeys[strings.ToLower(v.name)] = v.value
			}
			if !set.Empty() {
				set.Write(", ")
			}
			set.WriteQuoted(v.name)
			if v.null {
				set.Write(" = null")
			} else {
				set.Write(" = ")
				set.AddVar(v.value)
			}
		}
		if set.Empty() {
			return fmt.Errorf("%w for %s", ErrNoUpdateColumns, step.Table.AbsoluteName())
		}

		where := db.statement()
		if !externalWhere {
			for _, name := range step.Table.KeyColumns() {
				value, ok := info.keyValue(name)
				column := step.Table.ColumnByName(name)
				if !ok || column == nil || !column.Searchable {
					continue
				}
				and(where)
				writePredicate(where, "", &columnValue{column: column, name: name, value: value, null: value == nil})
			}
		}
		if where.Empty() && !externalWhere && !global {
			return fmt.Errorf("%w: %s is not updatable, it has no key values", ErrMissingWhereClause, t)
		}

		stmt := db.statement()
		stmt.Write("update ")
		stmt.WriteTable(step.Table)
		stmt.Write(" set ")
		stmt.Append(set)
		if !where.Empty() {
			stmt.Write(" where ")
			stmt.Append(where)
		}
		if clause != "" {
			stmt.Write(" ", db.substituteProperties(clause, t, step.Table))
			stmt.Vars = append(stmt.Vars, params...)
		}

		db.metrics.update.Inc(1)
		result, err := db.exec(ctx, stmt.String(), stmt.Vars)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err == nil {
			rowsAffected += n
		}
		return nil
	})
	if err != nil {
		return rowsAffected, err
	}

	for name, value := range updatedKeys {
		info.setKeyValue(name, value)
	}
	info.Persistent = true
	return rowsAffected, nil
}

// UpdateObject updates obj, a pointer to a struct, without its
// associations. An external where clause replaces the key lookup.
func (db *DB) UpdateObject(obj interface{}, clauses ...interface{}) (int64, error) {
	rv, err := objectValue(obj)
	if err != nil {
		return 0, wrapError("update", err)
	}
	clause, params := splitClauses(clauses)
	n, err := db.inTransaction(func(tx *DB) (int64, error) {
		return tx.updateObject(tx.ctx, rv, clause, params)
	})
	return n, wrapError("update", err)
}
