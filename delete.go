package automap

import (
	"context"
	"fmt"
	"reflect"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/utils"
)

// deleteObject deletes obj from the base table of its chain; cascading
// to the other tables is left to the database.
func (db *DB) deleteObject(ctx context.Context, obj reflect.Value, clause string, params []interface{}) (int64, error) {
	var (
		rowsAffected  int64
		t             = obj.Elem().Type()
		info          = db.objectInfo(obj.Interface())
		externalWhere = utils.HasPrefixFold(clause, "where")
		externalFrom  = utils.HasPrefixFold(clause, "from")
		global        = db.Descriptor.IsMarked(t, model.TraitGlobalDelete)
	)

	_, err := db.processClasses(ctx, t, obj, walkOptions{tableRequired: true, baseTableOnly: true}, func(step *chainStep) error {
		where := db.statement()
		if !externalWhere && !externalFrom {
			if info.Persistent {
				for _, name := range step.Table.KeyColumns() {
					value, ok := info.keyValue(name)
					column := step.Table.ColumnByName(name)
					if !ok || column == nil || !column.Searchable {
						continue
					}
					and(where)
					writePredicate(where, "", &columnValue{column: column, name: name, value: value, null: value == nil})
				}
			} else {
				for _, v := range step.Values.list {
					if v.column == nil || !v.column.Searchable || v.null {
						continue
					}
					and(where)
					writePredicate(where, "", v)
				}
			}
		}
		if where.Empty() && !externalWhere && !externalFrom && !global {
			return fmt.Errorf("%w: %s has no values to delete by", ErrMissingWhereClause, t)
		}

		stmt := db.statement()
		stmt.Write("delete")
		if !externalFrom {
			stmt.Write(" from ")
			stmt.WriteTable(step.Table)
			if !where.Empty() {
				stmt.Write(" where ")
				stmt.Append(where)
			}
		}
		if clause != "" {
			stmt.Write(" ", db.substituteProperties(clause, t, step.Table))
			stmt.Vars = append(stmt.Vars, params...)
		}

		db.metrics.delete.Inc(1)
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
	db.forget(obj.Interface())
	return rowsAffected, nil
}

// DeleteObject deletes obj, a pointer to a struct. Persistent objects
// are deleted by their key values, others by their non-zero fields.
func (db *DB) DeleteObject(obj interface{}, clauses ...interface{}) (int64, error) {
	rv, err := objectValue(obj)
	if err != nil {
		return 0, wrapError("delete", err)
	}
	clause, params := splitClauses(clauses)
	n, err := db.inTransaction(func(tx *DB) (int64, error) {
		if hook, ok := obj.(BeforeDeleteInterface); ok {
			if err := hook.BeforeDelete(tx); err != nil {
				return 0, err
			}
		}
		n, err := tx.deleteObject(tx.ctx, rv, clause, params)
		if err != nil {
			return n, err
		}
		if hook, ok := obj.(AfterDeleteInterface); ok {
			err = hook.AfterDelete(tx)
		}
		return n, err
	})
	return n, wrapError("delete", err)
}
