package automap

import (
	"context"
	"fmt"
	"reflect"
)

// insertObject inserts obj into every table of its chain, base first.
func (db *DB) insertObject(ctx context.Context, obj reflect.Value) (int64, error) {
	var (
		rowsAffected int64
		t            = obj.Elem().Type()
		info         = db.objectInfo(obj.Interface())
	)

	_, err := db.processClasses(ctx, t, obj, walkOptions{tableRequired: true, includeZero: true}, func(step *chainStep) error {
		stmt := db.statement()
		stmt.Write("insert into ")
		stmt.WriteTable(step.Table)

		var (
			columns  = db.statement()
			values   = db.statement()
			readOnly int
		)
		for _, v := range step.Values.list {
			if v.column == nil {
				continue
			}
			if v.column.ReadOnly {
				readOnly++
				continue
			}
			if v.null {
				continue
			}
			if !columns.Empty() {
				columns.Write(", ")
				values.Write(", ")
			}
			columns.WriteQuoted(v.name)
			values.AddVar(v.value)
		}
		if columns.Empty() {
			if readOnly > 0 {
				return fmt.Errorf("%w: %s, might need to log in to the database", ErrReadOnlyTable, step.Table.AbsoluteName())
			}
			return fmt.Errorf("%w for %s", ErrNoInsertColumns, step.Table.AbsoluteName())
		}
		stmt.Write(" (")
		stmt.Append(columns)
		stmt.Write(") values(")
		stmt.Append(values)
		stmt.Write(")")

		var (
			generated = step.Table.GeneratedKey
			returned  []interface{}
		)
		db.metrics.insert.Inc(1)
		if generated != "" && db.dialect().Returning {
			stmt.Write(" returning ")
			stmt.WriteQuoted(generated)
			res, err := db.query(ctx, stmt.String(), stmt.Vars)
			if err != nil {
				return err
			}
			if res.Next() {
				returned = append(returned, res.ColumnValueAt(0))
			}
			rowsAffected += int64(res.Len())
		} else {
			result, err := db.exec(ctx, stmt.String(), stmt.Vars)
			if err != nil {
				return err
			}
			if n, err := result.RowsAffected(); err == nil {
				rowsAffected += n
			}
			if generated != "" && db.dialect().GeneratedKeys {
				if id, err := result.LastInsertId(); err == nil && id != 0 {
					returned = append(returned, id)
				}
			}
		}

		if err := db.processGeneratedKeys(ctx, obj, step.Table, returned); err != nil {
			return err
		}

		for _, name := range step.Table.KeyColumns() {
			// read only keys were not inserted; generated ones are recorded above
			if v := step.Values.get(name); v != nil && !v.null && v.column != nil && !v.column.ReadOnly {
				info.setKeyValue(name, v.value)
			}
		}
		return nil
	})
	if err != nil {
		return rowsAffected, err
	}
	info.Persistent = true
	return rowsAffected, nil
}

// InsertObject inserts obj, a pointer to a struct, without its
// associations.
func (db *DB) InsertObject(obj interface{}) (int64, error) {
	rv, err := objectValue(obj)
	if err != nil {
		return 0, wrapError("insert", err)
	}
	n, err := db.inTransaction(func(tx *DB) (int64, error) {
		return tx.insertObject(tx.ctx, rv)
	})
	return n, wrapError("insert", err)
}

// objectValue checks obj is a non nil pointer to a struct.
func objectValue(obj interface{}) (reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, ErrModelValueRequired
	}
	return rv, nil
}
