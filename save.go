package automap

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/multierr"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/utils"
)

// saveObject stores obj and its loaded associations: references obj
// imports first, then obj itself, then everything referencing it.
func (db *DB) saveObject(ctx context.Context, obj reflect.Value, clause string, params []interface{}, visit *visit) (int64, error) {
	key, _, ok := trackIdentity(obj.Interface())
	if ok {
		if visit.saved[key] {
			return 0, nil
		}
		visit.saved[key] = true
	}

	if hook, ok := obj.Interface().(BeforeSaveInterface); ok {
		if err := hook.BeforeSave(db.Session(&Session{Context: ctx})); err != nil {
			return 0, err
		}
	}

	t := obj.Elem().Type()
	ignore := db.ignoreAssociations(t)

	var rowsAffected int64
	if !ignore {
		n, err := db.saveAssociations(ctx, obj, true, visit)
		rowsAffected += n
		if err != nil {
			return rowsAffected, err
		}
	}

	var (
		n   int64
		err error
	)
	if db.objectInfo(obj.Interface()).Persistent || db.Descriptor.IsMarked(t, model.TraitGlobalUpdate) || utils.HasPrefixFold(clause, "where") {
		n, err = db.updateObject(ctx, obj, clause, params)
	} else {
		n, err = db.insertObject(ctx, obj)
	}
	rowsAffected += n
	if err != nil {
		return rowsAffected, err
	}

	if !ignore {
		n, err := db.saveAssociations(ctx, obj, false, visit)
		rowsAffected += n
		if err != nil {
			return rowsAffected, err
		}
	}

	if hook, ok := obj.Interface().(AfterSaveInterface); ok {
		err = hook.AfterSave(db.Session(&Session{Context: ctx}))
	}
	return rowsAffected, err
}

// saveAssociations saves the single references owner imports when
// imports is set, and every other loaded association otherwise.
func (db *DB) saveAssociations(ctx context.Context, owner reflect.Value, imports bool, visit *visit) (int64, error) {
	var rowsAffected int64
	for _, a := range db.associations(owner.Elem().Type()) {
		if a.kind != associationSingle {
			if imports {
				continue
			}
			children, err := associationItems(owner, a)
			if err != nil {
				return rowsAffected, err
			}
			for _, child := range children {
				n, err := db.saveExported(ctx, owner, child, a, visit)
				rowsAffected += n
				if err != nil {
					return rowsAffected, err
				}
			}
			continue
		}

		child, ok := singleItem(owner, a)
		if !ok {
			continue
		}
		table, err := db.tableFor(ctx, a.elem)
		if err != nil {
			return rowsAffected, err
		}
		if table == nil {
			db.skipAssociation(ctx, a, "no table for %s", a.elem)
			continue
		}
		imported, err := db.importsTable(ctx, owner.Elem().Type(), table)
		if err != nil {
			return rowsAffected, err
		}
		if imported != imports {
			continue
		}

		if imported {
			n, err := db.saveObject(ctx, child, "", nil, visit)
			rowsAffected += n
			if err != nil {
				return rowsAffected, err
			}
			if _, err := db.copyAssociationIDs(ctx, owner, child, false); err != nil {
				return rowsAffected, err
			}
			continue
		}
		n, err := db.saveExported(ctx, owner, child, a, visit)
		rowsAffected += n
		if err != nil {
			return rowsAffected, err
		}
	}
	return rowsAffected, nil
}

func (db *DB) saveExported(ctx context.Context, owner, child reflect.Value, a *association, visit *visit) (int64, error) {
	ok, err := db.copyAssociationIDs(ctx, child, owner, false)
	if err != nil {
		return 0, err
	}
	if !ok {
		db.skipAssociation(ctx, a, "%s has no key values", owner.Elem().Type())
		return 0, nil
	}
	return db.saveObject(ctx, child, "", nil, visit)
}

// singleItem returns a pointer to the object held by a single reference,
// false when it is nil or zero.
func singleItem(owner reflect.Value, a *association) (reflect.Value, bool) {
	field, ok := a.property.Field(owner)
	if !ok {
		return reflect.Value{}, false
	}
	if field.Kind() == reflect.Pointer {
		return field, !field.IsNil()
	}
	if field.IsZero() || !field.CanAddr() {
		return reflect.Value{}, false
	}
	return field.Addr(), true
}

// associationItems returns pointers to the objects of an array or a
// loaded collection.
func associationItems(owner reflect.Value, a *association) ([]reflect.Value, error) {
	field, ok := a.property.Field(owner)
	if !ok {
		return nil, nil
	}

	if a.kind == associationCollection {
		if field.Kind() == reflect.Pointer {
			if field.IsNil() {
				return nil, nil
			}
			items, _ := field.Interface().(lazyCollection).loadedItems()
			return items, nil
		}
		items, _ := field.Addr().Interface().(lazyCollection).loadedItems()
		return items, nil
	}

	var items []reflect.Value
	for i := 0; i < field.Len(); i++ {
		item := field.Index(i)
		switch {
		case item.Kind() == reflect.Pointer:
			if !item.IsNil() {
				items = append(items, item)
			}
		case item.CanAddr() && !item.IsZero():
			items = append(items, item.Addr())
		}
	}
	return items, nil
}

// SaveObject inserts or updates obj, a pointer to a struct, with its
// loaded associations, then reloads it.
func (db *DB) SaveObject(obj interface{}, clauses ...interface{}) (int64, error) {
	rv, err := objectValue(obj)
	if err != nil {
		return 0, wrapError("save", err)
	}
	clause, params := splitClauses(clauses)
	n, err := db.inTransaction(func(tx *DB) (int64, error) {
		return tx.saveObject(tx.ctx, rv, clause, params, newVisit())
	})
	if err != nil {
		return n, wrapError("save", err)
	}

	if db.Config.Classes.ReloadAfterSave(rv.Elem().Type()) {
		if err := db.reload(db.ctx, rv); err != nil {
			return n, wrapError("save", err)
		}
	}
	return n, nil
}

// reload reads back the row of obj by its primary keys. Failures are
// logged, except a missing key on databases that cannot produce one.
func (db *DB) reload(ctx context.Context, obj reflect.Value) error {
	db.metrics.reload.Inc(1)
	t := obj.Elem().Type()
	res, err := db.queryObject(ctx, t, obj, true, "", nil)
	if err == nil && res.Next() {
		res.SetIgnoreAssociations(true)
		err = db.loadObject(ctx, res, obj, newVisit())
	}
	if err == nil {
		return nil
	}

	db.metrics.reloadFailed.Inc(1)
	if d := db.dialect(); errors.Is(err, ErrNoIDValues) && !d.GeneratedKeys && !d.Returning {
		return fmt.Errorf("%w; disable ReloadAfterSave or implement GeneratedKeysSetter", err)
	}
	db.Logger.Warn(ctx, "reload of %s after save failed: %v", t, err)
	return nil
}

// inTransaction runs fc in a transaction unless one is already open, the
// handle cannot begin one, or automatic transactions are off.
func (db *DB) inTransaction(fc func(tx *DB) (int64, error)) (int64, error) {
	if db.SkipDefaultTransaction || db.tx != nil {
		return fc(db)
	}
	if _, ok := db.conn.(TxBeginner); !ok {
		return fc(db)
	}

	var n int64
	err := db.Transaction(func(tx *DB) (err error) {
		n, err = fc(tx)
		return err
	})
	return n, err
}

// Transaction start a transaction as a block, return error will rollback, otherwise to commit.
func (db *DB) Transaction(fc func(tx *DB) error) (err error) {
	if db.tx != nil {
		return fc(db)
	}
	beginner, ok := db.conn.(TxBeginner)
	if !ok {
		return wrapError("transaction", ErrInvalidTransaction)
	}
	t, err := beginner.BeginTx(db.ctx)
	if err != nil {
		return wrapError("transaction", err)
	}

	tx := db.Session(&Session{})
	tx.conn, tx.tx = t, t

	finished := false
	defer func() {
		// Make sure to rollback when panic or Block error
		if !finished {
			err = multierr.Append(err, t.Rollback())
		}
	}()

	if err = fc(tx); err != nil {
		return err
	}
	finished = true
	return wrapError("commit", t.Commit())
}
