package automap

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/schema"
)

type associationKind int

const (
	associationSingle associationKind = iota
	associationArray
	associationCollection
)

// association is a property holding related objects.
type association struct {
	property *model.Property
	kind     associationKind
	// elem is the struct type of the related objects
	elem reflect.Type
	// elemPtr tells whether the field stores *elem rather than elem
	elemPtr bool
}

func (a *association) String() string {
	return a.property.String()
}

var associationCache sync.Map

func collectionOf(t reflect.Type) (reflect.Type, bool) {
	t = indirectType(t)
	if t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(lazyCollectionType) {
		elem := reflect.New(t).Interface().(lazyCollection).elemType()
		return elem, true
	}
	return nil, false
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isAssociation reports whether properties of type t hold related objects
// rather than a column value.
func (db *DB) isAssociation(t reflect.Type) bool {
	return classify(t) != nil
}

func classify(t reflect.Type) *association {
	if elem, ok := collectionOf(t); ok {
		if model.IsMappable(elem) {
			return &association{kind: associationCollection, elem: indirectType(elem), elemPtr: elem.Kind() == reflect.Pointer}
		}
		return nil
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		if elem.Kind() != reflect.Uint8 && model.IsMappable(elem) {
			return &association{kind: associationArray, elem: indirectType(elem), elemPtr: elem.Kind() == reflect.Pointer}
		}
	default:
		if model.IsMappable(t) {
			return &association{kind: associationSingle, elem: indirectType(t), elemPtr: t.Kind() == reflect.Pointer}
		}
	}
	return nil
}

// associations lists the association properties of t.
func (db *DB) associations(t reflect.Type) []*association {
	type cacheKey struct {
		descriptor model.Descriptor
		typ        reflect.Type
	}
	key := cacheKey{db.Descriptor, t}
	if v, ok := associationCache.Load(key); ok {
		return v.([]*association)
	}

	var list []*association
	for _, p := range db.Descriptor.Properties(t) {
		if a := classify(p.Type); a != nil {
			a.property = p
			list = append(list, a)
		}
	}
	actual, _ := associationCache.LoadOrStore(key, list)
	return actual.([]*association)
}

// visit guards one top level call against cycles: types being loaded on
// the current path and objects already saved.
type visit struct {
	loading map[reflect.Type]bool
	saved   map[trackKey]bool
}

func newVisit() *visit {
	return &visit{loading: map[reflect.Type]bool{}, saved: map[trackKey]bool{}}
}

// matchingKeys returns the keys of to whose foreign column is the local
// column of a key of from. Table names, when known on both sides, must
// mirror each other.
func matchingKeys(to, from []*schema.Key) []*schema.Key {
	var keys []*schema.Key
	for _, tk := range to {
		for _, fk := range from {
			if !strings.EqualFold(tk.ForeignColumn, fk.LocalColumn) || !strings.EqualFold(tk.LocalColumn, fk.ForeignColumn) {
				continue
			}
			if !sameTable(tk.ForeignTable, fk.LocalTable) || !sameTable(fk.ForeignTable, tk.LocalTable) {
				continue
			}
			keys = append(keys, tk)
			break
		}
	}
	return keys
}

func sameTable(a, b string) bool {
	return a == "" || b == "" || strings.EqualFold(a, b)
}

// chainKeys collects the imported, or exported, keys of every table of
// the chain of t.
func (db *DB) chainKeys(ctx context.Context, t reflect.Type, exported bool) ([]*schema.Key, error) {
	var keys []*schema.Key
	for _, lv := range db.levels(t, walkOptions{}) {
		table, err := db.tableFor(ctx, lv.table)
		if err != nil {
			return nil, err
		}
		if table == nil {
			return nil, tableNotFound(lv.table)
		}
		if exported {
			keys = append(keys, table.ExportedKeys()...)
		} else {
			keys = append(keys, table.ImportedKeys()...)
		}
	}
	return keys, nil
}

// copyAssociationIDs copies key values from one object to the other along
// their key relation. Without imported, the keys of to reference from;
// with imported, the keys of from reference to. It reports whether any
// value was copied.
func (db *DB) copyAssociationIDs(ctx context.Context, to, from reflect.Value, imported bool) (bool, error) {
	toKeys, err := db.chainKeys(ctx, to.Elem().Type(), imported)
	if err != nil {
		return false, err
	}
	fromKeys, err := db.chainKeys(ctx, from.Elem().Type(), !imported)
	if err != nil {
		return false, err
	}

	keys := matchingKeys(toKeys, fromKeys)
	if len(keys) == 0 {
		return false, fmt.Errorf("%w: association between %s and %s has no primary/foreign key relationship",
			ErrMissingKeyRelation, to.Elem().Type(), from.Elem().Type())
	}

	copied := false
	for _, k := range keys {
		v, ok, err := db.keyValue(ctx, from, k.ForeignColumn)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if err := db.setKeyValue(ctx, to, k.LocalColumn, v); err != nil {
			return false, err
		}
		copied = true
	}
	return copied, nil
}

// importsTable reports whether a table of the chain of t declares a
// foreign key to table.
func (db *DB) importsTable(ctx context.Context, t reflect.Type, table *schema.Table) (bool, error) {
	keys, err := db.chainKeys(ctx, t, false)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if strings.EqualFold(k.ForeignTable, table.Name) {
			return true, nil
		}
	}
	return false, nil
}

func (db *DB) skipAssociation(ctx context.Context, a *association, format string, args ...interface{}) {
	db.metrics.associationSkipped.Inc(1)
	db.Logger.Warn(ctx, "association %s skipped: "+format, append([]interface{}{a}, args...)...)
}

// loadAssociations fills the association properties of obj.
func (db *DB) loadAssociations(ctx context.Context, obj reflect.Value, visit *visit) error {
	t := obj.Elem().Type()
	if visit.loading[t] {
		return nil
	}
	visit.loading[t] = true
	defer delete(visit.loading, t)

	for _, a := range db.associations(t) {
		var err error
		switch a.kind {
		case associationSingle:
			err = db.loadSingle(ctx, obj, a, visit)
		case associationArray:
			err = db.loadArray(ctx, obj, a, visit)
		case associationCollection:
			err = db.loadCollection(ctx, obj, a, visit)
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", a, err)
		}
	}
	return nil
}

// associated queries the objects related to owner through a.
func (db *DB) associated(ctx context.Context, owner reflect.Value, a *association, imported bool, visit *visit) ([]reflect.Value, error) {
	table, err := db.tableFor(ctx, a.elem)
	if err != nil {
		return nil, err
	}
	if table == nil {
		db.skipAssociation(ctx, a, "no table for %s", a.elem)
		return nil, nil
	}

	child := reflect.New(a.elem)
	ok, err := db.copyAssociationIDs(ctx, child, owner, imported)
	if err != nil {
		return nil, err
	}
	if !ok {
		db.skipAssociation(ctx, a, "%s has no key values", owner.Elem().Type())
		return nil, nil
	}

	res, err := db.queryObject(ctx, a.elem, child, false, "", nil)
	if err != nil {
		return nil, err
	}
	items := make([]reflect.Value, 0, res.Len())
	for res.Next() {
		item := reflect.New(a.elem)
		if err := db.loadObject(ctx, res, item, visit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (db *DB) loadSingle(ctx context.Context, owner reflect.Value, a *association, visit *visit) error {
	table, err := db.tableFor(ctx, a.elem)
	if err != nil {
		return err
	}
	if table == nil {
		db.skipAssociation(ctx, a, "no table for %s", a.elem)
		return nil
	}
	imported, err := db.importsTable(ctx, owner.Elem().Type(), table)
	if err != nil {
		return err
	}

	items, err := db.associated(ctx, owner, a, imported, visit)
	if err != nil || len(items) == 0 {
		return err
	}
	field, err := a.property.Settable(owner)
	if err != nil {
		return err
	}
	if a.elemPtr {
		field.Set(items[0])
	} else {
		field.Set(items[0].Elem())
	}
	return nil
}

func (db *DB) loadArray(ctx context.Context, owner reflect.Value, a *association, visit *visit) error {
	items, err := db.associated(ctx, owner, a, false, visit)
	if err != nil || len(items) == 0 {
		return err
	}
	field, err := a.property.Settable(owner)
	if err != nil {
		return err
	}

	target := field
	if field.Kind() == reflect.Slice {
		target = reflect.MakeSlice(field.Type(), len(items), len(items))
	}
	for i := 0; i < len(items) && i < target.Len(); i++ {
		if a.elemPtr {
			target.Index(i).Set(items[i])
		} else {
			target.Index(i).Set(items[i].Elem())
		}
	}
	if field.Kind() == reflect.Slice {
		field.Set(target)
	}
	return nil
}

// collectionField returns the collection held by a property of owner,
// allocating a nil pointer.
func collectionField(owner reflect.Value, a *association) (lazyCollection, error) {
	field, err := a.property.Settable(owner)
	if err != nil {
		return nil, err
	}
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field.Interface().(lazyCollection), nil
	}
	return field.Addr().Interface().(lazyCollection), nil
}

func (db *DB) loadCollection(ctx context.Context, owner reflect.Value, a *association, visit *visit) error {
	coll, err := collectionField(owner, a)
	if err != nil {
		return err
	}

	if db.Config.Classes.LazyLoading(owner.Elem().Type()) {
		// the load may run after the transaction ends
		lazy := db.Session(&Session{Context: context.WithoutCancel(ctx)})
		lazy.conn, lazy.tx = lazy.handle, nil
		coll.deferLoad(func() ([]reflect.Value, error) {
			return lazy.associated(lazy.ctx, owner, a, false, newVisit())
		})
		return nil
	}

	items, err := db.associated(ctx, owner, a, false, visit)
	if err != nil {
		return err
	}
	coll.fill(items)
	return nil
}

// LoadAssociations loads the associations of obj, a pointer to a struct,
// regardless of the ignore settings.
func (db *DB) LoadAssociations(obj interface{}) error {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return wrapError("load associations", ErrModelValueRequired)
	}
	return wrapError("load associations", db.loadAssociations(db.ctx, rv, newVisit()))
}
