package automap

import (
	"context"
	"reflect"
	"strings"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/schema"
)

// Result holds the rows of a query. It starts before the first row.
type Result struct {
	db      *DB
	ctx     context.Context
	columns []string
	rows    [][]interface{}
	pos     int

	// model is the type the query was built for, nil for raw SQL
	model  reflect.Type
	tables []*schema.Table

	ignoreAssociations *bool
}

func newResult(db *DB, ctx context.Context, columns []string) *Result {
	return &Result{db: db, ctx: ctx, columns: columns, pos: -1}
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.rows) }

// Columns returns the column names of the rows.
func (r *Result) Columns() []string { return r.columns }

// Next advances to the next row, reporting whether there is one.
func (r *Result) Next() bool {
	if r.pos < len(r.rows) {
		r.pos++
	}
	return r.pos < len(r.rows)
}

// Previous moves to the previous row, reporting whether there is one.
func (r *Result) Previous() bool {
	if r.pos >= 0 {
		r.pos--
	}
	return r.pos >= 0
}

func (r *Result) HasNext() bool     { return r.pos+1 < len(r.rows) }
func (r *Result) HasPrevious() bool { return r.pos > 0 }

// First moves to the first row.
func (r *Result) First() bool {
	r.pos = 0
	return r.valid()
}

// Last moves to the last row.
func (r *Result) Last() bool {
	r.pos = len(r.rows) - 1
	return r.valid()
}

func (r *Result) BeforeFirst() { r.pos = -1 }
func (r *Result) AfterLast()   { r.pos = len(r.rows) }

func (r *Result) valid() bool {
	return r.pos >= 0 && r.pos < len(r.rows)
}

// ColumnValue returns the value of the named column in the current row.
func (r *Result) ColumnValue(name string) (interface{}, bool) {
	if !r.valid() {
		return nil, false
	}
	if i := r.index(name, 0); i >= 0 {
		return r.rows[r.pos][i], true
	}
	return nil, false
}

// ColumnValueAt returns the value at index i of the current row.
func (r *Result) ColumnValueAt(i int) interface{} {
	if !r.valid() || i < 0 || i >= len(r.columns) {
		return nil
	}
	return r.rows[r.pos][i]
}

// SetIgnoreAssociations overrides, for objects read from this result,
// whether associations are loaded.
func (r *Result) SetIgnoreAssociations(ignore bool) {
	r.ignoreAssociations = &ignore
}

// Close releases the rows. The result is unusable afterwards.
func (r *Result) Close() error {
	r.rows, r.pos = nil, -1
	return nil
}

// index finds column, from offset first and then from the start.
func (r *Result) index(column string, offset int) int {
	for i := offset; i < len(r.columns); i++ {
		if strings.EqualFold(r.columns[i], column) {
			return i
		}
	}
	for i := 0; i < offset && i < len(r.columns); i++ {
		if strings.EqualFold(r.columns[i], column) {
			return i
		}
	}
	normalized := schema.Normalize(column)
	for i, c := range r.columns {
		if schema.Normalize(c) == normalized {
			return i
		}
	}
	return -1
}

// Current loads the current row into dest, a pointer to a struct.
func (r *Result) Current(dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrModelValueRequired
	}
	if !r.valid() {
		return ErrRecordNotFound
	}
	return r.db.loadObject(r.ctx, r, rv, newVisit())
}

// NextObject advances and returns the row as a new object of the queried
// type, or nil after the last row.
func (r *Result) NextObject() (interface{}, error) {
	if r.model == nil {
		return nil, ErrUnsupportedModel
	}
	if !r.Next() {
		return nil, nil
	}
	obj := reflect.New(r.model)
	if err := r.db.loadObject(r.ctx, r, obj, newVisit()); err != nil {
		return nil, err
	}
	return obj.Interface(), nil
}

// All loads the remaining rows into dest, a pointer to a slice of
// structs or struct pointers, and leaves the cursor after the last row.
func (r *Result) All(dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return ErrModelValueRequired
	}
	var (
		slice    = rv.Elem()
		elemType = slice.Type().Elem()
		isPtr    = elemType.Kind() == reflect.Pointer
		visit    = newVisit()
	)
	if isPtr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return ErrUnsupportedModel
	}

	for r.Next() {
		obj := reflect.New(elemType)
		if err := r.db.loadObject(r.ctx, r, obj, visit); err != nil {
			return err
		}
		if isPtr {
			slice = reflect.Append(slice, obj)
		} else {
			slice = reflect.Append(slice, obj.Elem())
		}
	}
	rv.Elem().Set(slice)
	return nil
}

func (r *Result) ignores(t reflect.Type) bool {
	if r.ignoreAssociations != nil {
		return *r.ignoreAssociations
	}
	return r.db.ignoreAssociations(t)
}

// loadObject fills obj, a pointer to a struct, from the current row of
// r, records its keys and loads its associations.
func (db *DB) loadObject(ctx context.Context, r *Result, obj reflect.Value, visit *visit) error {
	var (
		t      = obj.Elem().Type()
		row    = r.rows[r.pos]
		offset int
	)
	db.forget(obj.Interface())
	info := db.objectInfo(obj.Interface())

	persistent, err := db.processClasses(ctx, t, obj, walkOptions{loadOnly: true}, func(step *chainStep) error {
		from := 0
		if step.Table != nil {
			columns := step.Table.Columns()
			if step.Count > 1 && len(columns) > 0 && offset+len(columns) <= len(r.columns) &&
				strings.EqualFold(r.columns[offset], columns[0].Name) {
				from = offset
			}
			offset += len(columns)
		}

		for _, p := range db.Descriptor.Properties(t) {
			if !step.level.owns(p) || db.isAssociation(p.Type) {
				continue
			}
			i, err := db.resultColumn(r, step, p, from)
			if err != nil {
				return err
			}
			if i < 0 {
				continue
			}
			if err := p.Set(obj, row[i]); err != nil {
				return err
			}
		}

		if step.Table != nil {
			for _, name := range step.Table.KeyColumns() {
				if i := r.index(name, from); i >= 0 {
					info.setKeyValue(name, row[i])
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	info.Persistent = persistent

	if !r.ignores(t) {
		if err := db.loadAssociations(ctx, obj, visit); err != nil {
			return err
		}
	}

	if hook, ok := obj.Interface().(AfterFindInterface); ok {
		return hook.AfterFind(db.Session(&Session{Context: ctx}))
	}
	return nil
}

// resultColumn finds the row index holding property p, -1 if none.
func (db *DB) resultColumn(r *Result, step *chainStep, p *model.Property, from int) (int, error) {
	if step.Table != nil {
		column, err := db.columnFor(step.Table, step.Type, p)
		if err != nil {
			return -1, err
		}
		if column != nil {
			return r.index(column.Name, from), nil
		}
	}

	name := db.columnOverride(step.Type, p)
	if name == "" {
		name = schema.CamelToUnderscore(p.Name)
	}
	if i := r.index(name, from); i >= 0 {
		return i, nil
	}
	opts := db.catalog.Options()
	for _, prefix := range opts.ColumnPrefixes {
		if i := r.index(prefix+name, from); i >= 0 {
			return i, nil
		}
	}
	for _, suffix := range opts.ColumnSuffixes {
		if i := r.index(name+suffix, from); i >= 0 {
			return i, nil
		}
	}
	return -1, nil
}
