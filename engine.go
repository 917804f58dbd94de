package automap

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/schema"
)

// InheritanceStrategy tells how an embedding chain is laid out in tables.
type InheritanceStrategy int

const (
	// InheritPerType stores every type of the chain in its own table,
	// base first, joined on matching keys.
	InheritPerType InheritanceStrategy = iota
	// InheritSingleTable stores the chain in the table of the base type.
	InheritSingleTable
	// InheritConcreteTable stores the chain in the table of the outermost type.
	InheritConcreteTable
)

func (s InheritanceStrategy) String() string {
	switch s {
	case InheritSingleTable:
		return "SingleTable"
	case InheritConcreteTable:
		return "ConcreteTable"
	}
	return "PerTypeTable"
}

type walkOptions struct {
	tableRequired bool
	idColumnsOnly bool
	baseTableOnly bool
	isUpdate      bool
	includeZero   bool
	loadOnly      bool
}

// level is one table of a chain walk. table names the type the table is
// resolved for; owner is the type whose own properties map to it, nil
// when every property of the chain does.
type level struct {
	table reflect.Type
	owner reflect.Type
}

func (l level) owns(p *model.Property) bool {
	return l.owner == nil || p.Owner == l.owner
}

type columnValue struct {
	column *schema.Column
	name   string
	value  interface{}
	null   bool
}

// valueSet is an insertion ordered set of column values.
type valueSet struct {
	list  []*columnValue
	index map[string]int
}

func newValueSet() *valueSet {
	return &valueSet{index: map[string]int{}}
}

func (s *valueSet) put(v *columnValue) {
	key := strings.ToLower(v.name)
	if i, ok := s.index[key]; ok {
		s.list[i] = v
		return
	}
	s.index[key] = len(s.list)
	s.list = append(s.list, v)
}

func (s *valueSet) get(name string) *columnValue {
	if i, ok := s.index[strings.ToLower(name)]; ok {
		return s.list[i]
	}
	return nil
}

func (s *valueSet) Len() int {
	return len(s.list)
}

type chainStep struct {
	Type   reflect.Type
	Table  *schema.Table
	Number int
	Count  int
	Values *valueSet
	// JoinKeys joins Table to the table of the previous step.
	JoinKeys []*schema.Key

	level level
}

func (s *chainStep) alias() string {
	if s.Count > 1 {
		return fmt.Sprintf("t%d", s.Number)
	}
	return ""
}

// chain lists t and its parents, outermost first.
func (db *DB) chain(t reflect.Type) []reflect.Type {
	types := []reflect.Type{t}
	for p := db.Descriptor.Parent(t); p != nil; p = db.Descriptor.Parent(p) {
		types = append(types, p)
	}
	return types
}

// Strategy returns how the chain of the type of value is laid out.
func (db *DB) Strategy(value interface{}) InheritanceStrategy {
	t := model.TypeOf(value)
	switch {
	case db.Descriptor.IsMarked(t, model.TraitSingleTable):
		return InheritSingleTable
	case db.Descriptor.IsMarked(t, model.TraitConcreteTable):
		return InheritConcreteTable
	}
	return InheritPerType
}

// levels returns the tables a walk over t visits, base first.
func (db *DB) levels(t reflect.Type, opts walkOptions) []level {
	types := db.chain(t)
	switch db.Strategy(t) {
	case InheritSingleTable:
		return []level{{table: types[len(types)-1]}}
	case InheritConcreteTable:
		return []level{{table: t}}
	}

	if len(types) == 1 {
		return []level{{table: t}}
	}
	levels := make([]level, 0, len(types))
	for i := len(types) - 1; i >= 0; i-- {
		levels = append(levels, level{table: types[i], owner: types[i]})
		if opts.baseTableOnly {
			break
		}
	}
	return levels
}

// processClasses walks the tables of t, calling fc for each with the
// values of obj for that table. obj may be invalid for walks over a type
// only. It reports whether any table was found.
func (db *DB) processClasses(ctx context.Context, t reflect.Type, obj reflect.Value, opts walkOptions, fc func(*chainStep) error) (bool, error) {
	var (
		levels     = db.levels(t, opts)
		info       *ObjectInformation
		persistent bool
		last       *schema.Table
		lastValues *valueSet
	)
	if obj.IsValid() && obj.Kind() == reflect.Pointer {
		info = db.objectInfo(obj.Interface())
	}

	for i, lv := range levels {
		table, err := db.tableFor(ctx, lv.table)
		if err != nil {
			return persistent, err
		}
		step := &chainStep{Type: t, Table: table, Number: i + 1, Count: len(levels), Values: newValueSet(), level: lv}

		if table == nil {
			if opts.tableRequired {
				return persistent, tableNotFound(lv.table)
			}
			if err := fc(step); err != nil {
				return persistent, err
			}
			continue
		}
		persistent = true

		if last != nil {
			step.JoinKeys = matchingKeys(table.ImportedKeys(), last.ExportedKeys())
			if len(step.JoinKeys) == 0 {
				return persistent, fmt.Errorf("%w between %s and %s for %s", ErrMissingKeyRelation, last, table, lv.table)
			}
		}

		if obj.IsValid() && !opts.loadOnly {
			if info != nil {
				for _, name := range table.KeyColumns() {
					if v, ok := info.keyValue(name); ok {
						step.Values.put(&columnValue{column: table.ColumnByName(name), name: name, value: v, null: v == nil})
					}
				}
			}
			for _, k := range step.JoinKeys {
				if step.Values.get(k.LocalColumn) != nil {
					continue
				}
				if v := propagatedValue(info, lastValues, k.ForeignColumn); v != nil {
					step.Values.put(&columnValue{column: table.ColumnByName(k.LocalColumn), name: k.LocalColumn, value: v.value})
				}
			}
			if err := db.fieldValues(ctx, step, obj, opts); err != nil {
				return persistent, err
			}
		}

		if err := fc(step); err != nil {
			return persistent, err
		}
		last, lastValues = table, step.Values
	}
	return persistent, nil
}

// propagatedValue returns the value of a join key of the previous table,
// preferring the tracked state written back by the previous step.
func propagatedValue(info *ObjectInformation, previous *valueSet, column string) *columnValue {
	if info != nil {
		if v, ok := info.keyValue(column); ok && v != nil {
			return &columnValue{name: column, value: v}
		}
	}
	if previous != nil {
		if v := previous.get(column); v != nil && !v.null {
			return v
		}
	}
	return nil
}

func (db *DB) fieldValues(ctx context.Context, step *chainStep, obj reflect.Value, opts walkOptions) error {
	var (
		table  = step.Table
		idOnly = opts.idColumnsOnly && len(table.PrimaryKeys()) > 0
	)
	for _, p := range db.Descriptor.Properties(step.Type) {
		if !step.level.owns(p) || db.isAssociation(p.Type) {
			continue
		}
		column, err := db.columnFor(table, step.Type, p)
		if err != nil {
			return err
		}
		if column == nil || (idOnly && !column.PrimaryKey) {
			continue
		}

		v, err := p.Get(obj)
		if err != nil {
			return err
		}
		switch {
		case v.Null:
			if opts.isUpdate || db.Config.Classes.IncludesNull(step.Type, p.Name) {
				step.Values.put(&columnValue{column: column, name: column.Name, null: true})
			}
		case v.Blank && !opts.includeZero:
		default:
			step.Values.put(&columnValue{column: column, name: column.Name, value: v.Value})
		}
	}
	return nil
}

// columnFor resolves the column of property p of root within table.
func (db *DB) columnFor(table *schema.Table, root reflect.Type, p *model.Property) (*schema.Column, error) {
	return table.Column(p.Name, db.columnOverride(root, p))
}

func (db *DB) columnOverride(root reflect.Type, p *model.Property) string {
	if column := db.Config.Classes.ColumnMapping(root, p.Name); column != "" {
		return column
	}
	if p.Owner != nil && p.Owner != root {
		if column := db.Config.Classes.ColumnMapping(p.Owner, p.Name); column != "" {
			return column
		}
	}
	return p.Column
}

// propertyForColumn finds the property of t stored in column.
func (db *DB) propertyForColumn(ctx context.Context, t reflect.Type, column string) (*model.Property, error) {
	props := db.Descriptor.Properties(t)
	for _, lv := range db.levels(t, walkOptions{}) {
		table, err := db.tableFor(ctx, lv.table)
		if err != nil {
			return nil, err
		}
		if table == nil {
			continue
		}
		for _, p := range props {
			if !lv.owns(p) || db.isAssociation(p.Type) {
				continue
			}
			c, err := db.columnFor(table, t, p)
			if err != nil {
				return nil, err
			}
			if c != nil && strings.EqualFold(c.Name, column) {
				return p, nil
			}
		}
	}

	if name := db.Config.Classes.PropertyMapping(t, column); name != "" {
		for _, p := range props {
			if p.Name == name {
				return p, nil
			}
		}
	}
	normalized := schema.Normalize(column)
	for _, p := range props {
		if !db.isAssociation(p.Type) && schema.Normalize(p.Name) == normalized {
			return p, nil
		}
	}
	return nil, nil
}

// keyValue reads column from obj: the mapped property when it holds a
// value, else the tracked key value.
func (db *DB) keyValue(ctx context.Context, obj reflect.Value, column string) (interface{}, bool, error) {
	p, err := db.propertyForColumn(ctx, obj.Elem().Type(), column)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		v, err := p.Get(obj)
		if err != nil {
			return nil, false, err
		}
		if !v.Null && !v.Blank {
			return v.Value, true, nil
		}
	}
	if v, ok := db.objectInfo(obj.Interface()).keyValue(column); ok && v != nil {
		return v, true, nil
	}
	return nil, false, nil
}

// setKeyValue writes column into obj through its property, or into the
// tracked key values when no property maps to it.
func (db *DB) setKeyValue(ctx context.Context, obj reflect.Value, column string, value interface{}) error {
	p, err := db.propertyForColumn(ctx, obj.Elem().Type(), column)
	if err != nil {
		return err
	}
	if p != nil {
		return p.Set(obj, value)
	}
	db.objectInfo(obj.Interface()).setKeyValue(column, value)
	return nil
}
