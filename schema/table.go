package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Key is a directed foreign key edge. See Introspector for which side
// is Local on imported and exported keys.
type Key struct {
	LocalCatalog string
	LocalSchema  string
	LocalTable   string
	LocalColumn  string

	ForeignCatalog string
	ForeignSchema  string
	ForeignTable   string
	ForeignColumn  string
}

func (k *Key) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", k.LocalTable, k.LocalColumn, k.ForeignTable, k.ForeignColumn)
}

// Column is a resolved column. It is immutable once its table is loaded.
type Column struct {
	Name          string
	TypeName      string
	TypeCode      TypeCode
	Size          int
	Scale         int
	Radix         int
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	ReadOnly      bool
	Searchable    bool
	Ordinal       int
}

// Table is a table or view discovered by a Catalog. Its columns and keys
// are loaded once, the first time the table is resolved.
type Table struct {
	Catalog string
	Schema  string
	Name    string
	Type    string

	// GeneratedKey is the auto-increment column, if any.
	GeneratedKey string

	catalog    *Catalog
	normalized string
	stripped   string

	mu       sync.Mutex
	loaded   atomic.Bool
	columns  []*Column
	byName   map[string]*Column
	pks      []string
	imported []*Key
	exported []*Key

	columnCache sync.Map
}

func newTable(c *Catalog, ref TableRef) *Table {
	return &Table{
		Catalog:    ref.Catalog,
		Schema:     ref.Schema,
		Name:       ref.Name,
		Type:       ref.Type,
		catalog:    c,
		normalized: Normalize(ref.Name),
		stripped:   Normalize(c.options.stripTable(ref.Name)),
	}
}

// Ref returns the reference used to introspect the table.
func (t *Table) Ref() TableRef {
	return TableRef{Catalog: t.Catalog, Schema: t.Schema, Name: t.Name, Type: t.Type}
}

// AbsoluteName is catalog.schema.name with empty parts left out.
func (t *Table) AbsoluteName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Catalog, t.Schema, t.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

func (t *Table) String() string {
	return t.AbsoluteName()
}

// Loaded reports whether the columns and keys have been read.
func (t *Table) Loaded() bool {
	return t.loaded.Load()
}

func (t *Table) load(ctx context.Context, src Introspector) error {
	if t.loaded.Load() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded.Load() {
		return nil
	}

	ref := t.Ref()
	pks, err := src.PrimaryKeys(ctx, ref)
	if err != nil {
		return fmt.Errorf("primary keys of %s: %w", t, err)
	}
	imported, err := src.ImportedKeys(ctx, ref)
	if err != nil {
		return fmt.Errorf("imported keys of %s: %w", t, err)
	}
	exported, err := src.ExportedKeys(ctx, ref)
	if err != nil {
		return fmt.Errorf("exported keys of %s: %w", t, err)
	}
	infos, err := src.Columns(ctx, ref)
	if err != nil {
		return fmt.Errorf("columns of %s: %w", t, err)
	}

	pkSet := make(map[string]bool, len(pks))
	for _, pk := range pks {
		pkSet[Normalize(pk)] = true
	}

	t.pks = pks
	t.imported = make([]*Key, 0, len(imported))
	for i := range imported {
		t.imported = append(t.imported, &imported[i])
	}
	t.exported = make([]*Key, 0, len(exported))
	for i := range exported {
		t.exported = append(t.exported, &exported[i])
	}

	t.columns = make([]*Column, 0, len(infos))
	t.byName = make(map[string]*Column, len(infos))
	for i, info := range infos {
		col := &Column{
			Name:          info.Name,
			TypeName:      info.TypeName,
			TypeCode:      info.TypeCode,
			Size:          info.Size,
			Scale:         info.Scale,
			Radix:         info.Radix,
			Nullable:      info.Nullable,
			PrimaryKey:    pkSet[Normalize(info.Name)],
			AutoIncrement: info.AutoIncrement,
			ReadOnly:      info.ReadOnly || info.AutoIncrement,
			Searchable:    info.Searchable,
			Ordinal:       i,
		}
		if col.TypeCode == 0 {
			col.TypeCode = TypeCodeOf(col.TypeName)
		}
		if col.AutoIncrement && t.GeneratedKey == "" {
			t.GeneratedKey = col.Name
		}
		t.columns = append(t.columns, col)
		if _, ok := t.byName[Normalize(col.Name)]; !ok {
			t.byName[Normalize(col.Name)] = col
		}
	}

	t.loaded.Store(true)
	return nil
}

// Columns returns the columns in ordinal order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// ColumnByName finds a column by its normalized name.
func (t *Table) ColumnByName(name string) *Column {
	return t.byName[Normalize(name)]
}

// PrimaryKeys returns the primary key column names in key order.
func (t *Table) PrimaryKeys() []string {
	return t.pks
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *Table) IsPrimaryKey(column string) bool {
	if col := t.ColumnByName(column); col != nil {
		return col.PrimaryKey
	}
	for _, pk := range t.pks {
		if strings.EqualFold(pk, column) {
			return true
		}
	}
	return false
}

// ImportedKeys returns the foreign keys this table declares.
func (t *Table) ImportedKeys() []*Key {
	return t.imported
}

// ImportedKey returns the foreign key declared on column, or nil.
func (t *Table) ImportedKey(column string) *Key {
	for _, k := range t.imported {
		if strings.EqualFold(k.LocalColumn, column) {
			return k
		}
	}
	return nil
}

// ExportedKeys returns the foreign keys of other tables referencing this one.
func (t *Table) ExportedKeys() []*Key {
	return t.exported
}

// KeyColumns returns the primary key columns followed by the imported key
// columns, without repeats. These are the columns whose values are tracked
// for persistent objects.
func (t *Table) KeyColumns() []string {
	cols := make([]string, 0, len(t.pks)+len(t.imported))
	seen := make(map[string]bool, cap(cols))
	add := func(name string) {
		if l := strings.ToLower(name); !seen[l] {
			seen[l] = true
			cols = append(cols, name)
		}
	}
	for _, pk := range t.pks {
		add(pk)
	}
	for _, k := range t.imported {
		add(k.LocalColumn)
	}
	return cols
}
