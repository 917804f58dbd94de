package schema

import (
	"context"
	"strings"
)

// StoresCase describes how a database stores unquoted identifiers.
type StoresCase int

const (
	StoresUnknown StoresCase = iota
	StoresUpper
	StoresLower
	StoresMixed
)

func (c StoresCase) String() string {
	switch c {
	case StoresUpper:
		return "UPPER"
	case StoresLower:
		return "LOWER"
	case StoresMixed:
		return "MIXED"
	default:
		return "UNKNOWN"
	}
}

// Dialect is what a handle reports about the database behind it. It is
// probed once per URL and cached with the catalog.
type Dialect struct {
	// Name is the engine name, "sqlite", "postgres", "mysql"...
	Name string
	// URL identifies the database; distinct URLs get distinct catalogs.
	URL string
	// StoresCase is how unquoted identifiers are stored.
	StoresCase StoresCase
	// IdentifierQuote wraps identifiers, `"` when empty.
	IdentifierQuote string
	// GeneratedKeys reports that sql.Result.LastInsertId is meaningful.
	GeneratedKeys bool
	// Returning reports support for INSERT ... RETURNING.
	Returning bool
}

// Quote quotes a single identifier.
func (d Dialect) Quote(name string) string {
	q := d.IdentifierQuote
	if q == "" {
		q = `"`
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteTable quotes the table name, qualified by its schema when it has one.
func (d Dialect) QuoteTable(t *Table) string {
	if t.Schema != "" {
		return d.Quote(t.Schema) + "." + d.Quote(t.Name)
	}
	return d.Quote(t.Name)
}

// TableRef names a table as reported by Introspector.Tables.
type TableRef struct {
	Catalog string
	Schema  string
	Name    string
	Type    string
}

// ColumnInfo is a column as reported by Introspector.Columns.
type ColumnInfo struct {
	Name          string
	TypeName      string
	TypeCode      TypeCode
	Size          int
	Scale         int
	Radix         int
	Nullable      bool
	AutoIncrement bool
	ReadOnly      bool
	Searchable    bool
}

// Introspector reads schema metadata. Patterns passed to Tables use SQL
// LIKE syntax; empty catalog and schema patterns mean no filter.
//
// ImportedKeys returns the foreign keys declared by the table: Local is
// the referencing column, Foreign the referenced one. ExportedKeys
// returns the foreign keys of other tables that reference it: Local is
// the referenced column of this table, Foreign the referencing one.
type Introspector interface {
	Describe(ctx context.Context) (Dialect, error)
	Tables(ctx context.Context, catalog, schema, pattern string, types []string) ([]TableRef, error)
	PrimaryKeys(ctx context.Context, table TableRef) ([]string, error)
	ImportedKeys(ctx context.Context, table TableRef) ([]Key, error)
	ExportedKeys(ctx context.Context, table TableRef) ([]Key, error)
	Columns(ctx context.Context, table TableRef) ([]ColumnInfo, error)
}
