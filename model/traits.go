package model

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strings"
	"sync"
)

// Trait is a capability a mapped type can be marked with.
type Trait int

const (
	// TraitSingleTable stores a whole embedding chain in the table of its base type.
	TraitSingleTable Trait = iota + 1
	// TraitConcreteTable stores a whole embedding chain in the table of the outermost type.
	TraitConcreteTable
	// TraitGlobalUpdate allows updates without a WHERE clause.
	TraitGlobalUpdate
	// TraitGlobalDelete allows deletes without a WHERE clause.
	TraitGlobalDelete
)

func (t Trait) String() string {
	switch t {
	case TraitSingleTable:
		return "SingleTable"
	case TraitConcreteTable:
		return "ConcreteTable"
	case TraitGlobalUpdate:
		return "GlobalUpdate"
	case TraitGlobalDelete:
		return "GlobalDelete"
	}
	return "Trait(?)"
}

// Markers. Embedding one in a struct marks the struct with the trait:
//
//	type Employee struct {
//		model.SingleTable
//		Person
//		Salary int
//	}
type (
	SingleTable   struct{}
	ConcreteTable struct{}
	GlobalUpdate  struct{}
	GlobalDelete  struct{}
)

var (
	markers = map[reflect.Type]Trait{
		reflect.TypeOf(SingleTable{}):   TraitSingleTable,
		reflect.TypeOf(ConcreteTable{}): TraitConcreteTable,
		reflect.TypeOf(GlobalUpdate{}):  TraitGlobalUpdate,
		reflect.TypeOf(GlobalDelete{}):  TraitGlobalDelete,
	}

	framework sync.Map
	marked    sync.Map
)

func init() {
	for t := range markers {
		framework.Store(t, true)
	}
}

type markKey struct {
	typ   reflect.Type
	trait Trait
}

// Mark registers traits for the type of model, an alternative to
// embedding markers for types that cannot be changed.
func Mark(model any, traits ...Trait) {
	t := TypeOf(model)
	for _, trait := range traits {
		marked.Store(markKey{t, trait}, true)
	}
}

// Unmark removes traits registered with Mark.
func Unmark(model any, traits ...Trait) {
	t := TypeOf(model)
	for _, trait := range traits {
		marked.Delete(markKey{t, trait})
	}
}

func isRegistered(t reflect.Type, trait Trait) bool {
	_, ok := marked.Load(markKey{t, trait})
	return ok
}

// Framework declares types that belong to the mapper itself. They are
// never part of an embedding chain and contribute no properties.
func Framework(types ...reflect.Type) {
	for _, t := range types {
		framework.Store(t, true)
	}
}

// IsFramework reports whether t was declared with Framework.
func IsFramework(t reflect.Type) bool {
	t = indirect(t)
	_, ok := framework.Load(t)
	return ok
}

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// IsMappable reports whether values of t can themselves be mapped to a
// table: user-defined structs that are not scalar database values.
func IsMappable(t reflect.Type) bool {
	t = indirect(t)
	if t.Kind() != reflect.Struct || IsFramework(t) || isStandard(t.PkgPath()) {
		return false
	}
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) ||
		reflect.PointerTo(t).Implements(scannerType) {
		return false
	}
	return true
}

// standardRoots are the top level directories of the standard library.
// Module paths need no dot, so "myapp/models" is a user package.
var standardRoots = map[string]bool{
	"archive": true, "bufio": true, "bytes": true, "cmp": true, "compress": true,
	"container": true, "context": true, "crypto": true, "database": true, "debug": true,
	"embed": true, "encoding": true, "errors": true, "expvar": true, "flag": true,
	"fmt": true, "go": true, "hash": true, "html": true, "image": true,
	"index": true, "internal": true, "io": true, "iter": true, "log": true,
	"maps": true, "math": true, "mime": true, "net": true, "os": true,
	"path": true, "plugin": true, "reflect": true, "regexp": true, "runtime": true,
	"slices": true, "sort": true, "strconv": true, "strings": true, "structs": true,
	"sync": true, "syscall": true, "testing": true, "text": true, "time": true,
	"unicode": true, "unique": true, "unsafe": true, "vendor": true, "weak": true,
}

// isStandard reports whether pkgPath is a standard library package.
// Unnamed types have an empty path and are treated the same way.
func isStandard(pkgPath string) bool {
	if pkgPath == "" {
		return true
	}
	first, _, _ := strings.Cut(pkgPath, "/")
	return standardRoots[first]
}

// TypeOf returns the struct type behind model, which may be a value, a
// pointer, a slice of either or a reflect.Type.
func TypeOf(model any) reflect.Type {
	var t reflect.Type
	switch m := model.(type) {
	case reflect.Type:
		t = m
	case reflect.Value:
		t = m.Type()
	default:
		t = reflect.TypeOf(model)
	}
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}

// TypeName is the name a table is searched for: the type name without
// package or type arguments.
func TypeName(t reflect.Type) string {
	name := indirect(t).Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
