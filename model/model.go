package model

import (
	"reflect"
	"strings"
	"sync"
)

// Descriptor tells the mapper what a type looks like. Reflect is the
// default; other implementations can serve registered or generated
// metadata instead.
type Descriptor interface {
	// Properties lists the mapped properties of t, including the ones
	// promoted from embedded structs, in declaration order.
	Properties(t reflect.Type) []*Property
	// Parent returns the type t extends, or nil. A type extends the first
	// struct it embeds that is not a framework type.
	Parent(t reflect.Type) reflect.Type
	// IsMarked reports whether t, or a type it extends, has the trait.
	IsMarked(t reflect.Type, trait Trait) bool
}

// Tabler is implemented by models that name their table.
type Tabler interface {
	TableName() string
}

// Reflect describes types via reflection and struct tags:
//
//	CustomerNo string `automap:"column:cust_no"`
//	Scratch    string `automap:"-"`
var Reflect Descriptor = &reflectDescriptor{}

type reflectDescriptor struct {
	properties sync.Map
	parents    sync.Map
}

type noParent struct{}

func (d *reflectDescriptor) Parent(t reflect.Type) reflect.Type {
	t = indirect(t)
	if v, ok := d.parents.Load(t); ok {
		if _, none := v.(noParent); none {
			return nil
		}
		return v.(reflect.Type)
	}

	var parent reflect.Type
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); isParentField(f) {
				parent = indirect(f.Type)
				break
			}
		}
	}

	if parent == nil {
		d.parents.Store(t, noParent{})
	} else {
		d.parents.Store(t, parent)
	}
	return parent
}

func isParentField(f reflect.StructField) bool {
	if !f.Anonymous || ParseTag(f.Tag).Ignored {
		return false
	}
	ft := indirect(f.Type)
	return ft.Kind() == reflect.Struct && !IsFramework(ft)
}

func (d *reflectDescriptor) IsMarked(t reflect.Type, trait Trait) bool {
	for t = indirect(t); t != nil; t = d.Parent(t) {
		if isRegistered(t, trait) {
			return true
		}
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.Anonymous && markers[f.Type] == trait {
				return true
			}
		}
	}
	return false
}

func (d *reflectDescriptor) Properties(t reflect.Type) []*Property {
	t = indirect(t)
	if v, ok := d.properties.Load(t); ok {
		return v.([]*Property)
	}

	var props []*Property
	if t.Kind() == reflect.Struct {
		props = d.collect(t, t, nil, map[string]bool{})
	}
	actual, _ := d.properties.LoadOrStore(t, props)
	return actual.([]*Property)
}

// collect walks the fields of t. Fields of the parent are owned by the
// parent; fields of other embedded structs are owned by owner. A name
// already taken at a shallower depth shadows deeper ones.
func (d *reflectDescriptor) collect(t, owner reflect.Type, index []int, taken map[string]bool) []*Property {
	var (
		props    []*Property
		embedded []int
		parent   = d.Parent(t)
	)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := ParseTag(f.Tag)
		if tag.Ignored {
			continue
		}
		if f.Anonymous && indirect(f.Type).Kind() == reflect.Struct {
			if !IsFramework(f.Type) {
				embedded = append(embedded, i)
			}
			continue
		}
		if !f.IsExported() || taken[f.Name] {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			continue
		}
		taken[f.Name] = true
		props = append(props, &Property{
			Name:   f.Name,
			Type:   f.Type,
			Owner:  owner,
			Index:  append(append([]int(nil), index...), i),
			Column: tag.Column,
		})
	}

	// promoted fields keep the position of the embedding field
	var ordered []*Property
	next := 0
	for _, i := range embedded {
		for next < len(props) && props[next].Index[len(index)] < i {
			ordered = append(ordered, props[next])
			next++
		}
		ft := indirect(t.Field(i).Type)
		sub := owner
		if ft == parent {
			sub = ft
		}
		ordered = append(ordered, d.collect(ft, sub, append(append([]int(nil), index...), i), taken)...)
	}
	return append(ordered, props[next:]...)
}

// Tag is the parsed automap struct tag.
type Tag struct {
	Column  string
	Ignored bool
}

// ParseTag reads `automap:"column:name"` and `automap:"-"`. Settings are
// separated by semicolons and their keys are case-insensitive.
func ParseTag(tag reflect.StructTag) Tag {
	var t Tag
	str := tag.Get("automap")
	if str == "-" {
		t.Ignored = true
		return t
	}
	for _, setting := range strings.Split(str, ";") {
		k, v, _ := strings.Cut(setting, ":")
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "COLUMN":
			t.Column = strings.TrimSpace(v)
		case "-":
			t.Ignored = true
		}
	}
	return t
}
