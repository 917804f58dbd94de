package model

import (
	"database/sql/driver"
	"fmt"
	"reflect"
)

// Property is a mapped field of a struct type.
type Property struct {
	Name string
	Type reflect.Type
	// Owner is the type of the embedding chain declaring the field.
	Owner reflect.Type
	// Index is the path from the described type, as for FieldByIndex.
	Index []int
	// Column is the column named by the struct tag, if any.
	Column string
}

func (p *Property) String() string {
	return p.Owner.Name() + "." + p.Name
}

// Field returns the field within obj, a struct or pointer to struct. It
// returns false when an embedded pointer on the path is nil.
func (p *Property) Field(obj reflect.Value) (reflect.Value, bool) {
	v, err := reflect.Indirect(obj).FieldByIndexErr(p.Index)
	return v, err == nil
}

// Settable returns the field within obj, allocating nil embedded
// pointers on the path.
func (p *Property) Settable(obj reflect.Value) (reflect.Value, error) {
	v := reflect.Indirect(obj)
	if !v.CanAddr() {
		return reflect.Value{}, ErrUnaddressable
	}
	for i, x := range p.Index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

// Value is the current value of a property, ready to be bound to a
// statement. Null is true for nil pointers, slices, maps, interfaces
// and valuers producing nil. Blank is true for non-null zero values.
type Value struct {
	Value any
	Null  bool
	Blank bool
}

// Get reads the property from obj. Pointers are dereferenced and
// driver.Valuer implementations are evaluated.
func (p *Property) Get(obj reflect.Value) (Value, error) {
	f, ok := p.Field(obj)
	if !ok {
		return Value{Null: true}, nil
	}

	switch f.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if f.IsNil() {
			return Value{Null: true}, nil
		}
	}

	blank := f.IsZero()
	v := f.Interface()
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return Value{}, fmt.Errorf("value of %s: %w", p, err)
		}
		if dv == nil {
			return Value{Null: true}, nil
		}
		return Value{Value: dv, Blank: blank}, nil
	}

	if f.Kind() == reflect.Pointer {
		// an explicit pointer to a zero value is never blank
		return Value{Value: f.Elem().Interface()}, nil
	}
	return Value{Value: v, Blank: blank}, nil
}

// Set stores value into the property of obj, converting it to the field
// type. A nil value zeroes the field.
func (p *Property) Set(obj reflect.Value, value any) error {
	field, err := p.Settable(obj)
	if err != nil {
		return err
	}
	if err := Assign(field, value); err != nil {
		return fmt.Errorf("could not set %s: %w", p, err)
	}
	return nil
}
