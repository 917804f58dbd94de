package automap

import "reflect"

// Query returns the objects matching the non-zero fields of example; a
// nil example selects every row of T.
func Query[T any](db *DB, example *T, clauses ...interface{}) ([]*T, error) {
	var model interface{} = example
	if example == nil {
		model = reflect.TypeOf((*T)(nil)).Elem()
	}
	res, err := db.QueryObject(model, clauses...)
	if err != nil {
		return nil, err
	}
	var list []*T
	if err := res.All(&list); err != nil {
		return nil, wrapError("query", err)
	}
	return list, nil
}

// Load returns the first object of T selected by clauses.
func Load[T any](db *DB, clauses ...interface{}) (*T, error) {
	res, err := db.QueryObject(reflect.TypeOf((*T)(nil)).Elem(), clauses...)
	if err != nil {
		return nil, err
	}
	if !res.Next() {
		return nil, wrapError("load", ErrRecordNotFound)
	}
	obj := new(T)
	if err := res.Current(obj); err != nil {
		return nil, wrapError("load", err)
	}
	return obj, nil
}

// LoadAll returns every object of T selected by clauses.
func LoadAll[T any](db *DB, clauses ...interface{}) ([]*T, error) {
	var list []*T
	if err := db.LoadObjects(&list, clauses...); err != nil {
		return nil, err
	}
	return list, nil
}
