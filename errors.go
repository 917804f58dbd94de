package automap

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/automap-go/automap/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrInvalidTransaction the handle cannot begin, commit or roll back a transaction
	ErrInvalidTransaction = errors.New("no valid transaction")
	// ErrMissingWhereClause an update or delete would touch every row
	ErrMissingWhereClause = errors.New("WHERE conditions required")
	// ErrInvalidDB the handle is nil
	ErrInvalidDB = errors.New("invalid db")
	// ErrModelValueRequired the operation needs a pointer to a struct
	ErrModelValueRequired = errors.New("model value required")
	// ErrUnsupportedModel the value cannot be mapped to a table
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrTableNotFound no table matches a type of the embedding chain
	ErrTableNotFound = errors.New("table not found")
	// ErrReadOnlyTable every column that would be inserted is read only
	ErrReadOnlyTable = errors.New("table is read only")
	// ErrNoInsertColumns the object has no values to insert
	ErrNoInsertColumns = errors.New("no columns to insert")
	// ErrNoUpdateColumns the object has no values to update
	ErrNoUpdateColumns = errors.New("no columns to update")
	// ErrMissingKeyRelation two tables have no primary/foreign key relation
	ErrMissingKeyRelation = errors.New("no key relation")
	// ErrNoIDValues a reload found no primary key values to search by
	ErrNoIDValues = errors.New("no id values")
)

// Error carries the public operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Err: err}
}

func tableNotFound(t reflect.Type) error {
	return fmt.Errorf("%w for %s", ErrTableNotFound, t)
}
