package automap

import "github.com/automap-go/automap/model"

// Markers for embedding in mapped structs.
type (
	// SingleTable stores a type and the types it extends in one table,
	// named after the base type.
	SingleTable = model.SingleTable
	// ConcreteTable stores a type and the types it extends in its own
	// table.
	ConcreteTable = model.ConcreteTable
	// GlobalUpdate allows saving without key values, updating every row.
	GlobalUpdate = model.GlobalUpdate
	// GlobalDelete allows deleting without key values.
	GlobalDelete = model.GlobalDelete
)
