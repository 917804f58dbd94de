package schema

import "strings"

// TypeCode is the generic SQL type of a column. Codes reported by
// different engines compare equal for the same kind of type.
type TypeCode int

const (
	TypeOther     TypeCode = 1111
	TypeBit       TypeCode = -7
	TypeTinyInt   TypeCode = -6
	TypeSmallInt  TypeCode = 5
	TypeInteger   TypeCode = 4
	TypeBigInt    TypeCode = -5
	TypeReal      TypeCode = 7
	TypeDouble    TypeCode = 8
	TypeNumeric   TypeCode = 2
	TypeDecimal   TypeCode = 3
	TypeChar      TypeCode = 1
	TypeVarchar   TypeCode = 12
	TypeText      TypeCode = -1
	TypeDate      TypeCode = 91
	TypeTime      TypeCode = 92
	TypeTimestamp TypeCode = 93
	TypeBinary    TypeCode = -2
	TypeBlob      TypeCode = 2004
	TypeBoolean   TypeCode = 16
)

var typeNames = []struct {
	prefix string
	code   TypeCode
}{
	{"bigserial", TypeBigInt},
	{"serial", TypeInteger},
	{"bigint", TypeBigInt},
	{"int8", TypeBigInt},
	{"smallint", TypeSmallInt},
	{"int2", TypeSmallInt},
	{"tinyint", TypeTinyInt},
	{"mediumint", TypeInteger},
	{"integer", TypeInteger},
	{"interval", TypeOther},
	{"int", TypeInteger},
	{"boolean", TypeBoolean},
	{"bool", TypeBoolean},
	{"bit", TypeBit},
	{"double", TypeDouble},
	{"float", TypeDouble},
	{"real", TypeReal},
	{"numeric", TypeNumeric},
	{"decimal", TypeDecimal},
	{"character varying", TypeVarchar},
	{"varchar", TypeVarchar},
	{"nvarchar", TypeVarchar},
	{"character", TypeChar},
	{"char", TypeChar},
	{"nchar", TypeChar},
	{"text", TypeText},
	{"clob", TypeText},
	{"timestamp", TypeTimestamp},
	{"datetime", TypeTimestamp},
	{"date", TypeDate},
	{"time", TypeTime},
	{"bytea", TypeBinary},
	{"binary", TypeBinary},
	{"varbinary", TypeBinary},
	{"blob", TypeBlob},
}

// TypeCodeOf maps a database type name such as "VARCHAR(64)" or
// "bigint unsigned" to its TypeCode.
func TypeCodeOf(typeName string) TypeCode {
	name := strings.ToLower(strings.TrimSpace(typeName))
	for _, t := range typeNames {
		if strings.HasPrefix(name, t.prefix) {
			return t.code
		}
	}
	return TypeOther
}

// IsInteger reports whether values of the type are whole numbers.
func (c TypeCode) IsInteger() bool {
	switch c {
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		return true
	}
	return false
}
