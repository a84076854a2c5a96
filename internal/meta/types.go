// Package meta describes table schemas and the read-only metadata a caller
// passes to fit: the declared type of each column and the roles it plays.
package meta

import (
	"fmt"
	"strings"
)

// DataType is the declared type tag of a column.
type DataType int

const (
	// TypeUnknown is a column whose engine type has no mapping.
	TypeUnknown DataType = iota
	// TypeBool represents boolean data.
	TypeBool
	// TypeInt represents integer data (any size).
	TypeInt
	// TypeFloat represents floating-point data (any precision).
	TypeFloat
	// TypeDecimal represents fixed-precision numeric data.
	TypeDecimal
	// TypeString represents text data.
	TypeString
	// TypeDate represents date data (without time).
	TypeDate
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
	// TypeBinary represents binary/blob data.
	TypeBinary
)

var typeNames = map[DataType]string{
	TypeUnknown:   "unknown",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeDecimal:   "decimal",
	TypeString:    "string",
	TypeDate:      "date",
	TypeTimestamp: "timestamp",
	TypeBinary:    "binary",
}

// String returns the lower-case type name used in step definitions.
func (dt DataType) String() string {
	if name, ok := typeNames[dt]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(dt))
}

// IsNumeric reports whether mean and median are defined for the type.
func (dt DataType) IsNumeric() bool {
	return dt == TypeInt || dt == TypeFloat || dt == TypeDecimal
}

// IsTemporal reports whether the type is a date or timestamp.
func (dt DataType) IsTemporal() bool {
	return dt == TypeDate || dt == TypeTimestamp
}

// IsNominal reports whether the type holds free-form text categories.
func (dt DataType) IsNominal() bool {
	return dt == TypeString
}

// ParseDataType parses a type name. Besides the canonical names it accepts
// the common SQL spellings so engine schemas map onto the same tags.
func ParseDataType(name string) (DataType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = strings.TrimSpace(n[:i]) // varchar(20), numeric(10,2)
	}

	switch n {
	case "bool", "boolean":
		return TypeBool, nil
	case "int", "integer", "int2", "int4", "int8", "smallint", "bigint", "tinyint":
		return TypeInt, nil
	case "float", "real", "double", "double precision", "float4", "float8":
		return TypeFloat, nil
	case "decimal", "numeric":
		return TypeDecimal, nil
	case "string", "text", "varchar", "char", "character", "character varying", "clob":
		return TypeString, nil
	case "date":
		return TypeDate, nil
	case "timestamp", "datetime", "timestamptz", "timestamp with time zone", "timestamp without time zone":
		return TypeTimestamp, nil
	case "binary", "blob", "bytea":
		return TypeBinary, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown data type %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (dt DataType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (dt *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}
