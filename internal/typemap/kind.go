package typemap

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is a SQLite storage class.
type Kind int

const (
	Null Kind = iota
	Text
	Integer
	Float
	Blob
)

// String returns the storage class name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "TEXT"
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Blob:
		return "BLOB"
	default:
		return "NULL"
	}
}

// ColumnType returns the declared column type used in DDL for k.
// Null has no declared type.
func ColumnType(k Kind) string {
	switch k {
	case Text:
		return "TEXT"
	case Integer:
		return "INTEGER"
	case Float:
		return "REAL"
	case Blob:
		return "BLOB"
	default:
		return ""
	}
}

// ParseColumnType maps a declared column type back to a storage kind
// following SQLite's affinity rules. NUMERIC affinity maps to Integer.
func ParseColumnType(decl string) Kind {
	d := strings.ToUpper(strings.TrimSpace(decl))
	switch {
	case d == "":
		return Blob
	case strings.Contains(d, "INT"):
		return Integer
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"), d == "TXT":
		return Text
	case strings.Contains(d, "BLOB"):
		return Blob
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return Float
	case d == "NULL":
		return Null
	default:
		return Integer
	}
}

// Info is the classification of one field type.
type Info struct {
	Kind      Kind
	Nullable  bool
	Composite bool // serialized as JSON text
	Enum      bool // defined integer type, stored as its underlying value
}

var (
	uuidType     = reflect.TypeFor[uuid.UUID]()
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
)

// IsEnum reports whether t is treated as an enumeration: a defined (named,
// non-builtin) integer type. time.Duration is excluded.
func IsEnum(t reflect.Type) bool {
	if t == durationType || t.PkgPath() == "" {
		return false
	}
	return isIntegerKind(t.Kind())
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Map, reflect.Slice, reflect.Interface, reflect.Pointer:
		return true
	}
	return false
}

// isComposite reports whether values of t are stored as JSON text.
func isComposite(t reflect.Type) bool {
	if t == uuidType || t == timeType || t == durationType || isBytes(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Interface:
		return true
	}
	return false
}

// storageKind classifies a non-pointer type.
func storageKind(t reflect.Type, dateAsTicks bool) Kind {
	switch {
	case t == uuidType:
		return Text
	case t == timeType:
		if dateAsTicks {
			return Integer
		}
		return Text
	case t == durationType:
		return Integer
	case isBytes(t):
		return Blob
	}

	switch t.Kind() {
	case reflect.Bool:
		return Integer
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.String:
		return Text
	}
	if isIntegerKind(t.Kind()) {
		return Integer
	}
	return Text
}
