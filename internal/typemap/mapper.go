package typemap

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Mapper converts between Go field values and SQLite storage values.
//
// DateAsTicks selects the store-wide date/time encoding: INTEGER ticks when
// true, ISO-8601 TEXT when false. The same setting gates decoding so that
// unrelated integers or strings are never read back as dates.
type Mapper struct {
	DateAsTicks bool
}

// Classify maps a field type to its storage kind.
// isNull marks the column nullable when the sample value is nil.
func (m Mapper) Classify(t reflect.Type, isNull bool) Info {
	info := Info{Nullable: isNull}
	if t.Kind() == reflect.Pointer {
		info.Nullable = true
		t = t.Elem()
	}
	if isNilable(t.Kind()) {
		info.Nullable = true
	}
	info.Kind = storageKind(t, m.DateAsTicks)
	info.Composite = isComposite(t)
	info.Enum = IsEnum(t)
	return info
}

// EncodeValue encodes a loose Go value, such as a filter constant.
func (m Mapper) EncodeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	return m.Encode(rv, m.Classify(rv.Type(), false))
}

// Encode converts v into a value the SQLite driver can bind.
// Composites become JSON text, enums their underlying integer, and unsigned
// integers keep their bit pattern as int64.
func (m Mapper) Encode(v reflect.Value, info Info) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if isNilable(v.Kind()) && v.IsNil() {
		return nil, nil
	}

	t := v.Type()
	switch t {
	case uuidType:
		return v.Interface().(uuid.UUID).String(), nil
	case timeType:
		ts := v.Interface().(time.Time)
		if m.DateAsTicks {
			return ToTicks(ts), nil
		}
		return FormatISO(ts), nil
	case durationType:
		return v.Int(), nil
	}

	if info.Composite || isComposite(t) {
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, storeerr.Mapping(t.String(), "cannot serialize composite value", err)
		}
		return string(data), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		// SQLite binds NaN as NULL.
		f := v.Float()
		if math.IsNaN(f) {
			return nil, storeerr.Mappingf(t.String(), "NaN cannot be stored")
		}
		return f, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		return v.Bytes(), nil
	}
	return nil, storeerr.Mappingf(t.String(), "unsupported field type")
}

// Decode converts a raw driver value into a value of the target type.
//
// The dynamic type of raw is the column's storage class: string (TEXT),
// int64 (INTEGER), float64 (FLOAT), []byte (BLOB) or nil (NULL).
func (m Mapper) Decode(raw any, target reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(target), nil
	}
	if target.Kind() == reflect.Pointer {
		inner, err := m.Decode(raw, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	switch v := raw.(type) {
	case string:
		return m.decodeText(v, target)
	case int64:
		return m.decodeInteger(v, target)
	case float64:
		return m.decodeFloat(v, target)
	case []byte:
		return m.decodeBlob(v, target)
	case bool:
		var n int64
		if v {
			n = 1
		}
		return m.decodeInteger(n, target)
	case time.Time:
		if target == timeType {
			return reflect.ValueOf(v.UTC()), nil
		}
	}
	return reflect.Value{}, storeerr.Mappingf(target.String(), "unexpected driver value of type %T", raw)
}

// decodeText tries, in order: identifier parse, date parse (ISO mode only),
// JSON composite decode, raw text. Concrete targets only take the step that
// can produce them; interface targets run the whole cascade.
func (m Mapper) decodeText(s string, target reflect.Type) (reflect.Value, error) {
	switch {
	case target == uuidType:
		id, err := uuid.Parse(s)
		if err != nil {
			return reflect.Value{}, storeerr.Mapping(target.String(), "invalid identifier text", err)
		}
		return reflect.ValueOf(id), nil
	case target == timeType:
		if m.DateAsTicks {
			return reflect.Value{}, storeerr.Mappingf(target.String(), "text value in a tick-encoded date column")
		}
		ts, err := ParseISO(s)
		if err != nil {
			return reflect.Value{}, storeerr.Mapping(target.String(), "invalid date text", err)
		}
		return reflect.ValueOf(ts), nil
	case target.Kind() == reflect.Interface:
		return assign(m.guessText(s), target)
	case target.Kind() == reflect.String:
		return reflect.ValueOf(s).Convert(target), nil
	case isBytes(target):
		return reflect.ValueOf([]byte(s)).Convert(target), nil
	case isComposite(target):
		ptr := reflect.New(target)
		if err := json.Unmarshal([]byte(s), ptr.Interface()); err != nil {
			return reflect.Value{}, storeerr.Mapping(target.String(), "invalid composite JSON", err)
		}
		return ptr.Elem(), nil
	}
	return reflect.Value{}, storeerr.Mappingf(target.String(), "cannot decode text %q", s)
}

// guessText resolves text of unknown meaning.
func (m Mapper) guessText(s string) any {
	if id, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return id
	}
	if !m.DateAsTicks {
		if ts, err := ParseISO(s); err == nil {
			return ts
		}
	}
	var doc any
	if json.Valid([]byte(s)) && json.Unmarshal([]byte(s), &doc) == nil {
		return doc
	}
	return s
}

func (m Mapper) decodeInteger(n int64, target reflect.Type) (reflect.Value, error) {
	switch {
	case target == durationType:
		return reflect.ValueOf(time.Duration(n)), nil
	case target == timeType:
		if !m.DateAsTicks {
			return reflect.Value{}, storeerr.Mappingf(target.String(), "integer value in an ISO-text date column")
		}
		return reflect.ValueOf(FromTicks(n)), nil
	}

	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Bool:
		out.SetBool(n != 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if out.OverflowInt(n) {
			return reflect.Value{}, storeerr.Mappingf(target.String(), "value %d out of range", n)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if out.OverflowUint(uint64(n)) {
			return reflect.Value{}, storeerr.Mappingf(target.String(), "value %d out of range", n)
		}
		out.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		out.SetFloat(float64(n))
	case reflect.String:
		out.SetString(strconv.FormatInt(n, 10))
	case reflect.Interface:
		return assign(n, target)
	default:
		return reflect.Value{}, storeerr.Mappingf(target.String(), "cannot decode integer %d", n)
	}
	return out, nil
}

func (m Mapper) decodeFloat(f float64, target reflect.Type) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Float32, reflect.Float64:
		if target.Kind() == reflect.Float32 && !math.IsInf(f, 0) && out.OverflowFloat(f) {
			return reflect.Value{}, storeerr.Mappingf(target.String(), "value %g out of range", f)
		}
		out.SetFloat(f)
		return out, nil
	case reflect.Interface:
		return assign(f, target)
	}
	if isIntegerKind(target.Kind()) && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return m.decodeInteger(int64(f), target)
	}
	return reflect.Value{}, storeerr.Mappingf(target.String(), "cannot decode float %g", f)
}

func (m Mapper) decodeBlob(b []byte, target reflect.Type) (reflect.Value, error) {
	switch {
	case isBytes(target):
		return reflect.ValueOf(b).Convert(target), nil
	case target.Kind() == reflect.Interface:
		return assign(b, target)
	case target.Kind() == reflect.String:
		return reflect.ValueOf(string(b)).Convert(target), nil
	}
	return reflect.Value{}, storeerr.Mappingf(target.String(), "cannot decode blob")
}

func assign(v any, target reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(target) {
		return reflect.Value{}, storeerr.Mappingf(target.String(), "decoded %T is not assignable", v)
	}
	out := reflect.New(target).Elem()
	out.Set(rv)
	return out, nil
}
