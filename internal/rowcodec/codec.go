package rowcodec

import (
	"fmt"
	"reflect"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
	"github.com/thunderluca/mementofx-sqlite/internal/typemap"
)

// Finalizer is implemented by kinds that need to run code once all fields
// have been populated from a row.
type Finalizer interface {
	AfterDecode() error
}

// Value is one encoded column of an event instance.
type Value struct {
	Column string
	Value  any
	Info   typemap.Info
}

// EncodeRow encodes every field of ev in declaration order.
// ev must be a struct or a pointer to a struct of the described kind.
func EncodeRow(desc *Descriptor, ev any, dateAsTicks bool) ([]Value, error) {
	rv := reflect.ValueOf(ev)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, storeerr.Argument("event", "must not be nil")
		}
		rv = rv.Elem()
	}
	if rv.Type() != desc.Type {
		return nil, storeerr.Mappingf(desc.Name, "cannot encode value of type %s", rv.Type())
	}

	mapper := typemap.Mapper{DateAsTicks: dateAsTicks}
	values := make([]Value, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		fv := rv.FieldByIndex(f.Index)
		info := mapper.Classify(f.Type, isNullValue(fv))
		encoded, err := mapper.Encode(fv, info)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", desc.Name, f.GoName, err)
		}
		values = append(values, Value{Column: f.Column, Value: encoded, Info: info})
	}
	return values, nil
}

// DecodeRow builds a new instance of the described kind from a raw row.
//
// Columns that match no field are ignored. Every constructed field must have
// a column; a missing one is a mapping error. Constructed fields are set
// first, then the base and optional fields are injected.
func DecodeRow(desc *Descriptor, raw map[string]any, dateAsTicks bool) (reflect.Value, error) {
	mapper := typemap.Mapper{DateAsTicks: dateAsTicks}

	decoded := make(map[int]reflect.Value, len(raw))
	for column, value := range raw {
		i, ok := desc.byColumn[fold(column)]
		if !ok {
			continue
		}
		f := desc.Fields[i]
		v, err := mapper.Decode(value, f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("decode %s.%s: %w", desc.Name, f.GoName, err)
		}
		decoded[i] = v
	}

	ptr := reflect.New(desc.Type)
	target := ptr.Elem()

	for i, f := range desc.Fields {
		if !f.Constructed {
			continue
		}
		v, ok := decoded[i]
		if !ok {
			return reflect.Value{}, storeerr.Mappingf(desc.Name+"."+f.GoName,
				"no column %q in row for required field", f.Column)
		}
		if err := set(target, f, v); err != nil {
			return reflect.Value{}, err
		}
	}

	for i, f := range desc.Fields {
		if f.Constructed {
			continue
		}
		v, ok := decoded[i]
		if !ok {
			continue
		}
		if err := set(target, f, v); err != nil {
			return reflect.Value{}, err
		}
	}

	if fin, ok := ptr.Interface().(Finalizer); ok {
		if err := fin.AfterDecode(); err != nil {
			return reflect.Value{}, storeerr.Mapping(desc.Name, "after decode", err)
		}
	}
	return ptr, nil
}

// DecodeEvent is DecodeRow returning the instance as an event.Event.
func DecodeEvent(desc *Descriptor, raw map[string]any, dateAsTicks bool) (event.Event, error) {
	ptr, err := DecodeRow(desc, raw, dateAsTicks)
	if err != nil {
		return nil, err
	}
	ev, ok := ptr.Interface().(event.Event)
	if !ok {
		return nil, storeerr.Mappingf(desc.Name, "kind does not implement event.Event")
	}
	return ev, nil
}

func set(target reflect.Value, f Field, v reflect.Value) error {
	fv, err := target.FieldByIndexErr(f.Index)
	if err != nil || !fv.CanSet() {
		return storeerr.Mappingf(f.GoName, "field is not settable")
	}
	if !v.Type().AssignableTo(fv.Type()) {
		return storeerr.Mappingf(f.GoName, "decoded %s is not assignable to %s", v.Type(), fv.Type())
	}
	fv.Set(v)
	return nil
}

func isNullValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
