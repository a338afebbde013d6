package rowcodec

import (
	"reflect"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

const tagName = "event"

var domainEventType = reflect.TypeFor[event.DomainEvent]()

// Field describes one persisted field of an event kind.
type Field struct {
	Column string       // column name
	GoName string       // Go field name, for error messages
	Index  []int        // reflect index path from the kind's struct
	Type   reflect.Type // declared field type

	// Constructed fields must be present in a row; they are populated first.
	Constructed bool
	// Base marks the inherited DomainEvent fields (Id, TimeStamp, TimelineId).
	Base bool
}

// Descriptor is the cached field layout of one event kind.
type Descriptor struct {
	Name   string // table name
	Type   reflect.Type
	Fields []Field

	byColumn map[string]int // folded column name -> index into Fields
}

var descriptors sync.Map // reflect.Type -> *Descriptor

// Describe returns the descriptor for kind t, building it on first use.
// t may be the struct type or a pointer to it; the struct must embed
// event.DomainEvent by value.
func Describe(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, storeerr.Argument("kind", "must not be nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := descriptors.Load(t); ok {
		return cached.(*Descriptor), nil
	}

	desc, err := build(t)
	if err != nil {
		return nil, err
	}
	actual, _ := descriptors.LoadOrStore(t, desc)
	return actual.(*Descriptor), nil
}

// DescribeValue is Describe for the dynamic type of ev.
func DescribeValue(ev event.Event) (*Descriptor, error) {
	return Describe(reflect.TypeOf(ev))
}

func build(t reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, storeerr.Mappingf(t.String(), "event kind must be a struct")
	}
	if t.Name() == "" {
		return nil, storeerr.Mappingf(t.String(), "event kind must be a named type")
	}

	desc := &Descriptor{
		Name:     t.Name(),
		Type:     t,
		byColumn: make(map[string]int),
	}

	embedsBase := false
	if err := desc.collect(t, nil, &embedsBase); err != nil {
		return nil, err
	}
	if !embedsBase {
		return nil, storeerr.Mappingf(t.Name(), "event kind must embed event.DomainEvent")
	}
	return desc, nil
}

// collect walks t in declaration order, flattening embedded structs.
func (d *Descriptor) collect(t reflect.Type, prefix []int, embedsBase *bool) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		name, optional, skip := parseTag(sf)
		if skip {
			continue
		}

		if sf.Anonymous {
			ft := sf.Type
			if ft == domainEventType {
				*embedsBase = true
				if err := d.collectBase(index); err != nil {
					return err
				}
				continue
			}
			if ft.Kind() == reflect.Struct && sf.Tag.Get(tagName) == "" {
				if err := d.collect(ft, index, embedsBase); err != nil {
					return err
				}
				continue
			}
			if ft.Kind() == reflect.Pointer && ft.Elem() == domainEventType {
				return storeerr.Mappingf(d.Name, "event.DomainEvent must be embedded by value")
			}
		}
		if !sf.IsExported() {
			continue
		}

		if err := d.add(Field{
			Column:      name,
			GoName:      sf.Name,
			Index:       index,
			Type:        sf.Type,
			Constructed: !optional,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Descriptor) collectBase(prefix []int) error {
	for i := 0; i < domainEventType.NumField(); i++ {
		sf := domainEventType.Field(i)
		name, _, _ := parseTag(sf)
		if err := d.add(Field{
			Column: name,
			GoName: sf.Name,
			Index:  append(append([]int(nil), prefix...), i),
			Type:   sf.Type,
			Base:   true,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Descriptor) add(f Field) error {
	key := fold(f.Column)
	if existing, ok := d.byColumn[key]; ok {
		return storeerr.Mappingf(d.Name, "fields %s and %s both map to column %q",
			d.Fields[existing].GoName, f.GoName, f.Column)
	}
	d.byColumn[key] = len(d.Fields)
	d.Fields = append(d.Fields, f)
	return nil
}

// parseTag reads `event:"Name,optional"`. A tag of "-" skips the field.
func parseTag(sf reflect.StructField) (name string, optional, skip bool) {
	tag, ok := sf.Tag.Lookup(tagName)
	if !ok {
		return sf.Name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if strings.TrimSpace(opt) == "optional" {
			optional = true
		}
	}
	return name, optional, false
}

// Lookup finds the field stored in column, ignoring case.
func (d *Descriptor) Lookup(column string) (Field, bool) {
	i, ok := d.byColumn[fold(column)]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Columns returns the column names in declaration order.
func (d *Descriptor) Columns() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Column
	}
	return out
}

// HasColumn reports whether the kind persists column, ignoring case.
func (d *Descriptor) HasColumn(column string) bool {
	_, ok := d.byColumn[fold(column)]
	return ok
}

// fold returns the case-folded form of a column name.
// A Caser is stateful, so a fresh one is used per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Fold exposes the column-name folding used for case-insensitive matching.
func Fold(s string) string {
	return fold(s)
}
