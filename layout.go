package bitfield

import (
	"github.com/zeebo/errs"
	"github.com/zeebo/mon"
)

// FieldInfo is the descriptor of a field within a layout.
type FieldInfo struct {
	Name   string
	Offset uint
	Width  uint
}

// Layout assigns bit offsets to fields in the order they are added. The
// packed form of a layout is the concatenation of its fields with no header
// or padding beyond what the widths imply. Problems found while adding
// fields are reported by Seal.
type Layout struct {
	name   string
	filled bool
	bits   uint
	fields []FieldInfo
	names  map[string]bool
	group  errs.Group
	sealed bool
	err    error
}

// LayoutOption configures a Layout.
type LayoutOption func(*Layout)

// Unfilled allows a layout whose total width is not a multiple of 8. The
// buffer size rounds up to the next byte.
func Unfilled() LayoutOption {
	return func(l *Layout) { l.filled = false }
}

// NewLayout returns an empty layout.
func NewLayout(name string, opts ...LayoutOption) *Layout {
	l := &Layout{
		name:   name,
		filled: true,
		names:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Layout) add(name string, width uint, reserved bool) FieldInfo {
	info := FieldInfo{Name: name, Offset: l.bits, Width: width}

	switch {
	case l.sealed:
		l.group.Add(DefinitionError.New("%s: field %q added after seal", l.name, name))
		return info
	case width > MaxBits:
		l.group.Add(DefinitionError.New("%s: field %q is %d bits, more than %d", l.name, name, width, MaxBits))
	case reserved:
	case name == "":
		l.group.Add(DefinitionError.New("%s: field at bit %d has no name", l.name, l.bits))
	case l.names[name]:
		l.group.Add(DefinitionError.New("%s: duplicate field %q", l.name, name))
	}

	l.bits += width
	if !reserved {
		l.names[name] = true
		l.fields = append(l.fields, info)
	}
	return info
}

// Skip reserves width bits at the current end of the layout.
func (l *Layout) Skip(width uint) { l.add("", width, true) }

// Seal validates the layout. Field handles refuse to read or write until it
// has returned nil, and no fields may be added afterward.
func (l *Layout) Seal() (err error) {
	defer mon.Start().Stop(&err)

	if !l.sealed && l.filled && l.bits%8 != 0 {
		l.group.Add(DefinitionError.New("%s: %d bits is not a multiple of 8, add %d bits or declare it unfilled",
			l.name, l.bits, 8-l.bits%8))
	}
	l.sealed = true
	l.err = l.group.Err()
	return l.err
}

// usable returns an error unless the layout was sealed without problems.
func (l *Layout) usable() error {
	if !l.sealed {
		return DefinitionError.New("%s: used before Seal", l.name)
	}
	return l.err
}

func (l *Layout) Name() string { return l.name }
func (l *Layout) Bits() uint   { return l.bits }
func (l *Layout) Size() int    { return int((l.bits + 7) / 8) }
func (l *Layout) New() []byte  { return make([]byte, l.Size()) }

// Fields returns the descriptors of the named fields in offset order.
func (l *Layout) Fields() []FieldInfo { return append([]FieldInfo(nil), l.fields...) }

// Field returns the descriptor of the named field.
func (l *Layout) Field(name string) (FieldInfo, bool) {
	for _, f := range l.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// Field is a typed handle to a field of a layout.
type Field[T any] struct {
	layout *Layout
	info   FieldInfo
	spec   Specifier[T]
}

// AddField appends a field encoded by spec to l and returns its handle.
func AddField[T any](l *Layout, name string, spec Specifier[T]) Field[T] {
	return Field[T]{
		layout: l,
		info:   l.add(name, spec.Bits(), false),
		spec:   spec,
	}
}

func (f Field[T]) Info() FieldInfo         { return f.info }
func (f Field[T]) Name() string            { return f.info.Name }
func (f Field[T]) Offset() uint            { return f.info.Offset }
func (f Field[T]) Width() uint             { return f.info.Width }
func (f Field[T]) Specifier() Specifier[T] { return f.spec }

// Get decodes the field from buf. It fails if the layout was not sealed
// successfully.
func (f Field[T]) Get(buf []byte) (T, error) {
	if err := f.layout.usable(); err != nil {
		var zero T
		return zero, err
	}
	return f.spec.FromBytes(GetField(buf, f.info.Offset, f.info.Width))
}

// Set encodes v into buf, truncating raw codes wider than the field. It
// panics if the layout was not sealed successfully.
func (f Field[T]) Set(buf []byte, v T) {
	if err := f.layout.usable(); err != nil {
		panic(err)
	}
	SetField(buf, f.info.Offset, f.info.Width, f.spec.IntoBytes(v))
}

// SetChecked is like Set but leaves buf untouched and returns an
// *OutOfBounds error when the raw code of v does not fit the field.
func (f Field[T]) SetChecked(buf []byte, v T) error {
	if err := f.layout.usable(); err != nil {
		return err
	}
	raw := f.spec.IntoBytes(v)
	if raw&^mask(f.info.Width) != 0 {
		return Error.Wrap(&OutOfBounds{Field: f.info.Name, Raw: raw, Width: f.info.Width})
	}
	SetField(buf, f.info.Offset, f.info.Width, raw)
	return nil
}
