package bitfield

import (
	"math"
	"math/bits"
	"strconv"

	"github.com/zeebo/mon"
)

// Kind is the shape of a type offered as a specifier.
type Kind uint8

const (
	KindEnum Kind = iota
	KindStruct
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Variant is one member of an enumeration. When Explicit is false the
// discriminant is one more than the previous variant's, starting at zero.
// Variants carrying Data are not encodable.
type Variant struct {
	Name         string
	Discriminant uint64
	Explicit     bool
	Data         bool
}

// Attr is an annotation on an enumeration, such as bits = 3 or
// endian = big.
type Attr struct {
	Name  string
	Value string
}

// BitsAttr returns the annotation declaring an explicit width.
func BitsAttr(n uint) Attr { return Attr{Name: "bits", Value: strconv.FormatUint(uint64(n), 10)} }

// EndianAttr returns the annotation declaring a wire byte order.
func EndianAttr(o ByteOrder) Attr { return Attr{Name: "endian", Value: o.String()} }

// EnumDef is an enumeration as declared by a front end.
type EnumDef struct {
	Name     string
	Kind     Kind
	Attrs    []Attr
	Variants []Variant
}

// Enum is a specifier mapping the unit variants of an enumeration onto fixed
// width codes. It is immutable once built.
type Enum struct {
	name     string
	width    uint
	order    ByteOrder
	variants []Variant
}

type annotations struct {
	bits     uint
	hasBits  bool
	order    ByteOrder
	hasOrder bool
}

func parseAttrs(name string, attrs []Attr) (annotations, error) {
	var a annotations
	for _, attr := range attrs {
		switch attr.Name {
		case "bits":
			if a.hasBits {
				return a, DefinitionError.New("%s: more than one 'bits' annotation is not permitted", name)
			}
			n, err := strconv.ParseUint(attr.Value, 10, 8)
			if err != nil {
				return a, DefinitionError.New("%s: could not parse 'bits' annotation %q", name, attr.Value)
			}
			a.bits, a.hasBits = uint(n), true

		case "endian":
			if a.hasOrder {
				return a, DefinitionError.New("%s: more than one 'endian' annotation is not permitted", name)
			}
			o, err := ParseByteOrder(attr.Value)
			if err != nil {
				return a, DefinitionError.New("%s: could not parse 'endian' annotation %q", name, attr.Value)
			}
			a.order, a.hasOrder = o, true
		}
	}
	return a, nil
}

// NewEnum validates def and builds its specifier. The width is the bits
// annotation when present, otherwise log2 of the variant count, which must
// then be a power of two. Every unit variant's discriminant must fit in the
// width.
func NewEnum(def EnumDef) (_ *Enum, err error) {
	defer mon.Start().Stop(&err)

	switch def.Kind {
	case KindEnum:
	case KindStruct, KindUnion:
		return nil, DefinitionError.New("%s: %ss are not supported as bitfield specifiers", def.Name, def.Kind)
	default:
		return nil, DefinitionError.New("%s: unknown kind %d", def.Name, def.Kind)
	}

	a, err := parseAttrs(def.Name, def.Attrs)
	if err != nil {
		return nil, err
	}

	width, err := enumWidth(def, a)
	if err != nil {
		return nil, err
	}

	e := &Enum{
		name:  def.Name,
		width: width,
		order: a.order,
	}

	names := make(map[string]bool, len(def.Variants))
	codes := make(map[uint64]string, len(def.Variants))
	next, overflow := uint64(0), false
	for _, v := range def.Variants {
		if names[v.Name] {
			return nil, DefinitionError.New("%s: duplicate variant %s", def.Name, v.Name)
		}
		names[v.Name] = true

		if !v.Explicit {
			if overflow {
				return nil, DefinitionError.New("%s: discriminant of %s overflows", def.Name, v.Name)
			}
			v.Discriminant = next
		}
		next, overflow = v.Discriminant+1, v.Discriminant == math.MaxUint64

		if v.Data {
			continue
		}
		if v.Discriminant > mask(width) {
			return nil, DefinitionError.New("%s: discriminant of %s (%d) does not fit in %d bits",
				def.Name, v.Name, v.Discriminant, width)
		}
		if wire := e.order.permute(v.Discriminant, width); wire > mask(width) {
			return nil, DefinitionError.New("%s: discriminant of %s (%d) does not fit in %d bits in %v byte order",
				def.Name, v.Name, v.Discriminant, width, e.order)
		}
		if other, ok := codes[v.Discriminant]; ok {
			return nil, DefinitionError.New("%s: %s and %s share discriminant %d",
				def.Name, other, v.Name, v.Discriminant)
		}
		codes[v.Discriminant] = v.Name

		e.variants = append(e.variants, v)
	}

	return e, nil
}

func enumWidth(def EnumDef, a annotations) (uint, error) {
	if a.hasBits {
		if a.bits > MaxBits {
			return 0, DefinitionError.New("%s: %d bits is wider than the %d bit maximum", def.Name, a.bits, MaxBits)
		}
		return a.bits, nil
	}

	count := uint64(len(def.Variants))
	switch {
	case count == 0:
		return 0, DefinitionError.New("%s: no variants to pack", def.Name)
	case count&(count-1) != 0:
		return 0, DefinitionError.New(
			"%s: expected a number of variants which is a power of 2, specify bits = %d if that was your intent",
			def.Name, bits.Len64(count-1))
	}
	return uint(bits.TrailingZeros64(count)), nil
}

// MustEnum is like NewEnum but panics if def is invalid. It is meant for
// package level registration of enumerations.
func MustEnum(def EnumDef) *Enum {
	e, err := NewEnum(def)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Enum) Name() string        { return e.name }
func (e *Enum) Bits() uint          { return e.width }
func (e *Enum) Order() ByteOrder    { return e.order }
func (e *Enum) String() string      { return e.name }
func (e *Enum) Variants() []Variant { return append([]Variant(nil), e.variants...) }

// Lookup returns the unit variant with the given name.
func (e *Enum) Lookup(name string) (Variant, bool) {
	for _, v := range e.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// MustLookup is like Lookup but panics if there is no such variant.
func (e *Enum) MustLookup(name string) Variant {
	v, ok := e.Lookup(name)
	if !ok {
		panic(DefinitionError.New("%s: no variant %s", e.name, name))
	}
	return v
}

// IntoBytes returns the raw code of v, its discriminant in wire order.
func (e *Enum) IntoBytes(v Variant) uint64 {
	return e.order.permute(v.Discriminant, e.width)
}

// FromBytes returns the first variant, in declaration order, whose
// discriminant matches raw. The error for an unmatched code carries the
// code in host order.
func (e *Enum) FromBytes(raw uint64) (Variant, error) {
	code := e.order.permute(raw, e.width)
	for _, v := range e.variants {
		if v.Discriminant == code {
			return v, nil
		}
	}
	return Variant{}, invalidBitPattern(e.name, code)
}
