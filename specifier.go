package bitfield

import "fmt"

// Specifier converts between values of type T and fixed width raw codes.
// IntoBytes never fails. FromBytes returns an error wrapping an
// *InvalidBitPattern when the raw code has no meaning.
type Specifier[T any] interface {
	Bits() uint
	Order() ByteOrder
	IntoBytes(v T) uint64
	FromBytes(raw uint64) (T, error)
}

// Read decodes the field described by s at bit offset in buf.
func Read[T any](s Specifier[T], buf []byte, offset uint) (T, error) {
	return s.FromBytes(GetField(buf, offset, s.Bits()))
}

// Write encodes v with s and stores it at bit offset in buf. Raw codes wider
// than the specifier are truncated.
func Write[T any](s Specifier[T], buf []byte, offset uint, v T) {
	SetField(buf, offset, s.Bits(), s.IntoBytes(v))
}

// UintSpec is a full range unsigned integer specifier.
type UintSpec struct {
	width uint
	order ByteOrder
}

// Uint returns a specifier for width bit unsigned integers in native order.
func Uint(width uint) UintSpec { return UintSpec{width: width} }

// UintOrder returns a specifier for width bit unsigned integers stored in
// the given byte order. The whole carrier (1, 2, 4 or 8 bytes) is reordered,
// so when width is not a multiple of 8 and the order swaps bytes, only
// values whose reordered carrier fits in width bits survive a Write. Use
// Field.SetChecked to detect the others.
func UintOrder(width uint, order ByteOrder) UintSpec {
	return UintSpec{width: width, order: order}
}

func (u UintSpec) Bits() uint       { return u.width }
func (u UintSpec) Order() ByteOrder { return u.order }

func (u UintSpec) String() string {
	if u.order == Native {
		return fmt.Sprintf("u%d", u.width)
	}
	return fmt.Sprintf("u%d/%v", u.width, u.order)
}

func (u UintSpec) IntoBytes(v uint64) uint64 {
	return u.order.permute(v, u.width)
}

func (u UintSpec) FromBytes(raw uint64) (uint64, error) {
	return u.order.permute(raw, u.width), nil
}

// BoolSpec is a single bit specifier.
type BoolSpec struct{}

// Bool is the specifier for single bit flags.
var Bool BoolSpec

func (BoolSpec) Bits() uint       { return 1 }
func (BoolSpec) Order() ByteOrder { return Native }
func (BoolSpec) String() string   { return "bool" }

func (BoolSpec) IntoBytes(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func (BoolSpec) FromBytes(raw uint64) (bool, error) {
	switch raw {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, invalidBitPattern("bool", raw)
}
