package bitfield

import (
	"fmt"

	"github.com/zeebo/errs"
)

var (
	// Error is the class of errors returned when decoding fields.
	Error = errs.Class("bitfield")

	// DefinitionError is the class of errors returned while building
	// specifiers and layouts, before any buffer is touched.
	DefinitionError = errs.Class("bitfield definition")
)

// InvalidBitPattern is returned when a raw code does not map to any value of
// a specifier.
type InvalidBitPattern struct {
	Spec string
	Raw  uint64
}

func (e *InvalidBitPattern) Error() string {
	if e.Spec == "" {
		return fmt.Sprintf("invalid bit pattern %#x", e.Raw)
	}
	return fmt.Sprintf("invalid bit pattern %#x for %s", e.Raw, e.Spec)
}

func invalidBitPattern(spec string, raw uint64) error {
	return Error.Wrap(&InvalidBitPattern{Spec: spec, Raw: raw})
}

// OutOfBounds is returned by checked setters when a raw code has bits set
// above the field width.
type OutOfBounds struct {
	Field string
	Raw   uint64
	Width uint
}

func (e *OutOfBounds) Error() string {
	return fmt.Sprintf("value %#x for %s does not fit in %d bits", e.Raw, e.Field, e.Width)
}
