package bitfield

import (
	"math/bits"
	"strings"

	"golang.org/x/sys/cpu"
)

// ByteOrder is the wire ordering of the bytes of a raw code.
type ByteOrder uint8

const (
	// Native lays raw codes out in the host's memory order.
	Native ByteOrder = iota
	// BigEndian puts the most significant carrier byte first.
	BigEndian
	// LittleEndian puts the least significant carrier byte first.
	LittleEndian
)

func (o ByteOrder) String() string {
	switch o {
	case Native:
		return "native"
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return "invalid"
	}
}

// Valid reports if o is one of the declared orders.
func (o ByteOrder) Valid() bool { return o <= LittleEndian }

// ParseByteOrder parses the value of an endian annotation. It accepts the
// names "native", "big" and "little" with a few aliases, and the numeric
// codes 0, 1 and 2.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native", "host", "0":
		return Native, nil
	case "big", "be", "network", "1":
		return BigEndian, nil
	case "little", "le", "2":
		return LittleEndian, nil
	}
	return 0, DefinitionError.New("unknown byte order %q", s)
}

// carrier returns the size in bytes of the smallest unsigned integer that
// holds width bits.
func carrier(width uint) uint {
	switch {
	case width <= 8:
		return 1
	case width <= 16:
		return 2
	case width <= 32:
		return 4
	default:
		return 8
	}
}

// swapped reports if raw codes in o must be byte reversed. The accessor
// always stores the least significant byte of a raw code first.
func (o ByteOrder) swapped() bool {
	switch o {
	case BigEndian:
		return true
	case LittleEndian:
		return false
	default:
		return cpu.IsBigEndian
	}
}

// permute reorders the carrier bytes of raw for a field of the given width.
// It is its own inverse, so it maps host values to wire codes and back.
func (o ByteOrder) permute(raw uint64, width uint) uint64 {
	if !o.swapped() {
		return raw
	}
	switch carrier(width) {
	case 2:
		return uint64(bits.ReverseBytes16(uint16(raw)))
	case 4:
		return uint64(bits.ReverseBytes32(uint32(raw)))
	case 8:
		return bits.ReverseBytes64(raw)
	}
	return raw
}
