package bitfield

import "encoding/binary"

// MaxBits is the widest field the accessor can transfer.
const MaxBits = 64

// accum is a bit accumulator. pushBits shifts what it holds up and appends
// the low n bits of a byte underneath, popBits removes the low n bits.
type accum struct {
	v uint64
}

func (a *accum) pushBits(n uint, b byte) {
	a.v = a.v<<n | uint64(b)&(1<<n-1)
}

func (a *accum) popBits(n uint) byte {
	b := byte(a.v & (1<<n - 1))
	a.v >>= n
	return b
}

// span describes the bytes touched by a field. ls and ms are the indexes of
// the least and most significant bytes, lsOff is the bit offset into the
// least significant byte and msOff is the number of field bits in the most
// significant byte (1 to 8).
type span struct {
	ls, ms       uint
	lsOff, msOff uint
}

func spanOf(offset, width uint) span {
	end := offset + width
	s := span{
		ls:    offset / 8,
		ms:    (end - 1) / 8,
		lsOff: offset % 8,
		msOff: end % 8,
	}
	if s.msOff == 0 {
		s.msOff = 8
	}
	return s
}

// GetField returns the width bits starting at bit offset in buf, right
// aligned. Bit 0 is the least significant bit of buf[0]. The caller must
// ensure offset+width <= len(buf)*8 and width <= MaxBits.
func GetField(buf []byte, offset, width uint) uint64 {
	if width == 0 {
		return 0
	}
	if offset%8 == 0 && width%8 == 0 {
		return getBytes(buf, offset, width)
	}
	return getBits(buf, offset, width)
}

// SetField stores the low width bits of val at bit offset in buf. Bits of
// val above width are dropped. Only the bytes the field spans are written
// and bits outside the field in those bytes are preserved.
func SetField(buf []byte, offset, width uint, val uint64) {
	if width == 0 {
		return
	}
	if offset%8 == 0 && width%8 == 0 {
		setBytes(buf, offset, width, val)
		return
	}
	setBits(buf, offset, width, val)
}

func getBytes(buf []byte, offset, width uint) uint64 {
	lo := offset / 8
	var tmp [8]byte
	copy(tmp[:], buf[lo:lo+width/8])
	return binary.LittleEndian.Uint64(tmp[:])
}

func setBytes(buf []byte, offset, width uint, val uint64) {
	lo, n := offset/8, width/8
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], val)
	copy(buf[lo:lo+n], tmp[:n])
}

func getBits(buf []byte, offset, width uint) uint64 {
	s := spanOf(offset, width)

	var acc accum
	if s.ls == s.ms {
		acc.pushBits(width, buf[s.ls]>>s.lsOff)
		return acc.v
	}

	acc.pushBits(s.msOff, buf[s.ms])
	for i := s.ms - 1; i > s.ls; i-- {
		acc.pushBits(8, buf[i])
	}
	acc.pushBits(8-s.lsOff, buf[s.ls]>>s.lsOff)
	return acc.v
}

func setBits(buf []byte, offset, width uint, val uint64) {
	s := spanOf(offset, width)
	acc := accum{v: val}

	if s.ls == s.ms {
		m := byte(1<<width-1) << s.lsOff
		buf[s.ls] = buf[s.ls]&^m | acc.popBits(width)<<s.lsOff
		return
	}

	keep := buf[s.ls] & (1<<s.lsOff - 1)
	buf[s.ls] = keep | acc.popBits(8-s.lsOff)<<s.lsOff

	for i := s.ls + 1; i < s.ms; i++ {
		buf[i] = acc.popBits(8)
	}

	if s.msOff == 8 {
		buf[s.ms] = acc.popBits(8)
		return
	}
	keep = buf[s.ms] &^ (1<<s.msOff - 1)
	buf[s.ms] = keep | acc.popBits(s.msOff)
}
