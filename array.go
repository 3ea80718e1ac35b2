package bitfield

// ArraySize returns the number of bytes needed to hold n values of width
// bits each.
func ArraySize(n, width uint) uint { return (n*width + 7) / 8 }

// Array abstracts reading values from a byte slice where the values are all
// some size in bits, packed back to back.
type Array struct {
	buf   []byte
	width uint
	n     uint
}

// NewArray returns an Array over buf holding as many width bit values as fit.
func NewArray(buf []byte, width uint) Array {
	a := Array{buf: buf, width: width}
	if width > 0 {
		a.n = uint(len(buf)) * 8 / width
	}
	return a
}

func (a Array) Len() uint   { return a.n }
func (a Array) Width() uint { return a.width }

func (a Array) Get(idx uint) uint64 {
	return GetField(a.buf, idx*a.width, a.width)
}

func (a Array) Put(idx uint, val uint64) {
	SetField(a.buf, idx*a.width, a.width, val)
}
