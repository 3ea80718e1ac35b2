package bitfield

// mask returns a value with the low width bits set. widths of 64 and above
// return all ones.
func mask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}
