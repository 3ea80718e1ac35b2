// Package bitfield packs and unpacks fixed width fields at arbitrary bit
// offsets inside byte slices.
//
// Bit 0 of a buffer is the least significant bit of its first byte, and bit
// offsets increase toward the most significant bit and then into the next
// byte. GetField and SetField move up to 64 bits at any offset. Specifiers
// layer typed values over raw codes, with an optional wire byte order, and
// Enum builds a specifier for a closed set of named discriminants that is
// validated once when it is defined. Layout assigns offsets to a sequence of
// fields sharing one fixed size buffer.
//
// Buffers are always owned by the caller. Writes only touch the bytes a
// field spans, so fields in disjoint bytes may be written concurrently.
package bitfield
