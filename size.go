// Sign-encoded record sizes.
//
// A stored record size is negative when the byte range it describes holds a
// gzip block (compacted storage) and positive when it holds plain text. The
// absolute value is always the number of bytes to fetch. These two functions
// are the only place the sign is interpreted.
package ldt

import "math"

// EncodeSize returns the stored form of a record size of n bytes.
func EncodeSize(n int64, compressed bool) int64 {
	if n < 0 {
		n = -n
	}
	if compressed {
		return -n
	}
	return n
}

// DecodeSize returns the number of bytes to fetch and whether they are a
// compressed block.
func DecodeSize(size int64) (n int64, compressed bool) {
	if size < 0 {
		return -size, true
	}
	return size, false
}

// ByteRange is a contiguous span of a source: Length bytes starting at Start.
type ByteRange struct {
	Start  int64 `json:"start"`
	Length int64 `json:"length"`
}

// End returns the inclusive offset of the last byte in the range, the form
// object stores expect in a Range header.
func (r ByteRange) End() int64 {
	return r.Start + r.Length - 1
}

// valid reports whether the range can be fetched at all. The last byte must
// be addressable as an int64.
func (r ByteRange) valid() bool {
	return r.Start >= 0 && r.Length >= 1 && r.Length-1 <= math.MaxInt64-r.Start
}
