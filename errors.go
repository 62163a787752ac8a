// Package ldt parses and indexes LDT files: large flat text files that
// concatenate many fixed-structure records, each made of one or more header
// lines followed by a variable number of item lines and delimited by start
// and end tokens.
//
// A single forward scan computes the byte offset, byte size and first line
// of every record. Those three numbers are all that is needed later to fetch
// one record from local disk or remote object storage with a ranged read and
// re-parse it, without touching the rest of the file. A compacted variant of
// a source stores every record as an independent gzip block; the sign of the
// stored size tells the two storage forms apart.
package ldt

import "errors"

// Sentinel errors for programmatic handling. Callers use errors.Is to tell
// configuration problems (ErrConfiguration) from bad input (ErrMalformedInput)
// and from storage failures, which are returned as-is.
var (
	ErrConfiguration  = errors.New("ldt: configuration error")
	ErrMalformedInput = errors.New("ldt: malformed input")
	ErrInvalidRange   = errors.New("ldt: invalid byte range")
	ErrDecompress     = errors.New("ldt: decompression failed")
	ErrEOLNotFound    = errors.New("ldt: cannot determine end of line")
	ErrNotFound       = errors.New("ldt: not found")
	ErrCorruptCatalog = errors.New("ldt: corrupt catalog")
	ErrClosed         = errors.New("ldt: closed")
	ErrInvalidPattern = errors.New("ldt: invalid search pattern")
)
