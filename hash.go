// Catalog entry identifiers.
//
// Every catalog entry carries a 16 hex character id derived from its title.
// Lookups by title hash the title once and compare ids, which keeps the
// per-line work to a short fixed-width comparison and lets a bloom filter
// rule out absent titles without reading the file.
package ldt

import (
	"fmt"
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Hash algorithms for entry ids.
const (
	AlgXXHash3 = 1 // default
	AlgFNV1a   = 2
	AlgBlake2b = 3
)

// entryID returns the id of title under alg. Unknown algorithms yield "".
func entryID(title string, alg int) string {
	switch alg {
	case AlgXXHash3:
		return fmt.Sprintf("%016x", xxh3.HashString(title))
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write([]byte(title))
		return fmt.Sprintf("%016x", h.Sum64())
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write([]byte(title))
		return fmt.Sprintf("%016x", h.Sum(nil))
	default:
		return ""
	}
}

// knownAlg reports whether alg names a supported algorithm.
func knownAlg(alg int) bool {
	return alg >= AlgXXHash3 && alg <= AlgBlake2b
}
