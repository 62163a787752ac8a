// Catalog file header.
//
// A catalog starts with a fixed 128 byte header: a JSON object padded with
// spaces and terminated by a newline. The fixed width lets the writer
// rewrite it in place on Close, once the record count is known, without
// moving any entry.
package ldt

import (
	"bytes"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
)

// HeaderSize is the fixed size of the catalog header in bytes.
const HeaderSize = 128

// CatalogVersion is written into new catalogs.
const CatalogVersion = 1

// Header describes a catalog and the source it indexes.
type Header struct {
	Version   int   `json:"_v"`
	Algorithm int   `json:"_alg"` // entry id hash (1=xxHash3, 2=FNV1a, 3=Blake2b)
	EOL       int   `json:"_eol"` // terminator width of the source
	Compacted bool  `json:"_c"`   // entries point into a compacted store
	Count     int64 `json:"_n"`   // entries, set on Close
	Timestamp int64 `json:"_ts"`  // Unix milliseconds of the last write
}

// readHeader reads and decodes the header at the start of r.
func readHeader(r io.ReaderAt) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptCatalog, err)
	}
	if buf[HeaderSize-1] != '\n' {
		return nil, fmt.Errorf("%w: header is not terminated", ErrCorruptCatalog)
	}

	var hdr Header
	if err := json.Unmarshal(bytes.TrimSpace(buf), &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptCatalog, err)
	}
	if !knownAlg(hdr.Algorithm) {
		return nil, fmt.Errorf("%w: unknown hash algorithm %d", ErrCorruptCatalog, hdr.Algorithm)
	}
	return &hdr, nil
}

// encode serialises the header to exactly HeaderSize bytes.
func (h *Header) encode() ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	if len(data) > HeaderSize-1 {
		return nil, fmt.Errorf("%w: header too large", ErrCorruptCatalog)
	}

	buf := bytes.Repeat([]byte{' '}, HeaderSize)
	copy(buf, data)
	buf[HeaderSize-1] = '\n'
	return buf, nil
}

func now() int64 {
	return time.Now().UnixMilli()
}
