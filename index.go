// Record index entries.
//
// A RecordIndex is everything the catalog layer needs to find a record
// again: where it starts, how many bytes it spans, which line it starts on,
// and the header values seen while scanning (used for titles and catalog
// fields). It never carries line content.
package ldt

import (
	"strconv"
	"strings"
)

// RecordIndex locates one record in a source.
type RecordIndex struct {
	StartOffset int64             `json:"startOffset"`
	ByteSize    int64             `json:"recordSize"` // negative for a compacted gzip block
	StartLine   int64             `json:"startLine"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Range returns the byte range the record occupies in its source.
func (ri RecordIndex) Range() ByteRange {
	n, _ := DecodeSize(ri.ByteSize)
	return ByteRange{Start: ri.StartOffset, Length: n}
}

// Compressed reports whether the record is stored as a gzip block.
func (ri RecordIndex) Compressed() bool {
	_, c := DecodeSize(ri.ByteSize)
	return c
}

// Compacted returns a copy of the entry relocated to r in a compacted store.
func (ri RecordIndex) Compacted(r ByteRange) RecordIndex {
	ri.StartOffset = r.Start
	ri.ByteSize = EncodeSize(r.Length, true)
	return ri
}

// Title joins the values of fields with "-". When fields is empty, or none
// of them has a value, the title is source-n with n the 1-based record
// number.
func (ri RecordIndex) Title(fields []string, source string, n int) string {
	var parts []string
	for _, f := range fields {
		parts = append(parts, ri.Fields[f])
	}
	title := strings.Join(parts, "-")
	if strings.Trim(title, "-") == "" {
		return source + "-" + strconv.Itoa(n)
	}
	return title
}

// Map projects header values onto catalog keys. mapping goes from catalog
// key to header field; missing header fields map to "".
func (ri RecordIndex) Map(mapping map[string]string) map[string]string {
	if len(mapping) == 0 {
		return nil
	}
	out := make(map[string]string, len(mapping))
	for key, field := range mapping {
		out[key] = ri.Fields[field]
	}
	return out
}

// mergeFields copies header values into dst, keeping the first value seen
// for a field.
func mergeFields(dst map[string]string, h HeaderLine) {
	for f, v := range h.Values {
		if _, ok := dst[f]; !ok {
			dst[f] = v
		}
	}
}
