// Per-record gzip blocks.
//
// A compacted store holds every record as its own gzip member, so any one of
// them can be fetched by byte range and inflated without touching its
// neighbours. Nothing is shared between blocks: no dictionary, no window,
// no file header.
package ldt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// compressBlock gzips data into one self-contained block.
func compressBlock(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// expandBlock inflates one gzip block.
func expandBlock(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer zr.Close()
	// A block is one member; trailing members would belong to another record.
	zr.Multistream(false)

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	return out, nil
}

// Expand inflates a single compacted record block back to its text.
func Expand(data []byte) (string, error) {
	out, err := expandBlock(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
