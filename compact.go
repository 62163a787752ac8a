// Compacted stores.
//
// Compaction rewrites a source as a flat run of gzip blocks, one per record,
// and relocates every index entry into it. The relocated entries carry a
// negative size, which is how retrieval knows to inflate the range. The
// compacted file has no header of its own; offsets index blocks directly.
package ldt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Compacted store naming.
const (
	CompactedExt      = ".cldt"
	CompactedMimeType = "application/cldt"
)

// CompactedName derives the compacted file name from a source name by
// replacing its extension.
func CompactedName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + CompactedExt
}

// Compactor appends compressed records to a destination stream.
type Compactor struct {
	src    io.ReaderAt
	dst    io.Writer
	offset int64
	closed bool
}

// NewCompactor returns a compactor reading raw records from src and
// writing blocks to dst. Close closes both when they are io.Closers.
func NewCompactor(src io.ReaderAt, dst io.Writer) *Compactor {
	return &Compactor{src: src, dst: dst}
}

// Add compresses the size raw bytes at start and appends them. It returns
// where the block landed in the destination.
func (c *Compactor) Add(start, size int64) (ByteRange, error) {
	if c.closed {
		return ByteRange{}, ErrClosed
	}
	in := ByteRange{Start: start, Length: size}
	if !in.valid() {
		return ByteRange{}, fmt.Errorf("%w: offset %d size %d", ErrInvalidRange, start, size)
	}

	raw, err := io.ReadAll(io.NewSectionReader(c.src, start, size))
	if err != nil {
		return ByteRange{}, fmt.Errorf("compact: read [%d,%d]: %w", start, in.End(), err)
	}
	if int64(len(raw)) < size {
		return ByteRange{}, fmt.Errorf("compact: read [%d,%d]: got %d bytes: %w", start, in.End(), len(raw), io.ErrUnexpectedEOF)
	}

	block, err := compressBlock(raw)
	if err != nil {
		return ByteRange{}, fmt.Errorf("compact: %w", err)
	}
	if _, err := c.dst.Write(block); err != nil {
		return ByteRange{}, fmt.Errorf("compact: write: %w", err)
	}

	out := ByteRange{Start: c.offset, Length: int64(len(block))}
	c.offset += out.Length
	return out, nil
}

// Size returns the number of bytes written so far.
func (c *Compactor) Size() int64 {
	return c.offset
}

// Close releases the source and destination. Calling it again is a no-op.
func (c *Compactor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var result *multierror.Error
	if cl, ok := c.dst.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close destination: %w", err))
		}
	}
	if cl, ok := c.src.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close source: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Source is a seekable, randomly readable input such as *os.File.
type Source interface {
	io.ReadSeeker
	io.ReaderAt
}

// Compact scans src and writes every record to dst as its own gzip block.
// It returns the relocated index entries in source order. Neither src nor
// dst is closed.
func (p *Parser) Compact(src Source, dst io.Writer) ([]RecordIndex, error) {
	c := &Compactor{src: src, dst: dst}
	var out []RecordIndex
	for ri, err := range p.NewScan(src).All() {
		if err != nil {
			return nil, err
		}
		n, _ := DecodeSize(ri.ByteSize)
		rng, err := c.Add(ri.StartOffset, n)
		if err != nil {
			return nil, err
		}
		out = append(out, ri.Compacted(rng))
	}
	p.log.Info("compacted", "parser", p.cfg.Name, "records", len(out), "bytes", c.Size())
	return out, nil
}
