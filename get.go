// Random-access retrieval.
//
// A record is fetched by the (offset, size) pair its index entry carries.
// Exactly that range is read from the source, inflated when the size is
// negative, and handed back to the record parser. No scan is involved and
// nothing is kept between calls, so retrieval is safe for concurrent use.
package ldt

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// RangeReader is a byte source addressable by key and range.
type RangeReader interface {
	// ReadRange returns a stream over r within the object named key. The
	// stream may end early when the range runs past the end of the object.
	ReadRange(ctx context.Context, key string, r ByteRange) (io.ReadCloser, error)
}

// GetRecord fetches and parses the record stored at start with the given
// encoded size. It returns (nil, nil) when the range decodes to nothing.
func (p *Parser) GetRecord(ctx context.Context, src RangeReader, key string, start, size int64) (*Record, error) {
	n, compressed := DecodeSize(size)
	rng := ByteRange{Start: start, Length: n}
	if !rng.valid() {
		return nil, fmt.Errorf("%w: offset %d size %d", ErrInvalidRange, start, size)
	}

	data, err := fetch(ctx, src, key, rng)
	if err != nil {
		return nil, err
	}
	if compressed {
		if data, err = expandBlock(data); err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, nil
	}

	lines, err := p.window(splitLines(string(data)))
	if err != nil {
		return nil, err
	}
	return p.ParseRecord(lines)
}

// GetRecordPages is GetRecord followed by ForPageRange.
func (p *Parser) GetRecordPages(ctx context.Context, src RangeReader, key string, start, size int64, firstPage, lastPage int) (*Record, error) {
	rec, err := p.GetRecord(ctx, src, key, start, size)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ForPageRange(firstPage, lastPage), nil
}

func fetch(ctx context.Context, src RangeReader, key string, rng ByteRange) ([]byte, error) {
	rc, err := src.ReadRange(ctx, key, rng)
	if err != nil {
		return nil, fmt.Errorf("read range %s [%d,%d]: %w", key, rng.Start, rng.End(), err)
	}
	defer rc.Close()

	// A stale entry can claim more than the object holds.
	data, err := io.ReadAll(io.LimitReader(rc, rng.Length))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read range %s [%d,%d]: %w", key, rng.Start, rng.End(), err)
	}
	return data, nil
}

// window trims the fetched lines to one record. Lines before the first
// record start are dropped, so an index pointing slightly early still
// works. Header lines are taken greedily; after them, lines are kept up to
// and including the first end line, skipping header lines repeated on
// continuation pages.
func (p *Parser) window(lines []string) ([]string, error) {
	first := -1
	for i, line := range lines {
		if p.IsRecordStart(line) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: no line starts with %q", ErrMalformedInput, p.cfg.RecordStartToken)
	}
	lines = lines[first:]

	end := len(lines)
	for i, line := range lines {
		if p.IsRecordEnd(line) {
			end = i + 1
			break
		}
	}
	lines = lines[:end]
	if p.cfg.UseCallbackForRecord {
		return lines, nil
	}

	i := 0
	for i < len(lines) && p.ClassifyHeader(lines[i], i+1) != nil {
		i++
	}
	out := append(make([]string, 0, len(lines)), lines[:i]...)
	for _, line := range lines[i:] {
		if p.isHeader(line) && !p.IsRecordEnd(line) {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
