// Indexing scan.
//
// A Scan makes one forward pass over a whole source and yields a
// RecordIndex for every record, in file order, with strictly increasing,
// non-overlapping offsets. Line content is never retained: header lines are
// kept only long enough to copy their values.
//
// The byte and line counters live in the Scan, not the Parser. A Scan is a
// single-use session: create it, drain it, drop it. Concurrent scans need
// separate Scan values (they may share the Parser).
//
// Bookkeeping always runs before any bail-out: when a record is skipped
// under the ignore-malformed policy, its lines are still consumed and
// counted so the offsets of every later record stay correct.
package ldt

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// ScanBufferSize is the read buffer used by a Scan.
const ScanBufferSize = 64 * 1024

// progressEvery controls how often a scan logs its progress.
const progressEvery = 1000

// ScanState is the running position of a Scan.
type ScanState struct {
	BytesRead int64 // bytes consumed, terminators included
	LinesRead int64 // lines consumed
	EOL       EOL   // terminator detected for this source
}

// Scan is one indexing pass over a source.
type Scan struct {
	p       *Parser
	src     io.ReadSeeker
	lr      *lineReader
	state   ScanState
	started bool
	done    bool
	records int
}

// NewScan prepares an indexing pass over src, which must begin with a
// record start line. Nothing is read until the first call to Next.
func (p *Parser) NewScan(src io.ReadSeeker) *Scan {
	return &Scan{p: p, src: src}
}

// State returns the current counters.
func (s *Scan) State() ScanState {
	return s.state
}

// Records returns the number of records emitted so far.
func (s *Scan) Records() int {
	return s.records
}

func (s *Scan) start() error {
	s.started = true
	if _, err := s.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("scan: rewind: %w", err)
	}
	eol, err := DetectEOL(s.src)
	if err != nil {
		return err
	}
	if _, err := s.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("scan: rewind: %w", err)
	}
	s.state = ScanState{EOL: eol}
	s.lr = newLineReader(s.src, eol, ScanBufferSize)
	return nil
}

// line returns the next line and accounts for it.
func (s *Scan) line() (string, error) {
	line, n, err := s.lr.next()
	if err != nil {
		return "", err
	}
	s.state.BytesRead += n
	s.state.LinesRead++
	return line, nil
}

// Next returns the next record. It returns io.EOF after the last record.
func (s *Scan) Next() (*RecordIndex, error) {
	if s.done {
		return nil, io.EOF
	}
	if !s.started {
		if err := s.start(); err != nil {
			s.done = true
			return nil, err
		}
	}

	for {
		ri, err := s.record()
		if err != nil {
			s.done = true
			return nil, err
		}
		if ri == nil {
			continue // skipped under the ignore policy
		}
		s.records++
		if s.records%progressEvery == 0 {
			s.p.log.Info("scan progress", "parser", s.p.cfg.Name, "records", s.records,
				"lines", s.state.LinesRead, "bytes", s.state.BytesRead)
		}
		return ri, nil
	}
}

// record consumes one record. It returns (nil, nil) for a record skipped
// under the ignore policy.
func (s *Scan) record() (*RecordIndex, error) {
	startOffset := s.state.BytesRead
	startLine := s.state.LinesRead + 1

	first, err := s.line()
	if err != nil {
		return nil, err
	}
	if !s.p.IsRecordStart(first) {
		return nil, fmt.Errorf("%w: line %d should start with %q", ErrMalformedInput, startLine, s.p.cfg.RecordStartToken)
	}

	fields := map[string]string{}
	headers := 0
	inHeaders := !s.p.cfg.UseCallbackForRecord
	var lines []string
	if s.p.cfg.UseCallbackForRecord {
		lines = append(lines, first)
	} else if h := s.p.ClassifyHeader(first, 1); h != nil {
		mergeFields(fields, *h)
		headers++
	} else {
		inHeaders = false
	}

	// Continuation pages repeat the header lines, record start included,
	// so only the end token closes a record.
	for !s.p.IsRecordEnd(first) {
		line, err := s.line()
		if errors.Is(err, io.EOF) {
			s.p.log.Warn("record has no end token", "parser", s.p.cfg.Name, "startLine", startLine)
			break
		}
		if err != nil {
			return nil, err
		}
		if s.p.cfg.UseCallbackForRecord {
			lines = append(lines, line)
		} else if inHeaders {
			if h := s.p.ClassifyHeader(line, headers+1); h != nil {
				mergeFields(fields, *h)
				headers++
			} else {
				inHeaders = false
			}
		}
		if s.p.IsRecordEnd(line) {
			break
		}
	}

	if s.p.cfg.UseCallbackForRecord {
		rec, err := s.p.ParseRecord(lines)
		if err != nil {
			return nil, fmt.Errorf("record at line %d: %w", startLine, err)
		}
		if rec == nil {
			return nil, nil
		}
		for _, h := range rec.Headers {
			mergeFields(fields, h)
		}
		headers = len(rec.Headers)
	}

	if headers < s.p.cfg.RequiredHeaders {
		if s.p.cfg.IgnoreMalformedLines {
			s.p.log.Warn("ignoring malformed record", "parser", s.p.cfg.Name,
				"startLine", startLine, "offset", startOffset, "headers", headers)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: record at line %d has %d header lines, want %d",
			ErrMalformedInput, startLine, headers, s.p.cfg.RequiredHeaders)
	}

	return &RecordIndex{
		StartOffset: startOffset,
		ByteSize:    s.state.BytesRead - startOffset,
		StartLine:   startLine,
		Fields:      fields,
	}, nil
}

// All yields every remaining record. Iteration stops after the first error.
func (s *Scan) All() iter.Seq2[RecordIndex, error] {
	return func(yield func(RecordIndex, error) bool) {
		for {
			ri, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(RecordIndex{}, err)
				return
			}
			if !yield(*ri, nil) {
				return
			}
		}
	}
}

// Index scans src to the end and returns every record.
func (p *Parser) Index(src io.ReadSeeker) ([]RecordIndex, error) {
	var out []RecordIndex
	for ri, err := range p.NewScan(src).All() {
		if err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, nil
}
