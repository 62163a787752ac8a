// Low-level line reading.
//
// LDT files use one line terminator throughout: LF, CRLF, or (rarely) a bare
// CR. The terminator is detected once per source, before any byte counting
// starts, and the line reader then splits on it and reports how many bytes
// each line consumed so record offsets stay exact.
package ldt

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// EOL identifies a line terminator.
type EOL int

// Line terminators.
const (
	LF   EOL = 1
	CRLF EOL = 2
	CR   EOL = 3
)

// Width returns the number of bytes the terminator occupies.
func (e EOL) Width() int {
	if e == CRLF {
		return 2
	}
	return 1
}

func (e EOL) String() string {
	switch e {
	case LF:
		return "LF"
	case CRLF:
		return "CRLF"
	case CR:
		return "CR"
	default:
		return "unknown"
	}
}

// DetectEOL reads forward from the current position until the first line
// terminator and reports its kind. It consumes input; callers rewind.
func DetectEOL(r io.Reader) (EOL, error) {
	br := bufio.NewReader(r)
	for {
		c, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, ErrEOLNotFound
		}
		if err != nil {
			return 0, err
		}
		switch c {
		case '\n':
			return LF, nil
		case '\r':
			next, err := br.ReadByte()
			if err == nil && next == '\n' {
				return CRLF, nil
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return 0, err
			}
			return CR, nil
		}
	}
}

// lineReader splits a stream on a known terminator.
type lineReader struct {
	r     *bufio.Reader
	delim byte
	trim  bool // strip a trailing CR before the LF
}

func newLineReader(r io.Reader, eol EOL, bufSize int) *lineReader {
	lr := &lineReader{r: bufio.NewReaderSize(r, bufSize), delim: '\n'}
	switch eol {
	case CR:
		lr.delim = '\r'
	case CRLF:
		lr.trim = true
	}
	return lr
}

// next returns the next line without its terminator and the number of bytes
// it occupied in the stream. It returns io.EOF once the stream is exhausted;
// a final line without terminator is returned normally first.
func (lr *lineReader) next() (string, int64, error) {
	s, err := lr.r.ReadString(lr.delim)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", 0, err
	}
	if len(s) == 0 {
		return "", 0, io.EOF
	}
	n := int64(len(s))
	s = strings.TrimSuffix(s, string(lr.delim))
	if lr.trim {
		s = strings.TrimSuffix(s, "\r")
	}
	return s, n, nil
}

// splitLines splits a record window on any terminator. A trailing
// terminator does not produce an empty final line.
func splitLines(text string) []string {
	var lines []string
	for len(text) > 0 {
		i := strings.IndexAny(text, "\r\n")
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i])
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
		text = text[i+1:]
	}
	return lines
}
