// Line reading tests.
//
// Offsets are only as good as the byte count of every line consumed, so
// the reader must report terminators exactly as they appear in the stream.
package ldt

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEOL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  EOL
		width int
	}{
		{"lf", "abc\ndef\n", LF, 1},
		{"crlf", "abc\r\ndef\r\n", CRLF, 2},
		{"cr", "abc\rdef\r", CR, 1},
		{"cr at end", "abc\r", CR, 1},
		{"first terminator wins", "abc\ndef\r\n", LF, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectEOL(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.width, got.Width())
		})
	}
}

// TestDetectEOLMissing fails on a source without any terminator: without
// one the byte accounting cannot be trusted.
func TestDetectEOLMissing(t *testing.T) {
	_, err := DetectEOL(strings.NewReader("no terminator"))
	assert.ErrorIs(t, err, ErrEOLNotFound)

	_, err = DetectEOL(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEOLNotFound)
}

// TestLineReaderCounts checks the consumed byte count per line, including
// a final line without terminator and multi-byte characters.
func TestLineReaderCounts(t *testing.T) {
	tests := []struct {
		name  string
		eol   EOL
		input string
		lines []string
		sizes []int64
	}{
		{"lf", LF, "ab\ncde\nf", []string{"ab", "cde", "f"}, []int64{3, 4, 1}},
		{"crlf", CRLF, "ab\r\ncde\r\n", []string{"ab", "cde"}, []int64{4, 5}},
		{"cr", CR, "ab\rcde\r", []string{"ab", "cde"}, []int64{3, 4}},
		{"utf8", LF, "é€\nx\n", []string{"é€", "x"}, []int64{6, 2}},
		{"empty lines", LF, "\n\nx\n", []string{"", "", "x"}, []int64{1, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := newLineReader(strings.NewReader(tt.input), tt.eol, 16)
			var lines []string
			var sizes []int64
			for {
				line, n, err := lr.next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				lines = append(lines, line)
				sizes = append(sizes, n)
			}
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitLines("a\nb\r\nc\r"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
	assert.Nil(t, splitLines(""))
}
