// Catalog tests.
//
// A catalog is written once after a scan and read many times. The header
// count is only correct after Close, so a catalog whose header disagrees
// with its entry lines is reported as corrupt rather than trusted.
package ldt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestCatalog indexes three statements and writes their catalog.
func writeTestCatalog(t *testing.T, dir string, opts CatalogOptions) []RecordIndex {
	t.Helper()
	p := testParser(t, "default")
	records := indexed(t, p, join("\n", statementLines(), twoPageLines(), mayStatementLines()))

	opts.Logger = quietLogger()
	cw, err := CreateCatalog(dir, "statements.idx", LF, false, opts)
	require.NoError(t, err)
	require.NoError(t, p.WriteCatalog(cw, "statements.ldt", records))
	assert.Equal(t, int64(len(records)), cw.Count())
	require.NoError(t, cw.Close())
	return records
}

// mayStatementLines is a third statement for another client in May.
func mayStatementLines() []string {
	lines := statementLines()
	lines[0] = strings.Replace(lines[0], "1234567890ABC12", "5555555555ZZZ99", 1)
	lines[1] = strings.Replace(lines[1], "MARCH", "MAY", 1)
	return lines
}

func openTestCatalog(t *testing.T, dir string) *Catalog {
	t.Helper()
	c, err := OpenCatalog(dir, "statements.idx", CatalogOptions{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogWriteRead(t *testing.T) {
	dir := t.TempDir()
	records := writeTestCatalog(t, dir, CatalogOptions{})
	c := openTestCatalog(t, dir)

	hdr := c.Header()
	assert.Equal(t, CatalogVersion, hdr.Version)
	assert.Equal(t, AlgXXHash3, hdr.Algorithm)
	assert.Equal(t, 1, hdr.EOL)
	assert.False(t, hdr.Compacted)
	assert.Equal(t, int64(3), c.Count())
	assert.NotZero(t, hdr.Timestamp)

	e, err := c.Get("9874567890ABC12-APRIL-2023")
	require.NoError(t, err)
	assert.Equal(t, records[1].StartOffset, e.Offset)
	assert.Equal(t, records[1].ByteSize, e.Size)
	assert.Equal(t, records[1].StartLine, e.Line)
	assert.Equal(t, map[string]string{
		"statement:clientId": "9874567890ABC12",
		"statement:taxId":    "12345678901567",
		"statement:period":   "2023",
	}, e.Fields)
	assert.Len(t, e.ID, 16)

	_, err = c.Get("no-such-title")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogList(t *testing.T) {
	dir := t.TempDir()
	records := writeTestCatalog(t, dir, CatalogOptions{FlushEvery: 1})
	c := openTestCatalog(t, dir)

	var titles []string
	var prev int64 = -1
	for e, err := range c.List() {
		require.NoError(t, err)
		titles = append(titles, e.Title)
		assert.Greater(t, e.Offset, prev)
		prev = e.Offset
	}
	assert.Equal(t, []string{
		"1234567890ABC12-MARCH-2023",
		"9874567890ABC12-APRIL-2023",
		"5555555555ZZZ99-MAY-2023",
	}, titles)

	// Breaking out early releases the lock; a second pass still works.
	for range c.List() {
		break
	}
	n := 0
	for _, err := range c.List() {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, len(records), n)
}

func TestCatalogSearch(t *testing.T) {
	dir := t.TempDir()
	writeTestCatalog(t, dir, CatalogOptions{})
	c := openTestCatalog(t, dir)

	collect := func(field, pattern string, opts SearchOptions) ([]string, error) {
		var out []string
		for e, err := range c.Search(field, pattern, opts) {
			if err != nil {
				return nil, err
			}
			out = append(out, e.Title)
		}
		return out, nil
	}

	tests := []struct {
		name    string
		field   string
		pattern string
		opts    SearchOptions
		want    []string
	}{
		{"literal title", TitleField, "april", SearchOptions{}, []string{"9874567890ABC12-APRIL-2023"}},
		{"case sensitive miss", TitleField, "april", SearchOptions{CaseSensitive: true}, nil},
		{"regex title", TitleField, "^(1234|5555)", SearchOptions{}, []string{"1234567890ABC12-MARCH-2023", "5555555555ZZZ99-MAY-2023"}},
		{"field", "statement:taxId", "901567", SearchOptions{}, []string{"9874567890ABC12-APRIL-2023"}},
		{"unknown field", "statement:nothing", ".*", SearchOptions{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(tt.field, tt.pattern, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := collect(TitleField, "([", SearchOptions{})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestCatalogHashAlgorithms(t *testing.T) {
	for _, alg := range []int{AlgXXHash3, AlgFNV1a, AlgBlake2b} {
		t.Run(fmt.Sprint(alg), func(t *testing.T) {
			dir := t.TempDir()
			writeTestCatalog(t, dir, CatalogOptions{HashAlgorithm: alg})
			c := openTestCatalog(t, dir)
			assert.Equal(t, alg, c.Header().Algorithm)

			e, err := c.Get("5555555555ZZZ99-MAY-2023")
			require.NoError(t, err)
			assert.Equal(t, entryID(e.Title, alg), e.ID)
		})
	}

	_, err := CreateCatalog(t.TempDir(), "x.idx", LF, false, CatalogOptions{HashAlgorithm: 9})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEntryID(t *testing.T) {
	ids := map[string]bool{}
	for _, alg := range []int{AlgXXHash3, AlgFNV1a, AlgBlake2b} {
		id := entryID("1234567890ABC12-MARCH-2023", alg)
		assert.Len(t, id, 16)
		assert.Equal(t, id, entryID("1234567890ABC12-MARCH-2023", alg), "stable")
		ids[id] = true
	}
	assert.Len(t, ids, 3)
	assert.Empty(t, entryID("x", 42))
}

// TestCatalogUncleanClose reads a catalog whose header was never
// rewritten.
func TestCatalogUncleanClose(t *testing.T) {
	dir := t.TempDir()
	hdr := Header{Version: CatalogVersion, Algorithm: AlgXXHash3, EOL: 1}
	buf, err := hdr.encode()
	require.NoError(t, err)
	buf = append(buf, `{"_id":"0000000000000000","_t":"a","_o":0,"_s":10,"_n":1}`+"\n"...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statements.idx"), buf, 0644))

	_, err = OpenCatalog(dir, "statements.idx", CatalogOptions{})
	assert.ErrorIs(t, err, ErrCorruptCatalog)
}

func TestCatalogBadHeader(t *testing.T) {
	tests := map[string]string{
		"short":        `{"_v":1}`,
		"unterminated": strings.Repeat(" ", HeaderSize),
		"not json":     strings.Repeat("x", HeaderSize-1) + "\n",
		"algorithm":    fmt.Sprintf("%-127s\n", `{"_v":1,"_alg":7}`),
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "statements.idx"), []byte(content), 0644))
			_, err := OpenCatalog(dir, "statements.idx", CatalogOptions{})
			assert.ErrorIs(t, err, ErrCorruptCatalog)
		})
	}
}

func TestCatalogCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	hdr := Header{Version: CatalogVersion, Algorithm: AlgXXHash3, EOL: 1, Count: 1}
	buf, err := hdr.encode()
	require.NoError(t, err)
	buf = append(buf, "{not an entry\n"...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statements.idx"), buf, 0644))

	_, err = OpenCatalog(dir, "statements.idx", CatalogOptions{})
	assert.ErrorIs(t, err, ErrCorruptCatalog)
}

func TestCatalogClosed(t *testing.T) {
	dir := t.TempDir()
	writeTestCatalog(t, dir, CatalogOptions{})
	c, err := OpenCatalog(dir, "statements.idx", CatalogOptions{})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Get("anything")
	assert.ErrorIs(t, err, ErrClosed)
	for _, err := range c.List() {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestCatalogWriterClosed(t *testing.T) {
	cw, err := CreateCatalog(t.TempDir(), "x.idx", CRLF, true, CatalogOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, cw.Close())
	require.NoError(t, cw.Close())
	assert.ErrorIs(t, cw.Add(Entry{Title: "late"}), ErrClosed)
}

// TestCatalogReaderWaitsForWriter opens a catalog while its writer still
// holds the exclusive lock.
func TestCatalogReaderWaitsForWriter(t *testing.T) {
	dir := t.TempDir()
	cw, err := CreateCatalog(dir, "statements.idx", CRLF, true, CatalogOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, cw.Add(Entry{Title: "only", Offset: 0, Size: -120, Line: 1}))

	opened := make(chan *Catalog, 1)
	go func() {
		c, err := OpenCatalog(dir, "statements.idx", CatalogOptions{})
		assert.NoError(t, err)
		opened <- c
	}()

	select {
	case <-opened:
		t.Fatal("reader opened a catalog that is still being written")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, cw.Close())
	c := <-opened
	require.NotNil(t, c)
	defer c.Close()
	assert.Equal(t, int64(1), c.Count())
	assert.Equal(t, 2, c.Header().EOL)
	assert.True(t, c.Header().Compacted)

	e, err := c.Get("only")
	require.NoError(t, err)
	assert.True(t, e.Index().Compressed())
}

func TestBloom(t *testing.T) {
	b := newBloom(1000)
	for i := range 1000 {
		b.Add(entryID(fmt.Sprintf("title-%d", i), AlgXXHash3))
	}
	for i := range 1000 {
		assert.True(t, b.Contains(entryID(fmt.Sprintf("title-%d", i), AlgXXHash3)))
	}

	fp := 0
	for i := range 1000 {
		if b.Contains(entryID(fmt.Sprintf("other-%d", i), AlgXXHash3)) {
			fp++
		}
	}
	assert.Less(t, fp, 30)

	// An empty catalog still gets a usable filter.
	empty := newBloom(0)
	assert.False(t, empty.Contains("anything"))
}

// TestSharedLockHolds keeps the OS lock until the last concurrent pass
// releases it.
func TestSharedLockHolds(t *testing.T) {
	dir := t.TempDir()
	writeTestCatalog(t, dir, CatalogOptions{})
	c := openTestCatalog(t, dir)

	outer := c.List()
	for _, err := range outer {
		require.NoError(t, err)
		// A nested pass finishes while the outer one still reads.
		for _, err := range c.List() {
			require.NoError(t, err)
		}
		assert.Equal(t, 1, c.lock.shared)
		break
	}
	assert.Zero(t, c.lock.shared)
}

func TestEntryFromRecord(t *testing.T) {
	p := testParser(t, "lenient")
	ri := RecordIndex{StartOffset: 5, ByteSize: 10, StartLine: 2, Fields: map[string]string{"clientId": "c"}}

	// No title fields and no mapping: fallback title, every field kept.
	e := p.Entry(ri, "statements.ldt", 4)
	assert.Equal(t, "statements.ldt-4", e.Title)
	assert.Equal(t, ri.Fields, e.Fields)
	assert.Equal(t, ri, e.Index())
}
