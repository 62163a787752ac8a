package ldt

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
)

// Header and item lines of a bank statement record. The first record is a
// one-page statement with 22 items; the second spans two pages and repeats
// its header lines at the top of page two.
const (
	header1 = "$12345ABCD$    TYPE=BANK0003  CLIENT TYPE: F     TAX ID: 12345678901234    CLIENT ID: 1234567890ABC12"
	header2 = "003090         John & Marie DOE          MARCH-2023      098765432"

	header1b = "$ID$    TYPE=BANK0003  CLIENT TYPE: C     TAX ID: 12345678901567    CLIENT ID: 9874567890ABC12"
	header2b = "003091         Jane SMITH          APRIL-2023      098765433"
)

func statementLines() []string {
	return []string{
		header1,
		header2,
		"2",
		"2",
		"2   01/03    OPENING BALANCE                                                    999.77",
		"2   01/03     MZ68 QN45 IS78 IS78           657.20-          NF99",
		"2   01/03     KT11 IS78 IS78                499.95-          MQ47",
		"2   02/03     RW60 EQ48                    1084.94-          HD29",
		"2   04/03     BV97 ZH47                      27.00-          HO61",
		"2   08/03     NK31 RH52 IS78                658.75           XD25",
		"2   17/03     MR82 GQ22                      15.48-          BX97",
		"2   17/03     WD79 XJ33 IS78 IS78           536.00-          NF99",
		"2   18/03     GB27 RJ68                    1084.17-          MQ47",
		"2   18/03     JD80 QB89 IS78 IS78 IS78       77.90           HD29",
		"2   22/03     NC53 SX22                      75.89           HO61",
		"2   23/03     PX89 PV25 IS78               1002.54-          XD25",
		"2   23/03     WY60 VB47 IS78                928.07-          NF99",
		"2   23/03     KT22 XK12                     692.09-          MQ47",
		"2   23/03     ZI72 KM41 IS78 IS78           628.92-          HD29",
		"2   24/03     DC32 HP97                      97.31-          HO61",
		"2   25/03     AS23 KB27                     297.29-          HO61",
		"2   26/03     PF69 DX81 IS78                363.84-          XD25",
		"2   26/03     AC72 EB81 IS78               1111.51-          NF99",
		"2   26/03     OV19 YM45 IS78 IS78 IS78      600.25-          MQ47",
		"2   26/03     UI61 IA28 IS78                761.30-          MQ47",
		"2 26/03    CLOSING BALANCE                                                   8575.55-",
	}
}

// twoPageLines has 5 items on page one and 4 on page two.
func twoPageLines() []string {
	return []string{
		header1b,
		header2b,
		"2   01/04    OPENING BALANCE                                                    100.00",
		"2   02/04     AA11 BB22                      10.00-          NF99",
		"2   03/04     CC33 DD44                      20.00-          MQ47",
		"2   04/04     EE55 FF66                      30.00           HD29",
		"2   15/04    INTERMEDIATE BALANCE                                                80.00",
		header1b,
		header2b,
		"2   15/04    PREVIOUS BALANCE                                                    80.00",
		"2   16/04     GG77 HH88                      40.00-          HO61",
		"2   17/04     II99 JJ00                      50.00-          XD25",
		"2 30/04    CLOSING BALANCE                                                     10.00-",
	}
}

// malformedLines has a second header line that matches no header pattern.
func malformedLines() []string {
	return []string{
		header1,
		"NOT A HEADER LINE AT ALL",
		"2   01/03    OPENING BALANCE                                                    999.77",
		"2 26/03    CLOSING BALANCE                                                   8575.55-",
	}
}

// join terminates every line with eol.
func join(eol string, records ...[]string) string {
	var b strings.Builder
	for _, lines := range records {
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString(eol)
		}
	}
	return b.String()
}

// span returns the byte size of lines joined with eol.
func span(eol string, lines []string) int64 {
	return int64(len(join(eol, lines)))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testParser compiles a parser from testdata/parsers.yaml.
func testParser(t *testing.T, name string) *Parser {
	t.Helper()
	reg, err := LoadRegistryFile("testdata/parsers.yaml")
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	p, err := reg.Parser(name, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("compile %q: %v", name, err)
	}
	return p
}

// memSource is an in-memory RangeReader that counts fetches.
type memSource struct {
	objects map[string][]byte
	calls   atomic.Int64
}

func newMemSource(key string, data []byte) *memSource {
	return &memSource{objects: map[string][]byte{key: data}}
}

func (m *memSource) ReadRange(_ context.Context, key string, r ByteRange) (io.ReadCloser, error) {
	m.calls.Add(1)
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Start >= int64(len(data)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := r.Start + min(r.Length, int64(len(data))-r.Start)
	return io.NopCloser(bytes.NewReader(data[r.Start:end])), nil
}
