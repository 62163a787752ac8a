// Record parsing.
//
// ParseRecord turns the raw lines of exactly one record (start line through
// end line) into a Record. Leading lines are classified as headers until the
// first line that is not one; every later line goes through item
// classification. A parser configured with useCallbackForRecord hands the
// whole window to its callbacks instead.
package ldt

import (
	"fmt"
)

// ParseRecord parses one record. When the leading lines are not headers the
// record is malformed: the result is (nil, nil) under ignoreMalformedLines
// and an ErrMalformedInput error otherwise.
func (p *Parser) ParseRecord(lines []string) (*Record, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedInput)
	}

	if p.cfg.UseCallbackForRecord {
		return p.parseWithCallbacks(lines)
	}

	headers, n := p.classifyHeaders(lines)
	if n < p.cfg.RequiredHeaders {
		return nil, p.malformed(lines, n)
	}

	var items []Item
	for _, line := range lines[n:] {
		it, err := p.ClassifyItem(line)
		if err != nil {
			return nil, err
		}
		if it != nil {
			items = append(items, *it)
		}
	}

	rec := NewRecord(headers, items, countPages(items))
	rec.template = &p.cfg.JSONTemplate
	return rec, nil
}

// classifyHeaders classifies leading lines as headers until one fails and
// returns the headers found and how many lines they span.
func (p *Parser) classifyHeaders(lines []string) ([]HeaderLine, int) {
	var headers []HeaderLine
	for i, line := range lines {
		h := p.ClassifyHeader(line, i+1)
		if h == nil {
			break
		}
		headers = append(headers, *h)
	}
	return headers, len(headers)
}

// malformed reports a record whose header block is incomplete. Under the
// ignore policy it logs and returns nil so the caller skips the record.
func (p *Parser) malformed(lines []string, headers int) error {
	bad := ""
	if headers < len(lines) {
		bad = lines[headers]
	}
	if p.cfg.IgnoreMalformedLines {
		p.log.Warn("ignoring malformed record", "parser", p.cfg.Name, "headers", headers, "line", bad)
		return nil
	}
	return fmt.Errorf("%w: record header line %d %q", ErrMalformedInput, headers+1, bad)
}

func (p *Parser) parseWithCallbacks(lines []string) (*Record, error) {
	rec, err := p.callbacks.ParseRecord(&p.cfg, lines)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if len(rec.Headers) == 0 {
		return nil, fmt.Errorf("%w: record callback returned no header", ErrMalformedInput)
	}
	if rec.PageCount < 1 {
		rec.PageCount = 1
	}
	rec.pageBase = 1
	rec.template = &p.cfg.JSONTemplate
	return rec, nil
}
