// Line classification.
//
// Each line of a record is either the record start, a header of some named
// kind, an item of some type, or the record end. Matchers are tried in
// configured order and the first whole-line match wins.
package ldt

import (
	"fmt"
	"strings"
)

// IsRecordStart reports whether line begins a record.
func (p *Parser) IsRecordStart(line string) bool {
	return strings.HasPrefix(line, p.cfg.RecordStartToken)
}

// IsRecordEnd reports whether line closes a record. The end token may appear
// anywhere on the line.
func (p *Parser) IsRecordEnd(line string) bool {
	return strings.Contains(line, p.cfg.RecordEndToken)
}

// ClassifyHeader returns the header line for line, or nil when no header
// matcher accepts it. lineNumber is 1-based within the record.
func (p *Parser) ClassifyHeader(line string, lineNumber int) *HeaderLine {
	if p.cfg.UseCallbackForHeaders {
		return p.callbacks.ParseHeader(&p.cfg, line, lineNumber)
	}
	for _, h := range p.headers {
		m := h.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		values := make(map[string]string, len(h.fields))
		for i, f := range h.fields {
			values[f] = strings.TrimSpace(m[i+1])
		}
		return &HeaderLine{Name: h.name, LineNumber: lineNumber, Fields: h.fields, Values: values}
	}
	return nil
}

// isHeader reports whether line matches any header pattern. Header lines
// are repeated at the top of every continuation page of a multi-page record
// and must not be read as items.
func (p *Parser) isHeader(line string) bool {
	if p.cfg.UseCallbackForHeaders {
		return false
	}
	for _, h := range p.headers {
		if h.re.MatchString(line) {
			return true
		}
	}
	return false
}

// ClassifyItem returns the item for line, or nil when the line is too short,
// is a repeated header, or matches no item pattern. Unmatched lines are
// logged and dropped: item catalogues are expected to lag behind the data.
func (p *Parser) ClassifyItem(line string) (*Item, error) {
	if p.cfg.DetailsLineMinSize > 0 && len(line) < p.cfg.DetailsLineMinSize {
		return nil, nil
	}

	if p.cfg.UseCallbackForItems {
		if p.chain != nil {
			data, err := p.chain(line, &p.cfg)
			if err != nil {
				return nil, fmt.Errorf("item chain %q: %w", p.cfg.ItemChain, err)
			}
			return decodeChainItem(line, data)
		}
		it := p.callbacks.ParseItem(&p.cfg, line)
		if it == nil {
			p.log.Warn("item callback returned no item", "parser", p.cfg.Name, "line", line)
		}
		return it, nil
	}

	if p.isHeader(line) {
		return nil, nil
	}

	for _, im := range p.items {
		m := im.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		fields := make([]string, 0, len(im.fields))
		values := make(map[string]string, len(im.fields))
		for i, f := range im.fields {
			if f == IgnoreField {
				continue
			}
			fields = append(fields, f)
			values[f] = strings.TrimSpace(m[i+1])
		}
		return &Item{Line: line, Type: im.typ, Fields: fields, Values: values, EndOfPage: im.endOfPage}, nil
	}

	p.log.Warn("item line matches no pattern", "parser", p.cfg.Name, "line", line)
	return nil, nil
}
