// JSON projection of a record.
//
// The shape is driven by the parser's JSONTemplate:
//
//	{"<root>": {"pageCount": 2, "<property>": "...", "items": [
//	    {"order": 1, "type": "...", "line": "...", "page": 1, "<field>": "..."}]}}
//
// Keys are written in that order. Item fields follow the configured field
// order; a field that collides with one of the fixed item keys is dropped.
package ldt

import (
	"bytes"

	json "github.com/goccy/go-json"
)

var itemKeys = map[string]bool{"order": true, "type": true, "line": true, "page": true}

// JSON returns the projected JSON document.
func (r *Record) JSON() ([]byte, error) {
	var tmpl JSONTemplate
	if r.template != nil {
		tmpl = *r.template
	}

	var buf bytes.Buffer
	root := tmpl.root()
	if root != "" {
		buf.WriteByte('{')
		if err := writeKey(&buf, root); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`{"pageCount":`)
	if err := writeValue(&buf, r.PageCount); err != nil {
		return nil, err
	}

	for _, prop := range tmpl.Properties {
		v, ok := r.headerValue(prop)
		if !ok {
			continue
		}
		buf.WriteByte(',')
		if err := writeKey(&buf, prop); err != nil {
			return nil, err
		}
		if err := writeValue(&buf, v); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`,"items":[`)
	page := r.FirstPage()
	for i, it := range r.Items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeItem(&buf, it, i+1, page); err != nil {
			return nil, err
		}
		if it.EndOfPage {
			page++
		}
	}
	buf.WriteString("]}")

	if root != "" {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.JSON()
}

func (r *Record) headerValue(field string) (string, bool) {
	for _, h := range r.Headers {
		if v, ok := h.Values[field]; ok {
			return v, true
		}
	}
	return "", false
}

func writeItem(buf *bytes.Buffer, it Item, order, page int) error {
	buf.WriteString(`{"order":`)
	if err := writeValue(buf, order); err != nil {
		return err
	}
	buf.WriteString(`,"type":`)
	if err := writeValue(buf, it.Type); err != nil {
		return err
	}
	buf.WriteString(`,"line":`)
	if err := writeValue(buf, it.Line); err != nil {
		return err
	}
	buf.WriteString(`,"page":`)
	if err := writeValue(buf, page); err != nil {
		return err
	}
	for _, f := range it.Fields {
		if itemKeys[f] {
			continue
		}
		v, ok := it.Values[f]
		if !ok {
			continue
		}
		buf.WriteByte(',')
		if err := writeKey(buf, f); err != nil {
			return err
		}
		if err := writeValue(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	if err := writeValue(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
