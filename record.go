// Parsed record structures.
//
// A Record is a pure in-memory projection of one record's text window: its
// header lines in order, its item lines in order, and the number of pages
// the items span. Nothing in it refers back to storage. Records are not
// mutated after construction; ForPageRange builds a new one.
package ldt

// HeaderLine is one metadata line at the top of a record.
type HeaderLine struct {
	Name       string            // matcher name, or set by a callback
	LineNumber int               // 1-based, within the record
	Fields     []string          // field names in configured order
	Values     map[string]string // trimmed captured values
}

// Value returns the value of field, or "" when the header does not carry it.
func (h HeaderLine) Value(field string) string {
	return h.Values[field]
}

// Item is one detail line of a record.
type Item struct {
	Line      string            // raw line
	Type      string            // matcher type, or set by a callback
	Fields    []string          // field names in configured order, ignored fields excluded
	Values    map[string]string // trimmed captured values
	EndOfPage bool              // the page ends after this item
}

// Value returns the value of field, or "" when the item does not carry it.
func (it Item) Value(field string) string {
	return it.Values[field]
}

// Record is one parsed record.
type Record struct {
	Headers   []HeaderLine
	Items     []Item
	PageCount int

	// pageBase is the number of the first page kept in Items. It is 1 for a
	// full record and firstPage for a record narrowed by ForPageRange, so
	// narrowing twice with the same bounds keeps the same items.
	pageBase int
	template *JSONTemplate
}

// NewRecord builds a record. A page count below one is raised to one: even
// an empty record has a page.
func NewRecord(headers []HeaderLine, items []Item, pageCount int) *Record {
	if pageCount < 1 {
		pageCount = 1
	}
	return &Record{Headers: headers, Items: items, PageCount: pageCount, pageBase: 1}
}

// countPages returns the number of distinct pages the items fall on. Every
// end-of-page item closes a page; items after the last one open a trailing
// page. A record always has at least one page.
func countPages(items []Item) int {
	pages := 0
	open := false
	for _, it := range items {
		open = true
		if it.EndOfPage {
			pages++
			open = false
		}
	}
	if open {
		pages++
	}
	return max(pages, 1)
}

// HeaderValue returns the value of field from the first header line that
// carries it.
func (r *Record) HeaderValue(field string) string {
	for _, h := range r.Headers {
		if v, ok := h.Values[field]; ok {
			return v
		}
	}
	return ""
}

// FirstPage returns the number of the first page held by the record.
func (r *Record) FirstPage() int {
	if r.pageBase < 1 {
		return 1
	}
	return r.pageBase
}

// ForPageRange returns a new record holding only the items on pages
// firstPage through lastPage. Bounds are clamped to the pages the record
// holds and lastPage is raised to firstPage when needed. Headers are shared
// with the receiver, which is left untouched.
func (r *Record) ForPageRange(firstPage, lastPage int) *Record {
	base := r.FirstPage()
	last := base + r.PageCount - 1

	if firstPage < base {
		firstPage = base
	}
	if lastPage > last {
		lastPage = last
	}
	if lastPage < firstPage {
		lastPage = firstPage
	}

	var items []Item
	page := base
	for _, it := range r.Items {
		if page >= firstPage && page <= lastPage {
			items = append(items, it)
		}
		if it.EndOfPage {
			page++
		}
	}

	return &Record{
		Headers:   r.Headers,
		Items:     items,
		PageCount: lastPage - firstPage + 1,
		pageBase:  firstPage,
		template:  r.template,
	}
}
