// Search over catalog fields.
//
// Search matches a pattern against one field of every entry: a header value
// from the entry's field map, or the title when the field is "_t". Literal
// patterns (no regex metacharacters) take a fast path through
// strings.Contains; anything else is compiled as a regular expression.
// Matching is case-insensitive unless CaseSensitive is set.
package ldt

import (
	"iter"
	"regexp"
	"strings"
)

// TitleField selects the entry title in Search.
const TitleField = "_t"

// SearchOptions configures Search.
type SearchOptions struct {
	CaseSensitive bool
}

// Search yields the entries whose field matches pattern, in file order.
func (c *Catalog) Search(field, pattern string, opts SearchOptions) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		match, err := matcher(pattern, opts)
		if err != nil {
			yield(Entry{}, err)
			return
		}

		for e, err := range c.List() {
			if err != nil {
				yield(Entry{}, err)
				return
			}
			v, ok := e.Fields[field]
			if field == TitleField {
				v, ok = e.Title, true
			}
			if ok && match(v) {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

func matcher(pattern string, opts SearchOptions) (func(string) bool, error) {
	if regexp.QuoteMeta(pattern) == pattern {
		if opts.CaseSensitive {
			return func(s string) bool { return strings.Contains(s, pattern) }, nil
		}
		lower := strings.ToLower(pattern)
		return func(s string) bool { return strings.Contains(strings.ToLower(s), lower) }, nil
	}

	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ErrInvalidPattern
	}
	return re.MatchString, nil
}
