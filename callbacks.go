// Pluggable classification.
//
// Some LDT layouts cannot be described with one regular expression per line
// (values move around, fields may be blank, a line needs several lookups).
// For those, a parser delegates header lines, item lines or whole records to
// a Callbacks implementation. Implementations are registered under a stable
// id and the configuration names the id; there is no dynamic loading.
//
// An item chain is a lighter alternative for items only: a named function
// that receives the line and the parser configuration and answers with a
// JSON description of the item, the contract used by external workflow
// steps.
package ldt

import (
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// Callbacks classifies lines or records on behalf of a parser. Each method
// is only called when the matching useCallbackFor* flag is set.
type Callbacks interface {
	// ParseHeader returns the header for line, or nil when the line is not
	// a header.
	ParseHeader(cfg *Config, line string, lineNumber int) *HeaderLine

	// ParseItem returns the item for line. Returning nil drops the line.
	ParseItem(cfg *Config, line string) *Item

	// ParseRecord receives every line of one record, start and end lines
	// included, and returns the whole record.
	ParseRecord(cfg *Config, lines []string) (*Record, error)
}

// ItemChain classifies one item line and returns the JSON document
// {type, fieldList[], fieldsAndValues[{field,value}], isEndOfPage}.
type ItemChain func(line string, cfg *Config) ([]byte, error)

var (
	registryMu sync.RWMutex
	callbacks  = map[string]func() Callbacks{}
	chains     = map[string]ItemChain{}
)

// RegisterCallbacks makes a Callbacks factory available under id. A later
// registration with the same id replaces the earlier one.
func RegisterCallbacks(id string, factory func() Callbacks) {
	registryMu.Lock()
	defer registryMu.Unlock()
	callbacks[id] = factory
}

// RegisterItemChain makes an item chain available under id.
func RegisterItemChain(id string, chain ItemChain) {
	registryMu.Lock()
	defer registryMu.Unlock()
	chains[id] = chain
}

func newCallbacks(id string) (Callbacks, error) {
	registryMu.RLock()
	factory, ok := callbacks[id]
	registryMu.RUnlock()
	if !ok || factory == nil {
		return nil, fmt.Errorf("%w: no callbacks registered as %q", ErrConfiguration, id)
	}
	return factory(), nil
}

func lookupItemChain(id string) (ItemChain, error) {
	registryMu.RLock()
	chain, ok := chains[id]
	registryMu.RUnlock()
	if !ok || chain == nil {
		return nil, fmt.Errorf("%w: no item chain registered as %q", ErrConfiguration, id)
	}
	return chain, nil
}

// chainResult is the JSON answer of an item chain.
type chainResult struct {
	Type            string   `json:"type"`
	FieldList       []string `json:"fieldList"`
	FieldsAndValues []struct {
		Field string `json:"field"`
		Value string `json:"value"`
	} `json:"fieldsAndValues"`
	IsEndOfPage bool `json:"isEndOfPage"`
}

// decodeChainItem packages an item chain answer back into an Item.
func decodeChainItem(line string, data []byte) (*Item, error) {
	var res chainResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("item chain result: %w", err)
	}
	values := make(map[string]string, len(res.FieldsAndValues))
	for _, fv := range res.FieldsAndValues {
		values[fv.Field] = fv.Value
	}
	fields := res.FieldList
	if len(fields) == 0 {
		for _, fv := range res.FieldsAndValues {
			fields = append(fields, fv.Field)
		}
	}
	return &Item{
		Line:      line,
		Type:      res.Type,
		Fields:    fields,
		Values:    values,
		EndOfPage: res.IsEndOfPage,
	}, nil
}
