// Parser configuration.
//
// A Config is plain data, usually loaded from a registry file. Compile
// validates it and turns it into an immutable Parser holding the compiled
// patterns and the resolved callbacks. Patterns always match the whole line:
// each one is anchored at compile time, and the number of capture groups must
// equal the number of configured field names.
package ldt

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// IgnoreField is the field name that captures a group but drops its value.
const IgnoreField = "IGNORE_FIELD"

// DefaultParserName is the registry entry used when no name is given.
const DefaultParserName = "default"

// Config describes one kind of LDT file.
type Config struct {
	Name                  string            `yaml:"name"`
	RecordStartToken      string            `yaml:"recordStartToken"`
	RecordEndToken        string            `yaml:"recordEndToken"`
	Headers               []HeaderMatcher   `yaml:"headers"`
	Items                 []ItemMatcher     `yaml:"items"`
	RequiredHeaders       int               `yaml:"requiredHeaders"`    // leading lines that must be headers (default 1)
	DetailsLineMinSize    int               `yaml:"detailsLineMinSize"` // shorter item lines are skipped silently
	IgnoreMalformedLines  bool              `yaml:"ignoreMalformedLines"`
	UseCallbackForHeaders bool              `yaml:"useCallbackForHeaders"`
	UseCallbackForItems   bool              `yaml:"useCallbackForItems"`
	UseCallbackForRecord  bool              `yaml:"useCallbackForRecord"`
	Callbacks             string            `yaml:"callbacks"` // id registered with RegisterCallbacks
	ItemChain             string            `yaml:"itemChain"` // id registered with RegisterItemChain
	JSONTemplate          JSONTemplate      `yaml:"jsonTemplate"`
	RecordTitleFields     []string          `yaml:"recordTitleFields"`
	RecordFieldsMapping   map[string]string `yaml:"recordFieldsMapping"` // catalog key -> header field
}

// HeaderMatcher recognises one kind of header line.
type HeaderMatcher struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Fields  []string `yaml:"fields"`
}

// ItemMatcher recognises one type of item line.
type ItemMatcher struct {
	Type      string   `yaml:"type"`
	Pattern   string   `yaml:"pattern"`
	Fields    []string `yaml:"fields"`
	EndOfPage bool     `yaml:"endOfPage"`
}

// JSONTemplate shapes the JSON projection of a record. An empty RootName,
// or the literal "null", produces an unwrapped object.
type JSONTemplate struct {
	RootName   string   `yaml:"rootName"`
	Properties []string `yaml:"properties"`
}

func (t JSONTemplate) root() string {
	name := strings.TrimSpace(t.RootName)
	if name == "" || strings.EqualFold(name, "null") {
		return ""
	}
	return name
}

// HeaderFields returns every configured header field name, in order.
func (c *Config) HeaderFields() []string {
	var fields []string
	for _, h := range c.Headers {
		fields = append(fields, h.Fields...)
	}
	return fields
}

// Validate performs the sanity checks that do not need compiled patterns.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RecordStartToken) == "" {
		return fmt.Errorf("%w: parser %q has no recordStartToken", ErrConfiguration, c.Name)
	}
	if strings.TrimSpace(c.RecordEndToken) == "" {
		return fmt.Errorf("%w: parser %q has no recordEndToken", ErrConfiguration, c.Name)
	}
	if !c.UseCallbackForHeaders && !c.UseCallbackForRecord && len(c.Headers) == 0 {
		return fmt.Errorf("%w: parser %q has no header patterns", ErrConfiguration, c.Name)
	}
	if c.RequiredHeaders < 0 || c.DetailsLineMinSize < 0 {
		return fmt.Errorf("%w: parser %q has a negative count", ErrConfiguration, c.Name)
	}
	return nil
}

// Option configures a Parser at compile time.
type Option func(*Parser)

// WithLogger sets the logger used for warnings about dropped lines and
// skipped records.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithCallbacks supplies a callbacks implementation directly, bypassing the
// registry lookup by id.
func WithCallbacks(cb Callbacks) Option {
	return func(p *Parser) {
		p.callbacks = cb
	}
}

type headerMatcher struct {
	name   string
	re     *regexp.Regexp
	fields []string
}

type itemMatcher struct {
	typ       string
	re        *regexp.Regexp
	fields    []string
	endOfPage bool
}

// Parser is a compiled Config. It holds no per-scan state, so one Parser can
// serve any number of concurrent retrievals; each full-file scan gets its own
// Scan session.
type Parser struct {
	cfg       Config
	headers   []headerMatcher
	items     []itemMatcher
	callbacks Callbacks
	chain     ItemChain
	log       *slog.Logger
}

// Compile validates cfg and returns a ready Parser.
func Compile(cfg Config, opts ...Option) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RequiredHeaders == 0 {
		cfg.RequiredHeaders = 1
	}

	p := &Parser{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	for _, h := range cfg.Headers {
		re, err := anchor(h.Pattern, len(h.Fields))
		if err != nil {
			return nil, fmt.Errorf("%w: parser %q header %q: %w", ErrConfiguration, cfg.Name, h.Name, err)
		}
		p.headers = append(p.headers, headerMatcher{h.Name, re, h.Fields})
	}
	for _, it := range cfg.Items {
		re, err := anchor(it.Pattern, len(it.Fields))
		if err != nil {
			return nil, fmt.Errorf("%w: parser %q item %q: %w", ErrConfiguration, cfg.Name, it.Type, err)
		}
		p.items = append(p.items, itemMatcher{it.Type, re, it.Fields, it.EndOfPage})
	}

	if p.callbacks == nil && cfg.Callbacks != "" {
		cb, err := newCallbacks(cfg.Callbacks)
		if err != nil {
			return nil, fmt.Errorf("parser %q: %w", cfg.Name, err)
		}
		p.callbacks = cb
	}
	if cfg.ItemChain != "" {
		chain, err := lookupItemChain(cfg.ItemChain)
		if err != nil {
			return nil, fmt.Errorf("parser %q: %w", cfg.Name, err)
		}
		p.chain = chain
	}
	// Items may be served by an item chain alone; headers and whole records
	// need a Callbacks implementation.
	switch {
	case (cfg.UseCallbackForHeaders || cfg.UseCallbackForRecord) && p.callbacks == nil:
		return nil, fmt.Errorf("%w: parser %q asks for callbacks but has none", ErrConfiguration, cfg.Name)
	case cfg.UseCallbackForItems && p.callbacks == nil && p.chain == nil:
		return nil, fmt.Errorf("%w: parser %q asks for item callbacks but has none", ErrConfiguration, cfg.Name)
	}

	return p, nil
}

// anchor compiles pattern as a whole-line match and checks the capture
// group count against the configured field names.
func anchor(pattern string, fields int) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() != fields {
		return nil, fmt.Errorf("count of capture groups (%d) should equal the number of fields (%d)", re.NumSubexp(), fields)
	}
	return re, nil
}

// Config returns a copy of the configuration the parser was compiled from.
func (p *Parser) Config() Config {
	return p.cfg
}

// Name returns the configured parser name.
func (p *Parser) Name() string {
	return p.cfg.Name
}
