// Parser registry files.
//
// A registry file is a YAML document listing named parser configurations:
//
//	parsers:
//	  - name: default
//	    recordStartToken: "$"
//	    recordEndToken: "CLOSING BALANCE"
//	    headers: [...]
//	    items: [...]
//
// Every entry is compiled when the file is loaded, so a broken pattern is
// reported once, up front, with the parser name attached.
package ldt

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Registry holds named parser configurations.
type Registry struct {
	configs map[string]Config
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: map[string]Config{}}
}

type registryFile struct {
	Parsers []Config `yaml:"parsers"`
}

// LoadRegistry decodes and validates a registry document.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: registry: %w", ErrConfiguration, err)
	}

	reg := NewRegistry()
	for i, cfg := range file.Parsers {
		if cfg.Name == "" {
			return nil, fmt.Errorf("%w: registry entry %d has no name", ErrConfiguration, i)
		}
		if _, dup := reg.configs[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: parser %q defined twice", ErrConfiguration, cfg.Name)
		}
		if _, err := Compile(cfg); err != nil {
			return nil, err
		}
		reg.configs[cfg.Name] = cfg
	}
	return reg, nil
}

// LoadRegistryFile loads a registry from path.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRegistry(f)
}

// Add registers cfg after compiling it, replacing any entry of that name.
func (r *Registry) Add(cfg Config) error {
	if cfg.Name == "" {
		cfg.Name = DefaultParserName
	}
	if _, err := Compile(cfg); err != nil {
		return err
	}
	r.configs[cfg.Name] = cfg
	return nil
}

// Config returns the configuration registered as name.
func (r *Registry) Config(name string) (Config, bool) {
	if name == "" {
		name = DefaultParserName
	}
	cfg, ok := r.configs[name]
	return cfg, ok
}

// Parser compiles the configuration registered as name. An empty name
// selects DefaultParserName.
func (r *Registry) Parser(name string, opts ...Option) (*Parser, error) {
	cfg, ok := r.Config(name)
	if !ok {
		return nil, fmt.Errorf("%w: no parser named %q", ErrConfiguration, name)
	}
	return Compile(cfg, opts...)
}

// Names returns the registered parser names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for n := range r.configs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
