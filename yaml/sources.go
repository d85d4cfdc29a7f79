// Package yaml reads search source seed files.
package yaml

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwojciec/larder"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSources []byte

// sourceFile is the on-disk layout of a seed file.
type sourceFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Host      string `yaml:"host"`
	Name      string `yaml:"name"`
	SearchURL string `yaml:"search_url"`
	Selector  string `yaml:"selector"`
	Enabled   *bool  `yaml:"enabled"`
}

// DefaultSources returns the built-in list of cooking sites.
func DefaultSources() ([]*larder.SearchSource, error) {
	return LoadSources(bytes.NewReader(defaultSources))
}

// LoadSourcesFile reads sources from the YAML file at path.
func LoadSourcesFile(path string) ([]*larder.SearchSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSources(f)
}

// LoadSources reads sources from YAML. Entries are enabled unless they say
// otherwise, names default to the host, and every entry must validate.
func LoadSources(r io.Reader) ([]*larder.SearchSource, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file sourceFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, larder.Errorf(larder.EINVALID, "invalid sources file: %v", err)
	}

	seen := make(map[string]bool, len(file.Sources))
	sources := make([]*larder.SearchSource, 0, len(file.Sources))
	for i, e := range file.Sources {
		s := &larder.SearchSource{
			Host:      strings.ToLower(strings.TrimSpace(e.Host)),
			Name:      strings.TrimSpace(e.Name),
			SearchURL: strings.TrimSpace(e.SearchURL),
			Selector:  strings.TrimSpace(e.Selector),
			Enabled:   e.Enabled == nil || *e.Enabled,
		}
		if s.Name == "" {
			s.Name = s.Host
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		if seen[s.Host] {
			return nil, larder.Errorf(larder.EINVALID, "source %d: duplicate host %s", i+1, s.Host)
		}
		seen[s.Host] = true
		sources = append(sources, s)
	}
	return sources, nil
}
