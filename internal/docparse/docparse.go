// Package docparse extracts text from deal documents behind one output
// schema, so experiment layers can swap parsing backends without touching
// anything downstream.
package docparse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Table is a table extracted from a document, with its 1-based page number.
type Table struct {
	Page int        `json:"page"`
	Data [][]string `json:"data"`
}

// Document is the normalized result of parsing one source file,
// whichever backend produced it.
type Document struct {
	SourcePath string         `json:"source_path"`
	Parser     string         `json:"parser"`
	Text       string         `json:"-"`
	Pages      []string       `json:"-"`
	Tables     []Table        `json:"-"`
	Metadata   map[string]any `json:"metadata"`
}

// Parser is one parsing backend.
type Parser interface {
	Name() string
	Parse(ctx context.Context, path string) (*Document, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Parser{}
)

// Register makes a backend available by name. Later registrations of the
// same name win, so tests can install fakes.
func Register(p Parser) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(p.Name())] = p
}

// Get returns the backend registered under name.
func Get(name string) (Parser, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown parser %q (available: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return p, nil
}

// Names returns the registered backend names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(&textParser{})
	Register(&pdftotextParser{})
}
