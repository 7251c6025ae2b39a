package source

import (
	"context"
	"maps"
)

// Map serves templates held in memory.
type Map struct {
	templates map[string]string
	name      string
}

// NewMap creates a backend named name. The map is copied.
func NewMap(name string, templates map[string]string) *Map {
	return &Map{name: name, templates: maps.Clone(templates)}
}

// Name implements Backend.
func (m *Map) Name() string { return m.name }

// Load implements Backend.
func (m *Map) Load(_ context.Context, id string) (string, error) {
	src, ok := m.templates[id]
	if !ok {
		return "", notFound(id)
	}
	return src, nil
}

var _ Backend = (*Map)(nil)
