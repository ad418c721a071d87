package tool

import (
	"sync"

	"github.com/leofalp/owlseer/providers/ai"
)

// Catalog is a thread-safe registry of tools keyed by name. Listing keeps
// registration order.
type Catalog struct {
	mu    sync.RWMutex
	names []string
	tools map[string]GenericTool
}

// NewCatalog creates a catalog pre-populated with tools.
func NewCatalog(tools ...GenericTool) *Catalog {
	c := &Catalog{tools: make(map[string]GenericTool)}
	c.Add(tools...)
	return c
}

// Add registers tools. A tool with an existing name replaces the old one in
// place.
func (c *Catalog) Add(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		name := t.ToolInfo().Name
		if _, exists := c.tools[name]; !exists {
			c.names = append(c.names, name)
		}
		c.tools[name] = t
	}
}

// Remove drops the named tool. Removing an unknown name is a no-op.
func (c *Catalog) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tools[name]; !exists {
		return
	}
	delete(c.tools, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
}

// Get looks a tool up by its exact name.
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Definitions returns the definitions of every tool in registration order.
func (c *Catalog) Definitions() []ai.ToolDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	definitions := make([]ai.ToolDefinition, 0, len(c.names))
	for _, name := range c.names {
		definitions = append(definitions, c.tools[name].ToolInfo())
	}
	return definitions
}

func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}
