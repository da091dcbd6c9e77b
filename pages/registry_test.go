package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	r.Register(Page{Path: "/about", ComponentPath: "src/pages/about.js"})
	r.Register(Page{Path: "/", ComponentPath: "src/pages/index.js"})

	p, ok := r.Lookup("/about")
	assert.True(t, ok)
	assert.Equal(t, "src/pages/about.js", p.ComponentPath)

	_, ok = r.Lookup("/missing")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(Page{Path: "/about", ComponentPath: "old.js"})
	r.Register(Page{Path: "/about", ComponentPath: "new.js"})

	p, ok := r.Lookup("/about")
	assert.True(t, ok)
	assert.Equal(t, "new.js", p.ComponentPath)
	assert.Equal(t, 1, r.Len())
}
