package pages

import "sync"

// Page is the metadata the dev server tracks for one registered page.
type Page struct {
	Path          string
	ComponentPath string
}

// Registry maps request paths to pages. The host's page discovery populates
// it; the request gate only reads it.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]Page
}

func NewRegistry() *Registry {
	return &Registry{pages: make(map[string]Page)}
}

func (r *Registry) Register(p Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[p.Path] = p
}

func (r *Registry) Lookup(path string) (Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[path]
	return p, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}
