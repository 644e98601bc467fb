package chart

import (
	"sort"
	"sync"
)

type element struct {
	id     string
	width  float64
	height float64
}

func (e element) ID() string      { return e.id }
func (e element) Width() float64  { return e.width }
func (e element) Height() float64 { return e.height }

// Page is an in-memory Document of canvas elements.
type Page struct {
	mu       sync.RWMutex
	elements map[string]element
}

func NewPage() *Page {
	return &Page{elements: make(map[string]element)}
}

// Mount adds (or resizes) the element with the given id.
func (p *Page) Mount(id string, width, height float64) Element {
	el := element{id: id, width: width, height: height}
	p.mu.Lock()
	p.elements[id] = el
	p.mu.Unlock()
	return el
}

func (p *Page) Unmount(id string) {
	p.mu.Lock()
	delete(p.elements, id)
	p.mu.Unlock()
}

func (p *Page) ElementByID(id string) (Element, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	el, ok := p.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

func (p *Page) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.elements))
	for id := range p.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
