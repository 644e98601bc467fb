// Package chart builds doughnut gauge configurations and manages the chart instances
// bound to document elements. The charting library and the document are injected
// (Library, Document); Host and Page are in-memory implementations of both.
package chart

import (
	"sync/atomic"

	"github.com/celerway/gaugeboard/log"
)

type Element interface {
	ID() string
	Width() float64
	Height() float64
}

type Document interface {
	ElementByID(id string) (Element, bool)
}

// Chart is a live chart instance owned by a Library.
type Chart interface {
	ID() string
	Config() Config
	ReplaceData(data Data)
	ReplaceOptions(opts Options)
	// Update asks the library to lay out and redraw the chart.
	Update()
	Destroy()
}

type Library interface {
	Get(id string) (Chart, bool)
	Create(el Element, cfg Config) (Chart, error)
}

type Renderer struct {
	doc    Document
	lib    Library
	logger atomic.Pointer[log.Logger]
}

func NewRenderer(doc Document, lib Library) *Renderer {
	r := &Renderer{doc: doc, lib: lib}
	r.logger.Store(log.Default().WithPrefix("[chart]"))
	return r
}

func (r *Renderer) SetLogger(logger *log.Logger) {
	r.logger.Store(logger)
}

// Render creates the chart for req.ID, or replaces it. With isUpdate set an existing
// chart keeps its instance and gets data and options swapped before a redraw.
// A missing element is not an error; the element may not be mounted yet.
func (r *Renderer) Render(req Request, isUpdate bool) error {
	logger := r.logger.Load()
	cfg := BuildConfig(req)
	el, ok := r.doc.ElementByID(req.ID)
	if !ok {
		logger.Tracef("No element with id %q, skipping render", req.ID)
		return nil
	}
	existing, found := r.lib.Get(req.ID)
	if !found {
		logger.Debugf("Creating chart with id %q", req.ID)
		_, err := r.lib.Create(el, cfg)
		return err
	}
	if !isUpdate {
		logger.Debugf("Recreating chart with id %q", req.ID)
		existing.Destroy()
		_, err := r.lib.Create(el, cfg)
		return err
	}
	logger.Tracef("Updating chart with id %q", req.ID)
	existing.ReplaceData(cfg.Data)
	existing.ReplaceOptions(cfg.Options)
	existing.Update()
	return nil
}
