package chart

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/celerway/gaugeboard/log"
)

// ErrInUse is returned by Host.Create when the element already has a chart.
var ErrInUse = errors.New("chart: element already in use")

const (
	titlePadding = 10
	legendHeight = 32
)

// Host is an in-memory chart library. It lays charts out against their element
// size and runs the registered plugins on every render cycle.
type Host struct {
	mu      sync.RWMutex
	charts  map[string]*instance
	plugins []Plugin
	logger  *log.Logger
}

type Snapshot struct {
	ID          string      `json:"id"`
	Config      Config      `json:"config"`
	Drawn       []DrawnText `json:"drawn,omitempty"`
	InnerRadius float64     `json:"innerRadius"`
	Area        Area        `json:"area"`
	Revision    int         `json:"revision"`
}

func NewHost() *Host {
	return &Host{
		charts: make(map[string]*instance),
		logger: log.Default().WithPrefix("[chart-host]"),
	}
}

// Register adds a plugin, replacing one already registered with the same id.
func (h *Host) Register(p Plugin) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.plugins {
		if existing.ID() == p.ID() {
			h.plugins[i] = p
			return
		}
	}
	h.plugins = append(h.plugins, p)
}

func (h *Host) pluginList() []Plugin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Plugin, len(h.plugins))
	copy(out, h.plugins)
	return out
}

func (h *Host) Get(id string) (Chart, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.charts[id]
	if !ok {
		return nil, false
	}
	return inst, true
}

// Create binds a new chart to el and renders it once.
func (h *Host) Create(el Element, cfg Config) (Chart, error) {
	h.mu.Lock()
	if _, ok := h.charts[el.ID()]; ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInUse, el.ID())
	}
	inst := &instance{
		host:   h,
		id:     el.ID(),
		el:     el,
		cfg:    cfg,
		canvas: NewTextCanvas(),
	}
	h.charts[inst.id] = inst
	h.mu.Unlock()
	h.logger.Tracef("Chart %s created", inst.id)
	inst.Update()
	return inst, nil
}

func (h *Host) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.charts))
	for id := range h.charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *Host) Snapshot(id string) (Snapshot, bool) {
	h.mu.RLock()
	inst, ok := h.charts[id]
	h.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return inst.snapshot(), true
}

func (h *Host) remove(inst *instance) {
	h.mu.Lock()
	if h.charts[inst.id] == inst {
		delete(h.charts, inst.id)
	}
	h.mu.Unlock()
}

type instance struct {
	host   *Host
	id     string
	el     Element
	canvas *TextCanvas

	renderMu sync.Mutex // serialises render cycles

	mu          sync.Mutex
	cfg         Config
	area        Area
	innerRadius float64
	revision    int
	destroyed   bool
}

func (i *instance) ID() string {
	return i.id
}

func (i *instance) Config() Config {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg
}

func (i *instance) Options() Options {
	return i.Config().Options
}

func (i *instance) Canvas() Canvas {
	return i.canvas
}

func (i *instance) InnerRadius() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.innerRadius
}

func (i *instance) ChartArea() Area {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.area
}

func (i *instance) ReplaceData(data Data) {
	i.mu.Lock()
	i.cfg.Data = data
	i.mu.Unlock()
}

func (i *instance) ReplaceOptions(opts Options) {
	i.mu.Lock()
	i.cfg.Options = opts
	i.mu.Unlock()
}

func (i *instance) Update() {
	i.renderMu.Lock()
	defer i.renderMu.Unlock()

	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.layout()
	i.mu.Unlock()

	plugins := i.host.pluginList()
	for _, p := range plugins {
		p.AfterUpdate(i)
	}
	i.canvas.Clear()
	for _, p := range plugins {
		p.AfterDraw(i)
	}

	i.mu.Lock()
	i.revision++
	i.mu.Unlock()
}

func (i *instance) Destroy() {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.destroyed = true
	i.mu.Unlock()
	i.host.remove(i)
	for _, p := range i.host.pluginList() {
		if d, ok := p.(destroyHook); ok {
			d.AfterDestroy(i.id)
		}
	}
	i.host.logger.Tracef("Chart %s destroyed", i.id)
}

// layout must be called with i.mu held.
func (i *instance) layout() {
	w, h := i.el.Width(), i.el.Height()
	top := 0.0
	if t := i.cfg.Options.Plugins.Title; t != nil && t.Display {
		top = float64(t.Font.Size) + 2*titlePadding
	}
	bottom := h
	if len(i.cfg.Data.Labels) > 0 {
		bottom -= legendHeight
	}
	if bottom < top {
		bottom = top
	}
	i.area = Area{Left: 0, Top: top, Right: w, Bottom: bottom}
	outer := math.Max(0, math.Min(w, bottom-top)/2)
	i.innerRadius = innerRadius(outer, i.cfg.Options.Cutout)
}

func (i *instance) snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Snapshot{
		ID:          i.id,
		Config:      i.cfg,
		Drawn:       i.canvas.Drawn(),
		InnerRadius: i.innerRadius,
		Area:        i.area,
		Revision:    i.revision,
	}
}

// innerRadius applies a cutout given either as a percentage of the outer radius or in pixels.
func innerRadius(outer float64, cutout string) float64 {
	cutout = strings.TrimSpace(cutout)
	if strings.HasSuffix(cutout, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(cutout, "%"), 64)
		if err != nil {
			return 0
		}
		return outer * pct / 100
	}
	px, err := strconv.ParseFloat(cutout, 64)
	if err != nil {
		return 0
	}
	return math.Min(px, outer)
}
