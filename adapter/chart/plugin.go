package chart

import (
	"fmt"
	"sync"
)

type Area struct {
	Left, Top, Right, Bottom float64
}

// Canvas is the 2D drawing context a chart renders into.
type Canvas interface {
	Save()
	Restore()
	SetFont(font string)
	SetFillStyle(style string)
	SetTextAlign(align string)
	SetTextBaseline(baseline string)
	MeasureText(text string) float64
	FillText(text string, x, y float64)
}

// ChartContext is what plugin hooks see of a chart during a render cycle.
type ChartContext interface {
	ID() string
	Options() Options
	Canvas() Canvas
	InnerRadius() float64
	ChartArea() Area
}

// Plugin hooks run once per render cycle: AfterUpdate after layout, AfterDraw after painting.
type Plugin interface {
	ID() string
	AfterUpdate(c ChartContext)
	AfterDraw(c ChartContext)
}

// destroyHook is implemented by plugins keeping per-chart state.
type destroyHook interface {
	AfterDestroy(id string)
}

const CenterTextID = "donutcenter"

type centerState struct {
	font      string
	fillStyle string
}

// CenterText draws Options.Elements.Center text in the doughnut hole.
type CenterText struct {
	mu     sync.Mutex
	charts map[string]centerState
}

func NewCenterText() *CenterText {
	return &CenterText{charts: make(map[string]centerState)}
}

func (p *CenterText) ID() string {
	return CenterTextID
}

func (p *CenterText) AfterUpdate(c ChartContext) {
	center := c.Options().Elements.Center
	if center == nil {
		p.AfterDestroy(c.ID())
		return
	}
	style := valueOrDefault(center.FontStyle, DefaultFontStyle)
	family := valueOrDefault(center.FontFamily, DefaultFontFamily)

	size := center.FontSize
	if size == 0 {
		canvas := c.Canvas()
		canvas.Save()
		probe := valueOrDefault(center.MaxText, center.Text)
		measure := func(s int) float64 {
			canvas.SetFont(FontString(s, style, family))
			return canvas.MeasureText(probe)
		}
		size = FitFontSize(measure, c.InnerRadius(),
			intOrDefault(center.MinFontSize, MinFontSize),
			intOrDefault(center.MaxFontSize, MaxFontSize))
		canvas.Restore()
	}

	p.mu.Lock()
	p.charts[c.ID()] = centerState{
		font:      FontString(size, style, family),
		fillStyle: valueOrDefault(center.FontColor, DefaultFontColor),
	}
	p.mu.Unlock()
}

func (p *CenterText) AfterDraw(c ChartContext) {
	p.mu.Lock()
	st, ok := p.charts[c.ID()]
	p.mu.Unlock()
	center := c.Options().Elements.Center
	if !ok || center == nil {
		return
	}
	canvas := c.Canvas()
	canvas.Save()
	canvas.SetFont(st.font)
	canvas.SetFillStyle(st.fillStyle)
	canvas.SetTextAlign("center")
	canvas.SetTextBaseline("middle")
	area := c.ChartArea()
	centerX := (area.Left + area.Right) / 2
	centerY := (area.Top + area.Bottom) / 2
	canvas.FillText(center.Text, centerX, centerY)
	canvas.Restore()
}

func (p *CenterText) AfterDestroy(id string) {
	p.mu.Lock()
	delete(p.charts, id)
	p.mu.Unlock()
}

// Font returns the computed font for a chart, if any.
func (p *CenterText) Font(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.charts[id]
	return st.font, ok
}

// FontString formats a CSS font shorthand, e.g. "bold 12px Arial".
func FontString(size int, style, family string) string {
	return fmt.Sprintf("%s %dpx %s", style, size, family)
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
