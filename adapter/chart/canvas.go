package chart

import (
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
)

// Approximate advance of one terminal cell, as a fraction of the font size.
const (
	regularAdvance = 0.55
	boldAdvance    = 0.6
)

type DrawnText struct {
	Text      string  `json:"text"`
	Font      string  `json:"font"`
	FillStyle string  `json:"fillStyle"`
	Align     string  `json:"align"`
	Baseline  string  `json:"baseline"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type canvasState struct {
	font      string
	fillStyle string
	align     string
	baseline  string
}

// TextCanvas is a headless Canvas. It measures text by display cell width and
// records FillText calls instead of rasterising them.
type TextCanvas struct {
	mu    sync.Mutex
	state canvasState
	stack []canvasState
	drawn []DrawnText
}

func NewTextCanvas() *TextCanvas {
	return &TextCanvas{
		state: canvasState{
			font:      FontString(10, DefaultFontStyle, DefaultFontFamily),
			fillStyle: "#000",
			align:     "start",
			baseline:  "alphabetic",
		},
	}
}

func (c *TextCanvas) Save() {
	c.mu.Lock()
	c.stack = append(c.stack, c.state)
	c.mu.Unlock()
}

func (c *TextCanvas) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return
	}
	c.state = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *TextCanvas) SetFont(font string) {
	c.mu.Lock()
	c.state.font = font
	c.mu.Unlock()
}

func (c *TextCanvas) SetFillStyle(style string) {
	c.mu.Lock()
	c.state.fillStyle = style
	c.mu.Unlock()
}

func (c *TextCanvas) SetTextAlign(align string) {
	c.mu.Lock()
	c.state.align = align
	c.mu.Unlock()
}

func (c *TextCanvas) SetTextBaseline(baseline string) {
	c.mu.Lock()
	c.state.baseline = baseline
	c.mu.Unlock()
}

func (c *TextCanvas) Font() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.font
}

func (c *TextCanvas) MeasureText(text string) float64 {
	c.mu.Lock()
	font := c.state.font
	c.mu.Unlock()
	size, bold := parseFont(font)
	advance := regularAdvance
	if bold {
		advance = boldAdvance
	}
	return float64(runewidth.StringWidth(text)) * size * advance
}

func (c *TextCanvas) FillText(text string, x, y float64) {
	c.mu.Lock()
	c.drawn = append(c.drawn, DrawnText{
		Text:      text,
		Font:      c.state.font,
		FillStyle: c.state.fillStyle,
		Align:     c.state.align,
		Baseline:  c.state.baseline,
		X:         x,
		Y:         y,
	})
	c.mu.Unlock()
}

// Clear drops everything drawn so far.
func (c *TextCanvas) Clear() {
	c.mu.Lock()
	c.drawn = nil
	c.mu.Unlock()
}

func (c *TextCanvas) Drawn() []DrawnText {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DrawnText, len(c.drawn))
	copy(out, c.drawn)
	return out
}

// parseFont pulls the pixel size and weight out of a CSS font shorthand.
func parseFont(font string) (size float64, bold bool) {
	size = 10
	for _, f := range strings.Fields(font) {
		switch {
		case f == "bold" || f == "bolder":
			bold = true
		case strings.HasSuffix(f, "px"):
			if v, err := strconv.ParseFloat(strings.TrimSuffix(f, "px"), 64); err == nil {
				size = v
			}
		}
	}
	return size, bold
}
