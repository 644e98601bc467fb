package chart

import (
	"fmt"
	"strings"
)

type Color int

const (
	LightGreen Color = iota
	DarkGreen
	LightBlue
	DarkBlue
	LightRed
	DarkRed
	LightYellow
	DarkYellow
)

var colorNames = [...]string{"LightGreen", "DarkGreen", "LightBlue", "DarkBlue", "LightRed", "DarkRed", "LightYellow", "DarkYellow"}
var colorCodes = [...]string{"#BDE2B9", "#38812F", "#8BC1F7", "#004B95", "#C9190B", "#470000", "#F9E0A2", "#F0AB00"}

func (c Color) String() string {
	if c < LightGreen || c > DarkYellow {
		return "unknown"
	}
	return colorNames[c]
}

// Code returns the CSS colour.
func (c Color) Code() string {
	if c < LightGreen || c > DarkYellow {
		return DefaultFontColor
	}
	return colorCodes[c]
}

// ParseColor accepts a palette name (case insensitive).
func ParseColor(name string) (Color, error) {
	for i, n := range colorNames {
		if strings.EqualFold(n, name) {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color: %s", name)
}

// ProgressRequest builds the two slice gauge used for single readings: value in fg,
// the remainder up to max in bg, and the value with unit as center label.
func ProgressRequest(id string, value, max float64, unit string, fg, bg Color) Request {
	rest := max - value
	if rest < 0 {
		rest = 0
	}
	return Request{
		ID:    id,
		Label: fmt.Sprintf("%.1f%s", value, unit),
		Values: []Slice{
			{Value: value, Color: fg.Code()},
			{Value: rest, Color: bg.Code()},
		},
	}
}
