package chart

import (
	"encoding/json"
	"fmt"
)

// Request describes one gauge render. Empty Label and Title mean "not set".
type Request struct {
	ID     string  `json:"id"`
	Label  string  `json:"label,omitempty"` // empty means no center label
	Title  string  `json:"title,omitempty"` // empty means no title
	Values []Slice `json:"values"`
	Class  string  `json:"class,omitempty"`
}

// Slice is one doughnut segment. On the wire it is the triple [value, color, label|null].
type Slice struct {
	Value float64
	Color string
	Label string // empty means no label, "" and null decode the same
}

func (s Slice) MarshalJSON() ([]byte, error) {
	var label interface{}
	if s.Label != "" {
		label = s.Label
	}
	return json.Marshal([]interface{}{s.Value, s.Color, label})
}

func (s *Slice) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("slice: want 2 or 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &s.Value); err != nil {
		return fmt.Errorf("slice value: %w", err)
	}
	if err := json.Unmarshal(parts[1], &s.Color); err != nil {
		return fmt.Errorf("slice color: %w", err)
	}
	s.Label = ""
	if len(parts) == 3 {
		var label *string
		if err := json.Unmarshal(parts[2], &label); err != nil {
			return fmt.Errorf("slice label: %w", err)
		}
		if label != nil {
			s.Label = *label
		}
	}
	return nil
}

// Config mirrors the Chart.js configuration object for a doughnut chart.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	HoverOffset     int       `json:"hoverOffset"`
}

type Options struct {
	Cutout     string    `json:"cutout"`
	Responsive bool      `json:"responsive"`
	Plugins    Plugins   `json:"plugins"`
	Elements   Elements  `json:"elements"`
	Animation  Animation `json:"animation"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
	Title  *Title `json:"title,omitempty"`
}

type Legend struct {
	Position string `json:"position"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
	Align   string `json:"align"`
	Font    Font   `json:"font"`
}

type Font struct {
	Size int `json:"size"`
}

type Elements struct {
	Arc    Arc     `json:"arc"`
	Center *Center `json:"center,omitempty"`
}

type Arc struct {
	RoundedCornersFor int `json:"roundedCornersFor"`
}

type Animation struct {
	Duration int `json:"duration"`
}

// Center configures the text drawn in the doughnut hole. FontSize 0 means auto-fit
// MaxText between MinFontSize and MaxFontSize.
type Center struct {
	MaxText     string `json:"maxText,omitempty"`
	Text        string `json:"text"`
	FontColor   string `json:"fontColor,omitempty"`
	FontFamily  string `json:"fontFamily,omitempty"`
	FontStyle   string `json:"fontStyle,omitempty"`
	FontSize    int    `json:"fontSize,omitempty"`
	MinFontSize int    `json:"minFontSize,omitempty"`
	MaxFontSize int    `json:"maxFontSize,omitempty"`
}
