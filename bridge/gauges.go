package bridge

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/celerway/gaugeboard/adapter/chart"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"
)

// ErrNoValue is returned when a payload does not yield a number.
var ErrNoValue = errors.New("no numeric value in payload")

const (
	defaultGaugeMax  = 100
	defaultGaugeSize = 200
)

// GaugeSpec describes one gauge in the layout file.
type GaugeSpec struct {
	ID         string  `yaml:"id"`
	Topic      string  `yaml:"topic"`
	Title      string  `yaml:"title"`
	Unit       string  `yaml:"unit"`
	Max        float64 `yaml:"max"`
	Path       string  `yaml:"path"`      // JSONPath into the payload
	Transform  string  `yaml:"transform"` // expression over value
	Color      string  `yaml:"color"`
	Background string  `yaml:"background"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
}

type Layout struct {
	Gauges []GaugeSpec `yaml:"gauges"`
}

func LoadLayout(path string) (Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("reading gauge layout: %w", err)
	}
	return ParseLayout(b)
}

// ParseLayout decodes a YAML layout and fills in defaults.
func ParseLayout(b []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(b, &l); err != nil {
		return Layout{}, fmt.Errorf("parsing gauge layout: %w", err)
	}
	if err := l.normalize(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// normalize validates the gauges and fills in defaults in place.
func (l *Layout) normalize() error {
	seen := make(map[string]bool)
	for i := range l.Gauges {
		g := &l.Gauges[i]
		if g.ID == "" {
			return fmt.Errorf("gauge %d: missing id", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("gauge %s: duplicate id", g.ID)
		}
		seen[g.ID] = true
		if g.Topic == "" {
			return fmt.Errorf("gauge %s: missing topic", g.ID)
		}
		if g.Max <= 0 {
			g.Max = defaultGaugeMax
		}
		if g.Width <= 0 {
			g.Width = defaultGaugeSize
		}
		if g.Height <= 0 {
			g.Height = defaultGaugeSize
		}
		if g.Color == "" {
			g.Color = chart.DarkBlue.String()
		}
		if g.Background == "" {
			g.Background = chart.LightBlue.String()
		}
	}
	return nil
}

// Filters returns the distinct topic filters of the layout.
func (l Layout) Filters() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range l.Gauges {
		if !seen[g.Topic] {
			seen[g.Topic] = true
			out = append(out, g.Topic)
		}
	}
	return out
}

type gauge struct {
	spec      GaugeSpec
	path      jp.Expr
	transform *vm.Program
	fg, bg    chart.Color
}

func compileGauge(spec GaugeSpec) (*gauge, error) {
	g := &gauge{spec: spec}
	var err error
	if spec.Path != "" {
		if g.path, err = jp.ParseString(spec.Path); err != nil {
			return nil, fmt.Errorf("gauge %s: path: %w", spec.ID, err)
		}
	}
	if spec.Transform != "" {
		g.transform, err = expr.Compile(spec.Transform, expr.Env(map[string]interface{}{"value": 0.0}), expr.AsFloat64())
		if err != nil {
			return nil, fmt.Errorf("gauge %s: transform: %w", spec.ID, err)
		}
	}
	if g.fg, err = chart.ParseColor(spec.Color); err != nil {
		return nil, fmt.Errorf("gauge %s: %w", spec.ID, err)
	}
	if g.bg, err = chart.ParseColor(spec.Background); err != nil {
		return nil, fmt.Errorf("gauge %s: %w", spec.ID, err)
	}
	return g, nil
}

func (g *gauge) matches(topic string) bool {
	return topicMatches(g.spec.Topic, topic)
}

// value extracts the reading from a payload.
func (g *gauge) value(payload []byte) (float64, error) {
	v, err := g.extract(payload)
	if err != nil {
		return 0, err
	}
	if err := finite(v); err != nil {
		return 0, err
	}
	if g.transform == nil {
		return v, nil
	}
	out, err := expr.Run(g.transform, map[string]interface{}{"value": v})
	if err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}
	f, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("transform returned %T: %w", out, ErrNoValue)
	}
	if err := finite(f); err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}
	return f, nil
}

// finite rejects NaN and infinities, which cannot be charted or encoded as JSON.
func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite %v", ErrNoValue, v)
	}
	return nil
}

func (g *gauge) extract(payload []byte) (float64, error) {
	if g.path == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64); err == nil {
			return f, nil
		}
	}
	data, err := oj.Parse(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoValue, err)
	}
	if g.path != nil {
		results := g.path.Get(data)
		if len(results) == 0 {
			return 0, fmt.Errorf("%w: %s matched nothing", ErrNoValue, g.spec.Path)
		}
		data = results[0]
	}
	return toFloat(data)
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoValue, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrNoValue, v)
}

func (g *gauge) request(v float64) chart.Request {
	req := chart.ProgressRequest(g.spec.ID, v, g.spec.Max, g.spec.Unit, g.fg, g.bg)
	req.Title = g.spec.Title
	return req
}

// topicMatches reports whether topic matches an MQTT subscription filter.
func topicMatches(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	// wildcards at the first level do not match $SYS style topics.
	if strings.HasPrefix(topic, "$") && (f[0] == "+" || f[0] == "#") {
		return false
	}
	for i, level := range f {
		if level == "#" {
			return i == len(f)-1
		}
		if i >= len(t) {
			return false
		}
		if level != "+" && level != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
