package chart

import (
	"encoding/json"
	"testing"

	is2 "github.com/matryer/is"
)

func Test_BuildConfigOrder(t *testing.T) {
	is := is2.New(t)
	req := Request{
		ID: "g",
		Values: []Slice{
			{Value: 30, Color: "red", Label: "A"},
			{Value: 70, Color: "blue", Label: "B"},
		},
	}
	cfg := BuildConfig(req)
	is.Equal(cfg.Type, "doughnut")
	is.Equal(len(cfg.Data.Datasets), 1)
	is.Equal(cfg.Data.Datasets[0].Data, []float64{30, 70})
	is.Equal(cfg.Data.Datasets[0].BackgroundColor, []string{"red", "blue"})
	is.Equal(cfg.Data.Labels, []string{"A", "B"})
}

func Test_BuildConfigNoLabels(t *testing.T) {
	is := is2.New(t)
	cfg := BuildConfig(Request{
		ID:     "g",
		Values: []Slice{{Value: 1, Color: "red"}, {Value: 2, Color: "blue"}},
	})
	is.True(cfg.Data.Labels == nil)
	b, err := json.Marshal(cfg)
	is.NoErr(err)
	var raw map[string]json.RawMessage
	is.NoErr(json.Unmarshal(b, &raw))
	var data map[string]json.RawMessage
	is.NoErr(json.Unmarshal(raw["data"], &data))
	_, hasData := data["datasets"]
	is.True(hasData)
	_, hasLabels := data["labels"]
	is.True(!hasLabels) // labels key omitted entirely
}

func Test_BuildConfigPartialLabels(t *testing.T) {
	is := is2.New(t)
	cfg := BuildConfig(Request{
		Values: []Slice{{Value: 1, Color: "a"}, {Value: 2, Color: "b", Label: "only"}},
	})
	is.Equal(cfg.Data.Labels, []string{"only"})
	is.Equal(cfg.Data.Datasets[0].Data, []float64{1, 2})
}

func Test_BuildConfigDefaults(t *testing.T) {
	is := is2.New(t)
	cfg := BuildConfig(Request{ID: "g"})
	is.Equal(cfg.Options.Cutout, "75%")
	is.True(cfg.Options.Responsive)
	is.Equal(cfg.Options.Plugins.Legend.Position, "bottom")
	is.Equal(cfg.Options.Animation.Duration, 0)
	is.Equal(cfg.Options.Elements.Arc.RoundedCornersFor, 0)
	is.Equal(cfg.Data.Datasets[0].HoverOffset, 0)
	is.True(cfg.Options.Plugins.Title == nil)
	is.True(cfg.Options.Elements.Center == nil)
}

func Test_BuildConfigTitleAndCenter(t *testing.T) {
	is := is2.New(t)
	cfg := BuildConfig(Request{ID: "g", Title: "3 Devices", Label: "42.0%"})
	title := cfg.Options.Plugins.Title
	is.True(title != nil)
	is.True(title.Display)
	is.Equal(title.Text, "3 Devices")
	is.Equal(title.Align, "center")
	is.Equal(title.Font.Size, 42)

	center := cfg.Options.Elements.Center
	is.True(center != nil)
	is.Equal(center.Text, "42.0%")
	is.Equal(center.MaxText, "   100%")
	is.Equal(center.FontStyle, "bold")
	is.Equal(center.FontFamily, DefaultFontFamily)
	is.Equal(center.FontSize, 0)
	is.Equal(center.MinFontSize, 1)
	is.Equal(center.MaxFontSize, 256)
}

func Test_EmptyLabelsAreAbsent(t *testing.T) {
	is := is2.New(t)
	var req Request
	err := json.Unmarshal([]byte(`{"id":"g","label":"","title":"","values":[[1,"red",""],[2,"blue","B"]]}`), &req)
	is.NoErr(err)
	cfg := BuildConfig(req)
	is.Equal(cfg.Data.Labels, []string{"B"})
	is.True(cfg.Options.Plugins.Title == nil)
	is.True(cfg.Options.Elements.Center == nil)

	b, err := json.Marshal(req.Values[0])
	is.NoErr(err)
	is.Equal(string(b), `[1,"red",null]`)
}

func Test_SliceJSON(t *testing.T) {
	is := is2.New(t)
	var req Request
	err := json.Unmarshal([]byte(`{"id":"apps","title":"2 Apps","values":[[30,"red","A"],[70,"blue",null],[5,"green"]]}`), &req)
	is.NoErr(err)
	is.Equal(req.ID, "apps")
	is.Equal(req.Title, "2 Apps")
	is.Equal(req.Values, []Slice{
		{Value: 30, Color: "red", Label: "A"},
		{Value: 70, Color: "blue"},
		{Value: 5, Color: "green"},
	})

	b, err := json.Marshal(Slice{Value: 1.5, Color: "#fff"})
	is.NoErr(err)
	is.Equal(string(b), `[1.5,"#fff",null]`)

	var bad Slice
	is.True(json.Unmarshal([]byte(`[1]`), &bad) != nil)
	is.True(json.Unmarshal([]byte(`["x","red"]`), &bad) != nil)
}

func Test_ProgressRequest(t *testing.T) {
	is := is2.New(t)
	req := ProgressRequest("cpu", 42, 100, "%", DarkBlue, LightBlue)
	is.Equal(req.ID, "cpu")
	is.Equal(req.Label, "42.0%")
	is.Equal(req.Values, []Slice{
		{Value: 42, Color: "#004B95"},
		{Value: 58, Color: "#8BC1F7"},
	})
	over := ProgressRequest("cpu", 120, 100, "", DarkBlue, LightBlue)
	is.Equal(over.Values[1].Value, float64(0))
}

func Test_ParseColor(t *testing.T) {
	is := is2.New(t)
	c, err := ParseColor("darkyellow")
	is.NoErr(err)
	is.Equal(c, DarkYellow)
	is.Equal(c.Code(), "#F0AB00")
	is.Equal(c.String(), "DarkYellow")
	_, err = ParseColor("mauve")
	is.True(err != nil)
}
