package chart

import (
	"errors"
	"testing"

	is2 "github.com/matryer/is"
)

func newPluginHost() (*Host, *CenterText) {
	host := NewHost()
	plugin := NewCenterText()
	host.Register(plugin)
	return host, plugin
}

func Test_CenterTextAutoFit(t *testing.T) {
	is := is2.New(t)
	host, plugin := newPluginHost()
	page := NewPage()
	el := page.Mount("g", 200, 200)

	// no title, no legend: outer radius 100, inner radius 75.
	// probe "   100%" is 7 cells, bold advance 0.6 => 4.2px per font px, limit 150 => 35.
	_, err := host.Create(el, BuildConfig(Request{ID: "g", Label: "12.5%"}))
	is.NoErr(err)

	wantFont := FontString(35, "bold", DefaultFontFamily)
	font, ok := plugin.Font("g")
	is.True(ok)
	is.Equal(font, wantFont)

	snap, _ := host.Snapshot("g")
	is.Equal(snap.InnerRadius, float64(75))
	is.Equal(len(snap.Drawn), 1)
	d := snap.Drawn[0]
	is.Equal(d.Text, "12.5%")
	is.Equal(d.Font, wantFont)
	is.Equal(d.FillStyle, "black")
	is.Equal(d.Align, "center")
	is.Equal(d.Baseline, "middle")
	is.Equal(d.X, float64(100))
	is.Equal(d.Y, float64(100))
}

func Test_CenterTextExplicitSize(t *testing.T) {
	is := is2.New(t)
	host, plugin := newPluginHost()
	cfg := BuildConfig(Request{ID: "g", Label: "hi"})
	cfg.Options.Elements.Center.FontSize = 12
	cfg.Options.Elements.Center.FontStyle = ""
	cfg.Options.Elements.Center.FontColor = ""
	_, err := host.Create(NewPage().Mount("g", 100, 100), cfg)
	is.NoErr(err)
	font, ok := plugin.Font("g")
	is.True(ok)
	is.Equal(font, FontString(12, DefaultFontStyle, DefaultFontFamily))
	snap, _ := host.Snapshot("g")
	is.Equal(snap.Drawn[0].FillStyle, DefaultFontColor)
}

func Test_CenterTextWithoutLabel(t *testing.T) {
	is := is2.New(t)
	host, plugin := newPluginHost()
	_, err := host.Create(NewPage().Mount("g", 100, 100), BuildConfig(Request{ID: "g"}))
	is.NoErr(err)
	_, ok := plugin.Font("g")
	is.True(!ok)
	snap, _ := host.Snapshot("g")
	is.Equal(len(snap.Drawn), 0)
}

func Test_CenterTextTitleShiftsCenter(t *testing.T) {
	is := is2.New(t)
	host, _ := newPluginHost()
	_, err := host.Create(NewPage().Mount("g", 300, 300), BuildConfig(Request{ID: "g", Title: "t", Label: "x"}))
	is.NoErr(err)
	snap, _ := host.Snapshot("g")
	top := float64(TitleFontSize + 2*titlePadding)
	is.Equal(snap.Area.Top, top)
	is.Equal(snap.Drawn[0].Y, (top+300)/2)
}

func Test_CenterTextForgottenOnDestroy(t *testing.T) {
	is := is2.New(t)
	host, plugin := newPluginHost()
	c, err := host.Create(NewPage().Mount("g", 100, 100), BuildConfig(Request{ID: "g", Label: "x"}))
	is.NoErr(err)
	_, ok := plugin.Font("g")
	is.True(ok)
	c.Destroy()
	_, ok = plugin.Font("g")
	is.True(!ok)
	_, ok = host.Get("g")
	is.True(!ok)
	c.Destroy() // idempotent
}

func Test_HostInUse(t *testing.T) {
	is := is2.New(t)
	host := NewHost()
	el := NewPage().Mount("g", 100, 100)
	_, err := host.Create(el, BuildConfig(Request{ID: "g"}))
	is.NoErr(err)
	_, err = host.Create(el, BuildConfig(Request{ID: "g"}))
	is.True(errors.Is(err, ErrInUse))
}

func Test_HostRegisterReplaces(t *testing.T) {
	is := is2.New(t)
	host := NewHost()
	host.Register(NewCenterText())
	second := NewCenterText()
	host.Register(second)
	plugins := host.pluginList()
	is.Equal(len(plugins), 1)
	is.True(plugins[0] == Plugin(second))
}

func Test_InnerRadius(t *testing.T) {
	is := is2.New(t)
	is.Equal(innerRadius(100, "75%"), float64(75))
	is.Equal(innerRadius(100, "50"), float64(50))
	is.Equal(innerRadius(100, "500"), float64(100))
	is.Equal(innerRadius(100, "wide"), float64(0))
}

func Test_TextCanvas(t *testing.T) {
	is := is2.New(t)
	cells := func(n int, size, advance float64) float64 {
		return float64(n) * size * advance
	}
	c := NewTextCanvas()
	c.SetFont("20px Arial")
	is.Equal(c.MeasureText("abcd"), cells(4, 20, regularAdvance))
	c.Save()
	c.SetFont("bold 20px Arial")
	is.Equal(c.MeasureText("abcd"), cells(4, 20, boldAdvance))
	is.Equal(c.MeasureText("温度"), cells(4, 20, boldAdvance)) // wide runes take two cells
	c.Restore()
	is.Equal(c.Font(), "20px Arial")
	c.Restore() // empty stack is ignored
	c.FillText("x", 1, 2)
	is.Equal(len(c.Drawn()), 1)
	c.Clear()
	is.Equal(len(c.Drawn()), 0)
}
