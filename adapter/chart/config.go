package chart

const (
	ChartType       = "doughnut"
	DefaultCutout   = "75%"
	TitleFontSize   = 42
	CenterProbeText = "   100%"
	CenterFontColor = "black"
	MinFontSize     = 1
	MaxFontSize     = 256

	DefaultFontFamily = "'Helvetica Neue', 'Helvetica', 'Arial', sans-serif"
	DefaultFontStyle  = "normal"
	DefaultFontColor  = "#666"
)

// BuildConfig flattens the request values, in order, into a single dataset and
// assembles the doughnut configuration around it.
func BuildConfig(req Request) Config {
	data := make([]float64, 0, len(req.Values))
	colors := make([]string, 0, len(req.Values))
	var labels []string
	for _, s := range req.Values {
		data = append(data, s.Value)
		colors = append(colors, s.Color)
		if s.Label != "" {
			labels = append(labels, s.Label)
		}
	}

	cfg := Config{
		Type: ChartType,
		Data: Data{
			Datasets: []Dataset{{
				Data:            data,
				BackgroundColor: colors,
				HoverOffset:     0,
			}},
		},
		Options: Options{
			Cutout:     DefaultCutout,
			Responsive: true,
			Plugins: Plugins{
				Legend: Legend{Position: "bottom"},
			},
			Elements: Elements{
				Arc: Arc{RoundedCornersFor: 0},
			},
			Animation: Animation{Duration: 0},
		},
	}
	if len(labels) > 0 {
		cfg.Data.Labels = labels
	}
	if req.Title != "" {
		cfg.Options.Plugins.Title = &Title{
			Display: true,
			Text:    req.Title,
			Align:   "center",
			Font:    Font{Size: TitleFontSize},
		}
	}
	if req.Label != "" {
		cfg.Options.Elements.Center = &Center{
			MaxText:     CenterProbeText,
			Text:        req.Label,
			FontColor:   CenterFontColor,
			FontFamily:  DefaultFontFamily,
			FontStyle:   "bold",
			MinFontSize: MinFontSize,
			MaxFontSize: MaxFontSize,
		}
	}
	return cfg
}
