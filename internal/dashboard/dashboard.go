// Package dashboard renders a playback Frame as an HTML page of go-echarts
// charts: a band-power radar with the severity overlay, ratio gauges, the
// aperiodic slope trend and the hemispheric symmetry bar.
package dashboard

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/config"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/playback"
)

// DefaultAssetsHost serves the echarts javascript.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Options selects which panels are drawn and where assets come from.
type Options struct {
	Panels     []config.Panel
	AssetsHost string
	Theme      string
}

// DefaultOptions enables every panel.
func DefaultOptions() Options {
	return Options{
		Panels:     slices.Clone(config.AllPanels),
		AssetsHost: DefaultAssetsHost,
		Theme:      "dark",
	}
}

func (o Options) init(title, width, height string) opts.Initialization {
	host := o.AssetsHost
	if host == "" {
		host = DefaultAssetsHost
	}
	return opts.Initialization{
		PageTitle:  title,
		Theme:      o.Theme,
		Width:      width,
		Height:     height,
		AssetsHost: host,
	}
}

// Page composes the enabled panels for f, in configuration order.
func Page(f playback.Frame, o Options) *components.Page {
	page := components.NewPage()
	page.SetPageTitle(pageTitle(f))
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}

	for _, p := range o.Panels {
		switch p {
		case config.PanelRadar:
			page.AddCharts(Radar(f, o))
		case config.PanelGauges:
			page.AddCharts(Gauge("ADR", f.ADR, o), Gauge("TAR", f.TAR, o))
		case config.PanelTrend:
			page.AddCharts(Trend(f, o))
		case config.PanelSymmetry:
			page.AddCharts(SymmetryBar(f, o))
		}
	}
	return page
}

// Render writes the dashboard page for f to w.
func Render(w io.Writer, f playback.Frame, o Options) error {
	if err := Page(f, o).Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func pageTitle(f playback.Frame) string {
	if !f.Ready {
		return "EEG Report (no data)"
	}
	return fmt.Sprintf("EEG Report: %s", f.Subject)
}

func subtitle(f playback.Frame) string {
	if !f.Ready {
		return "no data loaded"
	}
	return fmt.Sprintf("subject %s (%d/%d), trial %d (%d/%d), %s",
		f.Subject, f.SubjectPosition+1, f.SubjectCount,
		f.TrialIndex, f.TrialPosition+1, f.TrialCount, f.State)
}

// Radar plots the four band powers on axes scaled to the dataset maximum,
// with a ring at severity x max coloured by the visual intensity.
func Radar(f playback.Frame, o Options) *charts.Radar {
	bandMax := float32(f.BandMax)
	if bandMax <= 0 {
		bandMax = 1
	}
	indicators := make([]*opts.Indicator, len(eeg.BandNames))
	for i, name := range eeg.BandNames {
		indicators[i] = &opts.Indicator{Name: name, Min: 0, Max: bandMax}
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Band power", "600px", "500px")),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Severity %.2f", f.Analysis.Severity),
			Subtitle: subtitle(f),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			Shape:       "circle",
			SplitNumber: 4,
		}),
	)

	bandsRow := f.Reading.Bands()
	values := make([]float64, len(bandsRow))
	for i, v := range bandsRow {
		values[i] = round(v)
	}
	radar.AddSeries("band power", []opts.RadarData{{Name: "band power", Value: values}},
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.3)}),
	)

	ring := round(f.Analysis.Severity * float64(bandMax))
	color := IntensityColor(f.Analysis.Intensity)
	radar.AddSeries("severity", []opts.RadarData{{Name: "severity", Value: []float64{ring, ring, ring, ring}}},
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Type: "dashed", Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: color, Opacity: opts.Float(float32(0.1 + 0.4*f.Analysis.Intensity))}),
	)
	return radar
}

// Gauge draws one ratio gauge. The needle is the post-inversion level, so
// the bad end is always on the right.
func Gauge(name string, g bands.GaugeReading, o Options) *charts.Gauge {
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(name, "300px", "300px")),
		charts.WithTitleOpts(opts.Title{
			Title:    name,
			Subtitle: fmt.Sprintf("%.2f (range %.2f to %.2f)", g.Value, g.Range.Min, g.Range.Max),
		}),
	)
	gauge.AddSeries(name, []opts.GaugeData{{Name: string(g.Bucket), Value: round(g.Level * 100)}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: BucketColor(g.Bucket)}),
	)
	return gauge
}

// Trend plots the aperiodic slope of every trial up to the current one.
func Trend(f playback.Frame, o Options) *charts.Line {
	line := charts.NewLine()
	sub := "no aperiodic slope in dataset"
	if alert := f.Analysis.TrendAlert; alert != nil {
		sub = fmt.Sprintf("trend alert: %s", *alert)
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Aperiodic slope", "600px", "300px")),
		charts.WithTitleOpts(opts.Title{Title: "Aperiodic slope", Subtitle: sub}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "trial"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "slope", Scale: opts.Bool(true)}),
	)

	x := make([]string, len(f.Slopes))
	data := make([]opts.LineData, len(f.Slopes))
	for i, s := range f.Slopes {
		x[i] = strconv.Itoa(i + 1)
		data[i] = opts.LineData{Value: round(s)}
	}
	line.SetXAxis(x).AddSeries("slope", data)
	return line
}

// SymmetryBar shows the signed BSI coloured by its class.
func SymmetryBar(f playback.Frame, o Options) *charts.Bar {
	bar := charts.NewBar()
	sub := "no BSI in dataset"
	var data []opts.BarData
	if s := f.Analysis.Symmetry; s != nil {
		sub = fmt.Sprintf("%s, %s hemisphere", s.Class, s.Hemisphere)
		data = []opts.BarData{{
			Name:      "BSI",
			Value:     round(s.BSI),
			ItemStyle: &opts.ItemStyle{Color: SymmetryColor(s.Class)},
		}}
	}
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Symmetry", "300px", "300px")),
		charts.WithTitleOpts(opts.Title{Title: "Hemispheric symmetry", Subtitle: sub}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: 1}),
	)
	bar.SetXAxis([]string{"BSI"}).AddSeries("bsi", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

// IntensityColor maps a 0..1 intensity onto a green to red ramp.
func IntensityColor(intensity float64) string {
	t := bands.Clamp(intensity, 0, 1)
	r := int(math.Round(0x2e + t*float64(0xe5-0x2e)))
	g := int(math.Round(0xcc + t*float64(0x39-0xcc)))
	b := int(math.Round(0x71 + t*float64(0x35-0x71)))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// BucketColor is the gauge colour for b.
func BucketColor(b bands.Bucket) string {
	switch b {
	case bands.BucketGood:
		return "#2ecc71"
	case bands.BucketCaution:
		return "#f1c40f"
	default:
		return "#e53935"
	}
}

// SymmetryColor is the bar colour for c.
func SymmetryColor(c bands.SymmetryClass) string {
	switch c {
	case bands.Symmetric:
		return "#2ecc71"
	case bands.MildAsymmetry:
		return "#f1c40f"
	default:
		return "#e53935"
	}
}

func round(v float64) float64 {
	return math.Round(bands.Finite(v)*1000) / 1000
}
