package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/fsutil"
)

var (
	severityColor = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	adrColor      = color.RGBA{R: 38, G: 139, B: 210, A: 255}
	tarColor      = color.RGBA{R: 133, G: 153, B: 0, A: 255}
)

// PlotSubject writes a PNG of severity and the ADR and TAR ratios across the
// trials of the subject at position pos.
func PlotSubject(ds *eeg.Dataset, pos, window int, w io.Writer) error {
	series, ok := ds.Series(pos)
	if !ok {
		return fmt.Errorf("no subject at position %d", pos)
	}
	points := Evaluate(ds, pos, window)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Subject %s - severity and ratios", series.Subject)
	p.X.Label.Text = "Trial"
	p.Y.Label.Text = "Value"
	p.Y.Min = 0

	sev := make(plotter.XYs, 0, len(points))
	adr := make(plotter.XYs, 0, len(points))
	tar := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		x := float64(pt.TrialIndex)
		sev = append(sev, plotter.XY{X: x, Y: pt.Analysis.Severity})
		adr = append(adr, plotter.XY{X: x, Y: pt.Analysis.Ratios.ADR})
		tar = append(tar, plotter.XY{X: x, Y: pt.Analysis.Ratios.TAR})
	}

	for _, l := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
		width vg.Length
	}{
		{"Severity", sev, severityColor, vg.Points(2)},
		{"Alpha/Delta", adr, adrColor, vg.Points(1)},
		{"Theta/Alpha", tar, tarColor, vg.Points(1)},
	} {
		if len(l.pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(l.pts)
		if err != nil {
			return err
		}
		line.Color = l.color
		line.Width = l.width
		p.Add(line)
		p.Legend.Add(l.label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// PlotAll writes one PNG per subject into dir and returns the file paths.
func PlotAll(fsys fsutil.FileSystem, ds *eeg.Dataset, window int, dir string) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	var paths []string
	for pos := 0; pos < ds.SubjectCount(); pos++ {
		series, _ := ds.Series(pos)
		path := filepath.Join(dir, fmt.Sprintf("subject_%s.png", safeName(series.Subject)))
		f, err := fsys.Create(path)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", path, err)
		}
		err = PlotSubject(ds, pos, window, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("subject %s: %w", series.Subject, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func safeName(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "unnamed"
	}
	return string(out)
}
