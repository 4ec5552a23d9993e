package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/eeg.report/internal/bands"
)

var (
	colorGood    = lipgloss.Color("#2ecc71")
	colorCaution = lipgloss.Color("#f1c40f")
	colorBad     = lipgloss.Color("#e53935")
	colorMuted   = lipgloss.Color("#6c7a89")
	colorAccent  = lipgloss.Color("#88C0D0")
)

// Styles groups the lipgloss styles used by the dashboard.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Box     lipgloss.Style
	Playing lipgloss.Style
	Paused  lipgloss.Style
}

// DefaultStyles returns the dashboard styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Label:   lipgloss.NewStyle().Width(10).Foreground(colorMuted),
		Value:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Faint(true),
		Box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
		Playing: lipgloss.NewStyle().Foreground(colorGood).Bold(true),
		Paused:  lipgloss.NewStyle().Foreground(colorCaution).Bold(true),
	}
}

func bucketColor(b bands.Bucket) lipgloss.Color {
	switch b {
	case bands.BucketGood:
		return colorGood
	case bands.BucketCaution:
		return colorCaution
	default:
		return colorBad
	}
}

func alertColor(a bands.AlertLevel) lipgloss.Color {
	switch a {
	case bands.AlertNormal:
		return colorGood
	case bands.AlertMedium:
		return colorCaution
	default:
		return colorBad
	}
}

func symmetryColor(c bands.SymmetryClass) lipgloss.Color {
	switch c {
	case bands.Symmetric:
		return colorGood
	case bands.MildAsymmetry:
		return colorCaution
	default:
		return colorBad
	}
}

// intensityColor picks the severity colour from the visual intensity.
func intensityColor(intensity float64) lipgloss.Color {
	switch {
	case intensity < 1.0/3:
		return colorGood
	case intensity < 2.0/3:
		return colorCaution
	default:
		return colorBad
	}
}
