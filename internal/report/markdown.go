package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders summaries as a Markdown document headed by name.
func Markdown(name string, summaries []SubjectSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# EEG session report: %s\n\n", name)

	if len(summaries) == 0 {
		b.WriteString("_No subjects in dataset._\n")
		return b.String()
	}

	trials := 0
	worst := summaries[0]
	for _, s := range summaries {
		trials += s.Trials
		if s.MaxSeverity > worst.MaxSeverity {
			worst = s
		}
	}
	fmt.Fprintf(&b, "%d subjects, %d trials. Highest severity %.2f in subject **%s** (trial %d).\n\n",
		len(summaries), trials, worst.MaxSeverity, worst.Subject, worst.PeakTrial)

	b.WriteString("| Subject | Trials | Mean severity | Max severity | Peak trial | Mean ADR | Mean TAR | Trend (final/peak) | Asymmetric |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---|---:|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %d | %.2f | %.2f | %s | %d |\n",
			s.Subject, s.Trials, s.MeanSeverity, s.MaxSeverity, s.PeakTrial,
			s.MeanADR, s.MeanTAR, trendCell(s), s.AsymmetricTrials)
	}

	b.WriteString("\nSeverity is a heuristic score derived from band powers and is not a validated diagnostic metric.\n")
	return b.String()
}

func trendCell(s SubjectSummary) string {
	if s.FinalAlert == "" {
		return "n/a"
	}
	return fmt.Sprintf("%s / %s", s.FinalAlert, s.PeakAlert)
}

// RenderTerminal renders Markdown for a terminal of the given width.
func RenderTerminal(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
