// Package tui is a terminal dashboard for playback. The Bubble Tea event
// loop owns the Player: tea.Tick is its periodic trigger and key presses
// are applied between ticks.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/playback"
)

const barWidth = 30

type tickMsg time.Time

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	player   *playback.Player
	source   string
	interval time.Duration

	frame    playback.Frame
	progress progress.Model
	help     help.Model
	keys     keyMap
	styles   Styles
	width    int
	err      error
	quitting bool
}

// New creates a dashboard over player, refreshing every interval.
func New(player *playback.Player, source string, interval time.Duration) Model {
	if interval <= 0 {
		interval = playback.DefaultFrameInterval
	}
	return Model{
		player:   player,
		source:   source,
		interval: interval,
		frame:    player.Frame(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth+10)),
		help:     help.New(),
		keys:     defaultKeyMap(),
		styles:   DefaultStyles(),
		width:    80,
	}
}

// Frame returns the frame currently on screen.
func (m Model) Frame() playback.Frame { return m.frame }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks, key presses and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.frame, _ = m.player.Tick(time.Time(msg))
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.apply(playback.CmdToggle)
		case key.Matches(msg, m.keys.Reset):
			m.apply(playback.CmdReset)
		case key.Matches(msg, m.keys.Prev):
			m.apply(playback.CmdPrev)
		case key.Matches(msg, m.keys.Next):
			m.apply(playback.CmdNext)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width-20, 10), 60)
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(cmd playback.Command) {
	f, err := m.player.Apply(cmd)
	m.frame = f
	if errors.Is(err, playback.ErrNotReady) {
		err = nil
	}
	m.err = err
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	title := "EEG playback"
	if m.source != "" {
		title += " · " + m.source
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	f := m.frame
	if !f.Ready {
		b.WriteString(m.styles.Muted.Render("No data loaded."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	fmt.Fprintf(&b, "%s %s (%d/%d)  %s %d (%d/%d)  %s\n",
		m.styles.Label.Render("subject"), m.styles.Value.Render(f.Subject),
		f.SubjectPosition+1, f.SubjectCount,
		"trial", f.TrialIndex, f.TrialPosition+1, f.TrialCount,
		m.stateView(f.State))
	b.WriteString(m.styles.Label.Render("progress") + " " + m.progress.ViewAs(f.Progress()))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Box.Render(m.bandsView(f)))
	b.WriteString("\n")
	b.WriteString(m.styles.Box.Render(m.analysisView(f)))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(colorBad).Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) stateView(s playback.State) string {
	switch s {
	case playback.Playing:
		return m.styles.Playing.Render("▶ " + s.String())
	case playback.Paused:
		return m.styles.Paused.Render("⏸ " + s.String())
	default:
		return m.styles.Muted.Render("■ " + s.String())
	}
}

func (m Model) bandsView(f playback.Frame) string {
	bandMax := f.BandMax
	if bandMax <= 0 {
		bandMax = 1
	}
	var b strings.Builder
	for i, v := range f.Reading.Bands() {
		fmt.Fprintf(&b, "%s %s %7.2f\n", m.styles.Label.Render(eeg.BandNames[i]),
			renderBar(v/bandMax, barWidth, colorAccent), v)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) analysisView(f playback.Frame) string {
	a := f.Analysis
	var b strings.Builder

	sev := lipgloss.NewStyle().Foreground(intensityColor(a.Intensity)).Bold(true)
	fmt.Fprintf(&b, "%s %s %s\n", m.styles.Label.Render("severity"),
		renderBar(a.Severity, barWidth, intensityColor(a.Intensity)), sev.Render(fmt.Sprintf("%.2f", a.Severity)))
	b.WriteString(m.gaugeLine("ADR", f.ADR))
	b.WriteString(m.gaugeLine("TAR", f.TAR))

	if a.TrendAlert != nil {
		alert := lipgloss.NewStyle().Foreground(alertColor(*a.TrendAlert)).Bold(true).Render(string(*a.TrendAlert))
		fmt.Fprintf(&b, "%s %s", m.styles.Label.Render("trend"), alert)
		if a.TrendDelta != nil {
			fmt.Fprintf(&b, " (Δ %+.3f)", *a.TrendDelta)
		}
		b.WriteString("\n")
	}
	if s := a.Symmetry; s != nil {
		class := lipgloss.NewStyle().Foreground(symmetryColor(s.Class)).Bold(true).Render(string(s.Class))
		fmt.Fprintf(&b, "%s %s BSI %+.3f, %s\n", m.styles.Label.Render("symmetry"), class, s.BSI, s.Hemisphere)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) gaugeLine(name string, g bands.GaugeReading) string {
	bucket := lipgloss.NewStyle().Foreground(bucketColor(g.Bucket)).Render(string(g.Bucket))
	return fmt.Sprintf("%s %s %6.2f %s\n", m.styles.Label.Render(name),
		renderBar(g.Level, barWidth, bucketColor(g.Bucket)), g.Value, bucket)
}

// renderBar draws ratio in [0,1] as a horizontal bar of width cells.
func renderBar(ratio float64, width int, color lipgloss.Color) string {
	ratio = bands.Clamp(bands.Finite(ratio), 0, 1)
	filled := int(ratio*float64(width) + 0.5)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(colorMuted).Render(strings.Repeat("░", width-filled))
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, player *playback.Player, source string, interval time.Duration) error {
	p := tea.NewProgram(New(player, source, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
