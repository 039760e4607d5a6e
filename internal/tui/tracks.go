// SPDX-License-Identifier: MIT
// Package tui renders a terminal monitor for the shared track registry:
// one mini spectrum per active track, refreshed at the render interval.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"spectral/internal/config"
	"spectral/internal/receiver"
	"spectral/internal/registry"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// levelRamp maps a normalized band height to a block character.
var levelRamp = []rune(" ▁▂▃▄▅▆▇█")

type renderTickMsg time.Time
type counterTickMsg time.Time

// TrackMonitorModel is the Bubble Tea model for the receiver display.
// It polls the registry on two cadences: band levels every render tick,
// the active track counter on a slower tick.
type TrackMonitorModel struct {
	provider     registry.Provider
	rangeDB      float64
	staleTimeout time.Duration
	renderEvery  time.Duration
	counterEvery time.Duration

	viewport    viewport.Model
	ready       bool
	activeCount int
	paused      bool
}

// NewTrackMonitorModel creates a monitor over the given registry.
func NewTrackMonitorModel(provider registry.Provider, rangeDB float64, staleTimeout time.Duration) TrackMonitorModel {
	return TrackMonitorModel{
		provider:     provider,
		rangeDB:      config.ClampRangeDB(rangeDB),
		staleTimeout: staleTimeout,
		renderEvery:  config.DefaultRenderIntervalMs * time.Millisecond,
		counterEvery: config.DefaultCounterIntervalMs * time.Millisecond,
	}
}

func (m TrackMonitorModel) Init() tea.Cmd {
	return tea.Batch(
		renderTick(m.renderEvery),
		counterTick(m.counterEvery),
	)
}

func renderTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return renderTickMsg(t) })
}

func counterTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return counterTickMsg(t) })
}

func (m TrackMonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
			m.viewport.SetContent(m.renderTracks())
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case renderTickMsg:
		m.provider.CleanupStale(m.staleTimeout)
		if m.ready && !m.paused {
			m.viewport.SetContent(m.renderTracks())
		}
		cmds = append(cmds, renderTick(m.renderEvery))

	case counterTickMsg:
		m.activeCount = m.provider.ActiveCount()
		cmds = append(cmds, counterTick(m.counterEvery))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit
		case key.Matches(msg, key.NewBinding(key.WithKeys(" "))):
			m.paused = !m.paused
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m TrackMonitorModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render(fmt.Sprintf("Spectral Monitor — %d active", m.activeCount))
	help := infoStyle.Render("Space: Pause • q: Quit")
	if m.paused {
		help = infoStyle.Render("[PAUSED] Space: Resume • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderTracks formats every active track as two rows of block characters,
// one per channel, in the track's published color.
func (m TrackMonitorModel) renderTracks() string {
	var sb strings.Builder
	found := false

	for i := 0; i < config.MaxTracks; i++ {
		track := m.provider.Track(i)
		if !track.IsActive() {
			continue
		}
		found = true

		bands := track.NumBands()
		color := lipgloss.Color(argbToHex(track.Color()))
		barStyle := lipgloss.NewStyle().Foreground(color)

		sb.WriteString(labelStyle.Render(fmt.Sprintf("Track %d (%d bands)", i, bands)))
		sb.WriteString("\n")
		sb.WriteString("  L ")
		sb.WriteString(barStyle.Render(m.renderChannel(track, bands, false)))
		sb.WriteString("\n  R ")
		sb.WriteString(barStyle.Render(m.renderChannel(track, bands, true)))
		sb.WriteString("\n\n")
	}

	if !found {
		return "No active tracks."
	}
	return sb.String()
}

func (m TrackMonitorModel) renderChannel(track *registry.TrackSlot, bands int, right bool) string {
	var sb strings.Builder
	for b := 0; b < bands; b++ {
		left, rightLevel := track.Band(b)
		level := left
		if right {
			level = rightLevel
		}
		h := receiver.LevelToHeight(float64(level), m.rangeDB)
		idx := int(math.Round(h * float64(len(levelRamp)-1)))
		sb.WriteRune(levelRamp[idx])
	}
	return sb.String()
}

// argbToHex converts a packed ARGB color into a lipgloss hex string,
// dropping the alpha channel.
func argbToHex(argb uint32) string {
	return fmt.Sprintf("#%06X", argb&0x00FFFFFF)
}

// StartTrackMonitor launches the Bubble Tea UI and blocks until it exits.
func StartTrackMonitor(provider registry.Provider, rangeDB float64, staleTimeout time.Duration) error {
	p := tea.NewProgram(
		NewTrackMonitorModel(provider, rangeDB, staleTimeout),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
