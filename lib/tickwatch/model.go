// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tickwatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tickclock/lib/tickservice"
)

// Event is one item from the subscription feeding the model. Err is
// set, and Frame is zero, when the stream has ended.
type Event struct {
	Frame tickservice.Frame
	Err   error
}

type eventMsg struct {
	event Event
}

// Theme holds the viewer's colors.
type Theme struct {
	Title     lipgloss.Color
	Label     lipgloss.Color
	Value     lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	HelpText  lipgloss.Color
	PausedTag lipgloss.Color
}

// DefaultTheme targets 256-color terminals with a dark background.
var DefaultTheme = Theme{
	Title:     lipgloss.Color("255"),
	Label:     lipgloss.Color("245"),
	Value:     lipgloss.Color("252"),
	Warning:   lipgloss.Color("220"),
	Error:     lipgloss.Color("196"),
	Border:    lipgloss.Color("240"),
	HelpText:  lipgloss.Color("241"),
	PausedTag: lipgloss.Color("208"),
}

// Model is the bubbletea model for the tick viewer.
type Model struct {
	theme  Theme
	keys   KeyMap
	source string
	events <-chan Event

	width   int
	paused  bool
	meter   meter
	dropped uint64
	ended   error
}

// NewModel returns a viewer reading from events. source names the
// daemon in the header, usually its socket path.
func NewModel(source string, events <-chan Event) Model {
	return Model{
		theme:  DefaultTheme,
		keys:   DefaultKeyMap,
		source: source,
		events: events,
		width:  80,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForEvent(model.events)
}

// listenForEvent returns a tea.Cmd that blocks until the next event
// arrives.
func listenForEvent(channel <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return eventMsg{event: event}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Reset):
			model.meter = meter{}
			model.dropped = 0
		case key.Matches(message, model.keys.Pause):
			model.paused = !model.paused
		}
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil

	case eventMsg:
		if message.event.Err != nil {
			model.ended = message.event.Err
			return model, nil
		}
		frame := message.event.Frame
		if frame.Type == tickservice.FrameTick && frame.Tick != nil && !model.paused {
			model.meter.observe(*frame.Tick)
			model.dropped = frame.Dropped
		}
		return model, listenForEvent(model.events)
	}
	return model, nil
}

// View implements tea.Model.
func (model Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.Title)
	labelStyle := lipgloss.NewStyle().Foreground(model.theme.Label).Width(12)
	valueStyle := lipgloss.NewStyle().Foreground(model.theme.Value)
	warningStyle := lipgloss.NewStyle().Foreground(model.theme.Warning)

	header := titleStyle.Render("tickclock") + " " +
		lipgloss.NewStyle().Foreground(model.theme.Label).Render(model.source)
	if model.paused {
		header += " " + lipgloss.NewStyle().Bold(true).Foreground(model.theme.PausedTag).Render("PAUSED")
	}

	m := &model.meter
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	var sections []string
	sections = append(sections, header, "")
	if m.received == 0 {
		sections = append(sections, valueStyle.Render("waiting for ticks..."))
	} else {
		sections = append(sections,
			row("sequence", valueStyle.Render(fmt.Sprintf("%d", m.last.Sequence))),
			row("period", valueStyle.Render(formatDuration(m.period))),
			row("measured", valueStyle.Render(formatRate(m.rate()))),
			row("jitter", model.renderJitter(valueStyle, warningStyle)),
			row("received", valueStyle.Render(fmt.Sprintf("%d", m.received))),
		)
		lost := m.missed + model.dropped
		lostText := fmt.Sprintf("%d missed, %d dropped, %d late", m.missed, model.dropped, m.late)
		if lost > 0 {
			sections = append(sections, row("lost", warningStyle.Render(lostText)))
		} else {
			sections = append(sections, row("lost", valueStyle.Render(lostText)))
		}
	}

	if model.ended != nil {
		sections = append(sections, "",
			lipgloss.NewStyle().Foreground(model.theme.Error).Render("stream ended: "+model.ended.Error()))
	}

	separator := lipgloss.NewStyle().
		Foreground(model.theme.Border).
		Render(strings.Repeat("─", max(model.width, 1)))
	sections = append(sections, "", separator, model.renderHelp())

	for i, line := range sections {
		sections[i] = ansi.Truncate(line, model.width, "…")
	}
	return strings.Join(sections, "\n")
}

// renderJitter highlights jitter above a tenth of the period.
func (model Model) renderJitter(normal, warning lipgloss.Style) string {
	m := &model.meter
	jitter := m.jitter()
	text := formatDuration(jitter)
	if m.period > 0 {
		text += fmt.Sprintf(" (%.1f%%)", 100*float64(jitter)/float64(m.period))
		if jitter*10 > m.period {
			return warning.Render(text)
		}
	}
	return normal.Render(text)
}

func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	var parts []string
	for _, binding := range []key.Binding{model.keys.Quit, model.keys.Pause, model.keys.Reset} {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return style.Render(" " + strings.Join(parts, "  "))
}

func formatRate(hz float64) string {
	if hz == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f Hz", hz)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}
