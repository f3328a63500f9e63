// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tickwatch

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tickclock/lib/tickservice"
)

func tickFrame(sequence uint64, period time.Duration, dropped uint64) Event {
	t := tick(sequence, time.Duration(sequence)*period, period)
	return Event{Frame: tickservice.Frame{Type: tickservice.FrameTick, Tick: &t, Dropped: dropped}}
}

func feed(model Model, events ...Event) Model {
	for _, event := range events {
		updated, _ := model.Update(eventMsg{event: event})
		model = updated.(Model)
	}
	return model
}

func TestModelShowsMeasurements(t *testing.T) {
	model := NewModel("/run/tickclock.sock", nil)
	view := ansi.Strip(model.View())
	if !strings.Contains(view, "waiting for ticks") {
		t.Errorf("initial view missing waiting message:\n%s", view)
	}

	for i := uint64(1); i <= 5; i++ {
		model = feed(model, tickFrame(i, 250*time.Millisecond, 0))
	}
	view = ansi.Strip(model.View())
	for _, want := range []string{"/run/tickclock.sock", "sequence", "5", "4.000 Hz", "250ms", "0 missed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelListensAgainAfterFrame(t *testing.T) {
	events := make(chan Event, 1)
	model := NewModel("sock", events)
	_, cmd := model.Update(eventMsg{event: tickFrame(1, time.Second, 0)})
	if cmd == nil {
		t.Fatal("no follow-up listen command after a frame")
	}
	events <- tickFrame(2, time.Second, 0)
	message, ok := cmd().(eventMsg)
	if !ok || message.event.Frame.Tick.Sequence != 2 {
		t.Fatalf("listen command returned %#v", message)
	}
}

func TestModelStreamEnd(t *testing.T) {
	model := NewModel("sock", nil)
	updated, cmd := model.Update(eventMsg{event: Event{Err: errors.New("connection reset")}})
	if cmd != nil {
		t.Error("model keeps listening after the stream ended")
	}
	view := ansi.Strip(updated.(Model).View())
	if !strings.Contains(view, "stream ended: connection reset") {
		t.Errorf("view missing stream end:\n%s", view)
	}
}

func TestModelKeys(t *testing.T) {
	model := feed(NewModel("sock", nil),
		tickFrame(1, time.Second, 0),
		tickFrame(2, time.Second, 3),
	)
	if model.dropped != 3 {
		t.Fatalf("dropped = %d, want 3", model.dropped)
	}

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	model = updated.(Model)
	if !model.paused {
		t.Fatal("p did not pause")
	}
	model = feed(model, tickFrame(3, time.Second, 3))
	if model.meter.received != 2 {
		t.Errorf("paused model counted a tick: received = %d", model.meter.received)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	model = updated.(Model)
	if model.meter.received != 0 || model.dropped != 0 {
		t.Error("r did not reset the measurements")
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModelTruncatesToWidth(t *testing.T) {
	model := feed(NewModel(strings.Repeat("x", 200), nil), tickFrame(1, time.Second, 0))
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	for _, line := range strings.Split(updated.(Model).View(), "\n") {
		if width := ansi.StringWidth(line); width > 40 {
			t.Fatalf("line width %d exceeds 40: %q", width, ansi.Strip(line))
		}
	}
}
