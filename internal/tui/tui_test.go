// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"leafpipe/internal/audio"
	"leafpipe/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
)

func testDevices() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
		{ID: 2, Name: "Loopback", MaxInputChannels: 2, DefaultSampleRate: 32000, IsDefaultInput: true},
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func update(t *testing.T, m DevicePickerModel, msgs ...tea.Msg) (DevicePickerModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(DevicePickerModel)
	}
	return m, cmd
}

func startedPicker(t *testing.T) DevicePickerModel {
	t.Helper()
	m := NewDevicePickerModel(func() ([]audio.Device, error) { return testDevices(), nil })
	msg := m.Init()()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, msg)
	return m
}

func TestDevicePickerListsCaptureDevices(t *testing.T) {
	m := startedPicker(t)

	if len(m.devices) != 2 {
		t.Fatalf("devices = %d, want 2 capture devices", len(m.devices))
	}
	if m.selectedIndex != 1 {
		t.Errorf("selectedIndex = %d, want the default input", m.selectedIndex)
	}

	view := m.View()
	if strings.Contains(view, "Speakers") || !strings.Contains(view, "USB Mic") {
		t.Errorf("view lists the wrong devices:\n%s", view)
	}
}

func TestDevicePickerSelection(t *testing.T) {
	m := startedPicker(t)

	// Up to "USB Mic", open the rate screen, pick the rate below 44100's slot.
	m, _ = update(t, m, keyMsg("up"), keyMsg("enter"))
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter did not open the sample rate screen")
	}
	if got := m.availableSampleRates[m.sampleRateIndex]; got != 44100 {
		t.Fatalf("preselected rate = %v, want the device default 44100", got)
	}

	m, cmd := update(t, m, keyMsg("down"), keyMsg("enter"))
	if cmd == nil {
		t.Fatal("choosing a rate should quit the picker")
	}

	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection recorded")
	}
	if sel.Device.ID != 1 || sel.SampleRate != 48000 {
		t.Errorf("selection = (%d, %v), want (1, 48000)", sel.Device.ID, sel.SampleRate)
	}
}

func TestDevicePickerBackAndQuit(t *testing.T) {
	m := startedPicker(t)

	m, _ = update(t, m, keyMsg("enter"), keyMsg("esc"))
	if m.activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}

	m, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := m.Selection(); ok {
		t.Error("quitting must not produce a selection")
	}
}

func TestDevicePickerFetchError(t *testing.T) {
	want := errors.New("no host")
	m := NewDevicePickerModel(func() ([]audio.Device, error) { return nil, want })

	m, cmd := update(t, m, m.Init()())
	if !errors.Is(m.Err(), want) {
		t.Errorf("Err = %v, want %v", m.Err(), want)
	}
	if cmd == nil {
		t.Error("a fetch error should quit the picker")
	}
}

func TestSampleRates(t *testing.T) {
	tests := []struct {
		name    string
		def     float64
		wantLen int
		wantAt  float64
	}{
		{"common rate", 48000, len(CommonSampleRates), 48000},
		{"unusual rate", 32000, len(CommonSampleRates) + 1, 32000},
		{"unknown rate", 0, len(CommonSampleRates), 44100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rates, idx := sampleRates(tt.def)
			if len(rates) != tt.wantLen || rates[idx] != tt.wantAt {
				t.Errorf("sampleRates(%v) = %v at %d", tt.def, rates, idx)
			}
		})
	}
}

func TestSpectrumModel(t *testing.T) {
	var m tea.Model = NewSpectrumModel()
	if !strings.Contains(m.View(), "Waiting") {
		t.Errorf("empty view = %q", m.View())
	}

	frame := &transport.Frame{
		Seq:      9,
		Spectrum: []float64{1, 2},
		Panels:   []transport.Panel{{ID: 1, R: 255}, {ID: 2, G: 255}},
	}
	m, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	m, _ = m.Update(FrameMsg{Frame: frame})

	view := m.View()
	if !strings.Contains(view, "frame 9") || !strings.Contains(view, "2.00") {
		t.Errorf("view missing frame data:\n%s", view)
	}
	if strings.Count(view, barRune) == 0 {
		t.Errorf("view has no bars:\n%s", view)
	}

	m, _ = m.Update(keyMsg("p"))
	m, _ = m.Update(FrameMsg{Frame: &transport.Frame{Seq: 10, Spectrum: []float64{0, 0}}})
	if view := m.View(); !strings.Contains(view, "frame 9") || !strings.Contains(view, "paused") {
		t.Errorf("paused view should keep frame 9:\n%s", view)
	}

	if _, cmd := m.Update(keyMsg("q")); cmd == nil {
		t.Error("q should quit")
	}
}
