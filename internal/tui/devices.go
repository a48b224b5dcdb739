// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"slices"
	"strings"

	"leafpipe/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// CommonSampleRates are offered next to the device's default rate.
var CommonSampleRates = []float64{44100, 48000, 88200, 96000}

// Selection is the outcome of the device picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

// DevicePickerModel lets the user choose a capture device and sample rate.
type DevicePickerModel struct {
	fetch         func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	availableSampleRates []float64
	sampleRateIndex      int

	chosen *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDevicePickerModel creates a picker listing the capture devices fetch
// returns.
func NewDevicePickerModel(fetch func() ([]audio.Device, error)) DevicePickerModel {
	return DevicePickerModel{
		fetch:        fetch,
		activeScreen: ListScreen,
	}
}

// Init implements tea.Model.
func (m DevicePickerModel) Init() tea.Cmd {
	return m.fetchDevices
}

func (m DevicePickerModel) fetchDevices() tea.Msg {
	devices, err := m.fetch()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{slices.DeleteFunc(devices, func(d audio.Device) bool {
		return !d.CanCapture()
	})}
}

// Update implements tea.Model.
func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.IsDefaultInput {
				m.selectedIndex = i
				break
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, upKey):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, downKey):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, selectKey):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
					m.availableSampleRates, m.sampleRateIndex = sampleRates(m.devices[m.selectedIndex].DefaultSampleRate)
				}
			}

		case ConfigScreen:
			switch {
			case key.Matches(msg, backKey):
				m.activeScreen = ListScreen
			case key.Matches(msg, upKey):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
				}
			case key.Matches(msg, downKey):
				if m.sampleRateIndex < len(m.availableSampleRates)-1 {
					m.sampleRateIndex++
				}
			case key.Matches(msg, selectKey):
				m.chosen = &Selection{
					Device:     m.devices[m.selectedIndex],
					SampleRate: m.availableSampleRates[m.sampleRateIndex],
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *DevicePickerModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// sampleRates returns the offered rates with the device default included,
// and the index of the default.
func sampleRates(deviceDefault float64) ([]float64, int) {
	rates := slices.Clone(CommonSampleRates)
	if deviceDefault > 0 && !slices.Contains(rates, deviceDefault) {
		rates = append(rates, deviceDefault)
		slices.Sort(rates)
	}
	idx := slices.Index(rates, deviceDefault)
	return rates, max(0, idx)
}

// View implements tea.Model.
func (m DevicePickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Capture Device")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Choose • q: Quit")
	} else {
		title = titleStyle.Render("Sample Rate")
		help = infoStyle.Render("↑/↓: Change • Enter: Start • Esc: Back • q: Quit")
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, "", m.viewport.View(), "", help)
}

func (m DevicePickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No capture devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := " "
		if device.IsDefaultInput {
			marker = "*"
		}

		info := fmt.Sprintf("[%d]%s %s (%s)\n", device.ID, marker, device.Name, device.HostAPI)
		info += fmt.Sprintf("    Input channels: %d, default rate: %.0f Hz, latency: %v\n",
			device.MaxInputChannels, device.DefaultSampleRate, device.LowInputLatency)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePickerModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Device: %s\n\n", device.Name)
	for i, rate := range m.availableSampleRates {
		cursor := " "
		if i == m.sampleRateIndex {
			cursor = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", cursor, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// Selection returns the user's choice, if they made one.
func (m DevicePickerModel) Selection() (Selection, bool) {
	if m.chosen == nil {
		return Selection{}, false
	}
	return *m.chosen, true
}

// Err returns the error that ended the picker, if any.
func (m DevicePickerModel) Err() error {
	return m.err
}

// PickDevice runs the picker over the host's devices. PortAudio must be
// initialized. The bool is false when the user quit without choosing.
func PickDevice() (Selection, bool, error) {
	p := tea.NewProgram(NewDevicePickerModel(audio.HostDevices), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}

	m := final.(DevicePickerModel)
	if err := m.Err(); err != nil {
		return Selection{}, false, err
	}
	sel, ok := m.Selection()
	return sel, ok, nil
}
