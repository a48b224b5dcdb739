// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"leafpipe/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultBarWidth = 40
	labelWidth      = 8
	barRune         = "█"
)

// FrameMsg delivers a rendered frame to the spectrum view.
type FrameMsg struct {
	Frame *transport.Frame
}

// SpectrumModel draws one horizontal bar per bucket in the panel's color.
type SpectrumModel struct {
	frame    *transport.Frame
	peak     float64 // largest value seen, scales the bars
	width    int
	paused   bool
	received uint64
}

// NewSpectrumModel creates an empty spectrum view.
func NewSpectrumModel() SpectrumModel {
	return SpectrumModel{width: defaultBarWidth + labelWidth}
}

// Init implements tea.Model.
func (m SpectrumModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case FrameMsg:
		m.received++
		if m.paused || msg.Frame == nil {
			return m, nil
		}
		m.frame = msg.Frame
		for _, v := range msg.Frame.Spectrum {
			m.peak = max(m.peak, v)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, pauseKey):
			m.paused = !m.paused
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m SpectrumModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("leafpipe"))
	sb.WriteString("\n\n")

	if m.frame == nil {
		sb.WriteString(dimStyle.Render("Waiting for audio..."))
		sb.WriteString("\n\n")
		sb.WriteString(infoStyle.Render("q: Quit"))
		return sb.String()
	}

	barWidth := max(1, m.width-labelWidth-2)
	for i, v := range m.frame.Spectrum {
		n := 0
		if m.peak > 0 {
			n = int(v / m.peak * float64(barWidth))
		}
		n = max(0, min(barWidth, n))

		bar := strings.Repeat(barRune, n)
		if i < len(m.frame.Panels) {
			p := m.frame.Panels[i]
			bar = lipgloss.NewStyle().Foreground(hexColor(p.R, p.G, p.B)).Render(bar)
		}
		fmt.Fprintf(&sb, "%*.2f  %s\n", labelWidth-2, v, bar)
	}

	status := fmt.Sprintf("frame %d, %d received", m.frame.Seq, m.received)
	if m.paused {
		status += " (paused)"
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(status))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("space: Pause • q: Quit"))
	return sb.String()
}

// Transport forwards frames to a running spectrum view.
type Transport struct {
	program *tea.Program
	closed  atomic.Bool
}

// NewTransport creates the spectrum program. It is not started until Run.
func NewTransport(ctx context.Context) *Transport {
	return &Transport{
		program: tea.NewProgram(NewSpectrumModel(), tea.WithAltScreen(), tea.WithContext(ctx)),
	}
}

// Run shows the view until the user quits or ctx is done.
func (t *Transport) Run() error {
	_, err := t.program.Run()
	t.closed.Store(true)
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Send hands frame to the view. Frames sent after the view exited are
// discarded.
func (t *Transport) Send(frame *transport.Frame) error {
	if t.closed.Load() {
		return nil
	}
	t.program.Send(FrameMsg{Frame: frame})
	return nil
}

// Close stops the view.
func (t *Transport) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.program.Quit()
	}
	return nil
}

var _ transport.Transport = (*Transport)(nil)
