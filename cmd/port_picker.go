// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/helioflash/pkg/connection"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	// ErrNoPorts is returned when enumeration finds nothing matching the filters
	ErrNoPorts = errors.New("no serial ports found")

	// ErrSelectionCancelled is returned when the user leaves the picker
	ErrSelectionCancelled = errors.New("port selection cancelled")
)

// selectHost picks the port selection capability for this invocation.
// Explicit flags win. Without them an interactive picker is offered only
// when both stdin and stdout are terminals; otherwise there is none.
func selectHost() connection.SerialHost {
	switch {
	case wsURL != "":
		return connection.NamedHost(wsURL)
	case portName != "":
		return connection.NamedHost(portName)
	case term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())):
		return &pickerHost{list: connection.ListPorts}
	default:
		return nil
	}
}

// pickerHost lets the user choose among enumerated ports
type pickerHost struct {
	list func(filters []connection.PortFilter) ([]connection.PortInfo, error)
}

func (h *pickerHost) RequestPort(ctx context.Context, filters []connection.PortFilter) (connection.PortInfo, error) {
	ports, err := h.list(filters)
	if err != nil {
		return connection.PortInfo{}, err
	}

	switch len(ports) {
	case 0:
		return connection.PortInfo{}, ErrNoPorts
	case 1:
		return ports[0], nil
	}

	p := tea.NewProgram(newPickerModel(ports), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return connection.PortInfo{}, ctx.Err()
		}
		return connection.PortInfo{}, fmt.Errorf("port picker failed: %w", err)
	}

	m := final.(pickerModel)
	if m.chosen == nil {
		return connection.PortInfo{}, ErrSelectionCancelled
	}
	return *m.chosen, nil
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

// portItem adapts a PortInfo to list.Item
type portItem struct {
	port connection.PortInfo
}

func (i portItem) Title() string { return i.port.Name }

func (i portItem) Description() string {
	if !i.port.IsUSB {
		return "not USB"
	}
	desc := fmt.Sprintf("USB %04X:%04X", i.port.VendorID, i.port.ProductID)
	if i.port.Product != "" {
		desc += " " + i.port.Product
	}
	if i.port.SerialNumber != "" {
		desc += " (" + i.port.SerialNumber + ")"
	}
	return desc
}

func (i portItem) FilterValue() string { return i.port.Name }

// pickerModel is the Bubble Tea model for the port picker
type pickerModel struct {
	ports  list.Model
	chosen *connection.PortInfo
	done   bool
}

func newPickerModel(ports []connection.PortInfo) pickerModel {
	items := make([]list.Item, len(ports))
	for i, p := range ports {
		items[i] = portItem{port: p}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	l := list.New(items, delegate, 60, 14)
	l.Title = "Select serial port"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return pickerModel{ports: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit

		case "enter":
			if item, ok := m.ports.SelectedItem().(portItem); ok {
				port := item.port
				m.chosen = &port
			}
			m.done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.ports.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.ports, cmd = m.ports.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.done {
		return ""
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	var s strings.Builder
	s.WriteString(m.ports.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter=select q=cancel"))
	return s.String()
}
