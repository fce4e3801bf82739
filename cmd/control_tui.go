// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
	"github.com/chihiros-control/chihirosctl/pkg/device"
	"github.com/chihiros-control/chihirosctl/pkg/uart"
)

// Focus states
const (
	focusDeviceList = iota
	focusChannelList
	focusBrightnessInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// discoveredDevice is one scan hit shown in the device list
type discoveredDevice struct {
	address string
	name    string
	model   string
	rssi    int16
}

// Implement list.Item interface
func (d discoveredDevice) Title() string       { return d.name }
func (d discoveredDevice) Description() string { return fmt.Sprintf("%s  %s", d.model, d.address) }
func (d discoveredDevice) FilterValue() string { return d.name }

// channelItem is one controllable channel of the selected device
type channelItem struct {
	channel device.Channel
	level   int // last brightness sent, -1 if unknown
}

func (c channelItem) Title() string { return c.channel.Name }
func (c channelItem) Description() string {
	if c.level < 0 {
		return "brightness unknown"
	}
	return fmt.Sprintf("brightness %d", c.level)
}
func (c channelItem) FilterValue() string { return c.channel.Name }

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	manager *uart.Manager

	// Discovery state
	scanning   bool
	deviceList list.Model
	devices    []discoveredDevice

	// Selected device
	address     string
	cap         device.Capability
	channelList list.Model
	channels    []channelItem

	// Control
	brightnessInput textinput.Model
	focusedField    int

	// UI state
	width    int
	height   int
	eventLog []logEntry
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type deviceFoundMsg uart.ScanResult

type scanDoneMsg struct{ err error }

type commandDoneMsg struct {
	desc string
	err  error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(manager *uart.Manager, address string, cap device.Capability) controlModel {
	ti := textinput.New()
	ti.Placeholder = "100"
	ti.CharLimit = 3
	ti.Width = 6

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)

	deviceList := list.New([]list.Item{}, delegate, 40, 12)
	deviceList.Title = "Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)

	channelList := list.New([]list.Item{}, delegate, 30, 10)
	channelList.Title = "Channels"
	channelList.SetShowStatusBar(false)
	channelList.SetShowHelp(false)
	channelList.SetFilteringEnabled(false)

	m := controlModel{
		manager:         manager,
		scanning:        address == "",
		deviceList:      deviceList,
		channelList:     channelList,
		brightnessInput: ti,
		focusedField:    focusDeviceList,
		width:           80,
		height:          24,
	}
	if address != "" {
		m.selectDevice(address, cap)
	}
	return m
}

// selectDevice locks the TUI onto one device address.
func (m *controlModel) selectDevice(address string, cap device.Capability) {
	m.address = address
	m.cap = cap
	m.scanning = false
	m.focusedField = focusChannelList

	seen := map[uint8]bool{}
	m.channels = nil
	for _, ch := range cap.Channels {
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		m.channels = append(m.channels, channelItem{channel: ch, level: -1})
	}
	items := make([]list.Item, len(m.channels))
	for i, c := range m.channels {
		items[i] = c
	}
	m.channelList.SetItems(items)
	m.addLogEntry(fmt.Sprintf("Selected %s (%s)", address, cap.ModelName), false)
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

// Init does nothing; in scan mode the scan goroutine feeds deviceFoundMsg
// through Program.Send.
func (m controlModel) Init() tea.Cmd {
	return nil
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case deviceFoundMsg:
		m.devices = append(m.devices, discoveredDevice{
			address: msg.Address,
			name:    msg.Name,
			model:   device.Resolve(msg.Name).ModelName,
			rssi:    msg.RSSI,
		})
		items := make([]list.Item, len(m.devices))
		for i, d := range m.devices {
			items[i] = d
		}
		m.deviceList.SetItems(items)

	case scanDoneMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Scan failed: %v", msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("Scan complete: %d device(s)", len(m.devices)), false)
		}

	case commandDoneMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.desc, msg.err), true)
		} else {
			m.addLogEntry(msg.desc, false)
		}
	}

	// Update child components
	var cmd tea.Cmd
	switch m.focusedField {
	case focusDeviceList:
		m.deviceList, cmd = m.deviceList.Update(msg)
		cmds = append(cmds, cmd)
	case focusChannelList:
		m.channelList, cmd = m.channelList.Update(msg)
		cmds = append(cmds, cmd)
	case focusBrightnessInput:
		m.brightnessInput, cmd = m.brightnessInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		m.cycleFocus()
		return m, nil

	case "enter":
		return m.handleEnter()

	case "a":
		if m.focusedField != focusBrightnessInput && m.address != "" {
			return m, m.sendCommand("Auto mode enabled", func(ctx context.Context, s *uart.Session) error {
				return s.Send(ctx, chihiros.NewAutoModeSequence(s.NextMessageID, time.Now())...)
			})
		}

	case "m":
		if m.focusedField != focusBrightnessInput && m.address != "" {
			return m, m.sendCommand("Manual mode enabled", func(ctx context.Context, s *uart.Session) error {
				return s.Send(ctx, chihiros.NewSwitchToManualModeCommand(s.NextMessageID()))
			})
		}

	case "o":
		if m.focusedField != focusBrightnessInput && m.address != "" {
			return m, m.setAllChannels(chihiros.MaxBrightness)
		}

	case "x":
		if m.focusedField != focusBrightnessInput && m.address != "" {
			return m, m.setAllChannels(0)
		}
	}

	// Pass through to focused component
	var cmd tea.Cmd
	switch m.focusedField {
	case focusDeviceList:
		m.deviceList, cmd = m.deviceList.Update(msg)
	case focusChannelList:
		m.channelList, cmd = m.channelList.Update(msg)
	case focusBrightnessInput:
		m.brightnessInput, cmd = m.brightnessInput.Update(msg)
	}
	return m, cmd
}

func (m *controlModel) cycleFocus() {
	if m.address == "" {
		m.focusedField = focusDeviceList
		return
	}
	if m.focusedField == focusChannelList {
		m.focusedField = focusBrightnessInput
		m.brightnessInput.Focus()
	} else {
		m.focusedField = focusChannelList
		m.brightnessInput.Blur()
	}
}

func (m *controlModel) handleEnter() (tea.Model, tea.Cmd) {
	// Device selection from the scan list.
	if m.address == "" {
		idx := m.deviceList.Index()
		if idx < 0 || idx >= len(m.devices) {
			return m, nil
		}
		d := m.devices[idx]
		m.selectDevice(d.address, device.Resolve(d.name))
		return m, nil
	}

	// Brightness submission for the selected channel.
	if m.focusedField == focusBrightnessInput {
		return m, m.sendBrightness()
	}
	if m.focusedField == focusChannelList {
		m.focusedField = focusBrightnessInput
		m.brightnessInput.Focus()
	}
	return m, nil
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// sendCommand runs one session operation off the UI goroutine.
func (m *controlModel) sendCommand(desc string, fn func(ctx context.Context, s *uart.Session) error) tea.Cmd {
	s := m.manager.Session(m.address)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{desc: desc, err: fn(ctx, s)}
	}
}

func (m *controlModel) sendBrightness() tea.Cmd {
	idx := m.channelList.Index()
	if idx < 0 || idx >= len(m.channels) {
		return nil
	}
	val := m.brightnessInput.Value()
	if val == "" {
		val = m.brightnessInput.Placeholder
	}
	brightness, err := strconv.Atoi(val)
	if err != nil || brightness < 0 || brightness > chihiros.MaxBrightness {
		m.addLogEntry(fmt.Sprintf("Invalid brightness: %s", val), true)
		return nil
	}

	item := &m.channels[idx]
	channelID := item.channel.ID
	item.level = brightness
	items := make([]list.Item, len(m.channels))
	for i, c := range m.channels {
		items[i] = c
	}
	m.channelList.SetItems(items)

	return m.sendCommand(
		fmt.Sprintf("Set %s to %d", item.channel.Name, brightness),
		func(ctx context.Context, s *uart.Session) error {
			frame, err := chihiros.NewManualSettingCommand(s.NextMessageID(), channelID, brightness)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame)
		})
}

func (m *controlModel) setAllChannels(brightness int) tea.Cmd {
	for i := range m.channels {
		m.channels[i].level = brightness
	}
	items := make([]list.Item, len(m.channels))
	for i, c := range m.channels {
		items[i] = c
	}
	m.channelList.SetItems(items)

	channels := make([]device.Channel, len(m.channels))
	for i, c := range m.channels {
		channels[i] = c.channel
	}
	desc := fmt.Sprintf("All channels to %d", brightness)
	return m.sendCommand(desc, func(ctx context.Context, s *uart.Session) error {
		frames := make([]chihiros.Frame, 0, len(channels))
		for _, ch := range channels {
			frame, err := chihiros.NewManualSettingCommand(s.NextMessageID(), ch.ID, brightness)
			if err != nil {
				return err
			}
			frames = append(frames, frame)
		}
		return s.Send(ctx, frames...)
	})
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	helpText := "q=quit Enter=select"
	if m.address != "" {
		helpText = "q=quit Tab=switch Enter=send a=auto m=manual o=on x=off"
	}
	s.WriteString(titleStyle.Render("CHIHIROS CONTROL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render("| " + helpText))
	s.WriteString("\n\n")

	if m.address == "" {
		if m.scanning {
			s.WriteString(warningStyle.Render("Scanning for devices..."))
			s.WriteString("\n")
		}
		s.WriteString(boxStyle.Render(m.deviceList.View()))
		s.WriteString("\n\n")
	} else {
		s.WriteString(fmt.Sprintf("%s %s  %s %s\n\n",
			labelStyle.Render("Device:"), valueStyle.Render(m.address),
			labelStyle.Render("Model:"), valueStyle.Render(m.cap.ModelName)))

		listStyle := boxStyle
		if m.focusedField == focusChannelList {
			listStyle = focusedBoxStyle
		}
		channelPanel := listStyle.Render(m.channelList.View())

		inputStyle := boxStyle
		if m.focusedField == focusBrightnessInput {
			inputStyle = focusedBoxStyle
		}
		inputPanel := inputStyle.Render(labelStyle.Render("Brightness: ") + m.brightnessInput.View())

		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, channelPanel, " ", inputPanel))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")
	logHeight := 8
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}
	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
		s.WriteString("\n")
	}
	for i := startIdx; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		style := warningStyle
		icon := "i"
		if entry.isError {
			style = errorStyle
			icon = "x"
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return s.String()
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > 100 {
		m.eventLog = m.eventLog[len(m.eventLog)-100:]
	}
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

var controlCmd = &cobra.Command{
	Use:   "control [address]",
	Short: "Interactive control TUI",
	Long: `Interactive terminal UI for controlling a light. Without an address it
scans for nearby devices first (Bluetooth only); with an address it goes
straight to the channel controls.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, transport, err := newManager()
		if err != nil {
			return err
		}
		defer manager.CloseAll()

		address := ""
		cap := device.Fallback
		if len(args) > 0 {
			address = args[0]
			ctx, cancel := commandContext()
			cap = lookupCapability(ctx, transport, address)
			cancel()
		}

		ble, isBLE := transport.(*uart.BLETransport)
		if address == "" && !isBLE {
			return fmt.Errorf("device address required with --port/--url")
		}

		model := initialControlModel(manager, address, cap)
		p := tea.NewProgram(model, tea.WithAltScreen())

		if address == "" {
			scanCtx, cancelScan := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelScan()
			go func() {
				err := ble.Scan(scanCtx, func(r uart.ScanResult) {
					if strings.HasPrefix(r.Name, "DY") || strings.HasPrefix(r.Name, "DOSER") {
						p.Send(deviceFoundMsg(r))
					}
				})
				p.Send(scanDoneMsg{err: err})
			}()
		}

		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(controlCmd)
}
