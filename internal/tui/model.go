package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/kaitenbill/internal/app"
)

// Screen represents the current active screen
type Screen int

const (
	ScreenCards Screen = iota
	ScreenInvoices
)

// String returns the screen name
func (s Screen) String() string {
	switch s {
	case ScreenCards:
		return "Board"
	case ScreenInvoices:
		return "Invoices"
	default:
		return "Unknown"
	}
}

// Model is the root Bubble Tea model
type Model struct {
	app           *app.App
	currentScreen Screen
	width         int
	height        int

	// Screen models (lazy initialized)
	cards    tea.Model
	invoices tea.Model

	// Error state
	err     error
	quitMsg string // shown when quit is blocked
}

// New creates a new root model
func New(a *app.App) Model {
	return Model{
		app:           a,
		currentScreen: ScreenCards,
		cards:         NewCardsModel(a),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.cards.Init()
}

// initScreen lazy-initializes a screen on first visit,
// and sends a RefreshDataMsg on subsequent visits so screens reload data.
func (m *Model) initScreen(screen Screen) tea.Cmd {
	switch screen {
	case ScreenCards:
		if m.cards == nil {
			m.cards = NewCardsModel(m.app)
			return m.cards.Init()
		}
		return func() tea.Msg { return RefreshDataMsg{} }
	case ScreenInvoices:
		if m.invoices == nil {
			m.invoices = NewInvoicesModel(m.app)
			return m.invoices.Init()
		}
		return func() tea.Msg { return RefreshDataMsg{} }
	}
	return nil
}

// InputCapturer is implemented by screens that capture keyboard input (e.g. text forms).
// When active, global navigation keys (B, I, Q) are suppressed.
type InputCapturer interface {
	IsCapturingInput() bool
}

// BusyReporter is implemented by screens running work that must not be cut short
type BusyReporter interface {
	Busy() bool
}

func (m *Model) activeScreen() tea.Model {
	switch m.currentScreen {
	case ScreenCards:
		return m.cards
	case ScreenInvoices:
		return m.invoices
	}
	return nil
}

// activeScreenCapturingInput returns true if the current screen is capturing text input
func (m *Model) activeScreenCapturingInput() bool {
	if ic, ok := m.activeScreen().(InputCapturer); ok {
		return ic.IsCapturingInput()
	}
	return false
}

func (m *Model) busy() bool {
	for _, screen := range []tea.Model{m.cards, m.invoices} {
		if b, ok := screen.(BusyReporter); ok && b.Busy() {
			return true
		}
	}
	return false
}

// Update implements tea.Model - routes keys to screens
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// Clear quit warning and stale errors on any keypress
		m.quitMsg = ""
		m.err = nil

		if msg.String() == "ctrl+c" && !m.busy() {
			return m, tea.Quit
		}

		// Skip global navigation when a screen is capturing text input
		if !m.activeScreenCapturingInput() {
			switch {
			case key.Matches(msg, DefaultKeyMap.Quit):
				if m.busy() {
					m.quitMsg = "Cards are being updated in Kaiten. Wait for the sync to finish before quitting."
					return m, nil
				}
				return m, tea.Quit

			case key.Matches(msg, DefaultKeyMap.Cards):
				m.currentScreen = ScreenCards
				cmd := m.initScreen(ScreenCards)
				return m, cmd

			case key.Matches(msg, DefaultKeyMap.Invoices):
				m.currentScreen = ScreenInvoices
				cmd := m.initScreen(ScreenInvoices)
				return m, cmd
			}
		}

	case SwitchScreenMsg:
		m.currentScreen = msg.Screen
		cmd := m.initScreen(msg.Screen)
		return m, cmd

	case OpenInvoiceMsg:
		m.currentScreen = ScreenInvoices
		var cmd tea.Cmd
		if m.invoices == nil {
			m.invoices = NewInvoicesModel(m.app)
		}
		m.invoices, cmd = m.invoices.Update(msg)
		return m, cmd

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	// Route message to current screen
	var cmd tea.Cmd
	switch m.currentScreen {
	case ScreenCards:
		if m.cards != nil {
			m.cards, cmd = m.cards.Update(msg)
		}
	case ScreenInvoices:
		if m.invoices != nil {
			m.invoices, cmd = m.invoices.Update(msg)
		}
	}

	// Results of a status change must reach the invoices screen even after
	// the operator switched away from it
	if m.currentScreen != ScreenInvoices && m.invoices != nil {
		if _, ok := msg.(invoiceStatusMsg); ok {
			var icmd tea.Cmd
			m.invoices, icmd = m.invoices.Update(msg)
			cmd = tea.Batch(cmd, icmd)
		}
	}

	return m, cmd
}

// View implements tea.Model - renders header + current screen + footer
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := "kaitenbill - " + m.currentScreen.String()
	if m.app.Config.Selection.BoardID == 0 {
		title += " (no board selected)"
	}
	header := headerStyle.Render(title)

	// Footer with navigation keys
	footer := footerStyle.Render("[B]oard  [I]nvoices  [Q]uit")

	content := "Loading..."
	if screen := m.activeScreen(); screen != nil {
		content = screen.View()
	}

	// Error/warning display
	errorDisplay := ""
	if m.quitMsg != "" {
		errorDisplay = warningStyle.Render(fmt.Sprintf("\n%s", m.quitMsg))
	} else if m.err != nil {
		errorDisplay = errorStyle.Render(fmt.Sprintf("\nError: %s", m.err.Error()))
	}

	// Divider line between header and content
	innerWidth := m.width - 6 // account for border (2) + padding (4)
	if innerWidth < 20 {
		innerWidth = 20
	}
	dividerWidth := innerWidth - 12
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().Foreground(borderColor).Render(
		strings.Repeat("─", dividerWidth),
	)

	body := fmt.Sprintf("%s\n%s\n\n%s%s\n\n%s\n%s", header, divider, content, errorDisplay, divider, footer)

	// Wrap in border, sized to terminal
	frame := appBorderStyle.
		Width(innerWidth).
		Height(m.height - 4) // leave room for border top/bottom
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, frame.Render(body))
}

// Run starts the TUI
func Run(a *app.App) error {
	p := tea.NewProgram(New(a), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
