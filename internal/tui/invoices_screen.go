package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/kaitenbill/internal/app"
	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/service"
)

type invoiceViewMode int

const (
	invoiceViewList   invoiceViewMode = iota
	invoiceViewDetail                 // Viewing a single invoice
	invoiceViewConfirmDelete
)

// statusFilters is the order 'f' cycles through; nil shows everything
var statusFilters = []*domain.InvoiceStatus{
	nil,
	statusPtr(domain.InvoiceStatusDraft),
	statusPtr(domain.InvoiceStatusSent),
	statusPtr(domain.InvoiceStatusPaid),
}

func statusPtr(s domain.InvoiceStatus) *domain.InvoiceStatus {
	return &s
}

// InvoicesModel displays invoices in list and detail views
type InvoicesModel struct {
	app       *app.App
	mode      invoiceViewMode
	invoices  []*domain.Invoice
	cursor    int
	filter    int
	selected  *domain.Invoice
	loading   bool
	syncing   bool // a status change is archiving cards in Kaiten
	err       error
	statusMsg string
}

type invoicesDataMsg struct {
	invoices []*domain.Invoice
	err      error
}

type invoiceDetailMsg struct {
	invoice *domain.Invoice
	err     error
}

type invoiceStatusMsg struct {
	status  domain.InvoiceStatus
	invoice *domain.Invoice
	err     error
}

type invoiceDeletedMsg struct {
	id  string
	err error
}

// NewInvoicesModel creates a new invoices screen model
func NewInvoicesModel(a *app.App) tea.Model {
	return &InvoicesModel{
		app:     a,
		mode:    invoiceViewList,
		loading: true,
	}
}

// Busy reports an archive sync in flight; quitting would cut it short
func (m *InvoicesModel) Busy() bool {
	return m.syncing
}

func (m *InvoicesModel) Init() tea.Cmd {
	return m.loadInvoices()
}

func (m *InvoicesModel) loadInvoices() tea.Cmd {
	filter := statusFilters[m.filter]
	return func() tea.Msg {
		invoices, err := m.app.Invoices.ListInvoices(context.Background(), filter)
		return invoicesDataMsg{invoices: invoices, err: err}
	}
}

func (m *InvoicesModel) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		invoice, err := m.app.Invoices.GetInvoice(context.Background(), id)
		return invoiceDetailMsg{invoice: invoice, err: err}
	}
}

func (m *InvoicesModel) updateStatus(id string, status domain.InvoiceStatus) tea.Cmd {
	return func() tea.Msg {
		invoice, err := m.app.Invoices.UpdateStatus(context.Background(), id, status)
		return invoiceStatusMsg{status: status, invoice: invoice, err: err}
	}
}

func (m *InvoicesModel) deleteInvoice(id string) tea.Cmd {
	return func() tea.Msg {
		return invoiceDeletedMsg{id: id, err: m.app.Invoices.DeleteInvoice(context.Background(), id)}
	}
}

func (m *InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		if m.mode == invoiceViewDetail && m.selected != nil {
			return m, tea.Batch(m.loadInvoices(), m.loadDetail(m.selected.ID))
		}
		return m, m.loadInvoices()

	case OpenInvoiceMsg:
		m.statusMsg = msg.Notice
		m.loading = true
		return m, tea.Batch(m.loadInvoices(), m.loadDetail(msg.ID))

	case invoicesDataMsg:
		m.loading = false
		m.err = msg.err
		m.invoices = msg.invoices
		m.cursor = clampCursor(m.cursor, len(m.invoices))
		return m, nil

	case invoiceDetailMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selected = msg.invoice
		m.mode = invoiceViewDetail
		return m, nil

	case invoiceStatusMsg:
		m.syncing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Marked as %s", msg.invoice.Status)
		if msg.status.ArchivesCards() {
			m.statusMsg += fmt.Sprintf(", %d card(s) archived in Kaiten", msg.invoice.TotalCards)
		}
		return m, tea.Batch(m.loadInvoices(), m.loadDetail(msg.invoice.ID))

	case invoiceDeletedMsg:
		m.mode = invoiceViewList
		m.selected = nil
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = "Invoice deleted"
		return m, m.loadInvoices()

	case tea.KeyMsg:
		if m.loading || m.syncing {
			return m, nil
		}

		switch m.mode {
		case invoiceViewList:
			return m.updateList(msg)
		case invoiceViewDetail:
			return m.updateDetail(msg)
		case invoiceViewConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
	}

	return m, nil
}

func (m *InvoicesModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil

	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.cursor < len(m.invoices)-1 {
			m.cursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if len(m.invoices) > 0 {
			m.statusMsg = ""
			m.loading = true
			return m, m.loadDetail(m.invoices[m.cursor].ID)
		}
	case key.Matches(msg, DefaultKeyMap.Filter):
		m.filter = (m.filter + 1) % len(statusFilters)
		m.cursor = 0
		m.loading = true
		return m, m.loadInvoices()
	case key.Matches(msg, DefaultKeyMap.Refresh):
		m.loading = true
		return m, m.loadInvoices()
	}

	return m, nil
}

func (m *InvoicesModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var status domain.InvoiceStatus

	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = invoiceViewList
		m.selected = nil
		m.err = nil
		m.statusMsg = ""
		return m, nil
	case key.Matches(msg, DefaultKeyMap.Delete):
		m.mode = invoiceViewConfirmDelete
		return m, nil
	case key.Matches(msg, DefaultKeyMap.MarkDraft):
		status = domain.InvoiceStatusDraft
	case key.Matches(msg, DefaultKeyMap.MarkSent):
		status = domain.InvoiceStatusSent
	case key.Matches(msg, DefaultKeyMap.MarkPaid):
		status = domain.InvoiceStatusPaid
	default:
		return m, nil
	}

	if status == m.selected.Status {
		return m, nil
	}
	m.err = nil
	m.statusMsg = ""
	m.syncing = true
	return m, m.updateStatus(m.selected.ID, status)
}

func (m *InvoicesModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, DefaultKeyMap.Confirm) {
		m.loading = true
		return m, m.deleteInvoice(m.selected.ID)
	}
	m.mode = invoiceViewDetail
	return m, nil
}

func (m *InvoicesModel) View() string {
	if m.loading {
		return "Loading..."
	}

	switch m.mode {
	case invoiceViewDetail, invoiceViewConfirmDelete:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m *InvoicesModel) viewList() string {
	var s string

	title := "Invoices"
	if f := statusFilters[m.filter]; f != nil {
		title += " (" + string(*f) + ")"
	}
	s += titleStyle.Render(title) + "\n\n"

	if m.statusMsg != "" {
		s += successStyle.Render("  "+m.statusMsg) + "\n\n"
	}

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if len(m.invoices) == 0 && m.err == nil {
		s += subtitleStyle.Render("  No invoices yet. Select done cards on the board and press 'n'.")
		s += "\n\n" + helpStyle.Render("  f: filter  b: board")
		return s
	}

	rate := m.app.Config.Invoice.Rate()
	currency := m.app.Config.Invoice.Currency

	s += subtitleStyle.Render(fmt.Sprintf(
		"  %-17s  %-25s  %5s  %8s  %12s  %s",
		"Created", "Board", "Cards", "Time", "Amount", "Status",
	)) + "\n"

	for i, inv := range m.invoices {
		line := fmt.Sprintf("  %-17s  %s  %5d  %8s  %12s  ",
			inv.CreatedAt.Format("2006-01-02 15:04"),
			padRight(truncateStr(inv.BoardTitle, 25), 25),
			inv.TotalCards,
			domain.FormatTimeSpent(inv.TotalTimeSpent),
			formatMoney(domain.CalculateCost(inv.TotalTimeSpent, rate), currency),
		)

		if i == m.cursor {
			s += selectedStyle.Render(line+string(inv.Status)) + "\n"
		} else {
			s += line + statusBadge(inv.Status) + "\n"
		}
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: view detail  f: filter  r: refresh")

	return s
}

func (m *InvoicesModel) viewDetail() string {
	inv := m.selected
	if inv == nil {
		return "No invoice selected"
	}

	rate := m.app.Config.Invoice.Rate()
	currency := m.app.Config.Invoice.Currency

	var s string

	s += titleStyle.Render(fmt.Sprintf("Invoice - %s", inv.BoardTitle)) + "\n\n"
	s += fmt.Sprintf("  Space:    %s\n", inv.SpaceTitle)
	s += fmt.Sprintf("  Created:  %s\n", inv.CreatedAt.Format("Jan 02, 2006 15:04"))
	s += fmt.Sprintf("  Status:   %s\n", statusBadge(inv.Status))
	if inv.Notes != "" {
		s += fmt.Sprintf("  Notes:    %s\n", inv.Notes)
	}
	s += "\n"

	if len(inv.Cards) == 0 {
		s += subtitleStyle.Render("  No cards") + "\n"
	} else {
		s += subtitleStyle.Render(fmt.Sprintf(
			"  %-8s  %-36s  %7s  %7s  %7s  %12s",
			"Card", "Title", "Kaiten", "Manual", "Total", "Amount",
		)) + "\n"

		for _, item := range inv.Cards {
			s += fmt.Sprintf("  %-8d  %s  %7s  %7s  %7s  %12s\n",
				item.CardID,
				padRight(truncateStr(item.CardTitle, 36), 36),
				domain.FormatTimeSpent(item.APITimeSpent),
				domain.FormatTimeSpent(item.ManualTimeSpent),
				domain.FormatTimeSpent(item.TimeSpent),
				formatMoney(domain.CalculateCost(item.TimeSpent, rate), currency),
			)
			if len(item.Tags) > 0 {
				names := make([]string, len(item.Tags))
				for i, t := range item.Tags {
					names[i] = t.Name
				}
				s += subtitleStyle.Render("            "+strings.Join(names, ", ")) + "\n"
			}
		}
	}

	s += "\n"
	s += fmt.Sprintf("  Time:   %s\n", domain.FormatTimeSpent(inv.TotalTimeSpent))
	s += fmt.Sprintf("  Rate:   %s/h\n", formatMoney(rate, currency))
	s += lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("  Total:  %s", formatMoney(domain.InvoiceAmount(inv.Cards, rate), currency)),
	) + "\n"

	if m.statusMsg != "" {
		s += "\n" + successStyle.Render("  "+m.statusMsg) + "\n"
	}
	if m.err != nil {
		s += "\n" + m.viewError()
	}

	switch {
	case m.syncing:
		s += "\n" + warningStyle.Render("  Updating cards in Kaiten...")
	case m.mode == invoiceViewConfirmDelete:
		s += "\n" + warningStyle.Render("  Delete this invoice? Cards stay as they are in Kaiten. (y/n)")
	default:
		s += "\n" + helpStyle.Render("  d: draft  s: sent  P: paid (archives cards)  X: delete  esc: back")
	}

	return s
}

// viewError spells out which cards already changed when an archive sync stopped
func (m *InvoicesModel) viewError() string {
	var syncErr *service.ArchiveSyncError
	if !errors.As(m.err, &syncErr) {
		return errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	s := errorStyle.Render(fmt.Sprintf("  Status unchanged: card #%d could not be updated: %v", syncErr.CardID, syncErr.Err)) + "\n"
	if len(syncErr.Completed) > 0 {
		ids := make([]string, len(syncErr.Completed))
		for i, id := range syncErr.Completed {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		verb := "unarchived"
		if syncErr.Archived {
			verb = "archived"
		}
		s += warningStyle.Render(fmt.Sprintf("  Already %s in Kaiten: %s", verb, strings.Join(ids, ", "))) + "\n"
	}
	return s
}
