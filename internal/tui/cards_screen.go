package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/kaitenbill/internal/app"
	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/service"
)

type cardsMode int

const (
	cardsModeTable cardsMode = iota
	cardsModePickSpace
	cardsModePickBoard
	cardsModeEntries   // ledger entries of one card
	cardsModeEntryForm // time entry modal
	cardsModeConfirmDeleteEntry
	cardsModeConfirmInvoice // notes input before creating the invoice
)

// CardsModel shows the selected board's live cards and builds invoices from them
type CardsModel struct {
	app       *app.App
	mode      cardsMode
	loading   bool
	err       error
	statusMsg string

	view       *service.BoardView
	cursor     int
	offset     int
	maxVisible int
	selection  *domain.Selection

	// Space and board picker
	spaces     []domain.Space
	boards     []domain.Board
	pickCursor int

	// Card entries
	entryCard   domain.Card
	entries     []*domain.TimeEntry
	entryCursor int

	form       *entryForm
	formReturn cardsMode // where the form goes back to

	notesInput textinput.Model
}

type boardViewMsg struct {
	view *service.BoardView
	err  error
}

type spacesMsg struct {
	spaces []domain.Space
	err    error
}

type boardsMsg struct {
	boards []domain.Board
	err    error
}

type cardEntriesMsg struct {
	cardID  int64
	entries []*domain.TimeEntry
	err     error
}

type entrySavedMsg struct {
	entry *domain.TimeEntry
	err   error
}

type entryDeletedMsg struct {
	err error
}

type invoiceCreatedMsg struct {
	invoice *domain.Invoice
	err     error
}

// NewCardsModel creates the cards screen model
func NewCardsModel(a *app.App) tea.Model {
	return &CardsModel{
		app:        a,
		mode:       cardsModeTable,
		loading:    true,
		maxVisible: 15,
		selection:  domain.NewSelection(),
	}
}

// IsCapturingInput returns true when a text input has the keyboard
func (m *CardsModel) IsCapturingInput() bool {
	return m.mode == cardsModeEntryForm || m.mode == cardsModeConfirmInvoice
}

func (m *CardsModel) Init() tea.Cmd {
	sel := m.app.Config.Selection
	switch {
	case sel.SpaceID == 0:
		m.mode = cardsModePickSpace
		return m.loadSpaces()
	case sel.BoardID == 0:
		m.mode = cardsModePickBoard
		return m.loadBoards(sel.SpaceID)
	default:
		return m.loadBoardView()
	}
}

func (m *CardsModel) loadBoardView() tea.Cmd {
	boardID := m.app.Config.Selection.BoardID
	return func() tea.Msg {
		view, err := m.app.Boards.BoardView(context.Background(), boardID)
		return boardViewMsg{view: view, err: err}
	}
}

func (m *CardsModel) loadSpaces() tea.Cmd {
	return func() tea.Msg {
		spaces, err := m.app.Boards.ListSpaces(context.Background())
		return spacesMsg{spaces: spaces, err: err}
	}
}

func (m *CardsModel) loadBoards(spaceID int64) tea.Cmd {
	return func() tea.Msg {
		boards, err := m.app.Boards.ListBoards(context.Background(), spaceID)
		return boardsMsg{boards: boards, err: err}
	}
}

func (m *CardsModel) loadEntries(cardID int64) tea.Cmd {
	return func() tea.Msg {
		entries, err := m.app.Ledger.ListEntries(context.Background(), cardID)
		return cardEntriesMsg{cardID: cardID, entries: entries, err: err}
	}
}

func (m *CardsModel) saveEntry() tea.Cmd {
	form := m.form
	return func() tea.Msg {
		ctx := context.Background()
		if form.editing() {
			entry, err := m.app.Ledger.UpdateEntry(ctx, form.entryID, form.patch())
			return entrySavedMsg{entry: entry, err: err}
		}
		input, verr := form.parse()
		if verr != nil {
			return entrySavedMsg{err: verr}
		}
		entry, err := m.app.Ledger.AddEntry(ctx, input)
		return entrySavedMsg{entry: entry, err: err}
	}
}

func (m *CardsModel) deleteEntry(id string) tea.Cmd {
	return func() tea.Msg {
		return entryDeletedMsg{err: m.app.Ledger.DeleteEntry(context.Background(), id)}
	}
}

func (m *CardsModel) createInvoice() tea.Cmd {
	view := m.view
	cards := m.selection.Pick(view.Cards())
	notes := m.notesInput.Value()
	spaceID := m.app.Config.Selection.SpaceID

	return func() tea.Msg {
		ctx := context.Background()

		spaceTitle := fmt.Sprintf("Space #%d", spaceID)
		if spaces, err := m.app.Boards.ListSpaces(ctx); err == nil {
			for _, s := range spaces {
				if s.ID == spaceID {
					spaceTitle = s.Title
				}
			}
		}

		invoice, err := m.app.Invoices.CreateInvoice(ctx, domain.CreateInvoiceData{
			SpaceID:    spaceID,
			SpaceTitle: spaceTitle,
			BoardID:    view.Board.ID,
			BoardTitle: view.Board.Title,
			Notes:      notes,
		}, cards)
		return invoiceCreatedMsg{invoice: invoice, err: err}
	}
}

// openForm shows the time entry modal, returning to mode when it closes
func (m *CardsModel) openForm(form *entryForm, from cardsMode) tea.Cmd {
	m.form = form
	m.formReturn = from
	m.mode = cardsModeEntryForm
	return form.focusCmd()
}

func (m *CardsModel) currentCard() (domain.Card, bool) {
	if m.view == nil || len(m.view.Rows) == 0 {
		return domain.Card{}, false
	}
	return m.view.Rows[m.cursor].Card, true
}

// pruneSelection drops cards that left the board or stopped being eligible
func (m *CardsModel) pruneSelection() {
	cards := m.view.Cards()
	kept := m.selection.Pick(cards)
	m.selection.Clear()
	for _, c := range kept {
		m.selection.Toggle(c)
	}
}

func (m *CardsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		if m.app.Config.Selection.BoardID == 0 {
			return m, nil
		}
		m.loading = true
		return m, m.loadBoardView()

	case boardViewMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.view = msg.view
			m.cursor = clampCursor(m.cursor, len(m.view.Rows))
			m.pruneSelection()
		}
		return m, nil

	case spacesMsg:
		m.loading = false
		m.err = msg.err
		m.spaces = msg.spaces
		m.pickCursor = 0
		for i, s := range m.spaces {
			if s.ID == m.app.Config.Selection.SpaceID {
				m.pickCursor = i
			}
		}
		return m, nil

	case boardsMsg:
		m.loading = false
		m.err = msg.err
		m.boards = msg.boards
		m.pickCursor = 0
		for i, b := range m.boards {
			if b.ID == m.app.Config.Selection.BoardID {
				m.pickCursor = i
			}
		}
		return m, nil

	case cardEntriesMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil && msg.cardID == m.entryCard.ID {
			m.entries = msg.entries
			m.entryCursor = clampCursor(m.entryCursor, len(m.entries))
		}
		return m, nil

	case entrySavedMsg:
		if msg.err != nil {
			if m.form == nil {
				m.err = msg.err
				return m, nil
			}
			var verr *domain.ValidationError
			if errors.As(msg.err, &verr) {
				m.form.errs = verr.Fields
			} else {
				m.form.err = msg.err
			}
			return m, nil
		}
		if m.form == nil {
			// closed while saving
			return m, m.loadBoardView()
		}
		m.mode = m.formReturn
		m.form = nil
		m.statusMsg = fmt.Sprintf("Logged %s on #%d", domain.FormatHM(msg.entry.Hours, msg.entry.Minutes), msg.entry.CardID)
		cmds := []tea.Cmd{m.loadBoardView()}
		if m.mode == cardsModeEntries {
			cmds = append(cmds, m.loadEntries(m.entryCard.ID))
		}
		return m, tea.Batch(cmds...)

	case entryDeletedMsg:
		m.mode = cardsModeEntries
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = "Entry deleted"
		return m, tea.Batch(m.loadEntries(m.entryCard.ID), m.loadBoardView())

	case invoiceCreatedMsg:
		m.loading = false
		m.mode = cardsModeTable
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selection.Clear()
		inv := msg.invoice
		notice := fmt.Sprintf("Draft invoice created: %d card(s), %s", inv.TotalCards, domain.FormatTimeSpent(inv.TotalTimeSpent))
		return m, func() tea.Msg { return OpenInvoiceMsg{ID: inv.ID, Notice: notice} }
	}

	switch m.mode {
	case cardsModeEntryForm:
		return m.updateForm(msg)
	case cardsModeConfirmInvoice:
		return m.updateConfirmInvoice(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}

	switch m.mode {
	case cardsModePickSpace:
		return m.updatePickSpace(keyMsg)
	case cardsModePickBoard:
		return m.updatePickBoard(keyMsg)
	case cardsModeEntries:
		return m.updateEntries(keyMsg)
	case cardsModeConfirmDeleteEntry:
		return m.updateConfirmDeleteEntry(keyMsg)
	default:
		return m.updateTable(keyMsg)
	}
}

func (m *CardsModel) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""
	m.err = nil

	rows := 0
	if m.view != nil {
		rows = len(m.view.Rows)
	}

	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.cursor < rows-1 {
			m.cursor++
			if m.cursor >= m.offset+m.maxVisible {
				m.offset = m.cursor - m.maxVisible + 1
			}
		}
	case key.Matches(msg, DefaultKeyMap.Toggle):
		if card, ok := m.currentCard(); ok {
			if !m.selection.Toggle(card) {
				m.statusMsg = "Only done cards that are not archived can be invoiced"
			}
		}
	case key.Matches(msg, DefaultKeyMap.ToggleAll):
		if m.view != nil {
			m.selection.ToggleAll(m.view.Cards())
		}
	case key.Matches(msg, DefaultKeyMap.AddTime):
		if card, ok := m.currentCard(); ok {
			return m, m.openForm(newEntryForm(card, time.Now()), cardsModeTable)
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if card, ok := m.currentCard(); ok {
			m.entryCard = card
			m.entries = nil
			m.entryCursor = 0
			m.mode = cardsModeEntries
			m.loading = true
			return m, m.loadEntries(card.ID)
		}
	case key.Matches(msg, DefaultKeyMap.New):
		if m.selection.Len() == 0 {
			m.statusMsg = "Select done cards with space first"
			return m, nil
		}
		m.notesInput = textinput.New()
		m.notesInput.Placeholder = "Notes (optional)"
		m.notesInput.CharLimit = 500
		m.notesInput.Width = 60
		m.mode = cardsModeConfirmInvoice
		return m, m.notesInput.Focus()
	case key.Matches(msg, DefaultKeyMap.Pick):
		m.mode = cardsModePickSpace
		m.loading = true
		return m, m.loadSpaces()
	case key.Matches(msg, DefaultKeyMap.Refresh):
		m.app.Boards.Refresh()
		m.loading = true
		return m, m.loadBoardView()
	}

	return m, nil
}

func (m *CardsModel) updatePickSpace(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		if m.app.Config.Selection.BoardID != 0 {
			m.mode = cardsModeTable
			m.err = nil
		}
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.pickCursor > 0 {
			m.pickCursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.pickCursor < len(m.spaces)-1 {
			m.pickCursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if len(m.spaces) == 0 {
			return m, nil
		}
		space := m.spaces[m.pickCursor]
		m.app.Config.SelectSpace(space.ID)
		if err := m.app.SaveConfig(); err != nil {
			m.err = err
		}
		m.mode = cardsModePickBoard
		m.boards = nil
		m.loading = true
		return m, m.loadBoards(space.ID)
	}
	return m, nil
}

func (m *CardsModel) updatePickBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = cardsModePickSpace
		m.loading = true
		return m, m.loadSpaces()
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.pickCursor > 0 {
			m.pickCursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.pickCursor < len(m.boards)-1 {
			m.pickCursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if len(m.boards) == 0 {
			return m, nil
		}
		board := m.boards[m.pickCursor]
		if board.ID != m.app.Config.Selection.BoardID {
			m.selection.Clear()
			m.cursor, m.offset = 0, 0
		}
		m.app.Config.SelectBoard(board.ID)
		if err := m.app.SaveConfig(); err != nil {
			m.err = err
		}
		m.mode = cardsModeTable
		m.loading = true
		return m, m.loadBoardView()
	}
	return m, nil
}

func (m *CardsModel) updateEntries(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""

	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = cardsModeTable
		m.entries = nil
		m.err = nil
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.entryCursor > 0 {
			m.entryCursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.entryCursor < len(m.entries)-1 {
			m.entryCursor++
		}
	case key.Matches(msg, DefaultKeyMap.New), key.Matches(msg, DefaultKeyMap.AddTime):
		return m, m.openForm(newEntryForm(m.entryCard, time.Now()), cardsModeEntries)
	case key.Matches(msg, DefaultKeyMap.Edit), key.Matches(msg, DefaultKeyMap.Select):
		if len(m.entries) > 0 {
			return m, m.openForm(editEntryForm(m.entryCard, m.entries[m.entryCursor]), cardsModeEntries)
		}
	case key.Matches(msg, DefaultKeyMap.Delete):
		if len(m.entries) > 0 {
			m.mode = cardsModeConfirmDeleteEntry
		}
	}
	return m, nil
}

func (m *CardsModel) updateConfirmDeleteEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, DefaultKeyMap.Confirm) {
		return m, m.deleteEntry(m.entries[m.entryCursor].ID)
	}
	m.mode = cardsModeEntries
	return m, nil
}

func (m *CardsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.mode = m.formReturn
		m.form = nil
		return m, nil
	}

	submit, cmd := m.form.Update(msg)
	if submit {
		m.form.err = nil
		return m, m.saveEntry()
	}
	return m, cmd
}

func (m *CardsModel) updateConfirmInvoice(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.mode = cardsModeTable
			return m, nil
		case "enter":
			m.loading = true
			return m, m.createInvoice()
		}
	}

	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

func (m *CardsModel) View() string {
	if m.loading {
		return "Loading..."
	}

	switch m.mode {
	case cardsModePickSpace:
		return m.viewPicker("Select Space", spaceTitles(m.spaces), "esc: back")
	case cardsModePickBoard:
		return m.viewPicker("Select Board", boardTitles(m.boards), "esc: spaces")
	case cardsModeEntries, cardsModeConfirmDeleteEntry:
		return m.viewEntries()
	case cardsModeEntryForm:
		return m.form.View()
	case cardsModeConfirmInvoice:
		return m.viewConfirmInvoice()
	default:
		return m.viewTable()
	}
}

func (m *CardsModel) viewTable() string {
	var s string

	if m.view == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" +
				helpStyle.Render("  r: retry  p: pick board")
		}
		return subtitleStyle.Render("No board selected. Press 'p' to pick one.")
	}

	s += titleStyle.Render(m.view.Board.Title) + "\n"

	if m.statusMsg != "" {
		s += warningStyle.Render("  "+m.statusMsg) + "\n"
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	rows := m.view.Rows
	if len(rows) == 0 {
		s += "\n" + subtitleStyle.Render("  No live cards on this board.")
		s += "\n\n" + helpStyle.Render("  p: pick board  r: refresh")
		return s
	}

	var total, selectedMinutes int
	for _, r := range rows {
		total += r.TotalMinutes
		if m.selection.Has(r.Card.ID) {
			selectedMinutes += r.TotalMinutes
		}
	}
	rate := m.app.Config.Invoice.Rate()
	s += subtitleStyle.Render(fmt.Sprintf(
		"  %d cards  |  %s logged  |  %d selected, %s = %s",
		len(rows), domain.FormatTimeSpent(total),
		m.selection.Len(), domain.FormatTimeSpent(selectedMinutes),
		formatMoney(domain.CalculateCost(selectedMinutes, rate), m.app.Config.Invoice.Currency),
	)) + "\n\n"

	s += subtitleStyle.Render(fmt.Sprintf(
		"      %-8s  %-40s  %-11s  %7s  %7s  %7s",
		"ID", "Title", "State", "Kaiten", "Manual", "Total",
	)) + "\n"

	end := m.offset + m.maxVisible
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		s += m.renderRow(rows[i], i == m.cursor) + "\n"
	}

	if m.offset > 0 {
		s += subtitleStyle.Render("  ... more above") + "\n"
	}
	if end < len(rows) {
		s += subtitleStyle.Render("  ... more below") + "\n"
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  space: select  a: all  t: log time  enter: entries  n: invoice  p: board  r: refresh")
	return s
}

func (m *CardsModel) renderRow(row service.CardRow, selected bool) string {
	check := "[ ]"
	if m.selection.Has(row.Card.ID) {
		check = checkedStyle.Render("[x]")
	} else if !row.Card.Eligible() {
		check = "   "
	}

	line := fmt.Sprintf("%-8d  %s  %-11s  %7s  %7s  %7s",
		row.Card.ID,
		padRight(truncateStr(row.Card.Title, 40), 40),
		row.Card.State,
		domain.FormatTimeSpent(row.APIMinutes),
		domain.FormatTimeSpent(row.LedgerMinutes),
		domain.FormatTimeSpent(row.TotalMinutes),
	)

	switch {
	case selected:
		return "  " + check + " " + selectedStyle.Render(line)
	case row.Card.Eligible():
		return "  " + check + " " + eligibleStyle.Render(line)
	default:
		return "  " + check + " " + lipgloss.NewStyle().Foreground(mutedColor).Render(line)
	}
}

func (m *CardsModel) viewPicker(title string, items []string, back string) string {
	var s string
	s += titleStyle.Render(title) + "\n\n"

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if len(items) == 0 {
		s += subtitleStyle.Render("  Nothing to pick from") + "\n"
	}

	for i, item := range items {
		indicator := "  "
		if i == m.pickCursor {
			indicator = "> "
			s += lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(indicator+item) + "\n"
		} else {
			s += indicator + item + "\n"
		}
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: select  "+back)
	return s
}

func (m *CardsModel) viewEntries() string {
	var s string
	s += titleStyle.Render(fmt.Sprintf("Time Entries - #%d %s", m.entryCard.ID, truncateStr(m.entryCard.Title, 40))) + "\n"

	if m.statusMsg != "" {
		s += successStyle.Render("  "+m.statusMsg) + "\n"
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	if len(m.entries) == 0 {
		s += "\n" + subtitleStyle.Render("  No time entries yet. Press 'n' to add one.")
		s += "\n\n" + helpStyle.Render("  n: new entry  esc: back")
		return s
	}

	var total int
	for _, e := range m.entries {
		total += e.TotalMinutes()
	}
	s += subtitleStyle.Render(fmt.Sprintf("  %d entries  |  %s total", len(m.entries), domain.FormatTimeSpent(total))) + "\n\n"

	s += subtitleStyle.Render(fmt.Sprintf("  %-10s  %7s  %s", "Date", "Time", "Description")) + "\n"
	for i, e := range m.entries {
		line := fmt.Sprintf("%-10s  %7s  %s",
			e.Date.Format(domain.DateLayout),
			domain.FormatHM(e.Hours, e.Minutes),
			truncateStr(e.Description, 50),
		)
		if i == m.entryCursor {
			s += "  " + selectedStyle.Render(line) + "\n"
		} else {
			s += "  " + timeStyle.Render(line) + "\n"
		}
	}

	if m.mode == cardsModeConfirmDeleteEntry {
		s += "\n" + warningStyle.Render("  Delete this entry? (y/n)")
		return s
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  n: new  e/enter: edit  X: delete  esc: back")
	return s
}

func (m *CardsModel) viewConfirmInvoice() string {
	cards := m.selection.Pick(m.view.Cards())
	rows := make(map[int64]service.CardRow, len(m.view.Rows))
	for _, r := range m.view.Rows {
		rows[r.Card.ID] = r
	}

	var s string
	s += titleStyle.Render("New Invoice - "+m.view.Board.Title) + "\n\n"

	var total int
	for _, c := range cards {
		r := rows[c.ID]
		total += r.TotalMinutes
		s += fmt.Sprintf("  %-8d  %s  %7s\n", c.ID, padRight(truncateStr(c.Title, 45), 45), domain.FormatTimeSpent(r.TotalMinutes))
	}

	amount := domain.CalculateCost(total, m.app.Config.Invoice.Rate())
	s += "\n" + lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf(
		"  %d card(s)  %s  %s", len(cards), domain.FormatTimeSpent(total), formatMoney(amount, m.app.Config.Invoice.Currency),
	)) + "\n\n"

	s += "  " + m.notesInput.View() + "\n\n"
	s += helpStyle.Render("  enter: create draft  esc: cancel")
	return s
}

func spaceTitles(spaces []domain.Space) []string {
	out := make([]string, len(spaces))
	for i, s := range spaces {
		out[i] = s.Title
	}
	return out
}

func boardTitles(boards []domain.Board) []string {
	out := make([]string, len(boards))
	for i, b := range boards {
		out[i] = b.Title
	}
	return out
}
