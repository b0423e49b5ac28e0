package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/service"
)

const (
	formFieldHours = iota
	formFieldMinutes
	formFieldDate
	formFieldDescription
	formFieldCount
)

var formLabels = [formFieldCount]string{"Hours:", "Minutes:", "Date:", "Description:"}

// field errors are keyed like domain.ValidationError so both land on the same line
var formErrorKeys = [formFieldCount][]string{
	{"hours", "time"},
	{"minutes"},
	{"date"},
	{"description"},
}

// entryForm is the modal for logging or editing time against one card
type entryForm struct {
	card    domain.Card
	entryID string // set when editing

	fields []textinput.Model
	focus  int
	errs   map[string]string
	err    error // save failure
}

func newEntryForm(card domain.Card, now time.Time) *entryForm {
	f := &entryForm{card: card}
	f.initFields()
	f.fields[formFieldDate].SetValue(now.Format(domain.DateLayout))
	return f
}

func editEntryForm(card domain.Card, entry *domain.TimeEntry) *entryForm {
	f := &entryForm{card: card, entryID: entry.ID}
	f.initFields()
	f.fields[formFieldHours].SetValue(strconv.Itoa(entry.Hours))
	f.fields[formFieldMinutes].SetValue(strconv.Itoa(entry.Minutes))
	f.fields[formFieldDate].SetValue(entry.Date.Format(domain.DateLayout))
	f.fields[formFieldDescription].SetValue(entry.Description)
	return f
}

func (f *entryForm) initFields() {
	f.fields = make([]textinput.Model, formFieldCount)

	f.fields[formFieldHours] = textinput.New()
	f.fields[formFieldHours].Placeholder = "0"
	f.fields[formFieldHours].CharLimit = 2
	f.fields[formFieldHours].Width = 5

	f.fields[formFieldMinutes] = textinput.New()
	f.fields[formFieldMinutes].Placeholder = "0"
	f.fields[formFieldMinutes].CharLimit = 2
	f.fields[formFieldMinutes].Width = 5

	f.fields[formFieldDate] = textinput.New()
	f.fields[formFieldDate].Placeholder = domain.DateLayout
	f.fields[formFieldDate].CharLimit = 10
	f.fields[formFieldDate].Width = 12

	f.fields[formFieldDescription] = textinput.New()
	f.fields[formFieldDescription].Placeholder = "What was done?"
	f.fields[formFieldDescription].CharLimit = 500
	f.fields[formFieldDescription].Width = 50

	f.focus = formFieldHours
	f.fields[formFieldHours].Focus()
}

func (f *entryForm) editing() bool {
	return f.entryID != ""
}

// focusCmd focuses the current field and returns its blink command
func (f *entryForm) focusCmd() tea.Cmd {
	return f.fields[f.focus].Focus()
}

func (f *entryForm) setFocus(i int) tea.Cmd {
	f.fields[f.focus].Blur()
	f.focus = (i + formFieldCount) % formFieldCount
	return f.fields[f.focus].Focus()
}

// Update handles navigation keys and forwards the rest to the focused field.
// It returns true when the operator asked to save and the form is valid.
func (f *entryForm) Update(msg tea.Msg) (bool, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			return false, f.setFocus(f.focus + 1)
		case "shift+tab", "up":
			return false, f.setFocus(f.focus - 1)
		case "ctrl+s":
			return f.validate(), nil
		case "enter":
			if f.focus < formFieldCount-1 {
				return false, f.setFocus(f.focus + 1)
			}
			return f.validate(), nil
		}
	}

	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return false, cmd
}

// parse reads the fields. Blank hours or minutes count as zero.
func (f *entryForm) parse() (service.NewTimeEntryInput, *domain.ValidationError) {
	verr := &domain.ValidationError{}
	input := service.NewTimeEntryInput{
		CardID:      f.card.ID,
		Description: strings.TrimSpace(f.fields[formFieldDescription].Value()),
	}

	var err error
	if input.Hours, err = parseFormInt(f.fields[formFieldHours].Value()); err != nil {
		verr.Add("hours", "Hours must be a whole number.")
	}
	if input.Minutes, err = parseFormInt(f.fields[formFieldMinutes].Value()); err != nil {
		verr.Add("minutes", "Minutes must be a whole number.")
	}

	if raw := strings.TrimSpace(f.fields[formFieldDate].Value()); raw != "" {
		date, err := time.ParseInLocation(domain.DateLayout, raw, time.Local)
		if err != nil {
			verr.Add("date", "Use the YYYY-MM-DD format.")
		} else {
			input.Date = date
		}
	}

	if verr.Empty() {
		entry := domain.NewTimeEntry(input.CardID, input.Hours, input.Minutes, input.Description, input.Date)
		if err := entry.Validate(); err != nil {
			verr = err.(*domain.ValidationError)
		}
	}

	if verr.Empty() {
		return input, nil
	}
	return input, verr
}

func (f *entryForm) validate() bool {
	_, verr := f.parse()
	if verr == nil {
		f.errs = nil
		return true
	}
	f.errs = verr.Fields
	return false
}

// patch converts the form into an update for the entry being edited
func (f *entryForm) patch() domain.TimeEntryPatch {
	input, _ := f.parse()
	return domain.TimeEntryPatch{
		Hours:       &input.Hours,
		Minutes:     &input.Minutes,
		Description: &input.Description,
		Date:        &input.Date,
	}
}

func parseFormInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func (f *entryForm) View() string {
	var s string

	title := "Log Time"
	if f.editing() {
		title = "Edit Time Entry"
	}
	s += titleStyle.Render(title) + "\n"
	s += subtitleStyle.Render(fmt.Sprintf("#%d %s", f.card.ID, truncateStr(f.card.Title, 50))) + "\n\n"

	shown := make(map[string]bool)
	for i, label := range formLabels {
		indicator := "  "
		labelStyle := subtitleStyle
		if i == f.focus {
			indicator = "> "
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
		}
		s += fmt.Sprintf("%s%s\n  %s\n", indicator, labelStyle.Render(label), f.fields[i].View())

		for _, k := range formErrorKeys[i] {
			if msg, ok := f.errs[k]; ok {
				s += errorStyle.Render("  "+msg) + "\n"
				shown[k] = true
			}
		}
		s += "\n"
	}

	// anything not tied to a field, e.g. a missing card id
	var rest []string
	for k, msg := range f.errs {
		if !shown[k] {
			rest = append(rest, msg)
		}
	}
	sort.Strings(rest)
	for _, msg := range rest {
		s += errorStyle.Render("  "+msg) + "\n"
	}

	if f.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", f.err)) + "\n\n"
	}

	s += helpStyle.Render("  tab/shift+tab: fields  enter: next/save  ctrl+s: save  esc: cancel")

	return boxStyle.Render(s)
}
