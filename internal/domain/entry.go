package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for time entry dates
const DateLayout = "2006-01-02"

// TimeEntry is a manually logged chunk of work against a Kaiten card
type TimeEntry struct {
	ID          string    `json:"id"`
	CardID      int64     `json:"card_id"`
	Hours       int       `json:"hours"`
	Minutes     int       `json:"minutes"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTimeEntry creates a new entry for the card
func NewTimeEntry(cardID int64, hours, minutes int, description string, date time.Time) *TimeEntry {
	now := time.Now()
	return &TimeEntry{
		CardID:      cardID,
		Hours:       hours,
		Minutes:     minutes,
		Description: strings.TrimSpace(description),
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TotalMinutes returns hours*60 + minutes
func (e *TimeEntry) TotalMinutes() int {
	return e.Hours*60 + e.Minutes
}

// Validate checks the entry the same way the time entry form does
func (e *TimeEntry) Validate() error {
	verr := &ValidationError{}

	if e.CardID <= 0 {
		verr.Add("card_id", "Card ID is required.")
	}
	if e.Hours < 0 || e.Hours > 23 {
		verr.Add("hours", "Hours must be between 0 and 23.")
	}
	if e.Minutes < 0 || e.Minutes > 59 {
		verr.Add("minutes", "Minutes must be between 0 and 59.")
	}
	if e.Hours == 0 && e.Minutes == 0 {
		verr.Add("time", "Please enter at least some time (hours or minutes).")
	}
	if e.Date.IsZero() {
		verr.Add("date", "Please select a date.")
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// TimeEntryPatch carries the fields to change on an existing entry
type TimeEntryPatch struct {
	Hours       *int       `json:"hours,omitempty"`
	Minutes     *int       `json:"minutes,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// Apply copies the set fields onto the entry
func (p TimeEntryPatch) Apply(e *TimeEntry) {
	if p.Hours != nil {
		e.Hours = *p.Hours
	}
	if p.Minutes != nil {
		e.Minutes = *p.Minutes
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	e.UpdatedAt = time.Now()
}

// TimeTrackingSummary aggregates the ledger for one card
type TimeTrackingSummary struct {
	CardID          int64      `json:"card_id"`
	TotalHours      int        `json:"total_hours"`
	TotalMinutes    int        `json:"total_minutes"`
	TotalMinutesAll int        `json:"total_minutes_all"`
	EntriesCount    int        `json:"entries_count"`
	LastEntryDate   *time.Time `json:"last_entry_date,omitempty"`
}

// ValidationError collects per-field problems so a form can show all of them
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

// Add records a problem for a field
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	v.Fields[field] = msg
}

// Empty reports whether no problems were recorded
func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return "invalid time entry: " + strings.Join(parts, "; ")
}
