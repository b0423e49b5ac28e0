package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/andy/kaitenbill/internal/db"
	"github.com/andy/kaitenbill/internal/domain"
)

// EntryRepo is a SQLite implementation of TimeEntryRepository
type EntryRepo struct {
	db *db.DB
}

// NewEntryRepo creates a new EntryRepo
func NewEntryRepo(database *db.DB) *EntryRepo {
	return &EntryRepo{db: database}
}

const entryColumns = `id, card_id, hours, minutes, description, date, created_at, updated_at`

// Create inserts a new time entry and assigns its ID
func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO time_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CardID,
		entry.Hours,
		entry.Minutes,
		nullString(entry.Description),
		entry.Date.Format(domain.DateLayout),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	return nil
}

// GetByID retrieves a time entry by ID
func (r *EntryRepo) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("time entry %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return entry, nil
}

// Update writes hours, minutes, description and date of an existing entry
func (r *EntryRepo) Update(ctx context.Context, entry *domain.TimeEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE time_entries
		SET hours = ?, minutes = ?, description = ?, date = ?, updated_at = ?
		WHERE id = ?
	`,
		entry.Hours,
		entry.Minutes,
		nullString(entry.Description),
		entry.Date.Format(domain.DateLayout),
		formatTime(entry.UpdatedAt),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("time entry %s: %w", entry.ID, ErrNotFound)
	}
	return nil
}

func (r *EntryRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("time entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListByCard returns the card's entries, newest date first
func (r *EntryRepo) ListByCard(ctx context.Context, cardID int64) ([]*domain.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE card_id = ? ORDER BY date DESC, created_at DESC`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}
	return entries, nil
}

const summaryColumns = `card_id, total_hours, total_minutes, total_minutes_all, entries_count, last_entry_date`

// Summary returns the aggregate for one card, or nil if it has no entries
func (r *EntryRepo) Summary(ctx context.Context, cardID int64) (*domain.TimeTrackingSummary, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM time_tracking_summary WHERE card_id = ?`, cardID)

	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get time tracking summary: %w", err)
	}
	return summary, nil
}

// Summaries returns one aggregate per card that has entries, in a single query
func (r *EntryRepo) Summaries(ctx context.Context, cardIDs []int64) ([]*domain.TimeTrackingSummary, error) {
	summaries := make([]*domain.TimeTrackingSummary, 0, len(cardIDs))
	if len(cardIDs) == 0 {
		return summaries, nil
	}

	marks, args := inClause(cardIDs)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM time_tracking_summary WHERE card_id IN (`+marks+`) ORDER BY card_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get time tracking summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time tracking summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return summaries, nil
}

// DeleteAll clears the ledger
func (r *EntryRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete time entries: %w", err)
	}
	return result.RowsAffected()
}

func scanEntry(row rowScanner) (*domain.TimeEntry, error) {
	entry := &domain.TimeEntry{}
	var description sql.NullString
	var date, createdAt, updatedAt string

	if err := row.Scan(
		&entry.ID,
		&entry.CardID,
		&entry.Hours,
		&entry.Minutes,
		&description,
		&date,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	entry.Description = description.String

	var err error
	if entry.Date, err = parseDate(date); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return entry, nil
}

func scanSummary(row rowScanner) (*domain.TimeTrackingSummary, error) {
	s := &domain.TimeTrackingSummary{}
	var last sql.NullString

	if err := row.Scan(
		&s.CardID,
		&s.TotalHours,
		&s.TotalMinutes,
		&s.TotalMinutesAll,
		&s.EntriesCount,
		&last,
	); err != nil {
		return nil, err
	}

	if last.Valid {
		t, err := parseDate(last.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_entry_date: %w", err)
		}
		s.LastEntryDate = &t
	}
	return s, nil
}
