package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andy/kaitenbill/internal/db"
	"github.com/andy/kaitenbill/internal/domain"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db *db.DB
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(database *db.DB) *InvoiceRepo {
	return &InvoiceRepo{db: database}
}

const invoiceColumns = `
	id, space_id, space_title, board_id, board_title,
	total_time_spent, total_cards, status, notes, created_at, updated_at
`

// Create inserts a new invoice header and assigns its ID
func (r *InvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}

	query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.SpaceID,
		invoice.SpaceTitle,
		invoice.BoardID,
		invoice.BoardTitle,
		invoice.TotalTimeSpent,
		invoice.TotalCards,
		string(invoice.Status),
		nullString(invoice.Notes),
		formatTime(invoice.CreatedAt),
		formatTime(invoice.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// AddCards inserts the billed card snapshots in one statement
func (r *InvoiceRepo) AddCards(ctx context.Context, invoiceID string, cards []*domain.InvoiceCard) error {
	if len(cards) == 0 {
		return nil
	}

	query := `
		INSERT INTO invoice_cards (
			id, invoice_id, card_id, card_title, card_description,
			time_spent, api_time_spent, manual_time_spent, tags, card_created_at, created_at
		)
		VALUES `
	args := make([]any, 0, len(cards)*11)

	for i, c := range cards {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.InvoiceID = invoiceID

		tags := c.Tags
		if tags == nil {
			tags = []domain.Tag{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("failed to encode tags for card %d: %w", c.CardID, err)
		}

		var cardCreated any
		if c.CardCreatedAt != nil {
			cardCreated = formatTime(*c.CardCreatedAt)
		}

		if i > 0 {
			query += ", "
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			c.ID,
			invoiceID,
			c.CardID,
			c.CardTitle,
			nullString(c.CardDescription),
			c.TimeSpent,
			c.APITimeSpent,
			c.ManualTimeSpent,
			string(tagsJSON),
			cardCreated,
			formatTime(c.CreatedAt),
		)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to add invoice cards: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice header by ID
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	invoice, err := scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// GetCards returns the invoice's billed cards in insertion order
func (r *InvoiceRepo) GetCards(ctx context.Context, invoiceID string) ([]*domain.InvoiceCard, error) {
	query := `
		SELECT id, invoice_id, card_id, card_title, card_description,
		       time_spent, api_time_spent, manual_time_spent, tags, card_created_at, created_at
		FROM invoice_cards
		WHERE invoice_id = ?
		ORDER BY rowid
	`

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*domain.InvoiceCard, 0)
	for rows.Next() {
		c := &domain.InvoiceCard{}
		var description, cardCreated sql.NullString
		var tags, createdAt string

		if err := rows.Scan(
			&c.ID,
			&c.InvoiceID,
			&c.CardID,
			&c.CardTitle,
			&description,
			&c.TimeSpent,
			&c.APITimeSpent,
			&c.ManualTimeSpent,
			&tags,
			&cardCreated,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice card: %w", err)
		}

		c.CardDescription = description.String
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for card %d: %w", c.CardID, err)
		}
		if cardCreated.Valid {
			t, err := parseTime(cardCreated.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse card_created_at: %w", err)
			}
			c.CardCreatedAt = &t
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice cards: %w", err)
	}
	return cards, nil
}

// CardIDs returns the Kaiten ids billed on the invoice
func (r *InvoiceRepo) CardIDs(ctx context.Context, invoiceID string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT card_id FROM invoice_cards WHERE invoice_id = ? ORDER BY rowid`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice card ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card ids: %w", err)
	}
	return ids, nil
}

// List retrieves invoice headers, newest first, with an optional status filter
func (r *InvoiceRepo) List(ctx context.Context, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := make([]any, 0)

	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// UpdateStatus writes the status and bumps updated_at
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the invoice and its cards in one transaction
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_cards WHERE invoice_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete invoice cards: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("invoice %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// DeleteAll removes every invoice and returns how many headers were deleted
func (r *InvoiceRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_cards`); err != nil {
			return fmt.Errorf("failed to delete invoice cards: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM invoices`)
		if err != nil {
			return fmt.Errorf("failed to delete invoices: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	var status, createdAt, updatedAt string
	var notes sql.NullString

	if err := row.Scan(
		&invoice.ID,
		&invoice.SpaceID,
		&invoice.SpaceTitle,
		&invoice.BoardID,
		&invoice.BoardTitle,
		&invoice.TotalTimeSpent,
		&invoice.TotalCards,
		&status,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	invoice.Status = domain.InvoiceStatus(status)
	invoice.Notes = notes.String

	var err error
	if invoice.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if invoice.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return invoice, nil
}
