package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

// ParseInvoiceStatus validates a status string
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid invoice status %q (want draft, sent or paid)", s)
	}
	return status, nil
}

// Valid reports whether the status is one of draft, sent, paid
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	}
	return false
}

// ArchivesCards reports the archived flag the referenced cards must carry
// once the invoice is in this status
func (s InvoiceStatus) ArchivesCards() bool {
	return s == InvoiceStatusPaid
}

type Invoice struct {
	ID             string        `json:"id"`
	SpaceID        int64         `json:"space_id"`
	SpaceTitle     string        `json:"space_title"`
	BoardID        int64         `json:"board_id"`
	BoardTitle     string        `json:"board_title"`
	TotalTimeSpent int           `json:"total_time_spent"` // minutes, frozen at creation
	TotalCards     int           `json:"total_cards"`
	Status         InvoiceStatus `json:"status"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Populated by detail fetches only
	Cards []*InvoiceCard `json:"invoice_cards,omitempty"`
}

// InvoiceCard is a billed card snapshot
type InvoiceCard struct {
	ID              string     `json:"id"`
	InvoiceID       string     `json:"invoice_id"`
	CardID          int64      `json:"card_id"`
	CardTitle       string     `json:"card_title"`
	CardDescription string     `json:"card_description,omitempty"`
	TimeSpent       int        `json:"time_spent"`        // billed minutes
	APITimeSpent    int        `json:"api_time_spent"`    // Kaiten share
	ManualTimeSpent int        `json:"manual_time_spent"` // ledger share
	Tags            []Tag      `json:"tags"`
	CardCreatedAt   *time.Time `json:"created_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at_record"`
}

// CreateInvoiceData identifies the space and board being billed
type CreateInvoiceData struct {
	SpaceID    int64  `json:"space_id"`
	SpaceTitle string `json:"space_title"`
	BoardID    int64  `json:"board_id"`
	BoardTitle string `json:"board_title"`
	Notes      string `json:"notes,omitempty"`
}

// NewInvoice creates a draft invoice header from the billing target
func NewInvoice(data CreateInvoiceData) *Invoice {
	now := time.Now()
	return &Invoice{
		SpaceID:    data.SpaceID,
		SpaceTitle: data.SpaceTitle,
		BoardID:    data.BoardID,
		BoardTitle: data.BoardTitle,
		Notes:      strings.TrimSpace(data.Notes),
		Status:     InvoiceStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewInvoiceCard snapshots a card with its billed minutes
func NewInvoiceCard(card Card, ledgerMinutes int) *InvoiceCard {
	item := &InvoiceCard{
		CardID:          card.ID,
		CardTitle:       card.Title,
		CardDescription: card.Description,
		APITimeSpent:    card.TimeSpentSum,
		ManualTimeSpent: ledgerMinutes,
		TimeSpent:       card.TimeSpentSum + ledgerMinutes,
		Tags:            card.Tags,
		CreatedAt:       time.Now(),
	}
	if item.Tags == nil {
		item.Tags = []Tag{}
	}
	if !card.Created.IsZero() {
		created := card.Created
		item.CardCreatedAt = &created
	}
	return item
}

// CardIDs returns the Kaiten ids of the loaded line items
func (i *Invoice) CardIDs() []int64 {
	ids := make([]int64, 0, len(i.Cards))
	for _, c := range i.Cards {
		ids = append(ids, c.CardID)
	}
	return ids
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if i.SpaceID <= 0 {
		return errors.New("space ID is required")
	}
	if i.BoardID <= 0 {
		return errors.New("board ID is required")
	}
	if !i.Status.Valid() {
		return fmt.Errorf("invalid status %q", i.Status)
	}
	if i.TotalTimeSpent < 0 {
		return errors.New("total time spent cannot be negative")
	}
	if i.TotalCards < 0 {
		return errors.New("total cards cannot be negative")
	}
	return nil
}
