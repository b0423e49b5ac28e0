package repository

import (
	"context"
	"errors"

	"github.com/andy/kaitenbill/internal/domain"
)

// ErrNotFound is wrapped by every lookup that matches no row
var ErrNotFound = errors.New("not found")

// InvoiceRepository manages invoice headers and their billed cards
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	AddCards(ctx context.Context, invoiceID string, cards []*domain.InvoiceCard) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	GetCards(ctx context.Context, invoiceID string) ([]*domain.InvoiceCard, error)
	CardIDs(ctx context.Context, invoiceID string) ([]int64, error)
	List(ctx context.Context, status *domain.InvoiceStatus) ([]*domain.Invoice, error) // newest first
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error
	Delete(ctx context.Context, id string) error // line items and header together
	DeleteAll(ctx context.Context) (int64, error)
}

// TimeEntryRepository manages the manual time ledger
type TimeEntryRepository interface {
	Create(ctx context.Context, entry *domain.TimeEntry) error
	GetByID(ctx context.Context, id string) (*domain.TimeEntry, error)
	Update(ctx context.Context, entry *domain.TimeEntry) error
	Delete(ctx context.Context, id string) error
	ListByCard(ctx context.Context, cardID int64) ([]*domain.TimeEntry, error) // newest date first
	Summary(ctx context.Context, cardID int64) (*domain.TimeTrackingSummary, error) // nil when the card has no entries
	Summaries(ctx context.Context, cardIDs []int64) ([]*domain.TimeTrackingSummary, error)
	DeleteAll(ctx context.Context) (int64, error)
}
