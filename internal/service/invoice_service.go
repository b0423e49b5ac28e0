package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/repository"
)

// InvoiceService builds invoices from board cards and keeps the cards'
// archive state in line with the invoice status
type InvoiceService interface {
	// CreateInvoice bills the cards into a new draft invoice. Only the header
	// is returned; GetInvoice loads the line items.
	CreateInvoice(ctx context.Context, data domain.CreateInvoiceData, cards []domain.Card) (*domain.Invoice, error)

	// GetInvoice retrieves an invoice with its billed cards
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)

	// ListInvoices lists headers newest first with an optional status filter
	ListInvoices(ctx context.Context, status *domain.InvoiceStatus) ([]*domain.Invoice, error)

	// UpdateStatus archives the invoice's cards for paid and unarchives them
	// otherwise, then writes the status. A failed sync leaves the status as
	// it was and returns *ArchiveSyncError.
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) (*domain.Invoice, error)

	DeleteInvoice(ctx context.Context, id string) error
	ResetAll(ctx context.Context) (int64, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	ledger      LedgerService
	archive     ArchiveSyncer
	cache       *cache.Cache
	logger      *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	ledger LedgerService,
	archive ArchiveSyncer,
	c *cache.Cache,
	logger *zap.Logger,
) InvoiceService {
	if c == nil {
		c = cache.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		ledger:      ledger,
		archive:     archive,
		cache:       c,
		logger:      logger,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, data domain.CreateInvoiceData, cards []domain.Card) (*domain.Invoice, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	seen := make(map[int64]struct{}, len(cards))
	for i := range cards {
		if !cards[i].Eligible() {
			return nil, fmt.Errorf("%w: card %d", ErrCardNotEligible, cards[i].ID)
		}
		if _, dup := seen[cards[i].ID]; dup {
			return nil, fmt.Errorf("%w: card %d", ErrDuplicateCard, cards[i].ID)
		}
		seen[cards[i].ID] = struct{}{}
	}

	invoice := domain.NewInvoice(data)
	if err := invoice.Validate(); err != nil {
		return nil, err
	}

	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	ledgerMinutes, err := s.ledger.LedgerMinutes(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*domain.InvoiceCard, 0, len(cards))
	for _, c := range cards {
		item := domain.NewInvoiceCard(c, ledgerMinutes[c.ID])
		invoice.TotalTimeSpent += item.TimeSpent
		items = append(items, item)
	}
	invoice.TotalCards = len(items)

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}
	s.cache.Invalidate("invoices")

	if err := s.invoiceRepo.AddCards(ctx, invoice.ID, items); err != nil {
		// The header stays; there is no compensating delete
		s.logger.Error("Invoice created without line items",
			zap.String("invoice_id", invoice.ID),
			zap.Int("cards", len(items)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invoice %s created but its cards were not saved: %w", invoice.ID, err)
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.Int64("board_id", invoice.BoardID),
		zap.Int("cards", invoice.TotalCards),
		zap.Int("minutes", invoice.TotalTimeSpent),
	)
	return invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("invoices", id), func(ctx context.Context) (*domain.Invoice, error) {
		var (
			invoice *domain.Invoice
			cards   []*domain.InvoiceCard
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			invoice, err = s.invoiceRepo.GetByID(gctx, id)
			return s.notFound(err, id)
		})
		g.Go(func() error {
			var err error
			cards, err = s.invoiceRepo.GetCards(gctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		invoice.Cards = cards
		return invoice, nil
	})
}

func (s *invoiceService) ListInvoices(ctx context.Context, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	filter := "all"
	if status != nil {
		filter = string(*status)
	}
	return cache.Fetch(ctx, s.cache, cache.Key("invoices", "list", filter), func(ctx context.Context) ([]*domain.Invoice, error) {
		return s.invoiceRepo.List(ctx, status)
	})
}

func (s *invoiceService) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) (*domain.Invoice, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if _, err := s.invoiceRepo.GetByID(ctx, id); err != nil {
		return nil, s.notFound(err, id)
	}

	cardIDs, err := s.invoiceRepo.CardIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.archive.Sync(ctx, cardIDs, status.ArchivesCards()); err != nil {
		s.logger.Warn("Invoice status not changed, card sync failed",
			zap.String("invoice_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, s.notFound(err, id)
	}
	s.cache.Invalidate("invoices")

	s.logger.Info("Invoice status updated",
		zap.String("invoice_id", id),
		zap.String("status", string(status)),
		zap.Int("cards", len(cardIDs)),
	)
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		return s.notFound(err, id)
	}
	s.cache.Invalidate("invoices")
	s.logger.Info("Invoice deleted", zap.String("invoice_id", id))
	return nil
}

func (s *invoiceService) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.invoiceRepo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate("invoices")
	return n, nil
}

// notFound maps the repository sentinel onto ErrInvoiceNotFound
func (s *invoiceService) notFound(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
	}
	return err
}
