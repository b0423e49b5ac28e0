package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/repository"
)

// mock implementations
type mockInvoiceRepo struct {
	invoices      map[string]*domain.Invoice
	cards         map[string][]*domain.InvoiceCard
	addCardsErr   error
	statusUpdates []domain.InvoiceStatus
	listCalls     int
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[string]*domain.Invoice),
		cards:    make(map[string][]*domain.InvoiceCard),
	}
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = fmt.Sprintf("inv-%d", len(m.invoices)+1)
	}
	stored := *invoice
	m.invoices[invoice.ID] = &stored
	return nil
}
func (m *mockInvoiceRepo) AddCards(ctx context.Context, invoiceID string, cards []*domain.InvoiceCard) error {
	if m.addCardsErr != nil {
		return m.addCardsErr
	}
	m.cards[invoiceID] = append(m.cards[invoiceID], cards...)
	return nil
}
func (m *mockInvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if inv, ok := m.invoices[id]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
}
func (m *mockInvoiceRepo) GetCards(ctx context.Context, invoiceID string) ([]*domain.InvoiceCard, error) {
	out := make([]*domain.InvoiceCard, len(m.cards[invoiceID]))
	copy(out, m.cards[invoiceID])
	return out, nil
}
func (m *mockInvoiceRepo) CardIDs(ctx context.Context, invoiceID string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, c := range m.cards[invoiceID] {
		ids = append(ids, c.CardID)
	}
	return ids, nil
}
func (m *mockInvoiceRepo) List(ctx context.Context, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	m.listCalls++
	out := make([]*domain.Invoice, 0)
	for _, inv := range m.invoices {
		if status == nil || inv.Status == *status {
			out = append(out, inv)
		}
	}
	return out, nil
}
func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
	}
	inv.Status = status
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}
func (m *mockInvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.invoices[id]; !ok {
		return fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
	}
	delete(m.invoices, id)
	delete(m.cards, id)
	return nil
}
func (m *mockInvoiceRepo) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(m.invoices))
	m.invoices = make(map[string]*domain.Invoice)
	m.cards = make(map[string][]*domain.InvoiceCard)
	return n, nil
}

type mockEntryRepo struct {
	entries        map[string]*domain.TimeEntry
	summaryCalls   int
	summariesCalls int
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{entries: make(map[string]*domain.TimeEntry)}
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	}
	stored := *entry
	m.entries[entry.ID] = &stored
	return nil
}
func (m *mockEntryRepo) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	if e, ok := m.entries[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, fmt.Errorf("time entry %s: %w", id, repository.ErrNotFound)
}
func (m *mockEntryRepo) Update(ctx context.Context, entry *domain.TimeEntry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return fmt.Errorf("time entry %s: %w", entry.ID, repository.ErrNotFound)
	}
	stored := *entry
	m.entries[entry.ID] = &stored
	return nil
}
func (m *mockEntryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("time entry %s: %w", id, repository.ErrNotFound)
	}
	delete(m.entries, id)
	return nil
}
func (m *mockEntryRepo) ListByCard(ctx context.Context, cardID int64) ([]*domain.TimeEntry, error) {
	out := make([]*domain.TimeEntry, 0)
	for _, e := range m.entries {
		if e.CardID == cardID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (m *mockEntryRepo) summarize(cardID int64) *domain.TimeTrackingSummary {
	var s *domain.TimeTrackingSummary
	for _, e := range m.entries {
		if e.CardID != cardID {
			continue
		}
		if s == nil {
			s = &domain.TimeTrackingSummary{CardID: cardID}
		}
		s.TotalMinutesAll += e.TotalMinutes()
		s.EntriesCount++
	}
	if s != nil {
		s.TotalHours, s.TotalMinutes = domain.SplitMinutes(s.TotalMinutesAll)
	}
	return s
}
func (m *mockEntryRepo) Summary(ctx context.Context, cardID int64) (*domain.TimeTrackingSummary, error) {
	m.summaryCalls++
	return m.summarize(cardID), nil
}
func (m *mockEntryRepo) Summaries(ctx context.Context, cardIDs []int64) ([]*domain.TimeTrackingSummary, error) {
	m.summariesCalls++
	out := make([]*domain.TimeTrackingSummary, 0)
	for _, id := range cardIDs {
		if s := m.summarize(id); s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}
func (m *mockEntryRepo) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(m.entries))
	m.entries = make(map[string]*domain.TimeEntry)
	return n, nil
}

type patchCall struct {
	cardID    int64
	condition domain.CardCondition
	at        time.Time
	ctxErr    error
}

// mockArchiver records PATCH calls and fails according to errs, which maps a
// card id to the errors returned by successive calls for it
type mockArchiver struct {
	mu    sync.Mutex
	calls []patchCall
	errs  map[int64][]error
}

func (m *mockArchiver) SetCondition(ctx context.Context, cardID int64, condition domain.CardCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, patchCall{cardID: cardID, condition: condition, at: time.Now(), ctxErr: ctx.Err()})
	if queue := m.errs[cardID]; len(queue) > 0 {
		err := queue[0]
		m.errs[cardID] = queue[1:]
		return err
	}
	return nil
}

func (m *mockArchiver) cardIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, len(m.calls))
	for i, c := range m.calls {
		ids[i] = c.cardID
	}
	return ids
}

type mockBoardClient struct {
	board      *domain.Board
	cards      []domain.Card
	spaceCalls int
	cardCalls  int
}

func (m *mockBoardClient) Spaces(ctx context.Context) ([]domain.Space, error) {
	m.spaceCalls++
	return []domain.Space{{ID: 1, Title: "Clients"}}, nil
}
func (m *mockBoardClient) Boards(ctx context.Context, spaceID int64) ([]domain.Board, error) {
	return []domain.Board{*m.board}, nil
}
func (m *mockBoardClient) Board(ctx context.Context, boardID int64) (*domain.Board, error) {
	return m.board, nil
}
func (m *mockBoardClient) Cards(ctx context.Context, boardID int64) ([]domain.Card, error) {
	m.cardCalls++
	return m.cards, nil
}
func (m *mockBoardClient) Card(ctx context.Context, cardID int64) (*domain.Card, error) {
	for i := range m.cards {
		if m.cards[i].ID == cardID {
			return &m.cards[i], nil
		}
	}
	return nil, fmt.Errorf("card %d not found", cardID)
}
