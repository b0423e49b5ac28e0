package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
)

type invoiceFixture struct {
	invoices *mockInvoiceRepo
	entries  *mockEntryRepo
	archiver *mockArchiver
	sync     *ArchiveSync
	svc      InvoiceService
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	f := &invoiceFixture{
		invoices: newMockInvoiceRepo(),
		entries:  newMockEntryRepo(),
		archiver: &mockArchiver{errs: map[int64][]error{}},
	}
	c := cache.New(time.Minute)
	ledger := NewLedgerService(f.entries, c, nil)
	f.sync = NewArchiveSync(f.archiver, c, ArchiveSyncOptions{Delay: time.Millisecond, RateLimitBackoff: time.Millisecond}, nil)
	t.Cleanup(f.sync.Close)
	f.svc = NewInvoiceService(f.invoices, ledger, f.sync, c, nil)
	return f
}

var billing = domain.CreateInvoiceData{SpaceID: 1, SpaceTitle: "Clients", BoardID: 10, BoardTitle: "Support"}

func doneCard(id int64, minutes int) domain.Card {
	return domain.Card{ID: id, Title: "card", State: domain.CardStateDone, TimeSpentSum: minutes}
}

func TestCreateInvoice_SumsAPIAndLedgerMinutes(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	f.entries.Create(ctx, domain.NewTimeEntry(101, 0, 30, "", testDate))
	f.entries.Create(ctx, domain.NewTimeEntry(101, 1, 0, "", testDate))

	cards := []domain.Card{doneCard(101, 60), doneCard(102, 45), doneCard(103, 0)}
	inv, err := f.svc.CreateInvoice(ctx, billing, cards)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.TotalTimeSpent != 60+90+45 {
		t.Fatalf("expected 195 minutes, got %d", inv.TotalTimeSpent)
	}
	if inv.TotalCards != 3 {
		t.Fatalf("expected 3 cards, got %d", inv.TotalCards)
	}
	if inv.Status != domain.InvoiceStatusDraft {
		t.Fatalf("expected draft, got %s", inv.Status)
	}
	if inv.Cards != nil {
		t.Fatal("expected header only")
	}

	items := f.invoices.cards[inv.ID]
	if len(items) != 3 || items[0].APITimeSpent != 60 || items[0].ManualTimeSpent != 90 || items[0].TimeSpent != 150 {
		t.Fatalf("unexpected first line item: %+v", items[0])
	}
	if f.entries.summariesCalls != 1 {
		t.Fatalf("expected a single batched ledger lookup, got %d", f.entries.summariesCalls)
	}
}

func TestCreateInvoice_RejectsBeforeWriting(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateInvoice(ctx, billing, nil); !errors.Is(err, ErrNoCards) {
		t.Fatalf("expected ErrNoCards, got %v", err)
	}

	inProgress := domain.Card{ID: 5, State: domain.CardStateInProgress}
	if _, err := f.svc.CreateInvoice(ctx, billing, []domain.Card{doneCard(1, 10), inProgress}); !errors.Is(err, ErrCardNotEligible) {
		t.Fatalf("expected ErrCardNotEligible, got %v", err)
	}

	archived := doneCard(6, 10)
	archived.Archived = true
	if _, err := f.svc.CreateInvoice(ctx, billing, []domain.Card{archived}); !errors.Is(err, ErrCardNotEligible) {
		t.Fatalf("expected ErrCardNotEligible for archived card, got %v", err)
	}

	if len(f.invoices.invoices) != 0 {
		t.Fatal("expected no invoice written")
	}
}

func TestCreateInvoice_RejectsRepeatedCard(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.svc.CreateInvoice(context.Background(), billing, []domain.Card{doneCard(5, 60), doneCard(7, 10), doneCard(5, 60)})
	if !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("expected ErrDuplicateCard, got %v", err)
	}
	if len(f.invoices.invoices) != 0 || len(f.invoices.cards) != 0 {
		t.Fatal("expected nothing written")
	}
}

func TestCreateInvoice_LineItemFailureKeepsHeader(t *testing.T) {
	f := newInvoiceFixture(t)
	f.invoices.addCardsErr = errors.New("disk full")

	_, err := f.svc.CreateInvoice(context.Background(), billing, []domain.Card{doneCard(1, 10)})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.invoices.invoices) != 1 {
		t.Fatalf("expected the header to remain, got %d invoices", len(f.invoices.invoices))
	}
}

func TestUpdateStatus_PaidArchivesAndSentUnarchives(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, billing, []domain.Card{doneCard(201, 10), doneCard(202, 20)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.UpdateStatus(ctx, inv.ID, domain.InvoiceStatusPaid)
	if err != nil {
		t.Fatalf("paid: %v", err)
	}
	if updated.Status != domain.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", updated.Status)
	}
	if got := f.archiver.cardIDs(); !slices.Equal(got, []int64{201, 202}) {
		t.Fatalf("expected both cards patched, got %v", got)
	}
	for _, c := range f.archiver.calls {
		if c.condition != domain.CardConditionArchived {
			t.Fatalf("expected archive, got condition %d", c.condition)
		}
	}

	f.archiver.calls = nil
	if _, err := f.svc.UpdateStatus(ctx, inv.ID, domain.InvoiceStatusSent); err != nil {
		t.Fatalf("sent: %v", err)
	}
	if len(f.archiver.calls) != 2 {
		t.Fatalf("expected both cards unarchived, got %d calls", len(f.archiver.calls))
	}
	for _, c := range f.archiver.calls {
		if c.condition != domain.CardConditionLive {
			t.Fatalf("expected unarchive, got condition %d", c.condition)
		}
	}
}

func TestUpdateStatus_SyncFailureKeepsStatus(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	inv, _ := f.svc.CreateInvoice(ctx, billing, []domain.Card{doneCard(201, 10), doneCard(202, 20)})
	f.archiver.errs[202] = []error{errors.New("forbidden")}

	_, err := f.svc.UpdateStatus(ctx, inv.ID, domain.InvoiceStatusPaid)
	var syncErr *ArchiveSyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected ArchiveSyncError, got %v", err)
	}
	if !slices.Equal(syncErr.Completed, []int64{201}) {
		t.Fatalf("expected 201 reported as already archived, got %v", syncErr.Completed)
	}
	if len(f.invoices.statusUpdates) != 0 {
		t.Fatal("expected status not written")
	}

	got, _ := f.svc.GetInvoice(ctx, inv.ID)
	if got.Status != domain.InvoiceStatusDraft {
		t.Fatalf("expected draft, got %s", got.Status)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newInvoiceFixture(t)

	if _, err := f.svc.UpdateStatus(context.Background(), "x", "void"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), "missing", domain.InvoiceStatusPaid); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestGetInvoice_JoinsCardsAndDeleteRemovesIt(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	inv, _ := f.svc.CreateInvoice(ctx, billing, []domain.Card{doneCard(1, 10), doneCard(2, 20)})

	got, err := f.svc.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Cards) != 2 || !slices.Equal(got.CardIDs(), []int64{1, 2}) {
		t.Fatalf("expected 2 joined cards, got %d", len(got.Cards))
	}

	if err := f.svc.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetInvoice(ctx, inv.ID); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound after delete, got %v", err)
	}
	if err := f.svc.DeleteInvoice(ctx, inv.ID); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound deleting twice, got %v", err)
	}
}

func TestListInvoices_CachedUntilMutation(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	f.svc.ListInvoices(ctx, nil)
	f.svc.ListInvoices(ctx, nil)
	if f.invoices.listCalls != 1 {
		t.Fatalf("expected cached list, got %d queries", f.invoices.listCalls)
	}

	f.svc.CreateInvoice(ctx, billing, []domain.Card{doneCard(1, 10)})
	list, _ := f.svc.ListInvoices(ctx, nil)
	if f.invoices.listCalls != 2 || len(list) != 1 {
		t.Fatalf("expected refetch after create, calls=%d len=%d", f.invoices.listCalls, len(list))
	}
}
