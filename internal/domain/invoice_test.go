package domain

import (
	"testing"
	"time"
)

func TestParseInvoiceStatus(t *testing.T) {
	for _, s := range []string{"draft", "Sent", " paid "} {
		if _, err := ParseInvoiceStatus(s); err != nil {
			t.Fatalf("ParseInvoiceStatus(%q): %v", s, err)
		}
	}
	if _, err := ParseInvoiceStatus("void"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestInvoiceStatus_ArchivesCards(t *testing.T) {
	if !InvoiceStatusPaid.ArchivesCards() {
		t.Fatal("expected paid to archive")
	}
	if InvoiceStatusDraft.ArchivesCards() || InvoiceStatusSent.ArchivesCards() {
		t.Fatal("expected draft and sent to keep cards live")
	}
}

func TestNewInvoice_AlwaysDraft(t *testing.T) {
	inv := NewInvoice(CreateInvoiceData{SpaceID: 1, BoardID: 2, Notes: "  march "})
	if inv.Status != InvoiceStatusDraft {
		t.Fatalf("expected draft, got %s", inv.Status)
	}
	if inv.Notes != "march" {
		t.Fatalf("expected trimmed notes, got %q", inv.Notes)
	}
	if err := inv.Validate(); err != nil {
		t.Fatalf("expected valid invoice, got %v", err)
	}
}

func TestInvoice_Validate(t *testing.T) {
	inv := NewInvoice(CreateInvoiceData{BoardID: 2})
	if err := inv.Validate(); err == nil {
		t.Fatal("expected error for missing space")
	}

	inv = NewInvoice(CreateInvoiceData{SpaceID: 1, BoardID: 2})
	inv.Status = "void"
	if err := inv.Validate(); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestNewInvoiceCard_AddsLedgerMinutes(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	card := Card{ID: 101, Title: "Fix login", TimeSpentSum: 60, Created: created}

	item := NewInvoiceCard(card, 30)
	if item.TimeSpent != 90 || item.APITimeSpent != 60 || item.ManualTimeSpent != 30 {
		t.Fatalf("unexpected minutes: total=%d api=%d manual=%d", item.TimeSpent, item.APITimeSpent, item.ManualTimeSpent)
	}
	if item.Tags == nil {
		t.Fatal("expected empty tag slice, got nil")
	}
	if item.CardCreatedAt == nil || !item.CardCreatedAt.Equal(created) {
		t.Fatal("expected card creation time to be copied")
	}
}

func TestInvoice_CardIDs(t *testing.T) {
	inv := &Invoice{Cards: []*InvoiceCard{{CardID: 201}, {CardID: 202}}}
	ids := inv.CardIDs()
	if len(ids) != 2 || ids[0] != 201 || ids[1] != 202 {
		t.Fatalf("expected [201 202], got %v", ids)
	}
}
