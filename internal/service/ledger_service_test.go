package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestLedgerService_AddEntryValidatesBeforeWrite(t *testing.T) {
	repo := newMockEntryRepo()
	svc := NewLedgerService(repo, nil, nil)

	_, err := svc.AddEntry(context.Background(), NewTimeEntryInput{CardID: 1, Hours: 0, Minutes: 0, Date: testDate})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatal("expected nothing written")
	}

	entry, err := svc.AddEntry(context.Background(), NewTimeEntryInput{CardID: 1, Hours: 1, Minutes: 15, Date: testDate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID == "" || len(repo.entries) != 1 {
		t.Fatal("expected entry stored")
	}
}

func TestLedgerService_MutationsInvalidateSummaries(t *testing.T) {
	repo := newMockEntryRepo()
	svc := NewLedgerService(repo, cache.New(time.Minute), nil)
	ctx := context.Background()

	svc.AddEntry(ctx, NewTimeEntryInput{CardID: 7, Hours: 1, Date: testDate})

	first, _ := svc.Summaries(ctx, []int64{7, 8})
	svc.Summaries(ctx, []int64{8, 7})
	if repo.summariesCalls != 1 {
		t.Fatalf("expected cached summaries for the same card set, got %d queries", repo.summariesCalls)
	}
	if first[7].TotalMinutesAll != 60 {
		t.Fatalf("expected 60 minutes, got %d", first[7].TotalMinutesAll)
	}

	entry, _ := svc.AddEntry(ctx, NewTimeEntryInput{CardID: 7, Minutes: 30, Date: testDate})
	second, _ := svc.Summaries(ctx, []int64{7, 8})
	if second[7].TotalMinutesAll != 90 {
		t.Fatalf("expected fresh summary after add, got %d", second[7].TotalMinutesAll)
	}

	minutes := 45
	if _, err := svc.UpdateEntry(ctx, entry.ID, domain.TimeEntryPatch{Minutes: &minutes}); err != nil {
		t.Fatalf("update: %v", err)
	}
	summary, _ := svc.Summary(ctx, 7)
	if summary.TotalMinutesAll != 105 {
		t.Fatalf("expected 105 after update, got %d", summary.TotalMinutesAll)
	}

	if err := svc.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	summary, _ = svc.Summary(ctx, 7)
	if summary.TotalMinutesAll != 60 {
		t.Fatalf("expected 60 after delete, got %d", summary.TotalMinutesAll)
	}
}

func TestLedgerService_UpdateRevalidates(t *testing.T) {
	repo := newMockEntryRepo()
	svc := NewLedgerService(repo, nil, nil)
	ctx := context.Background()

	entry, _ := svc.AddEntry(ctx, NewTimeEntryInput{CardID: 7, Hours: 1, Date: testDate})

	hours := 30
	_, err := svc.UpdateEntry(ctx, entry.ID, domain.TimeEntryPatch{Hours: &hours})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.entries[entry.ID].Hours != 1 {
		t.Fatal("expected stored entry unchanged")
	}
}

func TestLedgerService_NotFound(t *testing.T) {
	svc := NewLedgerService(newMockEntryRepo(), nil, nil)

	if err := svc.DeleteEntry(context.Background(), "nope"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	minutes := 5
	if _, err := svc.UpdateEntry(context.Background(), "nope", domain.TimeEntryPatch{Minutes: &minutes}); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestLedgerService_LedgerMinutesEmptyInput(t *testing.T) {
	repo := newMockEntryRepo()
	svc := NewLedgerService(repo, nil, nil)

	minutes, err := svc.LedgerMinutes(context.Background(), nil)
	if err != nil || len(minutes) != 0 {
		t.Fatalf("expected empty map, got %v %v", minutes, err)
	}
	if repo.summariesCalls != 0 {
		t.Fatal("expected no query for empty input")
	}
}

func TestLedgerService_ResetAllClearsCachedSummaries(t *testing.T) {
	repo := newMockEntryRepo()
	svc := NewLedgerService(repo, cache.New(time.Minute), nil)
	ctx := context.Background()

	svc.AddEntry(ctx, NewTimeEntryInput{CardID: 3, Hours: 2, Date: testDate})
	svc.AddEntry(ctx, NewTimeEntryInput{CardID: 4, Minutes: 20, Date: testDate})
	if got, _ := svc.Summaries(ctx, []int64{3, 4}); len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}

	n, err := svc.ResetAll(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	got, _ := svc.Summaries(ctx, []int64{3, 4})
	if len(got) != 0 {
		t.Fatalf("expected no summaries after reset, got %d", len(got))
	}
	if repo.summariesCalls != 2 {
		t.Fatalf("expected summaries re-queried after reset, got %d queries", repo.summariesCalls)
	}
}
