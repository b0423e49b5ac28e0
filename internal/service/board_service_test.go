package service

import (
	"context"
	"testing"
	"time"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
)

func TestBoardService_BoardViewJoinsLedger(t *testing.T) {
	client := &mockBoardClient{
		board: &domain.Board{ID: 10, Title: "Support"},
		cards: []domain.Card{doneCard(101, 60), {ID: 102, State: domain.CardStateQueued}},
	}
	entries := newMockEntryRepo()
	entries.Create(context.Background(), domain.NewTimeEntry(101, 0, 30, "", testDate))

	c := cache.New(time.Minute)
	svc := NewBoardService(client, NewLedgerService(entries, c, nil), c, nil)

	view, err := svc.BoardView(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Board.Title != "Support" || len(view.Rows) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}

	row := view.Rows[0]
	if row.APIMinutes != 60 || row.LedgerMinutes != 30 || row.TotalMinutes != 90 {
		t.Fatalf("unexpected minutes: %+v", row)
	}
	if view.Rows[1].Summary != nil || view.Rows[1].TotalMinutes != 0 {
		t.Fatalf("expected no ledger data for card 102, got %+v", view.Rows[1])
	}
	if len(view.Cards()) != 2 {
		t.Fatal("expected cards in board order")
	}
}

func TestBoardService_CachesAndRefreshes(t *testing.T) {
	client := &mockBoardClient{board: &domain.Board{ID: 10}}
	c := cache.New(time.Minute)
	svc := NewBoardService(client, NewLedgerService(newMockEntryRepo(), c, nil), c, nil)
	ctx := context.Background()

	svc.ListSpaces(ctx)
	svc.ListSpaces(ctx)
	svc.ListCards(ctx, 10)
	svc.ListCards(ctx, 10)
	if client.spaceCalls != 1 || client.cardCalls != 1 {
		t.Fatalf("expected cached reads, spaces=%d cards=%d", client.spaceCalls, client.cardCalls)
	}

	svc.Refresh()
	svc.ListSpaces(ctx)
	if client.spaceCalls != 2 {
		t.Fatalf("expected refetch after refresh, got %d", client.spaceCalls)
	}
}

func TestBoardService_ListBoardsWithoutSpace(t *testing.T) {
	svc := NewBoardService(&mockBoardClient{}, NewLedgerService(newMockEntryRepo(), nil, nil), nil, nil)

	boards, err := svc.ListBoards(context.Background(), 0)
	if err != nil || len(boards) != 0 {
		t.Fatalf("expected empty boards without a space, got %v %v", boards, err)
	}
}
