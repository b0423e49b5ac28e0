package service

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/kaiten"
)

func rateLimited() error {
	return &kaiten.APIError{Method: http.MethodPatch, StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"}
}

func TestArchiveSync_SequentialWithDelay(t *testing.T) {
	archiver := &mockArchiver{}
	s := NewArchiveSync(archiver, nil, ArchiveSyncOptions{Delay: DefaultSyncDelay, RateLimitBackoff: DefaultRateLimitBackoff}, nil)
	defer s.Close()

	if err := s.Sync(context.Background(), []int64{101, 102, 103}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := archiver.cardIDs(); !slices.Equal(got, []int64{101, 102, 103}) {
		t.Fatalf("expected PATCH order [101 102 103], got %v", got)
	}
	for i, c := range archiver.calls {
		if c.condition != domain.CardConditionArchived {
			t.Fatalf("call %d: expected archived condition, got %d", i, c.condition)
		}
		if i > 0 {
			if gap := c.at.Sub(archiver.calls[i-1].at); gap < DefaultSyncDelay {
				t.Fatalf("expected at least %s between calls, got %s", DefaultSyncDelay, gap)
			}
		}
	}
}

func TestArchiveSync_RetriesOnceOnRateLimit(t *testing.T) {
	archiver := &mockArchiver{errs: map[int64][]error{102: {rateLimited()}}}
	s := NewArchiveSync(archiver, nil, ArchiveSyncOptions{Delay: 10 * time.Millisecond, RateLimitBackoff: 50 * time.Millisecond}, nil)
	defer s.Close()

	if err := s.Sync(context.Background(), []int64{101, 102, 103}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := archiver.cardIDs(); !slices.Equal(got, []int64{101, 102, 102, 103}) {
		t.Fatalf("expected one retry of 102, got %v", got)
	}
	if gap := archiver.calls[2].at.Sub(archiver.calls[1].at); gap < 50*time.Millisecond {
		t.Fatalf("expected backoff before retry, got %s", gap)
	}
	if archiver.calls[0].condition != domain.CardConditionLive {
		t.Fatal("expected unarchive to patch condition 1")
	}
}

func TestArchiveSync_SecondRateLimitPropagates(t *testing.T) {
	archiver := &mockArchiver{errs: map[int64][]error{101: {rateLimited(), rateLimited()}}}
	s := NewArchiveSync(archiver, nil, ArchiveSyncOptions{Delay: 0, RateLimitBackoff: 10 * time.Millisecond}, nil)
	defer s.Close()

	err := s.Sync(context.Background(), []int64{101, 102}, true)
	if !kaiten.IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if got := archiver.cardIDs(); !slices.Equal(got, []int64{101, 101}) {
		t.Fatalf("expected exactly two attempts on 101 and nothing after, got %v", got)
	}
}

func TestArchiveSync_RetryLoggedOnlyWhenRetrying(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	archiver := &mockArchiver{errs: map[int64][]error{101: {rateLimited(), rateLimited()}}}
	s := NewArchiveSync(archiver, nil, ArchiveSyncOptions{RateLimitBackoff: time.Millisecond}, zap.New(core))
	defer s.Close()

	s.Sync(context.Background(), []int64{101}, true)

	if n := logs.FilterMessageSnippet("retrying").Len(); n != 1 {
		t.Fatalf("expected one retry logged for two attempts, got %d", n)
	}
}

func TestArchiveSync_RunsToCompletionWhenCallerCancels(t *testing.T) {
	archiver := &mockArchiver{}
	s := NewArchiveSync(archiver, nil, ArchiveSyncOptions{Delay: 100 * time.Millisecond, RateLimitBackoff: time.Millisecond}, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	defer cancel()

	if err := s.Sync(ctx, []int64{101, 102, 103}, true); err != nil {
		t.Fatalf("expected the run to finish, got %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected the caller context to be cancelled mid-run")
	}
	if got := archiver.cardIDs(); !slices.Equal(got, []int64{101, 102, 103}) {
		t.Fatalf("expected every card patched, got %v", got)
	}
	for _, c := range archiver.calls {
		if c.ctxErr != nil {
			t.Fatalf("card %d patched with a cancelled context: %v", c.cardID, c.ctxErr)
		}
	}
}

func TestArchiveSync_OtherErrorAborts(t *testing.T) {
	boom := errors.New("connection reset")
	archiver := &mockArchiver{errs: map[int64][]error{102: {boom}}}
	c := cache.New(time.Minute)
	cache.Fetch(context.Background(), c, cache.Key("cards", 70), func(context.Context) (int, error) { return 1, nil })

	s := NewArchiveSync(archiver, c, ArchiveSyncOptions{Delay: 10 * time.Millisecond, RateLimitBackoff: 10 * time.Millisecond}, nil)
	defer s.Close()

	err := s.Sync(context.Background(), []int64{101, 102, 103}, true)

	var syncErr *ArchiveSyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected ArchiveSyncError, got %v", err)
	}
	if syncErr.CardID != 102 || !slices.Equal(syncErr.Completed, []int64{101}) || !syncErr.Archived {
		t.Fatalf("unexpected sync error: %+v", syncErr)
	}
	if !errors.Is(err, boom) {
		t.Fatal("expected the cause to unwrap")
	}
	if got := archiver.cardIDs(); !slices.Equal(got, []int64{101, 102}) {
		t.Fatalf("expected 103 never attempted, got %v", got)
	}
	if c.Len() != 0 {
		t.Fatal("expected cached cards dropped after a run that changed cards")
	}
}

func TestArchiveSync_EmptyAndClosed(t *testing.T) {
	archiver := &mockArchiver{}
	s := NewArchiveSync(archiver, nil, ArchiveSyncOptions{}, nil)

	if err := s.Sync(context.Background(), nil, true); err != nil {
		t.Fatalf("expected no-op for no cards, got %v", err)
	}

	s.Close()
	s.Close()
	if err := s.Sync(context.Background(), []int64{1}, true); !errors.Is(err, ErrSyncClosed) {
		t.Fatalf("expected ErrSyncClosed, got %v", err)
	}
	if len(archiver.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(archiver.calls))
	}
}
