package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/repository"
)

// NewTimeEntryInput is what the time entry form submits
type NewTimeEntryInput struct {
	CardID      int64     `json:"card_id"`
	Hours       int       `json:"hours"`
	Minutes     int       `json:"minutes"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// LedgerService manages manual time entries and their per-card summaries
type LedgerService interface {
	AddEntry(ctx context.Context, input NewTimeEntryInput) (*domain.TimeEntry, error)
	UpdateEntry(ctx context.Context, id string, patch domain.TimeEntryPatch) (*domain.TimeEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	GetEntry(ctx context.Context, id string) (*domain.TimeEntry, error)

	// ListEntries returns the card's entries, newest date first
	ListEntries(ctx context.Context, cardID int64) ([]*domain.TimeEntry, error)

	// Summary returns nil when the card has no entries
	Summary(ctx context.Context, cardID int64) (*domain.TimeTrackingSummary, error)

	// Summaries looks up every card in one query, keyed by card id
	Summaries(ctx context.Context, cardIDs []int64) (map[int64]*domain.TimeTrackingSummary, error)

	// LedgerMinutes returns total ledger minutes per card; cards without
	// entries are absent
	LedgerMinutes(ctx context.Context, cardIDs []int64) (map[int64]int, error)

	ResetAll(ctx context.Context) (int64, error)
}

type ledgerService struct {
	entryRepo repository.TimeEntryRepository
	cache     *cache.Cache
	logger    *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(entryRepo repository.TimeEntryRepository, c *cache.Cache, logger *zap.Logger) LedgerService {
	if c == nil {
		c = cache.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ledgerService{entryRepo: entryRepo, cache: c, logger: logger}
}

func (s *ledgerService) AddEntry(ctx context.Context, input NewTimeEntryInput) (*domain.TimeEntry, error) {
	entry := domain.NewTimeEntry(input.CardID, input.Hours, input.Minutes, input.Description, input.Date)
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.invalidateCard(entry.CardID)
	s.logger.Info("Time entry added", zap.String("entry_id", entry.ID), zap.Int64("card_id", entry.CardID), zap.Int("minutes", entry.TotalMinutes()))
	return entry, nil
}

func (s *ledgerService) UpdateEntry(ctx context.Context, id string, patch domain.TimeEntryPatch) (*domain.TimeEntry, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(entry)
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.entryRepo.Update(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return nil, err
	}

	s.invalidateCard(entry.CardID)
	return entry, nil
}

func (s *ledgerService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.entryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return err
	}

	// The card id is gone with the row, so drop every time key
	s.invalidateAll()
	return nil
}

func (s *ledgerService) GetEntry(ctx context.Context, id string) (*domain.TimeEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) ListEntries(ctx context.Context, cardID int64) ([]*domain.TimeEntry, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("timeEntries", cardID), func(ctx context.Context) ([]*domain.TimeEntry, error) {
		return s.entryRepo.ListByCard(ctx, cardID)
	})
}

func (s *ledgerService) Summary(ctx context.Context, cardID int64) (*domain.TimeTrackingSummary, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("timeTrackingSummary", cardID), func(ctx context.Context) (*domain.TimeTrackingSummary, error) {
		return s.entryRepo.Summary(ctx, cardID)
	})
}

func (s *ledgerService) Summaries(ctx context.Context, cardIDs []int64) (map[int64]*domain.TimeTrackingSummary, error) {
	if len(cardIDs) == 0 {
		return map[int64]*domain.TimeTrackingSummary{}, nil
	}

	ids := slices.Clone(cardIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	key := cache.Key("timeTrackingSummaries", joinIDs(ids))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (map[int64]*domain.TimeTrackingSummary, error) {
		rows, err := s.entryRepo.Summaries(ctx, ids)
		if err != nil {
			return nil, err
		}
		out := make(map[int64]*domain.TimeTrackingSummary, len(rows))
		for _, r := range rows {
			out[r.CardID] = r
		}
		return out, nil
	})
}

func (s *ledgerService) LedgerMinutes(ctx context.Context, cardIDs []int64) (map[int64]int, error) {
	summaries, err := s.Summaries(ctx, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger minutes: %w", err)
	}

	minutes := make(map[int64]int, len(summaries))
	for id, summary := range summaries {
		minutes[id] = summary.TotalMinutesAll
	}
	return minutes, nil
}

func (s *ledgerService) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.entryRepo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.invalidateAll()
	return n, nil
}

func (s *ledgerService) invalidateCard(cardID int64) {
	s.cache.Invalidate("timeEntries", cardID)
	s.cache.Invalidate("timeTrackingSummary", cardID)
	s.cache.Invalidate("timeTrackingSummaries")
}

func (s *ledgerService) invalidateAll() {
	s.cache.Invalidate("timeEntries")
	s.cache.Invalidate("timeTrackingSummary")
	s.cache.Invalidate("timeTrackingSummaries")
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
