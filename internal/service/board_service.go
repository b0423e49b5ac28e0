package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
)

// BoardClient is the read side of the Kaiten API
type BoardClient interface {
	Spaces(ctx context.Context) ([]domain.Space, error)
	Boards(ctx context.Context, spaceID int64) ([]domain.Board, error)
	Board(ctx context.Context, boardID int64) (*domain.Board, error)
	Cards(ctx context.Context, boardID int64) ([]domain.Card, error)
	Card(ctx context.Context, cardID int64) (*domain.Card, error)
}

// CardRow is a card joined with its manual time
type CardRow struct {
	Card          domain.Card                 `json:"card"`
	APIMinutes    int                         `json:"api_minutes"`
	LedgerMinutes int                         `json:"ledger_minutes"`
	TotalMinutes  int                         `json:"total_minutes"`
	Summary       *domain.TimeTrackingSummary `json:"summary,omitempty"`
}

// BoardView is everything the card table shows for one board
type BoardView struct {
	Board *domain.Board `json:"board"`
	Rows  []CardRow     `json:"rows"`
}

// Cards returns the cards in board order
func (v *BoardView) Cards() []domain.Card {
	cards := make([]domain.Card, len(v.Rows))
	for i, r := range v.Rows {
		cards[i] = r.Card
	}
	return cards
}

// BoardService reads spaces, boards and cards through the query cache
type BoardService interface {
	ListSpaces(ctx context.Context) ([]domain.Space, error)
	ListBoards(ctx context.Context, spaceID int64) ([]domain.Board, error)
	GetBoard(ctx context.Context, boardID int64) (*domain.Board, error)
	ListCards(ctx context.Context, boardID int64) ([]domain.Card, error)
	GetCard(ctx context.Context, cardID int64) (*domain.Card, error)
	BoardView(ctx context.Context, boardID int64) (*BoardView, error)

	// Refresh drops every cached Kaiten read
	Refresh()
}

type boardService struct {
	client BoardClient
	ledger LedgerService
	cache  *cache.Cache
	logger *zap.Logger
}

// NewBoardService creates a new board service
func NewBoardService(client BoardClient, ledger LedgerService, c *cache.Cache, logger *zap.Logger) BoardService {
	if c == nil {
		c = cache.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &boardService{client: client, ledger: ledger, cache: c, logger: logger}
}

func (s *boardService) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	return cache.Fetch(ctx, s.cache, "spaces", s.client.Spaces)
}

func (s *boardService) ListBoards(ctx context.Context, spaceID int64) ([]domain.Board, error) {
	if spaceID <= 0 {
		return []domain.Board{}, nil
	}
	return cache.Fetch(ctx, s.cache, cache.Key("boards", spaceID), func(ctx context.Context) ([]domain.Board, error) {
		return s.client.Boards(ctx, spaceID)
	})
}

func (s *boardService) GetBoard(ctx context.Context, boardID int64) (*domain.Board, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("board", boardID), func(ctx context.Context) (*domain.Board, error) {
		return s.client.Board(ctx, boardID)
	})
}

func (s *boardService) ListCards(ctx context.Context, boardID int64) ([]domain.Card, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("cards", boardID), func(ctx context.Context) ([]domain.Card, error) {
		return s.client.Cards(ctx, boardID)
	})
}

func (s *boardService) GetCard(ctx context.Context, cardID int64) (*domain.Card, error) {
	return cache.Fetch(ctx, s.cache, cache.Key("cards", "extended", cardID), func(ctx context.Context) (*domain.Card, error) {
		return s.client.Card(ctx, cardID)
	})
}

func (s *boardService) BoardView(ctx context.Context, boardID int64) (*BoardView, error) {
	var (
		board *domain.Board
		cards []domain.Card
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		board, err = s.GetBoard(gctx, boardID)
		if err != nil {
			return fmt.Errorf("failed to load board %d: %w", boardID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cards, err = s.ListCards(gctx, boardID)
		if err != nil {
			return fmt.Errorf("failed to load cards for board %d: %w", boardID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	summaries, err := s.ledger.Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load time summaries: %w", err)
	}

	view := &BoardView{Board: board, Rows: make([]CardRow, 0, len(cards))}
	for _, c := range cards {
		row := CardRow{Card: c, APIMinutes: c.TimeSpentSum, Summary: summaries[c.ID]}
		if row.Summary != nil {
			row.LedgerMinutes = row.Summary.TotalMinutesAll
		}
		row.TotalMinutes = row.APIMinutes + row.LedgerMinutes
		view.Rows = append(view.Rows, row)
	}

	s.logger.Debug("Board view loaded", zap.Int64("board_id", boardID), zap.Int("cards", len(cards)))
	return view, nil
}

func (s *boardService) Refresh() {
	for _, prefix := range []string{"spaces", "boards", "board", "cards"} {
		s.cache.Invalidate(prefix)
	}
}
