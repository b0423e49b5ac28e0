package kaiten

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andy/kaitenbill/internal/domain"
)

// ErrNoToken is returned when no API token has been configured
var ErrNoToken = errors.New("kaiten API token is not configured")

// APIError is a non-2xx response from Kaiten
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kaiten API %s %s returned %s: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 from Kaiten
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is an HTTP 404 from Kaiten
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the Kaiten REST API with a bearer token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the API rooted at baseURL,
// e.g. https://example.kaiten.ru/api/latest
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Spaces lists every space visible to the token
func (c *Client) Spaces(ctx context.Context) ([]domain.Space, error) {
	var spaces []domain.Space
	if err := c.do(ctx, http.MethodGet, "/spaces", nil, nil, &spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

// Boards lists the boards of a space
func (c *Client) Boards(ctx context.Context, spaceID int64) ([]domain.Board, error) {
	var boards []domain.Board
	path := fmt.Sprintf("/spaces/%d/boards", spaceID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) Board(ctx context.Context, boardID int64) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/boards/%d", boardID), nil, nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// Cards lists the live (non-archived) cards on a board
func (c *Client) Cards(ctx context.Context, boardID int64) ([]domain.Card, error) {
	query := url.Values{}
	if boardID > 0 {
		query.Set("board_id", strconv.FormatInt(boardID, 10))
	}
	query.Set("condition", strconv.Itoa(int(domain.CardConditionLive)))

	var cards []domain.Card
	if err := c.do(ctx, http.MethodGet, "/cards", query, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Card fetches the extended card, including its description
func (c *Client) Card(ctx context.Context, cardID int64) (*domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/cards/%d", cardID), nil, nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// SetCondition patches the card's archive condition
func (c *Client) SetCondition(ctx context.Context, cardID int64, condition domain.CardCondition) error {
	body := map[string]int{"condition": int(condition)}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/cards/%d", cardID), nil, body, nil)
}

func (c *Client) ArchiveCard(ctx context.Context, cardID int64) error {
	return c.SetCondition(ctx, cardID, domain.CardConditionArchived)
}

func (c *Client) UnarchiveCard(ctx context.Context, cardID int64) error {
	return c.SetCondition(ctx, cardID, domain.CardConditionLive)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.token == "" {
		return ErrNoToken
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Kaiten request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Kaiten request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
		c.logger.Warn("Kaiten API error", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("body", apiErr.Body))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Kaiten response: %w", err)
	}
	return nil
}
