package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/service"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetEmbedConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.Embed)
}

func (h *Handler) ListSpaces(c *gin.Context) {
	spaces, err := h.Boards.ListSpaces(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, spaces)
}

func (h *Handler) ListBoards(c *gin.Context) {
	spaceID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	boards, err := h.Boards.ListBoards(c.Request.Context(), spaceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (h *Handler) GetBoard(c *gin.Context) {
	boardID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	board, err := h.Boards.GetBoard(c.Request.Context(), boardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// ListCards returns the board view: live cards with API, ledger and total minutes
func (h *Handler) ListCards(c *gin.Context) {
	boardID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.Boards.BoardView(c.Request.Context(), boardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetCard(c *gin.Context) {
	cardID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	card, err := h.Boards.GetCard(c.Request.Context(), cardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) ListTimeEntries(c *gin.Context) {
	cardID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.Ledger.ListEntries(c.Request.Context(), cardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type timeEntryRequest struct {
	CardID      int64  `json:"card_id"`
	Hours       int    `json:"hours"`
	Minutes     int    `json:"minutes"`
	Description string `json:"description"`
	Date        string `json:"date"` // YYYY-MM-DD
}

func (h *Handler) CreateTimeEntry(c *gin.Context) {
	var req timeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	input := service.NewTimeEntryInput{
		CardID:      req.CardID,
		Hours:       req.Hours,
		Minutes:     req.Minutes,
		Description: req.Description,
	}
	if req.Date != "" {
		date, err := time.Parse(domain.DateLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date %q, want YYYY-MM-DD", req.Date)})
			return
		}
		input.Date = date
	}

	entry, err := h.Ledger.AddEntry(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type timeEntryPatchRequest struct {
	Hours       *int    `json:"hours"`
	Minutes     *int    `json:"minutes"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func (h *Handler) UpdateTimeEntry(c *gin.Context) {
	var req timeEntryPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	patch := domain.TimeEntryPatch{Hours: req.Hours, Minutes: req.Minutes, Description: req.Description}
	if req.Date != nil {
		date, err := time.Parse(domain.DateLayout, *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date %q, want YYYY-MM-DD", *req.Date)})
			return
		}
		patch.Date = &date
	}

	entry, err := h.Ledger.UpdateEntry(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) DeleteTimeEntry(c *gin.Context) {
	if err := h.Ledger.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTimeSummaries takes repeated card_id query params
func (h *Handler) ListTimeSummaries(c *gin.Context) {
	raw := c.QueryArray("card_id")
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil || id <= 0 {
			h.fail(c, fmt.Errorf("%w: card_id %q", errBadID, r))
			return
		}
		ids = append(ids, id)
	}

	summaries, err := h.Ledger.Summaries(c.Request.Context(), ids)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]*domain.TimeTrackingSummary, 0, len(summaries))
	for _, id := range ids {
		if s, ok := summaries[id]; ok {
			out = append(out, s)
		}
	}
	c.JSON(http.StatusOK, out)
}

type invoiceResponse struct {
	*domain.Invoice
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

func (h *Handler) withAmount(inv *domain.Invoice) invoiceResponse {
	amount := domain.CalculateCost(inv.TotalTimeSpent, h.Rate)
	return invoiceResponse{
		Invoice:       inv,
		Amount:        amount.StringFixed(2),
		AmountDisplay: domain.FormatCurrency(amount, h.Currency),
	}
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var status *domain.InvoiceStatus
	if raw := c.Query("status"); raw != "" {
		s, err := domain.ParseInvoiceStatus(raw)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: %v", service.ErrInvalidStatus, err))
			return
		}
		status = &s
	}

	invoices, err := h.Invoices.ListInvoices(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = h.withAmount(inv)
	}
	c.JSON(http.StatusOK, out)
}

type createInvoiceRequest struct {
	domain.CreateInvoiceData
	CardIDs []int64 `json:"card_ids"`
}

// CreateInvoice resolves the card ids against the board's live cards, so
// archived or unknown cards are rejected as not billable
func (h *Handler) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.CardIDs) == 0 {
		h.fail(c, service.ErrNoCards)
		return
	}

	ctx := c.Request.Context()
	boardCards, err := h.Boards.ListCards(ctx, req.BoardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	byID := make(map[int64]domain.Card, len(boardCards))
	for _, card := range boardCards {
		byID[card.ID] = card
	}

	cards := make([]domain.Card, 0, len(req.CardIDs))
	requested := make(map[int64]struct{}, len(req.CardIDs))
	for _, id := range req.CardIDs {
		if _, dup := requested[id]; dup {
			h.fail(c, fmt.Errorf("%w: card %d", service.ErrDuplicateCard, id))
			return
		}
		requested[id] = struct{}{}

		card, ok := byID[id]
		if !ok {
			h.fail(c, fmt.Errorf("%w: card %d is not a live card on board %d", service.ErrCardNotEligible, id, req.BoardID))
			return
		}
		cards = append(cards, card)
	}

	invoice, err := h.Invoices.CreateInvoice(ctx, req.CreateInvoiceData, cards)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.withAmount(invoice))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	invoice, err := h.Invoices.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withAmount(invoice))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateInvoiceStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	status, err := domain.ParseInvoiceStatus(req.Status)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrInvalidStatus, err))
		return
	}

	invoice, err := h.Invoices.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withAmount(invoice))
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	if err := h.Invoices.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", errBadID, name, c.Param(name))
	}
	return id, nil
}
