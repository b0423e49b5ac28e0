package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/kaiten"
	"github.com/andy/kaitenbill/internal/service"
)

var errBadID = errors.New("invalid id")

// fail maps err onto a status code and writes {"error": ...}
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": verr.Fields})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	body := gin.H{"error": err.Error()}
	var syncErr *service.ArchiveSyncError
	if errors.As(err, &syncErr) {
		body["failed_card_id"] = syncErr.CardID
		body["completed_card_ids"] = syncErr.Completed
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	var syncErr *service.ArchiveSyncError
	if errors.As(err, &syncErr) {
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, errBadID),
		errors.Is(err, service.ErrNoCards),
		errors.Is(err, service.ErrCardNotEligible),
		errors.Is(err, service.ErrDuplicateCard),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvoiceNotFound),
		errors.Is(err, service.ErrEntryNotFound),
		kaiten.IsNotFound(err):
		return http.StatusNotFound
	}

	var apiErr *kaiten.APIError
	if errors.As(err, &apiErr) || errors.Is(err, kaiten.ErrNoToken) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
