// Package api is the JSON surface host pages embed the dashboard through.
package api

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andy/kaitenbill/internal/service"
)

// EmbedConfig is returned to host pages mounting the dashboard. The API
// token is never part of it.
type EmbedConfig struct {
	ContainerID string `json:"containerId"`
	APIURL      string `json:"apiUrl"`
}

type Handler struct {
	Boards   service.BoardService
	Ledger   service.LedgerService
	Invoices service.InvoiceService
	Embed    EmbedConfig
	Rate     decimal.Decimal
	Currency string
	Logger   *zap.Logger
}

// NewRouter wires every route onto a gin engine
func NewRouter(h *Handler) *gin.Engine {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(h.Logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(h.Logger, true))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", h.Health)
		apiGroup.GET("/embed/config", h.GetEmbedConfig)

		apiGroup.GET("/spaces", h.ListSpaces)
		apiGroup.GET("/spaces/:id/boards", h.ListBoards)
		apiGroup.GET("/boards/:id", h.GetBoard)
		apiGroup.GET("/boards/:id/cards", h.ListCards)
		apiGroup.GET("/cards/:id", h.GetCard)

		apiGroup.GET("/cards/:id/time-entries", h.ListTimeEntries)
		apiGroup.POST("/time-entries", h.CreateTimeEntry)
		apiGroup.PATCH("/time-entries/:id", h.UpdateTimeEntry)
		apiGroup.DELETE("/time-entries/:id", h.DeleteTimeEntry)
		apiGroup.GET("/time-summaries", h.ListTimeSummaries)

		apiGroup.GET("/invoices", h.ListInvoices)
		apiGroup.POST("/invoices", h.CreateInvoice)
		apiGroup.GET("/invoices/:id", h.GetInvoice)
		apiGroup.PATCH("/invoices/:id/status", h.UpdateInvoiceStatus)
		apiGroup.DELETE("/invoices/:id", h.DeleteInvoice)
	}

	return router
}
