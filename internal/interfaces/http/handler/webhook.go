package handler

import (
	"errors"
	"net/http"
	"time"

	syncapp "github.com/crosspost/backend/internal/application/sync"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// WebhookHandler handles inbound marketplace webhook deliveries
type WebhookHandler struct {
	BaseHandler
	saleEvents *syncapp.SaleEventService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(saleEvents *syncapp.SaleEventService) *WebhookHandler {
	return &WebhookHandler{
		saleEvents: saleEvents,
	}
}

// SaleEventRequest represents an inbound sale notice from a platform.
// Not every platform sends a delivery event ID; deduplication falls back
// to the platform listing ID when it is absent.
// @Description Webhook payload for a platform sale notice
type SaleEventRequest struct {
	EventID    string  `json:"event_id" binding:"omitempty,max=100" example:"evt-8f14e45f"`
	Platform   string  `json:"platform" binding:"required,oneof=ebay mercari poshmark depop" example:"mercari"`
	ExternalID string  `json:"external_id" binding:"required,max=100" example:"m123456789"`
	SalePrice  float64 `json:"sale_price" binding:"required,gt=0" example:"249.99"`
	OccurredAt string  `json:"occurred_at" binding:"omitempty" example:"2026-08-23T15:04:05Z"`
}

// HandleSaleEvent godoc
// @Summary      Receive a platform sale notice
// @Description  Record a sale reported by a marketplace webhook. Redelivered events are acknowledged without reprocessing.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        request body SaleEventRequest true "Sale event payload"
// @Success      200 {object} dto.Response{data=syncapp.MarkSoldResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/sale-events [post]
func (h *WebhookHandler) HandleSaleEvent(c *gin.Context) {
	var req SaleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	event := syncapp.SaleEvent{
		EventID:    req.EventID,
		Platform:   syncdomain.PlatformCode(req.Platform),
		ExternalID: req.ExternalID,
		SalePrice:  toDecimal(req.SalePrice),
	}
	if req.OccurredAt != "" {
		occurredAt, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			h.BadRequest(c, "Invalid occurred_at timestamp, expected RFC3339")
			return
		}
		event.OccurredAt = occurredAt
	}

	result, err := h.saleEvents.HandleSaleEvent(c.Request.Context(), event)
	if err != nil {
		// Redeliveries must be acknowledged or the platform keeps retrying
		if errors.Is(err, syncdomain.ErrSaleAlreadyProcessed) {
			c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
				"event_id":  req.EventID,
				"duplicate": true,
			}))
			return
		}
		if errors.Is(err, syncdomain.ErrExternalListingMissing) {
			h.NotFound(c, "No listing matches that platform listing ID")
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
