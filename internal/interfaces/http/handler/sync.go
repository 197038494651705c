package handler

import (
	"errors"
	"time"

	syncapp "github.com/crosspost/backend/internal/application/sync"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles cross-posting sync API endpoints
type SyncHandler struct {
	BaseHandler
	orchestrator *syncapp.Orchestrator
	rows         syncdomain.PlatformListingRepository
	auditLog     syncdomain.SyncLogRepository
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(
	orchestrator *syncapp.Orchestrator,
	rows syncdomain.PlatformListingRepository,
	auditLog syncdomain.SyncLogRepository,
) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		rows:         rows,
		auditLog:     auditLog,
	}
}

// PostListingRequest represents a request to fan a listing out to platforms
// @Description Request body for posting a listing to marketplaces
type PostListingRequest struct {
	// Platforms to post to. Empty means every configured platform.
	Platforms []string `json:"platforms" binding:"omitempty,dive,oneof=ebay mercari poshmark depop" example:"ebay,mercari"`
}

// MarkSoldRequest represents a manual sold notice from the operator
// @Description Request body for recording a sale
type MarkSoldRequest struct {
	Platform  string  `json:"platform" binding:"required,oneof=ebay mercari poshmark depop" example:"ebay"`
	SalePrice float64 `json:"sale_price" binding:"required,gt=0" example:"249.99"`
}

// PlatformStatusResponse is the per-platform posting state for one listing
type PlatformStatusResponse struct {
	Platform          string     `json:"platform"`
	Status            string     `json:"status"`
	ExternalID        string     `json:"external_id,omitempty"`
	AttemptCount      int        `json:"attempt_count"`
	LastAttemptAt     *time.Time `json:"last_attempt_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	CancelScheduledAt *time.Time `json:"cancel_scheduled_at,omitempty"`
}

// SyncLogEntryResponse is one audit trail row
type SyncLogEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	ListingID   uuid.UUID `json:"listing_id"`
	Platform    string    `json:"platform"`
	Operation   string    `json:"operation"`
	Result      string    `json:"result"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SyncLogQueryRequest represents query parameters for the audit trail
type SyncLogQueryRequest struct {
	ListingID string `form:"listing_id" binding:"omitempty,uuid"`
	Platform  string `form:"platform" binding:"omitempty,oneof=ebay mercari poshmark depop"`
	Operation string `form:"operation" binding:"omitempty,oneof=post retry cancel mark_sold"`
	Result    string `form:"result" binding:"omitempty,oneof=success failure"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PostToAll godoc
// @Summary      Post a listing to marketplaces
// @Description  Fan a listing out to the requested platforms. Partial failure is reported per platform, not as an error.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Param        request body PostListingRequest true "Posting request"
// @Success      200 {object} dto.Response{data=syncapp.PostSummary}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id}/post [post]
func (h *SyncHandler) PostToAll(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req PostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	platforms := make([]syncdomain.PlatformCode, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		platforms = append(platforms, syncdomain.PlatformCode(p))
	}

	summary, err := h.orchestrator.PostToAll(c.Request.Context(), listingID, platforms)
	if err != nil {
		if errors.Is(err, syncdomain.ErrPlatformNotConfigured) {
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// MarkSold godoc
// @Summary      Record a sale
// @Description  Mark a listing sold on one platform and take it down everywhere else. Platforms that cannot be reached get a scheduled cancellation.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Param        request body MarkSoldRequest true "Sold notice"
// @Success      200 {object} dto.Response{data=syncapp.MarkSoldResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id}/sold [post]
func (h *SyncHandler) MarkSold(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req MarkSoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.orchestrator.MarkSold(
		c.Request.Context(),
		listingID,
		syncdomain.PlatformCode(req.Platform),
		toDecimal(req.SalePrice),
	)
	if err != nil {
		if errors.Is(err, syncdomain.ErrListingNotOnPlatform) {
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "Listing has no record on that platform")
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetStatus godoc
// @Summary      Get per-platform posting status
// @Description  Retrieve the posting state of one listing on every platform it was sent to
// @Tags         sync
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]PlatformStatusResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id}/status [get]
func (h *SyncHandler) GetStatus(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	rows, err := h.rows.FindByListing(c.Request.Context(), listingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	statuses := make([]PlatformStatusResponse, len(rows))
	for i, row := range rows {
		statuses[i] = PlatformStatusResponse{
			Platform:          row.Platform.String(),
			Status:            string(row.Status),
			ExternalID:        row.ExternalID,
			AttemptCount:      row.AttemptCount,
			LastAttemptAt:     row.LastAttemptAt,
			LastError:         row.LastError,
			CancelScheduledAt: row.CancelScheduledAt,
		}
	}

	h.Success(c, statuses)
}

// RetryFailedPosts godoc
// @Summary      Retry failed postings
// @Description  Run one retry pass over failed platform postings below the retry ceiling
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=syncapp.RetrySummary}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/retries [post]
func (h *SyncHandler) RetryFailedPosts(c *gin.Context) {
	summary, err := h.orchestrator.RetryFailedPosts(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// ProcessScheduledCancellations godoc
// @Summary      Process due cancellations
// @Description  Run one pass over platform rows whose scheduled cancellation is due
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=syncapp.SweepSummary}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/cancellations [post]
func (h *SyncHandler) ProcessScheduledCancellations(c *gin.Context) {
	summary, err := h.orchestrator.ProcessScheduledCancellations(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetSyncLog godoc
// @Summary      Query the sync audit trail
// @Description  Retrieve audit entries, newest first, with optional filtering
// @Tags         sync
// @Produce      json
// @Param        listing_id query string false "Listing ID" format(uuid)
// @Param        platform query string false "Platform" Enums(ebay, mercari, poshmark, depop)
// @Param        operation query string false "Operation" Enums(post, retry, cancel, mark_sold)
// @Param        result query string false "Result" Enums(success, failure)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]SyncLogEntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/log [get]
func (h *SyncHandler) GetSyncLog(c *gin.Context) {
	var req SyncLogQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	filter := syncdomain.SyncLogFilter{
		Platform:  syncdomain.PlatformCode(req.Platform),
		Operation: syncdomain.SyncOperation(req.Operation),
		Result:    syncdomain.SyncResult(req.Result),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.ListingID != "" {
		listingID, err := uuid.Parse(req.ListingID)
		if err != nil {
			h.BadRequest(c, "Invalid listing ID format")
			return
		}
		filter.ListingID = &listingID
	}

	entries, total, err := h.auditLog.Find(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	items := make([]SyncLogEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = SyncLogEntryResponse{
			ID:          e.ID,
			ListingID:   e.ListingID,
			Platform:    e.Platform.String(),
			Operation:   string(e.Operation),
			Result:      string(e.Result),
			ErrorDetail: e.ErrorDetail,
			CreatedAt:   e.CreatedAt,
		}
	}

	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}
