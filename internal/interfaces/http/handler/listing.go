package handler

import (
	"time"

	listingapp "github.com/crosspost/backend/internal/application/listing"
	listingdomain "github.com/crosspost/backend/internal/domain/listing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListingHandler handles unified listing API endpoints
type ListingHandler struct {
	BaseHandler
	listingService *listingapp.Service
}

// NewListingHandler creates a new ListingHandler
func NewListingHandler(listingService *listingapp.Service) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
	}
}

// CreateListingRequest represents a request to draft a new listing
// @Description Request body for drafting a new listing
type CreateListingRequest struct {
	Title           string   `json:"title" binding:"required,min=1,max=200" example:"Charizard Holo 4/102"`
	Description     string   `json:"description" binding:"max=5000" example:"Base Set unlimited, lightly played"`
	Price           float64  `json:"price" binding:"required,gt=0" example:"249.99"`
	Condition       string   `json:"condition" binding:"required,oneof=new like_new good fair poor" example:"good"`
	Photos          []string `json:"photos" example:"listings/uuid/front.jpg"`
	CollectibleRef  string   `json:"collectible_ref" binding:"max=100" example:"pokemon-base-4"`
	AcquisitionCost *float64 `json:"acquisition_cost" binding:"omitempty,gte=0" example:"120.00"`
	StorageLocation string   `json:"storage_location" binding:"max=100" example:"binder-3/page-12"`
}

// UpdateListingRequest represents a request to edit an unsold listing
// @Description Request body for editing an unsold listing
type UpdateListingRequest struct {
	Title           string   `json:"title" binding:"required,min=1,max=200" example:"Charizard Holo 4/102 PSA-ready"`
	Description     string   `json:"description" binding:"max=5000" example:"Updated description"`
	Price           float64  `json:"price" binding:"required,gt=0" example:"229.99"`
	Photos          []string `json:"photos"`
	AcquisitionCost *float64 `json:"acquisition_cost" binding:"omitempty,gte=0" example:"120.00"`
	StorageLocation *string  `json:"storage_location" binding:"omitempty,max=100" example:"binder-3/page-12"`
}

// ListListingsRequest represents query parameters for listing searches
type ListListingsRequest struct {
	Status    string `form:"status" binding:"omitempty,oneof=draft listed sold archived"`
	Condition string `form:"condition" binding:"omitempty,oneof=new like_new good fair poor"`
	Keyword   string `form:"keyword" binding:"max=200"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PhotoUploadURLRequest represents a request for a presigned photo upload slot
// @Description Request body for a presigned photo upload URL
type PhotoUploadURLRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255" example:"front.jpg"`
	ContentType string `json:"content_type" binding:"required" example:"image/jpeg"`
}

// Create godoc
// @Summary      Draft a new listing
// @Description  Create a new unified listing in draft status
// @Tags         listings
// @Accept       json
// @Produce      json
// @Param        request body CreateListingRequest true "Listing creation request"
// @Success      201 {object} dto.Response{data=listingapp.ListingDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := listingapp.CreateListingRequest{
		Title:           req.Title,
		Description:     req.Description,
		Price:           toDecimal(req.Price),
		Condition:       req.Condition,
		Photos:          req.Photos,
		CollectibleRef:  req.CollectibleRef,
		StorageLocation: req.StorageLocation,
	}
	if req.AcquisitionCost != nil {
		appReq.AcquisitionCost = toDecimalPtr(*req.AcquisitionCost)
	}

	created, err := h.listingService.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, created)
}

// GetByID godoc
// @Summary      Get listing by ID
// @Description  Retrieve a unified listing by its ID
// @Tags         listings
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Success      200 {object} dto.Response{data=listingapp.ListingDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id} [get]
func (h *ListingHandler) GetByID(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	found, err := h.listingService.Get(c.Request.Context(), listingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, found)
}

// List godoc
// @Summary      List listings
// @Description  Retrieve a paginated list of listings with optional filtering
// @Tags         listings
// @Produce      json
// @Param        status query string false "Listing status" Enums(draft, listed, sold, archived)
// @Param        condition query string false "Item condition" Enums(new, like_new, good, fair, poor)
// @Param        keyword query string false "Title keyword, case-insensitive"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]listingapp.ListingDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings [get]
func (h *ListingHandler) List(c *gin.Context) {
	var req ListListingsRequest
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

	filter := listingdomain.ListFilter{
		Status:    listingdomain.ListingStatus(req.Status),
		Condition: listingdomain.Condition(req.Condition),
		Keyword:   req.Keyword,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}

	items, total, err := h.listingService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// Update godoc
// @Summary      Update a listing
// @Description  Edit a listing that has not sold yet
// @Tags         listings
// @Accept       json
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Param        request body UpdateListingRequest true "Listing update request"
// @Success      200 {object} dto.Response{data=listingapp.ListingDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := listingapp.UpdateListingRequest{
		Title:           req.Title,
		Description:     req.Description,
		Price:           toDecimal(req.Price),
		Photos:          req.Photos,
		StorageLocation: req.StorageLocation,
	}
	if req.AcquisitionCost != nil {
		appReq.AcquisitionCost = toDecimalPtr(*req.AcquisitionCost)
	}

	updated, err := h.listingService.Update(c.Request.Context(), listingID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, updated)
}

// Archive godoc
// @Summary      Archive a listing
// @Description  Remove a listing from active inventory while keeping its history
// @Tags         listings
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id}/archive [post]
func (h *ListingHandler) Archive(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	if err := h.listingService.Archive(c.Request.Context(), listingID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Delete godoc
// @Summary      Delete a draft listing
// @Description  Delete a listing that is still in draft. Anything past draft must be archived instead.
// @Tags         listings
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id} [delete]
func (h *ListingHandler) Delete(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	if err := h.listingService.Delete(c.Request.Context(), listingID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RequestPhotoUpload godoc
// @Summary      Request a photo upload URL
// @Description  Issue a presigned upload URL for one listing photo
// @Tags         listings
// @Accept       json
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Param        request body PhotoUploadURLRequest true "Photo upload request"
// @Success      201 {object} dto.Response{data=listingapp.PhotoUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id}/photos [post]
func (h *ListingHandler) RequestPhotoUpload(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req PhotoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	slot, err := h.listingService.RequestPhotoUpload(c.Request.Context(), listingID, listingapp.PhotoUploadRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, slot)
}

// PhotoDownloadURLResponse carries a presigned photo download URL
type PhotoDownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
}

// PhotoDownloadURL godoc
// @Summary      Get a photo download URL
// @Description  Issue a presigned download URL for a stored photo
// @Tags         listings
// @Produce      json
// @Param        id path string true "Listing ID" format(uuid)
// @Param        key query string true "Photo storage key"
// @Success      200 {object} dto.Response{data=PhotoDownloadURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /listings/{id}/photos/url [get]
func (h *ListingHandler) PhotoDownloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		h.BadRequest(c, "Photo storage key is required")
		return
	}

	url, expiresAt, err := h.listingService.PhotoDownloadURL(c.Request.Context(), key)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, PhotoDownloadURLResponse{
		DownloadURL: url,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}
