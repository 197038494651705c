package handler

import (
	shoppingapp "github.com/crosspost/backend/internal/application/shopping"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/gin-gonic/gin"
)

// ShoppingHandler handles buying-decision API endpoints
type ShoppingHandler struct {
	BaseHandler
	calculator *shoppingapp.ProfitCalculator
}

// NewShoppingHandler creates a new ShoppingHandler
func NewShoppingHandler(calculator *shoppingapp.ProfitCalculator) *ShoppingHandler {
	return &ShoppingHandler{
		calculator: calculator,
	}
}

// ProfitEstimateRequest represents a what-if profit calculation
// @Description Request body for estimating net profit after platform fees
type ProfitEstimateRequest struct {
	// Platform to estimate for. Empty means every platform with a fee schedule.
	Platform  string  `json:"platform" binding:"omitempty,oneof=ebay mercari poshmark depop" example:"ebay"`
	SalePrice float64 `json:"sale_price" binding:"required,gt=0" example:"249.99"`
	Cost      float64 `json:"cost" binding:"gte=0" example:"120.00"`
}

// EstimateProfit godoc
// @Summary      Estimate net profit
// @Description  Compute what an item would net after platform fees, per platform, best margin first
// @Tags         shopping
// @Accept       json
// @Produce      json
// @Param        request body ProfitEstimateRequest true "Profit estimate request"
// @Success      200 {object} dto.Response{data=[]shoppingapp.ProfitEstimate}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /shopping/estimate [post]
func (h *ShoppingHandler) EstimateProfit(c *gin.Context) {
	var req ProfitEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	salePrice := toDecimal(req.SalePrice)
	cost := toDecimal(req.Cost)

	if req.Platform != "" {
		estimate, err := h.calculator.Estimate(syncdomain.PlatformCode(req.Platform), salePrice, cost)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, []*shoppingapp.ProfitEstimate{estimate})
		return
	}

	estimates, err := h.calculator.EstimateAll(salePrice, cost)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, estimates)
}
