package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/service"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
	"github.com/crawdwall/capital-review-api/pkg/response"
)

// InvestorHandler wires HTTP endpoints to the investment service.
type InvestorHandler struct {
	investments *service.InvestmentService
}

// NewInvestorHandler creates a new handler.
func NewInvestorHandler(investments *service.InvestmentService) *InvestorHandler {
	return &InvestorHandler{investments: investments}
}

// Opportunities godoc
// @Summary List approved proposals open for investment
// @Tags Investor
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /investor/opportunities [get]
func (h *InvestorHandler) Opportunities(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	opportunities, err := h.investments.Opportunities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opportunities, nil)
}

// Portfolio godoc
// @Summary List the caller's investments
// @Tags Investor
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /investor/portfolio [get]
func (h *InvestorHandler) Portfolio(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.investments.Portfolio(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Invest godoc
// @Summary Invest in an approved proposal
// @Tags Investor
// @Accept json
// @Produce json
// @Param payload body service.InvestRequest true "Investment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /investor/investments [post]
func (h *InvestorHandler) Invest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid investment payload"))
		return
	}

	investment, err := h.investments.Invest(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, investment)
}

// Stats godoc
// @Summary Portfolio summary for the caller
// @Tags Investor
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /investor/stats [get]
func (h *InvestorHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.investments.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Activity godoc
// @Summary Recent activity for the caller
// @Tags Investor
// @Produce json
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} response.Envelope
// @Router /investor/activity [get]
func (h *InvestorHandler) Activity(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.investments.Activity(c.Request.Context(), claims.UserID, intQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
