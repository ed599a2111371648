package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/service"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
	"github.com/crawdwall/capital-review-api/pkg/response"
)

// ProposalHandler wires HTTP endpoints to the proposal service.
type ProposalHandler struct {
	proposals *service.ProposalService
	voting    *service.VotingService
}

// NewProposalHandler creates a new handler.
func NewProposalHandler(proposals *service.ProposalService, voting *service.VotingService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals, voting: voting}
}

// Create godoc
// @Summary Submit a funding proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Param payload body service.CreateProposalRequest true "Proposal payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /proposals [post]
func (h *ProposalHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proposal payload"))
		return
	}

	proposal, err := h.proposals.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proposal)
}

// Submit godoc
// @Summary Submit a draft proposal for review
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proposals/{id}/submit [post]
func (h *ProposalHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	proposal, err := h.proposals.Submit(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// Get godoc
// @Summary Fetch a single proposal
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /proposals/{id} [get]
func (h *ProposalHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	proposal, err := h.proposals.Get(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Officer opens count as review activity.
	if claims.Role == models.RoleOfficer {
		h.voting.TrackProposalView(c.Request.Context(), proposal.ID, claims.UserID)
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// ListMine godoc
// @Summary List the caller's own proposals
// @Tags Proposals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proposals/mine [get]
func (h *ProposalHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	proposals, err := h.proposals.ListForOrganizer(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposals, nil)
}

// List godoc
// @Summary List proposals for review
// @Tags Proposals
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /proposals [get]
func (h *ProposalHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ProposalFilter
	if raw := c.Query("status"); raw != "" {
		status := models.ProposalStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown proposal status"))
			return
		}
		filter.Status = &status
	}
	filter.Page = intQuery(c, "page", 1)
	filter.PageSize = intQuery(c, "page_size", 20)

	proposals, pagination, err := h.proposals.ListForReview(c.Request.Context(), filter, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposals, pagination)
}

// History godoc
// @Summary Status transition history of a proposal
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/history [get]
func (h *ProposalHandler) History(c *gin.Context) {
	history, err := h.proposals.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
