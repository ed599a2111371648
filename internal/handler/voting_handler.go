package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/service"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
	"github.com/crawdwall/capital-review-api/pkg/response"
)

// VotingHandler wires HTTP endpoints to the decision engine.
type VotingHandler struct {
	voting *service.VotingService
}

// NewVotingHandler creates a new handler.
func NewVotingHandler(voting *service.VotingService) *VotingHandler {
	return &VotingHandler{voting: voting}
}

// SubmitVote godoc
// @Summary Cast an officer vote on a proposal
// @Description Records the vote and evaluates the acceptance threshold. The first vote moves the proposal under review.
// @Tags Voting
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.SubmitVoteRequest true "Vote payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proposals/{id}/votes [post]
func (h *VotingHandler) SubmitVote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vote payload"))
		return
	}
	req.ProposalID = c.Param("id")

	result, err := h.voting.SubmitVote(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ProposalVotes godoc
// @Summary Vote summary for a proposal
// @Description Officers see detailed votes only after casting their own.
// @Tags Voting
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /proposals/{id}/votes [get]
func (h *VotingHandler) ProposalVotes(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.voting.ProposalVotes(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// History godoc
// @Summary The caller's voting history
// @Tags Voting
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /votes/mine [get]
func (h *VotingHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.voting.OfficerHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// AuditTrail godoc
// @Summary Decision audit trail for a proposal
// @Tags Voting
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/audit [get]
func (h *VotingHandler) AuditTrail(c *gin.Context) {
	entries, err := h.voting.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
