package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/service"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
	"github.com/crawdwall/capital-review-api/pkg/response"
)

// AdminHandler exposes the administrative oversight surface: decision
// overrides, the officer roster, platform settings and decision reports.
type AdminHandler struct {
	voting   *service.VotingService
	officers *service.OfficerService
	config   *service.ConfigurationService
	reports  *service.ReportService
	stats    *service.StatsService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(voting *service.VotingService, officers *service.OfficerService, config *service.ConfigurationService, reports *service.ReportService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{voting: voting, officers: officers, config: config, reports: reports, stats: stats}
}

// Override godoc
// @Summary Force a proposal decision
// @Description Moves a non-terminal proposal straight to APPROVED or REJECTED. Requires a reason of at least 10 characters.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.OverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/proposals/{id}/override [post]
func (h *AdminHandler) Override(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}

	proposal, err := h.voting.AdminOverride(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// CreateOfficer godoc
// @Summary Onboard a review officer
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateOfficerRequest true "Officer payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/officers [post]
func (h *AdminHandler) CreateOfficer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid officer payload"))
		return
	}

	officer, err := h.officers.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, officer)
}

// ListOfficers godoc
// @Summary List the officer roster
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/officers [get]
func (h *AdminHandler) ListOfficers(c *gin.Context) {
	officers, err := h.officers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officers, nil)
}

type officerStatusRequest struct {
	Status models.OfficerStatus `json:"status" binding:"required"`
}

// UpdateOfficerStatus godoc
// @Summary Change an officer's status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Officer ID"
// @Param payload body officerStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/officers/{id}/status [patch]
func (h *AdminHandler) UpdateOfficerStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req officerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	officer, err := h.officers.UpdateStatus(c.Request.Context(), claims.UserID, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officer, nil)
}

// DeleteOfficer godoc
// @Summary Remove an officer
// @Tags Admin
// @Param id path string true "Officer ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/officers/{id} [delete]
func (h *AdminHandler) DeleteOfficer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.officers.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Settings godoc
// @Summary Effective voting parameters
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *AdminHandler) Settings(c *gin.Context) {
	settings, err := h.config.Settings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Adjust voting parameters
// @Description Changes apply to the next threshold evaluation; in-flight decisions are not re-evaluated.
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings [patch]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	settings, err := h.config.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Stats godoc
// @Summary Platform-wide counters
// @Description Proposal counts per status, total votes cast and the active officer pool.
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Platform(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// RecentActivity godoc
// @Summary Newest audit entries across all proposals
// @Tags Admin
// @Produce json
// @Param limit query int false "Max entries (default 20)"
// @Success 200 {object} response.Envelope
// @Router /admin/audit/recent [get]
func (h *AdminHandler) RecentActivity(c *gin.Context) {
	entries, err := h.stats.RecentActivity(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

type requestReportPayload struct {
	Format models.ReportFormat `json:"format" binding:"required"`
}

// RequestReport godoc
// @Summary Queue a decision report export
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body requestReportPayload true "Report payload"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/proposals/{id}/reports [post]
func (h *AdminHandler) RequestReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req requestReportPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	report, err := h.reports.Request(c.Request.Context(), claims.UserID, c.Param("id"), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, report, nil)
}

// ReportStatus godoc
// @Summary Check a report export
// @Tags Admin
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /admin/reports/{id} [get]
func (h *AdminHandler) ReportStatus(c *gin.Context) {
	report, err := h.reports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ReportDownloadToken godoc
// @Summary Issue a signed download link for a finished report
// @Tags Admin
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reports/{id}/download [post]
func (h *AdminHandler) ReportDownloadToken(c *gin.Context) {
	download, err := h.reports.DownloadToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// DownloadReport godoc
// @Summary Stream a report by signed token
// @Tags Admin
// @Produce application/octet-stream
// @Param token query string true "Signed token"
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /reports/download [get]
func (h *AdminHandler) DownloadReport(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter required"))
		return
	}

	file, report, err := h.reports.OpenByToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "text/csv"
	if report.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", report.ID, report.Format))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
