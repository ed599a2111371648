package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/middleware"
	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth     *AuthHandler
	Proposal *ProposalHandler
	Voting   *VotingHandler
	Investor *InvestorHandler
	Admin    *AdminHandler
	Metrics  *MetricsHandler
	AuthSvc  *service.AuthService
}

// RegisterRoutes mounts the API surface onto the router.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/officer/login", h.Auth.LoginOfficer)
		auth.POST("/otp/verify", h.Auth.VerifyOTP)
	}

	// Signed token is the credential; no JWT required.
	r.GET("/reports/download", h.Admin.DownloadReport)

	secured := r.Group("/")
	secured.Use(middleware.JWT(h.AuthSvc))
	{
		proposals := secured.Group("/proposals")
		{
			proposals.POST("", middleware.RequireRoles(models.RoleOrganizer), h.Proposal.Create)
			proposals.GET("/mine", middleware.RequireRoles(models.RoleOrganizer), h.Proposal.ListMine)
			proposals.POST("/:id/submit", middleware.RequireRoles(models.RoleOrganizer), h.Proposal.Submit)
			proposals.GET("", middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin), h.Proposal.List)
			proposals.GET("/:id", h.Proposal.Get)
			proposals.GET("/:id/history", middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin), h.Proposal.History)
			proposals.POST("/:id/votes", middleware.RequireRoles(models.RoleOfficer), h.Voting.SubmitVote)
			proposals.GET("/:id/votes", middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin), h.Voting.ProposalVotes)
			proposals.GET("/:id/audit", middleware.RequireRoles(models.RoleAdmin), h.Voting.AuditTrail)
		}

		secured.GET("/votes/mine", middleware.RequireRoles(models.RoleOfficer), h.Voting.History)

		investor := secured.Group("/investor")
		investor.Use(middleware.RequireRoles(models.RoleInvestor))
		{
			investor.GET("/opportunities", h.Investor.Opportunities)
			investor.GET("/portfolio", h.Investor.Portfolio)
			investor.POST("/investments", h.Investor.Invest)
			investor.GET("/stats", h.Investor.Stats)
			investor.GET("/activity", h.Investor.Activity)
		}

		admin := secured.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/proposals/:id/override", h.Admin.Override)
			admin.POST("/proposals/:id/reports", h.Admin.RequestReport)
			admin.POST("/officers", h.Admin.CreateOfficer)
			admin.GET("/officers", h.Admin.ListOfficers)
			admin.PATCH("/officers/:id/status", h.Admin.UpdateOfficerStatus)
			admin.DELETE("/officers/:id", h.Admin.DeleteOfficer)
			admin.GET("/stats", h.Admin.Stats)
			admin.GET("/audit/recent", h.Admin.RecentActivity)
			admin.GET("/settings", h.Admin.Settings)
			admin.PATCH("/settings", h.Admin.UpdateSettings)
			admin.GET("/reports/:id", h.Admin.ReportStatus)
			admin.POST("/reports/:id/download", h.Admin.ReportDownloadToken)
		}
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
