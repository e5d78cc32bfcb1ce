package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/middleware"
	"github.com/campushub/codeathon-api/internal/models"
	"github.com/campushub/codeathon-api/internal/repository"
	"github.com/campushub/codeathon-api/internal/service"
)

// Handlers aggregates every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Student       *StudentHandler
	Participation *ParticipationHandler
	Team          *TeamHandler
	Enrollment    *EnrollmentHandler
	Opportunity   *OpportunityHandler
	Hackathon     *HackathonHandler
	Report        *ReportHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts the API surface under /api/v1 plus the operational
// endpoints at the root.
func RegisterRoutes(r *gin.Engine, h Handlers, auth *service.AuthService, users *repository.UserRepository) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group("/api/v1")

	// unauthenticated surface
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/forgot-password", h.Auth.ForgotPassword)
	api.POST("/auth/reset-password", h.Auth.ResetPassword)
	api.POST("/students/register", h.Student.Register)
	api.GET("/reports/download", h.Report.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	authed.GET("/auth/me", h.Auth.Me)
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.POST("/auth/change-password", h.Auth.ChangePassword)

	student := authed.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/students/me", h.Student.Profile)
		student.PUT("/students/me", h.Student.UpdateOwnProfile)

		student.POST("/participations", h.Participation.Submit)
		student.GET("/participations/mine", h.Participation.ListMine)
		student.POST("/participations/:id/certificate", h.Participation.UploadCertificate)

		student.POST("/teams", h.Team.Create)
		student.POST("/teams/join", h.Team.Join)
		student.POST("/teams/:id/submit", h.Team.Submit)
		student.POST("/teams/:id/certificate", h.Team.UploadCertificate)

		student.POST("/enrollments", h.Enrollment.Enroll)
		student.GET("/enrollments/mine", h.Enrollment.ListMine)

		student.POST("/opportunities/:id/interest", h.Opportunity.MarkInterest)
	}

	proctor := authed.Group("")
	proctor.Use(middleware.RequireRoles(models.RoleProctor, models.RoleAdmin))
	{
		proctor.GET("/participations/review", h.Participation.ListForProctor)
		proctor.POST("/participations/:id/decision",
			middleware.Audit(users, models.AuditActionDecision, "participation"),
			h.Participation.Decide)
		proctor.POST("/participations/bulk-decision",
			middleware.Audit(users, models.AuditActionBulkDecision, "participation"),
			h.Participation.BulkDecide)

		proctor.POST("/teams/:id/decision",
			middleware.Audit(users, models.AuditActionTeamDecision, "team"),
			h.Team.Decide)
		proctor.POST("/teams/:id/reopen", h.Team.Reopen)
		proctor.POST("/teams/:id/members/:studentId/verify", h.Team.VerifyCertificate)

		proctor.GET("/enrollments/review", h.Enrollment.ListForProctor)
		proctor.POST("/enrollments/:id/decision", h.Enrollment.Decide)

		proctor.GET("/opportunities/:id/radar", h.Opportunity.Radar)
	}

	// shared read surface for any authenticated role
	authed.GET("/participations/:id", h.Participation.Get)
	authed.GET("/teams/:id", h.Team.Get)
	authed.GET("/teams", h.Team.List)
	authed.GET("/enrollments/:id", h.Enrollment.Get)
	authed.GET("/hackathons", h.Hackathon.List)
	authed.GET("/hackathons/:id", h.Hackathon.Get)
	authed.GET("/opportunities", h.Opportunity.List)
	authed.GET("/opportunities/:id", h.Opportunity.Get)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/participations", h.Participation.ListAll)
		admin.GET("/enrollments", h.Enrollment.ListAll)

		admin.GET("/students", h.Student.List)
		admin.GET("/students/:id", h.Student.Get)
		admin.PUT("/students/:id", h.Student.AdminUpdate)
		admin.DELETE("/students/:id", h.Student.Delete)
		admin.POST("/students/reassign-proctor",
			middleware.Audit(users, models.AuditActionProctorReassign, "student"),
			h.Student.ReassignProctor)

		admin.POST("/hackathons", h.Hackathon.Create)
		admin.PUT("/hackathons/:id", h.Hackathon.Update)
		admin.DELETE("/hackathons/:id", h.Hackathon.Delete)

		admin.POST("/opportunities", h.Opportunity.Create)
		admin.POST("/opportunities/:id/close", h.Opportunity.Close)
		admin.POST("/opportunities/:id/poster", h.Opportunity.UploadPoster)
		admin.GET("/opportunities/:id/scan", h.Opportunity.Scan)
		admin.POST("/opportunities/:id/invite", h.Opportunity.Invite)

		admin.GET("/reports/credit-summary", h.Report.Summary)
		admin.POST("/reports/credit-summary/export", h.Report.Export)
		admin.GET("/reports/dashboard", h.Report.Dashboard)
	}
}
