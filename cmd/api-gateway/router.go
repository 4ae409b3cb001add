package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/handler"
	"github.com/noah-isme/eduorg-api/internal/middleware"
	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/config"
	"github.com/noah-isme/eduorg-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/eduorg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/eduorg-api/pkg/middleware/requestid"
)

var (
	staffRoles    = []models.UserRole{models.RoleAdmin, models.RoleStaff}
	teachingRoles = []models.UserRole{models.RoleAdmin, models.RoleStaff, models.RoleInstructor}
	anyRole       = []models.UserRole{models.RoleAdmin, models.RoleStaff, models.RoleInstructor, models.RoleStudent}
)

func newRouter(cfg *config.Config, app *application, ops *handler.MetricsHandler, metricsSvc *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.Tenant.Header))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(app.auth)
	personHandler := handler.NewPersonHandler(app.persons)
	groupHandler := handler.NewGroupHandler(app.groups)
	membershipHandler := handler.NewMembershipHandler(app.memberships)
	courseHandler := handler.NewCourseHandler(app.courses)
	instanceHandler := handler.NewCourseInstanceHandler(app.instances, app.exports)
	enrollmentHandler := handler.NewEnrollmentHandler(app.enrollments)
	gradeHandler := handler.NewGradeHandler(app.grades)
	scheduleHandler := handler.NewScheduleHandler(app.schedules)
	attendanceHandler := handler.NewAttendanceHandler(app.attendance)
	certificateHandler := handler.NewCertificateHandler(app.certificates)

	api := r.Group(cfg.APIPrefix)

	// Public certificate endpoints identify the tenant through the number or token.
	api.GET("/certificates/verify/:number", certificateHandler.Verify)
	api.GET("/certificates/download", certificateHandler.Download)

	tenant := middleware.Tenant(app.tenants, cfg.Tenant.Header, cfg.Tenant.BaseDomain)
	requireAuth := middleware.JWT(app.auth)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr, action, resource)
	}

	auth := api.Group("/auth", tenant)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/me", requireAuth, authHandler.Me)

	secured := api.Group("", tenant, requireAuth)

	secured.POST("/users", middleware.RequireRoles(models.RoleAdmin), audit(middleware.AuditActionUserCreate, "user"), authHandler.CreateUser)
	secured.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), ops.Snapshot)

	people := secured.Group("/people")
	{
		persons := people.Group("/persons")
		persons.GET("", middleware.RequireRoles(teachingRoles...), personHandler.List)
		persons.GET("/:id", middleware.RequireRoles(teachingRoles...), personHandler.Get)
		persons.POST("", middleware.RequireRoles(staffRoles...), personHandler.Create)
		persons.PATCH("/:id", middleware.RequireRoles(staffRoles...), personHandler.Update)
		persons.DELETE("/:id", middleware.RequireRoles(staffRoles...), personHandler.Delete)
		persons.POST("/:id/restore", middleware.RequireRoles(staffRoles...), personHandler.Restore)

		groups := people.Group("/groups")
		groups.GET("", middleware.RequireRoles(teachingRoles...), groupHandler.List)
		groups.GET("/:id", middleware.RequireRoles(teachingRoles...), groupHandler.Get)
		groups.GET("/:id/descendants", middleware.RequireRoles(teachingRoles...), groupHandler.Descendants)
		groups.POST("", middleware.RequireRoles(staffRoles...), groupHandler.Create)
		groups.PATCH("/:id", middleware.RequireRoles(staffRoles...), groupHandler.Update)
		groups.DELETE("/:id", middleware.RequireRoles(staffRoles...), groupHandler.Delete)

		memberships := people.Group("/memberships")
		memberships.GET("", middleware.RequireRoles(teachingRoles...), membershipHandler.List)
		memberships.GET("/:id", middleware.RequireRoles(teachingRoles...), membershipHandler.Get)
		memberships.POST("", middleware.RequireRoles(staffRoles...), membershipHandler.Create)
		memberships.POST("/:id/end", middleware.RequireRoles(staffRoles...), membershipHandler.End)
		memberships.POST("/:id/suspend", middleware.RequireRoles(staffRoles...), membershipHandler.Suspend)
		memberships.POST("/:id/reactivate", middleware.RequireRoles(staffRoles...), membershipHandler.Reactivate)
	}

	academic := secured.Group("/academic")
	{
		courses := academic.Group("/courses")
		courses.GET("", middleware.RequireRoles(anyRole...), courseHandler.List)
		courses.GET("/:id", middleware.RequireRoles(anyRole...), courseHandler.Get)
		courses.POST("", middleware.RequireRoles(staffRoles...), courseHandler.Create)
		courses.PATCH("/:id", middleware.RequireRoles(staffRoles...), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(staffRoles...), courseHandler.Delete)

		instances := academic.Group("/course-instances")
		instances.GET("", middleware.RequireRoles(anyRole...), instanceHandler.List)
		instances.GET("/:id", middleware.RequireRoles(anyRole...), instanceHandler.Get)
		instances.POST("", middleware.RequireRoles(staffRoles...), instanceHandler.Create)
		instances.PATCH("/:id", middleware.RequireRoles(staffRoles...), instanceHandler.Update)
		instances.POST("/:id/status", middleware.RequireRoles(staffRoles...), instanceHandler.ChangeStatus)
		instances.DELETE("/:id", middleware.RequireRoles(staffRoles...), instanceHandler.Delete)
		instances.GET("/:id/roster", middleware.RequireRoles(teachingRoles...), instanceHandler.Roster)
		instances.GET("/:id/grades/export", middleware.RequireRoles(teachingRoles...), instanceHandler.Grades)
		instances.POST("/:id/waitlist/process", middleware.RequireRoles(staffRoles...), audit(middleware.AuditActionWaitlistProcess, "course_instance"), enrollmentHandler.ProcessWaitlist)

		enrollments := academic.Group("/enrollments")
		enrollments.GET("", middleware.RequireRoles(teachingRoles...), enrollmentHandler.List)
		enrollments.GET("/:id", middleware.RequireRoles(teachingRoles...), enrollmentHandler.Get)
		enrollments.POST("", middleware.RequireRoles(staffRoles...), enrollmentHandler.Enroll)
		enrollments.POST("/:id/drop", middleware.RequireRoles(staffRoles...), audit(middleware.AuditActionEnrollmentStatus, "enrollment"), enrollmentHandler.Drop)
		enrollments.POST("/:id/status", middleware.RequireRoles(staffRoles...), audit(middleware.AuditActionEnrollmentStatus, "enrollment"), enrollmentHandler.ChangeStatus)
		enrollments.PUT("/:id/payment", middleware.RequireRoles(staffRoles...), enrollmentHandler.UpdatePayment)
		enrollments.GET("/:id/grades/summary", middleware.RequireRoles(teachingRoles...), gradeHandler.Summary)
		enrollments.GET("/:id/attendance/summary", middleware.RequireRoles(teachingRoles...), attendanceHandler.Summary)

		grades := academic.Group("/grades", middleware.RequireRoles(teachingRoles...))
		grades.GET("", gradeHandler.List)
		grades.GET("/:id", gradeHandler.Get)
		grades.POST("", gradeHandler.Create)
		grades.PATCH("/:id", gradeHandler.Update)
		grades.PUT("/:id/drop", gradeHandler.SetDropped)
		grades.DELETE("/:id", gradeHandler.Delete)

		schedules := academic.Group("/schedules")
		schedules.GET("", middleware.RequireRoles(anyRole...), scheduleHandler.List)
		schedules.GET("/:id", middleware.RequireRoles(anyRole...), scheduleHandler.Get)
		schedules.POST("", middleware.RequireRoles(staffRoles...), scheduleHandler.Create)
		schedules.PATCH("/:id", middleware.RequireRoles(staffRoles...), scheduleHandler.Update)
		schedules.DELETE("/:id", middleware.RequireRoles(staffRoles...), scheduleHandler.Delete)

		attendance := academic.Group("/attendance", middleware.RequireRoles(teachingRoles...))
		attendance.GET("", attendanceHandler.List)
		attendance.GET("/:id", attendanceHandler.Get)
		attendance.POST("", attendanceHandler.Record)
		attendance.PUT("/:id", attendanceHandler.Update)

		certificates := academic.Group("/certificates", middleware.RequireRoles(staffRoles...))
		certificates.GET("", certificateHandler.List)
		certificates.GET("/:id", certificateHandler.Get)
		certificates.POST("", certificateHandler.Generate)
		certificates.POST("/:id/retry", certificateHandler.Retry)
		certificates.GET("/:id/download-url", certificateHandler.DownloadURL)
		certificates.POST("/:id/issue", middleware.RequireRoles(models.RoleAdmin), audit(middleware.AuditActionCertificateIssue, "certificate"), certificateHandler.Issue)
		certificates.POST("/:id/revoke", middleware.RequireRoles(models.RoleAdmin), audit(middleware.AuditActionCertificateRevoke, "certificate"), certificateHandler.Revoke)
	}

	return r
}
