package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/airconnect-api/internal/middleware"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/service"
)

// Routes bundles every handler for registration.
type Routes struct {
	Auth          *AuthHandler
	Announcements *AnnouncementHandler
	Applications  *ApplicationHandler
	Jobs          *JobHandler
	Notifications *NotificationHandler
	Push          *PushHandler

	AuthService *service.AuthService
	Metrics     *service.MetricsService
	APIPrefix   string
}

// Register mounts the API surface under the configured prefix.
func (rt Routes) Register(r *gin.Engine) {
	prefix := rt.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	api.POST("/auth/login", rt.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(rt.AuthService))

	secured.GET("/auth/me", rt.Auth.Me)

	announcements := secured.Group("/announcements")
	{
		announcements.GET("", rt.Announcements.List)
		announcements.POST("",
			middleware.RequireRoles(models.RoleTeacher, models.RoleCoordinator, models.RoleStudentAffairs),
			rt.Announcements.Create)
		announcements.GET("/:id", rt.Announcements.Get)
		announcements.PUT("/:id", rt.Announcements.Update)
		announcements.DELETE("/:id", rt.Announcements.Delete)
		announcements.POST("/:id/like", rt.Announcements.Like)
		announcements.POST("/:id/dislike", rt.Announcements.Dislike)
		announcements.GET("/:id/comments", rt.Announcements.Comments)
		announcements.POST("/:id/comments", rt.Announcements.Comment)
	}

	applications := secured.Group("/applications")
	{
		applications.GET("", rt.Applications.List)
		applications.POST("",
			middleware.RequireRoles(models.RoleStudent),
			rt.Applications.Create)
		applications.POST("/export",
			middleware.RequireRoles(models.RoleCoordinator, models.RoleStudentAffairs),
			rt.Applications.Export)
		applications.GET("/:id", rt.Applications.Get)
		applications.PUT("/:id",
			middleware.RequireRoles(models.RoleStudent),
			rt.Applications.Update)
		applications.POST("/:id/advisor-action",
			middleware.RequireRoles(models.RoleTeacher),
			rt.Applications.AdvisorAction)
		applications.POST("/:id/coordinator-action",
			middleware.RequireRoles(models.RoleCoordinator),
			rt.Applications.CoordinatorAction)
		applications.POST("/:id/hide", rt.Applications.Hide)
		applications.GET("/:id/comments", rt.Applications.Comments)
		applications.POST("/:id/comments", rt.Applications.Comment)
	}

	// Downloads authenticate through the signed token, not a session.
	api.GET("/applications/export/:token", rt.Applications.Download)

	jobs := secured.Group("/jobs")
	{
		jobs.GET("", rt.Jobs.List)
		jobs.POST("",
			middleware.RequireRoles(models.RoleCoordinator, models.RoleStudentAffairs),
			rt.Jobs.Create)
		jobs.GET("/:id", rt.Jobs.Get)
		jobs.DELETE("/:id", rt.Jobs.Delete)
	}

	notifications := secured.Group("/notifications")
	{
		notifications.GET("", rt.Notifications.List)
		notifications.POST("/read-all", rt.Notifications.MarkAllRead)
		notifications.POST("/:id/read", rt.Notifications.MarkRead)
	}

	secured.GET("/ws", rt.Push.Connect)

	if rt.Metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.Metrics.Handler()))
	}
}
