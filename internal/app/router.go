package app

import (
	"vidlearn_backend/docs"
	"vidlearn_backend/internal/config"
	"vidlearn_backend/internal/middleware"
	"vidlearn_backend/internal/model"
	"vidlearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 观看进度：可选认证，游客走本地回退存储
	a.registerWatchRoutes(router, c, repos, cfg)

	// 3. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)

		// 课程管理（导入/建课/上传/删除）
		curator := authGroup.Group("/")
		curator.Use(middleware.RoleMiddleware(model.Curator))
		{
			curator.POST("/courses", c.course.CreateCourse)
			curator.POST("/courses/import", c.course.ImportPlaylist)
			curator.POST("/courses/:id/videos", c.course.UploadVideo)
			curator.DELETE("/courses/:id", c.course.DeleteCourse)
		}

		// 学习统计
		authGroup.GET("/analytics/overview", c.analytics.GetLibraryOverview)
		authGroup.GET("/analytics/courses/:id", c.analytics.GetCourseSummary)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// registerWatchRoutes 课程浏览与进度上报。全部可匿名访问：
// 登录用户读写远端存储并镜像本地，游客只落本地回退存储。
func (a *App) registerWatchRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	watch := router.Group("/api")
	watch.Use(middleware.TryAuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		watch.GET("/courses", c.course.ListCourses)
		watch.GET("/courses/:id", c.course.GetCourse)
		watch.GET("/playlists/search", c.course.SearchPlaylists)

		watch.GET("/videos/:videoId/progress", c.progress.GetProgress)
		watch.POST("/videos/:videoId/progress", c.progress.RecordInterval)
		watch.GET("/videos/:videoId/watch", c.progress.WatchSocket)
	}
}
