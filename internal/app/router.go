package app

import (
	"langlearn_backend/docs"
	"langlearn_backend/internal/config"
	"langlearn_backend/internal/middleware"
	"langlearn_backend/internal/model"
	"langlearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.GET("/questions", c.question.List)
		authGroup.GET("/questions/:id", c.question.Get)

		// 学生答题
		authGroup.POST("/attempts", c.evaluation.StartAttempt)
		authGroup.POST("/attempts/:id/answers", c.evaluation.SubmitAnswer)
		authGroup.POST("/attempts/:id/answers/media", c.evaluation.SubmitMediaAnswer)
		authGroup.POST("/attempts/:id/submit", c.evaluation.SubmitAttempt)
		authGroup.GET("/attempts/:id/totals", c.evaluation.GetAttemptTotals)

		// 教师批改与题库维护
		teacher := authGroup.Group("/")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.GET("/reviews/pending", c.review.ListPending)
			teacher.GET("/reviews/count", c.review.PendingCount)
			teacher.POST("/reviews", c.review.SubmitReview)
			teacher.POST("/reviews/batch", c.review.BatchSubmitReview)
			teacher.POST("/answers/:id/flag", c.review.Flag)
			teacher.POST("/attempts/:id/recompute", c.review.Recompute)

			teacher.POST("/questions", c.question.Create)
			teacher.PUT("/questions/:id", c.question.Update)
			teacher.DELETE("/questions/:id", c.question.Delete)
		}
	}
}
