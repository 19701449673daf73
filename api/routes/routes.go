package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/nightcrane/lotterybot/internal/config"
	"github.com/nightcrane/lotterybot/internal/handlers"
	"github.com/nightcrane/lotterybot/internal/middleware"
)

// HandlerDependencies carries the handlers wired in main
type HandlerDependencies struct {
	AuthHandler    *handlers.AuthHandler
	LotteryHandler *handlers.LotteryHandler
}

// SetupRouter sets up the admin API router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())

	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
		public.POST("/auth/login", deps.AuthHandler.Login)
	}

	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		lotteries := protected.Group("/lotteries")
		{
			lotteries.GET("/unended", deps.LotteryHandler.GetUnendedLotteries)
			lotteries.GET("/:id", deps.LotteryHandler.GetLotteryByID)
		}
	}

	return router
}
