package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kizunalabs/kizuna-backend/internal/handlers"
	"github.com/kizunalabs/kizuna-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	UserHandler      *handlers.UserHandler
	ValueHandler     *handlers.ValueHandler
	ChatHandler      *handlers.ChatHandler
	CounselorHandler *handlers.CounselorHandler
	SSEHandler       *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		api.POST("/refresh", cfg.AuthHandler.Refresh)
		// Anonymous visitors can post values; authenticated callers go
		// through the protected route instead.
		api.POST("/values", cfg.ValueHandler.SaveValue)
	}

	// Protected
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		protected.POST("/logout", cfg.AuthHandler.Logout)
		protected.GET("/me", cfg.UserHandler.GetMe)

		protected.POST("/me/values", cfg.ValueHandler.SaveValue)
		protected.GET("/me/profile", cfg.ValueHandler.GetMyProfile)

		protected.POST("/conversations", cfg.ChatHandler.OpenRoom)
		protected.GET("/conversations", cfg.ChatHandler.GetRooms)
		protected.GET("/conversations/:id/messages", cfg.ChatHandler.GetMessages)
		protected.POST("/conversations/:id/messages", cfg.ChatHandler.SendMessage)
		protected.GET("/conversations/:id/stream", cfg.SSEHandler.Stream)

		protected.POST("/counselor/chat", cfg.CounselorHandler.Chat)
		protected.GET("/counselor/messages", cfg.CounselorHandler.GetHistory)
	}

	return router
}
