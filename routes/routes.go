package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"scribble/handlers"
	"scribble/middleware"
	"scribble/token"
)

func SetupRouter(api *handlers.API, tokens token.Strategy) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	auth.Use(middleware.RateLimit(30))
	auth.POST("/register", api.Register)
	auth.POST("/login", api.Login)
	auth.POST("/forgot-password", api.ForgotPassword)
	auth.PUT("/reset-password", api.ResetPassword)
	auth.POST("/google-login", api.GoogleLogin)
	auth.GET("/google/url", api.GoogleAuthURL)
	auth.GET("/google/callback", api.GoogleCallback)

	router.GET("/push/public-key", api.GetPushPublicKey)

	protected := router.Group("/")
	protected.Use(middleware.RequireAuth(tokens))

	protected.GET("/users", api.ListUsers)
	protected.GET("/users/:id", api.GetUser)
	protected.PUT("/users/:id", api.UpdateUser)

	protected.POST("/posts", api.CreatePost)
	protected.GET("/posts", api.GetFeed)
	protected.GET("/posts/:id", api.GetUserPosts)
	protected.PATCH("/posts/:id/like", api.LikePost)
	protected.PATCH("/posts/:id/comment", api.CommentPost)
	protected.DELETE("/posts/:id", api.DeletePost)
	protected.POST("/posts/:id/save", api.SavePost)
	protected.DELETE("/posts/:id/save", api.UnsavePost)
	protected.GET("/saved", api.GetSavedPosts)

	protected.POST("/push/subscribe", api.SubscribePush)

	return router
}

func allowedOrigins() []string {
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		return strings.Split(env, ",")
	}
	return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
}
