// Package http exposes the REST API over gin.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/http/handler"
	"github.com/dmitrijs2005/hiinen/internal/server/http/middleware"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Accounts      handler.Accounts
	Authenticator middleware.Authenticator
	CoFounder     handler.CoFounder
	Metrics       interface {
		middleware.HTTPRecorder
		Handler() http.Handler
	}
	Logger           logging.Logger
	RateLimiter      *middleware.RateLimiter
	RequestTimeout   time.Duration
	RequireAuthForAI bool
}

// NewRouter wires routes and middleware.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	session := middleware.Session(cfg.Authenticator, cfg.Logger)
	authHandler := handler.NewAuthHandler(cfg.Accounts, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.Accounts, cfg.Logger)
	aiHandler := handler.NewAIHandler(cfg.CoFounder, cfg.Logger)

	api := r.Group("/api")
	api.Use(cfg.RateLimiter.Handler(), middleware.RequestTimeout(cfg.RequestTimeout))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.SignUp)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/google", authHandler.Google)
			authGroup.POST("/logout", session, authHandler.Logout)
			authGroup.GET("/me", session, authHandler.Me)
		}

		me := api.Group("/users/me", session)
		{
			me.PATCH("", userHandler.UpdateProfile)
			me.POST("/password", userHandler.ChangePassword)
			me.POST("/avatar", userHandler.Avatar)
		}

		ai := api.Group("/ai")
		if cfg.RequireAuthForAI {
			ai.Use(session)
		}
		{
			ai.POST("/chat", aiHandler.Chat)
			ai.POST("/insights", aiHandler.Insights)
			ai.POST("/market-analysis", aiHandler.MarketAnalysis)
			ai.POST("/recommendations", aiHandler.Recommendations)
			ai.GET("/health", aiHandler.Health)
		}
	}

	return r
}
