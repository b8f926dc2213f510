// Package app wires the grid64 HTTP API for both local and Lambda execution.
package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/auth"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.logger))

	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)
	router.POST("/api/webhooks/stripe", s.StripeWebhook)
	router.POST("/api/webhooks/clerk", s.ClerkWebhook)

	authorizedParties := origins
	if len(authorizedParties) == 1 && authorizedParties[0] == "*" {
		authorizedParties = nil
	}

	protected := router.Group("/api")
	protected.Use(auth.Middleware(s.verifier, auth.MiddlewareConfig{
		AuthorizedParties: authorizedParties,
		DisableAuth:       s.cfg.Auth.Disabled,
		OnAuthenticated:   s.provisionUser,
		Logger:            s.logger,
	}))

	protected.GET("/me", s.Me)
	protected.GET("/questions", s.Questions)
	protected.GET("/onboarding", s.GetOnboarding)
	protected.POST("/onboarding", s.SaveAnswer)
	protected.POST("/complete-onboarding", s.CompleteOnboarding)

	protected.GET("/goal", s.GetGoal)
	protected.POST("/goal", s.SaveGoal)
	protected.GET("/pillars", s.GetPillars)
	protected.POST("/pillars", s.SavePillars)
	protected.GET("/plans", s.ListPlans)
	protected.POST("/plans/switch", s.SwitchPlan)
	protected.GET("/tasks", s.GetTasks)
	protected.POST("/generate-pillars", s.GeneratePillars)
	protected.POST("/generate-plan", s.GeneratePlan)

	protected.GET("/daily-tasks", s.DailyTasks)
	protected.POST("/toggle-task", s.ToggleTask)
	protected.GET("/streak", s.Streak)
	protected.GET("/weekly-completions", s.WeeklyCompletions)

	protected.GET("/grid", s.Grid)
	protected.GET("/grid/export", s.GridExport)

	protected.POST("/billing/create-checkout-session", s.CreateCheckoutSession)
	protected.POST("/billing/portal-session", s.CreatePortalSession)
	protected.GET("/subscription/status", s.SubscriptionStatus)

	return router
}
