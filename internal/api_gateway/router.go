package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fundflow-core/internal/api_gateway/handler"
	"github.com/fundflow-core/internal/api_gateway/middleware"
	"github.com/fundflow-core/internal/ratelimit"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	limiter *ratelimit.Limiter,
	accountHandler *handler.AccountHandler,
	withdrawalHandler *handler.WithdrawalHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.POST("/:id/members", accountHandler.AddMember)
			accounts.GET("/:id/balance",
				middleware.RateLimit(logger, limiter, ratelimit.ContextQuery, "balance", middleware.EntityFromParam("id")),
				accountHandler.GetBalance)
			accounts.GET("/:id/entries", withdrawalHandler.GetByAccountID)
		}

		// Withdrawal lifecycle
		withdrawals := v1.Group("/withdrawals")
		{
			withdrawals.POST("",
				middleware.RateLimit(logger, limiter, ratelimit.ContextWithdrawal, "create", middleware.EntityFromClientIP),
				withdrawalHandler.Create)
			withdrawals.GET("/:id", withdrawalHandler.GetByID)
			withdrawals.POST("/:id/transition", withdrawalHandler.Transition)
			withdrawals.POST("/:id/process", withdrawalHandler.Process)
			withdrawals.POST("/:id/rollback", withdrawalHandler.Rollback)
		}

		// Deposits settle upstream; this just records them
		v1.POST("/deposits", withdrawalHandler.CreateDeposit)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
