package httpapi

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires the routes. Mutating routes require the caller header.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger)

	router.GET("/healthz", h.Health)

	api := router.Group("", identify)

	auctions := api.Group("/auctions")
	{
		auctions.GET("", h.ListAuctions)
		auctions.GET("/:id", h.GetAuction)
		auctions.POST("", requireUser, h.CreateAuction)
		auctions.POST("/:id/bids", requireUser, h.PlaceBid)
		auctions.POST("/:id/close", requireUser, h.CloseAuction)
	}

	accounts := api.Group("/accounts")
	{
		accounts.GET("/:id", h.GetAccount)
		accounts.GET("/:id/transactions", h.GetTransactions)
		accounts.POST("", requireUser, h.CreateAccount)
		accounts.POST("/:id/adjustments", requireUser, h.AdjustBalance)
	}

	return router
}
