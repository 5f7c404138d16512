package server

import (
	"github.com/gin-gonic/gin"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/auth"
)

// NewRouter wires the API routes. Everything except signup and login sits
// behind the session middleware.
func NewRouter(h *Handler, authSvc *auth.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Public routes
	router.POST("/signup", h.Signup)
	router.POST("/login", h.Login)

	// Protected routes
	authed := router.Group("/")
	authed.Use(AuthRequired(authSvc))
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/portfolios", h.ListPortfolios)
		authed.POST("/portfolios", h.CreatePortfolio)
		authed.GET("/portfolios/:id/holdings", h.ListHoldings)
		authed.GET("/stocks", h.ListStocks)
		authed.POST("/stocks", h.CreateStock)
		authed.GET("/transactions", h.ListTransactions)
		authed.POST("/transactions", h.CreateTransaction)
		authed.GET("/wallet", h.GetWallet)
		authed.POST("/wallet", h.AdjustWallet)
	}

	return router
}
