package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/auth"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/portfolio"
)

// Handler holds dependencies for the API endpoints.
type Handler struct {
	auth      *auth.Service
	portfolio *portfolio.Service
	logger    *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(authSvc *auth.Service, portfolioSvc *portfolio.Service, logger *zap.Logger) *Handler {
	return &Handler{auth: authSvc, portfolio: portfolioSvc, logger: logger}
}

// writeError maps service errors onto HTTP statuses. Unexpected errors are
// logged and reported as an opaque 500 so persistence details never leak.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrDuplicateIdentity),
		errors.Is(err, portfolio.ErrDuplicateSymbol):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, portfolio.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, portfolio.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrInvalidInput),
		errors.Is(err, auth.ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func userID(c *gin.Context) uint {
	return c.MustGet(ctxUserID).(uint)
}

// SignupInput carries the signup form fields.
type SignupInput struct {
	Username             string `json:"username" binding:"required,min=1,max=64"`
	Email                string `json:"email" binding:"required,email,max=120"`
	Password             string `json:"password" binding:"required,min=6,max=128"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

// Signup creates a new account.
func (h *Handler) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.Signup(c.Request.Context(), input.Username, input.Email, input.Password, input.PasswordConfirmation); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "account created"})
}

// LoginInput carries the login form fields.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login establishes a session and returns its token.
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "username": user.Username})
}

// Logout tears down the session unconditionally.
func (h *Handler) Logout(c *gin.Context) {
	token := c.MustGet(ctxSessionToken).(string)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// PortfolioInput carries the portfolio creation fields.
type PortfolioInput struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// CreatePortfolio creates a portfolio for the authenticated user.
func (h *Handler) CreatePortfolio(c *gin.Context) {
	var input PortfolioInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.portfolio.CreatePortfolio(c.Request.Context(), userID(c), input.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPortfolios lists the authenticated user's portfolios.
func (h *Handler) ListPortfolios(c *gin.Context) {
	portfolios, err := h.portfolio.ListPortfolios(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolios)
}

// StockInput carries the stock registration fields.
type StockInput struct {
	Symbol      string `json:"symbol" binding:"required,min=1,max=10"`
	CompanyName string `json:"company_name" binding:"required,min=1,max=120"`
	Market      string `json:"market" binding:"required,min=1,max=50"`
}

// CreateStock registers a stock in the global catalog.
func (h *Handler) CreateStock(c *gin.Context) {
	var input StockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stock, err := h.portfolio.RegisterStock(c.Request.Context(), input.Symbol, input.CompanyName, input.Market)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stock)
}

// ListStocks lists the catalog ordered by symbol.
func (h *Handler) ListStocks(c *gin.Context) {
	stocks, err := h.portfolio.ListStocks(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stocks)
}

// TransactionInput carries the transaction form fields.
type TransactionInput struct {
	PortfolioID uint    `json:"portfolio_id" binding:"required"`
	StockID     uint    `json:"stock_id" binding:"required"`
	Type        string  `json:"type" binding:"required,oneof=buy sell"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}

// CreateTransaction records a buy or sell against the user's portfolio.
func (h *Handler) CreateTransaction(c *gin.Context) {
	var input TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.portfolio.RecordTransaction(c.Request.Context(), userID(c),
		input.PortfolioID, input.StockID, input.Type, input.Quantity, input.Price)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListTransactions lists the user's transactions, newest first.
func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.portfolio.ListTransactions(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// ListHoldings lists one portfolio's holdings enriched with live prices.
func (h *Handler) ListHoldings(c *gin.Context) {
	portfolioID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid portfolio id"})
		return
	}

	holdings, err := h.portfolio.ListHoldings(c.Request.Context(), userID(c), uint(portfolioID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, holdings)
}

// GetWallet returns the user's wallet, creating it on first visit.
func (h *Handler) GetWallet(c *gin.Context) {
	wallet, err := h.portfolio.GetWallet(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// WalletInput carries the wallet adjustment fields.
type WalletInput struct {
	Action string  `json:"action" binding:"required,oneof=deposit withdraw"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// AdjustWallet deposits into or withdraws from the user's wallet.
func (h *Handler) AdjustWallet(c *gin.Context) {
	var input WalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.portfolio.AdjustWallet(c.Request.Context(), userID(c), input.Action, input.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}
