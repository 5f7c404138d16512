package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/models"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/quotes"
)

// Wallet adjustment actions.
const (
	ActionDeposit  = "deposit"
	ActionWithdraw = "withdraw"
)

// Service implements the portfolio, stock catalog, wallet and accounting
// operations. Every method takes the acting user as an explicit parameter;
// there is no ambient identity.
type Service struct {
	db     *gorm.DB
	quotes quotes.Provider
	logger *zap.Logger
}

// NewService creates a portfolio service.
func NewService(db *gorm.DB, provider quotes.Provider, logger *zap.Logger) *Service {
	return &Service{db: db, quotes: provider, logger: logger}
}

// CreatePortfolio creates a named portfolio for the user.
func (s *Service) CreatePortfolio(ctx context.Context, userID uint, name string) (*models.Portfolio, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: portfolio name is required", ErrInvalidInput)
	}
	p := models.Portfolio{UserID: userID, Name: name}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return &p, nil
}

// ListPortfolios returns all portfolios owned by the user.
func (s *Service) ListPortfolios(ctx context.Context, userID uint) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&portfolios).Error; err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return portfolios, nil
}

// RegisterStock adds a stock to the global catalog. Symbol and market are
// normalized to uppercase. Uniqueness is enforced by the symbol index, not
// a prior lookup, so concurrent registrations of the same symbol cannot
// both succeed.
func (s *Service) RegisterStock(ctx context.Context, symbol, companyName, market string) (*models.Stock, error) {
	if symbol == "" || companyName == "" || market == "" {
		return nil, fmt.Errorf("%w: symbol, company name and market are required", ErrInvalidInput)
	}
	stock := models.Stock{
		Symbol:      strings.ToUpper(symbol),
		CompanyName: companyName,
		Market:      strings.ToUpper(market),
	}
	if err := s.db.WithContext(ctx).Create(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSymbol
		}
		return nil, fmt.Errorf("failed to register stock: %w", err)
	}
	return &stock, nil
}

// ListStocks returns the full catalog ordered by symbol.
func (s *Service) ListStocks(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := s.db.WithContext(ctx).Order("symbol").Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	return stocks, nil
}

// lockWallet fetches the user's wallet FOR UPDATE, creating it first if the
// user has none yet. The unique index on user_id makes the lazy create safe
// against a concurrent first use.
func lockWallet(tx *gorm.DB, userID uint) (*models.Wallet, error) {
	wallet := models.Wallet{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	var locked models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&locked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &locked, nil
}

// RecordTransaction records a buy or sell for the user's portfolio as one
// atomic unit: holding lookup/create, wallet debit/credit, weighted-average
// update and the immutable transaction row commit or roll back together.
// Wallet and holding rows are locked for the duration, so concurrent
// operations on the same pair serialize instead of losing updates.
//
// A sell credits the wallet and decrements quantity without flooring at
// zero and without recomputing the average price; a negative quantity is an
// unmodeled short position.
func (s *Service) RecordTransaction(ctx context.Context, userID, portfolioID, stockID uint, txType string, quantity, price float64) (*models.Transaction, error) {
	if txType != models.TxTypeBuy && txType != models.TxTypeSell {
		return nil, fmt.Errorf("%w: transaction type must be %q or %q", ErrInvalidInput, models.TxTypeBuy, models.TxTypeSell)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	var record models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Portfolio
		err := tx.Where("id = ? AND user_id = ?", portfolioID, userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: portfolio %d", ErrNotFound, portfolioID)
		}
		if err != nil {
			return fmt.Errorf("failed to load portfolio: %w", err)
		}

		wallet, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}

		holding, err := lockHolding(tx, portfolioID, stockID)
		if err != nil {
			return err
		}

		cost := quantity * price
		if txType == models.TxTypeBuy {
			if wallet.Balance < cost {
				return ErrInsufficientFunds
			}
			wallet.Balance -= cost

			if holding.TotalQuantity == 0 {
				holding.TotalQuantity = quantity
				holding.AveragePrice = price
			} else {
				prevCost := holding.AveragePrice * holding.TotalQuantity
				holding.TotalQuantity += quantity
				holding.AveragePrice = (prevCost + cost) / holding.TotalQuantity
			}
		} else {
			wallet.Balance += cost
			holding.TotalQuantity -= quantity
		}

		if err := tx.Save(wallet).Error; err != nil {
			return fmt.Errorf("failed to update wallet: %w", err)
		}
		if err := tx.Save(holding).Error; err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}

		record = models.Transaction{
			HoldingID: holding.ID,
			Type:      txType,
			Quantity:  quantity,
			Price:     price,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction recorded",
		zap.Uint("user_id", userID),
		zap.Uint("holding_id", record.HoldingID),
		zap.String("type", txType),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
	)
	return &record, nil
}

// lockHolding fetches the holding for (portfolio, stock) FOR UPDATE,
// creating an empty one on first transaction against the pair. The
// composite unique index keeps a concurrent first transaction from
// producing two rows.
func lockHolding(tx *gorm.DB, portfolioID, stockID uint) (*models.Holding, error) {
	var stock models.Stock
	if err := tx.First(&stock, stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: stock %d", ErrNotFound, stockID)
		}
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}

	holding := models.Holding{PortfolioID: portfolioID, StockID: stockID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&holding).Error; err != nil {
		return nil, fmt.Errorf("failed to create holding: %w", err)
	}

	var locked models.Holding
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("portfolio_id = ? AND stock_id = ?", portfolioID, stockID).
		First(&locked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock holding: %w", err)
	}
	return &locked, nil
}

// ListTransactions returns all transactions across the user's portfolios,
// newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Select("transactions.*").
		Joins("JOIN holdings ON holdings.id = transactions.holding_id").
		Joins("JOIN portfolios ON portfolios.id = holdings.portfolio_id").
		Where("portfolios.user_id = ?", userID).
		Order("transactions.created_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// GetWallet returns the user's wallet, creating an empty one on first use.
func (s *Service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	wallet = models.Wallet{UserID: userID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &wallet, nil
}

// AdjustWallet deposits into or withdraws from the user's wallet. Deposits
// always succeed; a withdrawal exceeding the balance is rejected with the
// balance unchanged. Adjustments are independent of the accounting engine
// and leave no transaction record.
func (s *Service) AdjustWallet(ctx context.Context, userID uint, action string, amount float64) (*models.Wallet, error) {
	if action != ActionDeposit && action != ActionWithdraw {
		return nil, fmt.Errorf("%w: action must be %q or %q", ErrInvalidInput, ActionDeposit, ActionWithdraw)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	var result models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}

		if action == ActionWithdraw {
			if amount > wallet.Balance {
				return ErrInsufficientFunds
			}
			wallet.Balance -= amount
		} else {
			wallet.Balance += amount
		}

		if err := tx.Save(wallet).Error; err != nil {
			return fmt.Errorf("failed to update wallet: %w", err)
		}
		result = *wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// HoldingView is a holding enriched with its stock identity and the current
// market valuation.
type HoldingView struct {
	HoldingID     uint    `json:"holding_id"`
	StockID       uint    `json:"stock_id"`
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"company_name"`
	TotalQuantity float64 `json:"total_quantity"`
	AveragePrice  float64 `json:"average_price"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
}

// ListHoldings returns the holdings of one of the user's portfolios, each
// enriched with a live price. Quotes are fetched concurrently; a failed
// lookup degrades that holding to a zero price without affecting the rest.
func (s *Service) ListHoldings(ctx context.Context, userID, portfolioID uint) ([]HoldingView, error) {
	var p models.Portfolio
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", portfolioID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: portfolio %d", ErrNotFound, portfolioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	// Non-nil so an empty portfolio serializes as [] rather than null.
	views := make([]HoldingView, 0)
	err = s.db.WithContext(ctx).
		Model(&models.Holding{}).
		Select("holdings.id AS holding_id, holdings.stock_id, stocks.symbol, stocks.company_name, holdings.total_quantity, holdings.average_price").
		Joins("JOIN stocks ON stocks.id = holdings.stock_id").
		Where("holdings.portfolio_id = ?", portfolioID).
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	var wg sync.WaitGroup
	for i := range views {
		wg.Add(1)
		go func(v *HoldingView) {
			defer wg.Done()
			price, err := s.quotes.GetQuote(ctx, v.Symbol)
			if err != nil {
				s.logger.Debug("No quote for holding, using zero price",
					zap.String("symbol", v.Symbol), zap.Error(err))
				price = 0.0
			}
			v.CurrentPrice = price
			v.CurrentValue = price * v.TotalQuantity
		}(&views[i])
	}
	wg.Wait()

	return views, nil
}
