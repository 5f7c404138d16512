package models

import "gorm.io/gorm"

// Holding is the aggregate position one portfolio has in one stock.
// TotalQuantity and AveragePrice are maintained exclusively by the
// accounting engine; AveragePrice is only meaningful while
// TotalQuantity > 0.
type Holding struct {
	gorm.Model
	PortfolioID   uint    `gorm:"uniqueIndex:idx_holdings_portfolio_stock;not null" json:"portfolio_id"`
	StockID       uint    `gorm:"uniqueIndex:idx_holdings_portfolio_stock;not null" json:"stock_id"`
	TotalQuantity float64 `gorm:"default:0" json:"total_quantity"`
	AveragePrice  float64 `gorm:"default:0" json:"average_price"`
}
