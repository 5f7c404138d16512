package models

import "gorm.io/gorm"

// Transaction types.
const (
	TxTypeBuy  = "buy"
	TxTypeSell = "sell"
)

// Transaction is an append-only record of a single buy or sell against a
// holding. Rows are never updated or deleted; CreatedAt is the
// server-assigned transaction timestamp.
type Transaction struct {
	gorm.Model
	HoldingID uint    `gorm:"index;not null" json:"holding_id"`
	Type      string  `gorm:"size:4;not null" json:"type"` // "buy" or "sell"
	Quantity  float64 `gorm:"not null" json:"quantity"`
	Price     float64 `gorm:"not null" json:"price"`
}
