package models

import "gorm.io/gorm"

// Wallet is the per-user cash balance funding buys and credited by sells.
// At most one wallet exists per user; it is created lazily on first use.
type Wallet struct {
	gorm.Model
	UserID  uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance float64 `gorm:"default:0" json:"balance"`
}
