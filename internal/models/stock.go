package models

import "gorm.io/gorm"

// Stock is a global catalog entry. Symbols are stored uppercase and are
// unique across the catalog.
type Stock struct {
	gorm.Model
	Symbol      string `gorm:"size:10;uniqueIndex;not null" json:"symbol"`
	CompanyName string `gorm:"size:120;not null" json:"company_name"`
	Market      string `gorm:"size:50;not null" json:"market"`
}
