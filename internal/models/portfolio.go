package models

import "gorm.io/gorm"

// Portfolio groups a user's holdings under a name.
type Portfolio struct {
	gorm.Model
	UserID uint   `gorm:"index;not null" json:"user_id"`
	Name   string `gorm:"size:100;not null" json:"name"`
}
