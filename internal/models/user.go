package models

import "gorm.io/gorm"

// User is a registered account. The password is stored only as a bcrypt hash.
type User struct {
	gorm.Model
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
}
