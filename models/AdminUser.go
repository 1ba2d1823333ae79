package models

import (
	"time"
)

type AdminUser struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	Password  string `json:"-"`

	SocialLogin    bool   `json:"socialLogin"`
	SocialProvider string `json:"socialProvider"`

	// admin, super_admin
	Role string `json:"role" gorm:"type:varchar(20);default:admin;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
