package models

import (
	"time"

	"gorm.io/datatypes"
)

type Employee struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// TelegramID is the external identity key; at most one employee per account.
	TelegramID       string `json:"telegramID" gorm:"uniqueIndex;size:32;not null"`
	TelegramUsername string `json:"telegramUsername" gorm:"size:64"`

	FirstName   string `json:"firstName" gorm:"not null"`
	LastName    string `json:"lastName"`
	Department  string `json:"department" gorm:"index"`
	Position    string `json:"position"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`

	// InvitationID links back to the invitation this employee was created from.
	InvitationID *uint `json:"invitationID"`

	IsActive *bool          `json:"isActive"`
	Settings datatypes.JSON `json:"settings"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
