package models

import (
	"time"
)

// Invitation statuses. The set is closed; nothing outside these four values
// is ever written to the status column.
const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationExpired   = "expired"
	InvitationCancelled = "cancelled"
)

// InvitationStatuses lists every legal status value, for filter validation.
var InvitationStatuses = []string{
	InvitationPending,
	InvitationAccepted,
	InvitationExpired,
	InvitationCancelled,
}

type Invitation struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Token is the only handle exposed outside the system. Pointer so NULL
	// does not violate the unique index across rows.
	Token *string `json:"token" gorm:"uniqueIndex;size:64"`

	FirstName   string `json:"firstName" gorm:"not null"`
	LastName    string `json:"lastName"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`

	InvitedBy string    `json:"invitedBy" gorm:"index;size:64"`
	InvitedAt time.Time `json:"invitedAt" gorm:"index"`
	ExpiresAt time.Time `json:"expiresAt"`

	// pending, accepted, expired, cancelled
	Status string `json:"status" gorm:"index;size:16"`

	// EmployeeID is set exactly once, when the invitation is accepted.
	EmployeeID *uint      `json:"employeeID"`
	Employee   *Employee  `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	AcceptedAt *time.Time `json:"acceptedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
