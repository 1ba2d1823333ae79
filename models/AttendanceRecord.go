package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AttendanceCheckIn  = "check_in"
	AttendanceCheckOut = "check_out"
)

type AttendanceRecord struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	EmployeeID uint     `json:"employeeID" gorm:"not null;index"`
	Employee   Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`

	// check_in, check_out
	Kind string `json:"kind" gorm:"size:16;index"`

	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distanceMeters"`
	Admissible     bool    `json:"admissible"`

	// Raw keeps the reported location payload as sent by the bot.
	Raw datatypes.JSON `json:"raw,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}
