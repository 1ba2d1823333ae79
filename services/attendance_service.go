package services

import (
	"encoding/json"
	"fmt"

	"attendance-bot-server/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Verdict is the eligibility decision for a reported position. Evaluate has
// no side effects; callers decide whether anything gets recorded.
type Verdict struct {
	Admissible     bool     `json:"admissible"`
	DistanceMeters float64  `json:"distanceMeters"`
	Position       Position `json:"position"`
}

// AttendanceService decides whether a reported check-in/out position falls
// inside the office geofence, and records the resulting events.
type AttendanceService struct {
	db     *gorm.DB
	office OfficeConfig
}

func NewAttendanceService(db *gorm.DB, office OfficeConfig) *AttendanceService {
	return &AttendanceService{db: db, office: office}
}

func (s *AttendanceService) Office() OfficeConfig {
	return s.office
}

// Evaluate is the sole authority on whether a position is admissible for
// attendance. Points exactly on the radius count as inside.
func (s *AttendanceService) Evaluate(pos Position) (*Verdict, error) {
	if !ValidateCoordinates(pos.Latitude, pos.Longitude) {
		return nil, ErrInvalidCoordinates
	}
	distance := Distance(pos.Latitude, pos.Longitude, s.office.Latitude, s.office.Longitude)
	return &Verdict{
		Admissible:     distance <= s.office.RadiusMeters,
		DistanceMeters: distance,
		Position:       pos,
	}, nil
}

// Record evaluates the position and persists a check-in/check-out event,
// admissible or not, so rejected attempts stay visible in reports.
func (s *AttendanceService) Record(employeeID uint, kind string, pos Position) (*models.AttendanceRecord, *Verdict, error) {
	if kind != models.AttendanceCheckIn && kind != models.AttendanceCheckOut {
		return nil, nil, &ValidationError{Message: "kind must be check_in or check_out"}
	}

	verdict, err := s.Evaluate(pos)
	if err != nil {
		return nil, nil, err
	}

	raw, _ := json.Marshal(pos)
	record := models.AttendanceRecord{
		EmployeeID:     employeeID,
		Kind:           kind,
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		DistanceMeters: verdict.DistanceMeters,
		Admissible:     verdict.Admissible,
		Raw:            datatypes.JSON(raw),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, nil, &StoreError{Err: err}
	}
	return &record, verdict, nil
}

// Describe summarizes a verdict for bot replies, e.g. "nearby, SE of the office".
func (s *AttendanceService) Describe(v *Verdict) string {
	bearing := Bearing(s.office.Latitude, s.office.Longitude, v.Position.Latitude, v.Position.Longitude)
	return fmt.Sprintf("%s, %s of the office", DescribeDistance(v.DistanceMeters), DescribeDirection(bearing))
}
