package services

import (
	"math"
	"os"
	"strconv"
)

const earthRadiusMeters = 6371000.0

// OfficeConfig is the geofence reference point. It is built once at startup
// and handed to NewAttendanceService; nothing mutates it afterwards.
type OfficeConfig struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// LoadOfficeConfig reads the office reference point from the environment.
// Defaults to the Mansoura office with a 100m radius.
func LoadOfficeConfig() OfficeConfig {
	cfg := OfficeConfig{Latitude: 31.0417, Longitude: 31.3778, RadiusMeters: 100}
	if v, err := strconv.ParseFloat(os.Getenv("OFFICE_LATITUDE"), 64); err == nil && ValidateCoordinates(v, cfg.Longitude) {
		cfg.Latitude = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("OFFICE_LONGITUDE"), 64); err == nil && ValidateCoordinates(cfg.Latitude, v) {
		cfg.Longitude = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("OFFICE_RADIUS_METERS"), 64); err == nil && v > 0 {
		cfg.RadiusMeters = v
	}
	return cfg
}

// ValidateCoordinates reports whether lat/lng form a usable position. Must be
// checked before any distance or bearing computation.
func ValidateCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Distance returns the great-circle distance in meters between two points
// using the Haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0
	la1 := lat1 * math.Pi / 180.0
	la2 := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(la1)*math.Cos(la2)
	// floating error can push a just outside [0,1] for antipodal or identical points
	if a > 1 {
		a = 1
	} else if a < 0 {
		a = 0
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Bearing returns the initial compass bearing in degrees [0, 360) from the
// first point to the second.
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	la1 := lat1 * math.Pi / 180.0
	la2 := lat2 * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	y := math.Sin(dLng) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180.0 / math.Pi
	return math.Mod(deg+360.0, 360.0)
}

// DescribeDistance buckets a distance in meters into a coarse label for bot
// messages.
func DescribeDistance(meters float64) string {
	switch {
	case meters < 10:
		return "very close"
	case meters < 50:
		return "close"
	case meters < 100:
		return "near"
	case meters < 500:
		return "nearby"
	case meters < 1000:
		return "far"
	default:
		return "very far"
	}
}

var compassSectors = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// DescribeDirection maps a bearing to one of 8 compass sectors of 45° each.
func DescribeDirection(bearing float64) string {
	idx := int(math.Round(bearing/45.0)) % 8
	return compassSectors[idx]
}
