package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a customer delivery location with its geocoded distance from the bakery.
type Address struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Label           *string   `gorm:"column:label"`
	FullAddress     string    `gorm:"column:full_address;not null"`
	PlaceID         *string   `gorm:"column:place_id"`
	Lat             *float64  `gorm:"column:lat"`
	Lng             *float64  `gorm:"column:lng"`
	DistanceMeters  *int      `gorm:"column:distance_meters"`
	DurationMinutes *int      `gorm:"column:duration_minutes"`
	ZoneLabel       *string   `gorm:"column:zone_label"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
