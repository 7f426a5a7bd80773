package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/pkg/db/models"
)

// AddressDTO is a saved address as returned to its owner.
type AddressDTO struct {
	ID              uuid.UUID `json:"id"`
	Label           *string   `json:"label,omitempty"`
	FullAddress     string    `json:"full_address"`
	PlaceID         *string   `json:"place_id,omitempty"`
	Lat             *float64  `json:"lat,omitempty"`
	Lng             *float64  `json:"lng,omitempty"`
	DistanceMeters  *int      `json:"distance_meters"`
	DurationMinutes *int      `json:"duration_minutes"`
	ZoneLabel       *string   `json:"zone_label"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateAddressInput saves an address. With a place_id the address is geocoded
// and its route distance computed; a bare full_address is stored without a distance.
type CreateAddressInput struct {
	Label       *string `json:"label,omitempty" validate:"omitempty,max=60"`
	PlaceID     string  `json:"place_id,omitempty" validate:"omitempty,max=300"`
	FullAddress string  `json:"full_address,omitempty" validate:"omitempty,max=500"`
}

// SuggestRequest queries place autocomplete.
type SuggestRequest struct {
	Query    string
	Language string
}

type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

func FromModel(a *models.Address) AddressDTO {
	return AddressDTO{
		ID:              a.ID,
		Label:           a.Label,
		FullAddress:     a.FullAddress,
		PlaceID:         a.PlaceID,
		Lat:             a.Lat,
		Lng:             a.Lng,
		DistanceMeters:  a.DistanceMeters,
		DurationMinutes: a.DurationMinutes,
		ZoneLabel:       a.ZoneLabel,
		CreatedAt:       a.CreatedAt,
	}
}
