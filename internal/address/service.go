package address

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/maps"
)

// Service manages customer addresses and their delivery distance.
type Service interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateAddressInput) (*AddressDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
	RefreshDistance(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Geocoder is the subset of the maps client the service needs.
type Geocoder interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
	ComputeRoute(ctx context.Context, origin, destination maps.LatLng) (*maps.Route, error)
}

// Zoner names the delivery band a distance falls in.
type Zoner interface {
	ZoneFor(meters int) string
}

type addressRepository interface {
	Create(ctx context.Context, addr *models.Address) error
	Update(ctx context.Context, addr *models.Address) error
	FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	DeleteOwned(ctx context.Context, userID, id uuid.UUID) error
}

// ServiceParams wires the address service.
type ServiceParams struct {
	Repo     addressRepository
	Geocoder Geocoder
	Zoner    Zoner
	Maps     config.GoogleMapsConfig
	Logger   *logger.Logger
}

type service struct {
	repo   addressRepository
	geo    Geocoder
	zoner  Zoner
	origin maps.LatLng
	region string
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if params.Zoner == nil {
		return nil, fmt.Errorf("zoner required")
	}
	return &service{
		repo:   params.Repo,
		geo:    params.Geocoder,
		zoner:  params.Zoner,
		origin: maps.LatLng{Latitude: params.Maps.OriginLat, Longitude: params.Maps.OriginLng},
		region: strings.ToUpper(strings.TrimSpace(params.Maps.Region)),
		logg:   params.Logger,
	}, nil
}

func (s *service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if s.geo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}

	payload := maps.AutocompleteRequest{Input: req.Query}
	if s.region != "" {
		payload.IncludedRegionCodes = []string{s.region}
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		payload.LanguageCode = lang
	}

	resp, err := s.geo.Autocomplete(ctx, payload)
	if err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, 0, len(resp))
	for _, item := range resp {
		suggestions = append(suggestions, Suggestion{PlaceID: item.PlaceID, Description: item.Description})
	}
	return suggestions, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateAddressInput) (*AddressDTO, error) {
	placeID := strings.TrimSpace(input.PlaceID)
	full := strings.TrimSpace(input.FullAddress)
	if placeID == "" && full == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place_id or full_address is required")
	}

	addr := &models.Address{UserID: userID, Label: input.Label, FullAddress: full}
	if placeID != "" {
		if s.geo == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "maps client unavailable")
		}
		details, err := s.geo.ResolvePlace(ctx, placeID)
		if err != nil {
			return nil, err
		}
		if details.Location.Latitude == 0 && details.Location.Longitude == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "place location missing")
		}
		lat, lng := details.Location.Latitude, details.Location.Longitude
		addr.PlaceID = &placeID
		addr.Lat = &lat
		addr.Lng = &lng
		if addr.FullAddress == "" {
			addr.FullAddress = details.FormattedAddress
		}
		// a failed route leaves the distance empty; checkout refuses such addresses until refreshed.
		if err := s.measure(ctx, addr); err != nil {
			s.warn(ctx, userID, "address route lookup failed", err)
		}
	}
	if addr.FullAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_address could not be resolved")
	}

	if err := s.repo.Create(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	dto := FromModel(addr)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	addr, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(addr)
	return &dto, nil
}

// RefreshDistance recomputes the route for a geocoded address.
func (s *service) RefreshDistance(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	addr, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if addr.Lat == nil || addr.Lng == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address has no coordinates").
			WithReason("NOT_GEOCODED", nil)
	}
	if err := s.measure(ctx, addr); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
	}
	dto := FromModel(addr)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.DeleteOwned(ctx, userID, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindOwned(ctx, userID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	return addr, nil
}

// measure fills distance, duration and zone from the bakery origin.
func (s *service) measure(ctx context.Context, addr *models.Address) error {
	if s.geo == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "maps client unavailable")
	}
	route, err := s.geo.ComputeRoute(ctx, s.origin, maps.LatLng{Latitude: *addr.Lat, Longitude: *addr.Lng})
	if err != nil {
		if errors.Is(err, maps.ErrNoRoute) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "no driving route to address").
				WithReason("NO_ROUTE", nil)
		}
		return err
	}

	meters := route.DistanceMeters
	minutes := int(math.Ceil(route.Duration.Minutes()))
	addr.DistanceMeters = &meters
	addr.DurationMinutes = &minutes
	if zone := s.zoner.ZoneFor(meters); zone != "" {
		addr.ZoneLabel = &zone
	} else {
		addr.ZoneLabel = nil
	}
	return nil
}

func (s *service) warn(ctx context.Context, userID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithUserID(ctx, userID.String())
	ctx = s.logg.WithField(ctx, "error", err.Error())
	s.logg.Warn(ctx, msg)
}
