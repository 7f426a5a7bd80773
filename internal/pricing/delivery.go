package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

var metersPerKm = decimal.NewFromInt(1000)

// Band prices deliveries whose distance falls in [MinMeters, MaxMeters).
type Band struct {
	Label     string
	MinMeters int
	MaxMeters int
	BaseFee   decimal.Decimal
	PerKmFee  decimal.Decimal
}

func (b Band) contains(meters int) bool {
	return meters >= b.MinMeters && meters < b.MaxMeters
}

func (b Band) fee(meters int) decimal.Decimal {
	if b.PerKmFee.IsZero() {
		return b.BaseFee.Round(2)
	}
	km := decimal.NewFromInt(int64(meters)).Div(metersPerKm)
	return b.BaseFee.Add(b.PerKmFee.Mul(km)).Round(2)
}

// Fee is a resolved delivery charge.
type Fee struct {
	Amount    decimal.Decimal
	ZoneLabel string
}

// Schedule maps distances to delivery fees.
type Schedule struct {
	bands                 []Band
	freeDeliveryThreshold decimal.Decimal
}

// NewSchedule validates bands and returns a schedule sorted by distance.
// A zero freeDeliveryThreshold disables free delivery.
func NewSchedule(bands []Band, freeDeliveryThreshold decimal.Decimal) (Schedule, error) {
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinMeters < sorted[j].MinMeters })

	var err error
	if len(sorted) == 0 {
		err = multierr.Append(err, fmt.Errorf("delivery schedule has no bands"))
	}
	for i, band := range sorted {
		if band.MinMeters < 0 {
			err = multierr.Append(err, fmt.Errorf("band %q: negative lower bound", band.Label))
		}
		if band.MaxMeters <= band.MinMeters {
			err = multierr.Append(err, fmt.Errorf("band %q: upper bound must exceed lower bound", band.Label))
		}
		if band.BaseFee.IsNegative() || band.PerKmFee.IsNegative() {
			err = multierr.Append(err, fmt.Errorf("band %q: negative fee", band.Label))
		}
		if i > 0 && band.MinMeters < sorted[i-1].MaxMeters {
			err = multierr.Append(err, fmt.Errorf("band %q overlaps band %q", band.Label, sorted[i-1].Label))
		}
	}
	if freeDeliveryThreshold.IsNegative() {
		err = multierr.Append(err, fmt.Errorf("free delivery threshold must not be negative"))
	}
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{bands: sorted, freeDeliveryThreshold: freeDeliveryThreshold}, nil
}

// Bands returns a copy of the configured bands in distance order.
func (s Schedule) Bands() []Band {
	out := make([]Band, len(s.bands))
	copy(out, s.bands)
	return out
}

// Resolve prices a delivery over distanceMeters. A nil distance yields ErrMissingDistance.
// Distances below the first band are priced by the first band.
func (s Schedule) Resolve(distanceMeters *int, subtotal decimal.Decimal) (Fee, error) {
	if distanceMeters == nil {
		return Fee{}, ErrMissingDistance
	}
	meters := *distanceMeters
	if meters < 0 {
		return Fee{}, fmt.Errorf("negative distance %d: %w", meters, ErrMissingDistance)
	}

	band, ok := s.bandFor(meters)
	if !ok {
		return Fee{}, fmt.Errorf("%d meters: %w", meters, ErrOutOfRange)
	}

	if s.freeDeliveryThreshold.IsPositive() && subtotal.GreaterThanOrEqual(s.freeDeliveryThreshold) {
		return Fee{Amount: decimal.Zero, ZoneLabel: band.Label}, nil
	}
	return Fee{Amount: band.fee(meters), ZoneLabel: band.Label}, nil
}

func (s Schedule) bandFor(meters int) (Band, bool) {
	if len(s.bands) == 0 {
		return Band{}, false
	}
	if meters < s.bands[0].MinMeters {
		return s.bands[0], true
	}
	for _, band := range s.bands {
		if band.contains(meters) {
			return band, true
		}
	}
	return Band{}, false
}
