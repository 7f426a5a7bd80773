package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryBand is one configured distance interval [MinMeters, MaxMeters).
type DeliveryBand struct {
	Label     string
	MinMeters int
	MaxMeters int
	BaseFee   decimal.Decimal
	PerKmFee  decimal.Decimal
}

// DeliveryBands decodes the compact `label:min-max:fee[+perkm]` list used by
// BAKERY_DELIVERY_BANDS, e.g. `near:0-3000:30,outer:3000-9000:50+4`.
type DeliveryBands []DeliveryBand

// Decode implements envconfig.Decoder.
func (b *DeliveryBands) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*b = nil
		return nil
	}

	entries := strings.Split(value, ",")
	bands := make(DeliveryBands, 0, len(entries))
	for _, entry := range entries {
		band, err := parseBand(strings.TrimSpace(entry))
		if err != nil {
			return err
		}
		bands = append(bands, band)
	}
	*b = bands
	return nil
}

func parseBand(entry string) (DeliveryBand, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 3 {
		return DeliveryBand{}, fmt.Errorf("delivery band %q: expected label:min-max:fee", entry)
	}

	label := strings.TrimSpace(parts[0])
	if label == "" {
		return DeliveryBand{}, fmt.Errorf("delivery band %q: label is required", entry)
	}

	bounds := strings.SplitN(parts[1], "-", 2)
	if len(bounds) != 2 {
		return DeliveryBand{}, fmt.Errorf("delivery band %q: expected min-max range", entry)
	}
	minMeters, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil {
		return DeliveryBand{}, fmt.Errorf("delivery band %q: invalid min: %w", entry, err)
	}
	maxMeters, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return DeliveryBand{}, fmt.Errorf("delivery band %q: invalid max: %w", entry, err)
	}

	feeParts := strings.SplitN(parts[2], "+", 2)
	baseFee, err := decimal.NewFromString(strings.TrimSpace(feeParts[0]))
	if err != nil {
		return DeliveryBand{}, fmt.Errorf("delivery band %q: invalid fee: %w", entry, err)
	}
	perKm := decimal.Zero
	if len(feeParts) == 2 {
		perKm, err = decimal.NewFromString(strings.TrimSpace(feeParts[1]))
		if err != nil {
			return DeliveryBand{}, fmt.Errorf("delivery band %q: invalid per-km fee: %w", entry, err)
		}
	}

	return DeliveryBand{
		Label:     label,
		MinMeters: minMeters,
		MaxMeters: maxMeters,
		BaseFee:   baseFee,
		PerKmFee:  perKm,
	}, nil
}
